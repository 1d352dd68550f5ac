package response

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Err struct {
	HTTPStatusCode int    `json:"-"`
	StatusText     string `json:"status"`
	ErrorMsg       string `json:"error,omitempty"`
}

func RenderErr(ctx *gin.Context, e *Err) {
	ctx.AbortWithStatusJSON(e.HTTPStatusCode, e)
}

func ErrBadRequest(err error) *Err {
	return &Err{
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Bad request.",
		ErrorMsg:       err.Error(),
	}
}

func ErrUnauthorized(err error) *Err {
	return &Err{
		HTTPStatusCode: http.StatusUnauthorized,
		StatusText:     "Unauthorized.",
		ErrorMsg:       err.Error(),
	}
}

func ErrWrongCredentials(err error) *Err {
	zap.L().Info("login rejected", zap.Error(err))

	return &Err{
		HTTPStatusCode: http.StatusUnauthorized,
		StatusText:     "Wrong credentials.",
		ErrorMsg:       "email or password is incorrect",
	}
}

func ErrPermissionDenied(err error) *Err {
	return &Err{
		HTTPStatusCode: http.StatusForbidden,
		StatusText:     "Permission denied.",
		ErrorMsg:       err.Error(),
	}
}

func ErrNotFound(resource, key string, value any) *Err {
	return &Err{
		HTTPStatusCode: http.StatusNotFound,
		StatusText:     "Resource not found.",
		ErrorMsg:       fmt.Sprintf("%v with %v=%v doesn't exist", resource, key, value),
	}
}

// ErrInternalServerError logs the cause and hides it from the caller.
func ErrInternalServerError(err error) *Err {
	zap.L().Error("internal server error", zap.Error(err))

	return &Err{
		HTTPStatusCode: http.StatusInternalServerError,
		StatusText:     "Internal server error.",
		ErrorMsg:       "something went wrong",
	}
}
