package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dealersense/chat-api/internal/api/handler/v1/response"
	"github.com/dealersense/chat-api/internal/api/middleware"
	"github.com/dealersense/chat-api/internal/domain"
	"github.com/dealersense/chat-api/internal/service"
)

var errNoUserInContext = errors.New("no authenticated user")

type UserService interface {
	GetUser(ctx context.Context, id uint) (domain.User, error)
	FindByRoleAndLocation(ctx context.Context, role, location string) ([]domain.User, error)
	Contacts(ctx context.Context, user domain.User) ([]domain.User, error)
}

type UserHandler struct {
	svc UserService
}

func NewUserHandler(svc UserService) *UserHandler {
	return &UserHandler{
		svc: svc,
	}
}

// HandleGetMe godoc
// @Summary      Get the authenticated user
// @Tags         users
// @Produce      json
// @Success      200  {object}  domain.User
// @Failure      401  {object}  response.Err
// @Router       /users/me [get]
// @Security     BearerAuth
func (h *UserHandler) HandleGetMe(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	ctx.JSON(http.StatusOK, user)
}

// HandleGetContacts godoc
// @Summary      List chat contacts
// @Description  Users of the opposite role in the caller's location.
// @Tags         users
// @Produce      json
// @Success      200  {array}   domain.User
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /users/contacts [get]
// @Security     BearerAuth
func (h *UserHandler) HandleGetContacts(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	contacts, err := h.svc.Contacts(ctx.Request.Context(), user)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRole) {
			response.RenderErr(ctx, response.ErrBadRequest(err))
			return
		}
		err = fmt.Errorf("v1.HandleGetContacts -> h.svc.Contacts -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, contacts)
}

// HandleListSalesExecs godoc
// @Summary      List sales executives in a location
// @Description  Defaults to the caller's location. Dealers only.
// @Tags         users
// @Produce      json
// @Param        location  query     string  false  "location"
// @Success      200  {array}   domain.User
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /users/sales-execs [get]
// @Security     BearerAuth
func (h *UserHandler) HandleListSalesExecs(ctx *gin.Context) {
	h.listByRole(ctx, domain.RoleSalesExec)
}

// HandleListDealers godoc
// @Summary      List dealers in a location
// @Description  Defaults to the caller's location. Sales executives only.
// @Tags         users
// @Produce      json
// @Param        location  query     string  false  "location"
// @Success      200  {array}   domain.User
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /users/dealers [get]
// @Security     BearerAuth
func (h *UserHandler) HandleListDealers(ctx *gin.Context) {
	h.listByRole(ctx, domain.RoleDealer)
}

func (h *UserHandler) listByRole(ctx *gin.Context, role string) {
	user, respErr := getUserFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	location := ctx.DefaultQuery("location", user.Location)
	users, err := h.svc.FindByRoleAndLocation(ctx.Request.Context(), role, location)
	if err != nil {
		err = fmt.Errorf("v1.listByRole -> h.svc.FindByRoleAndLocation -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, users)
}

func getUserFromContext(ctx *gin.Context) (domain.User, *response.Err) {
	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		return domain.User{}, response.ErrUnauthorized(errNoUserInContext)
	}

	return user, nil
}
