package middleware

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// redactedParams are query parameters that may carry credentials.
var redactedParams = []string{"token"}

// AccessLog is gin's request logger with credentials removed from the logged path.
// A nil out writes to gin.DefaultWriter.
func AccessLog(out io.Writer) gin.HandlerFunc {
	if out == nil {
		out = gin.DefaultWriter
	}

	return gin.LoggerWithConfig(gin.LoggerConfig{
		Output: out,
		Formatter: func(p gin.LogFormatterParams) string {
			return fmt.Sprintf("[GIN] %v | %3d | %13v | %15s | %-7s %#v\n%s",
				p.TimeStamp.Format("2006/01/02 - 15:04:05"),
				p.StatusCode,
				p.Latency,
				p.ClientIP,
				p.Method,
				RedactPath(p.Path),
				p.ErrorMessage,
			)
		},
	})
}

// RedactPath replaces the values of credential query parameters in a logged path.
func RedactPath(path string) string {
	base, rawQuery, found := strings.Cut(path, "?")
	if !found {
		return path
	}

	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return base + "?[unparsable query]"
	}

	for _, name := range redactedParams {
		if _, ok := query[name]; ok {
			query.Set(name, "REDACTED")
		}
	}

	return base + "?" + query.Encode()
}
