package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/mhsanaei/xui-gateway/logger"
	"github.com/mhsanaei/xui-gateway/web/entity"
)

// Recovery turns a panicking handler into a 500. With debug set the reply
// carries the panic value and stack.
func Recovery(debugMode bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Errorf("panic in %s %s: %v\n%s", c.Request.Method, c.Request.URL.Path, r, stack)
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody(fmt.Sprint(r), stack, debugMode))
			}
		}()
		c.Next()
	}
}

// ErrorBody builds the reply for an unexpected failure.
func ErrorBody(msg, stack string, debugMode bool) entity.ErrorResponse {
	if debugMode {
		return entity.ErrorResponse{Detail: entity.Traceback{Error: msg, Traceback: stack}}
	}
	return entity.ErrorResponse{Detail: "Internal server error"}
}
