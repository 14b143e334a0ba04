// Package controller holds the HTTP handlers of the gateway's REST API.
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mhsanaei/xui-gateway/domain"
	"github.com/mhsanaei/xui-gateway/logger"
	"github.com/mhsanaei/xui-gateway/web/entity"
	"github.com/mhsanaei/xui-gateway/web/middleware"
)

// BaseController carries the helpers shared by every controller.
type BaseController struct {
	debug bool
}

// fail writes the reply for err. Not-found kinds map to 404, other domain
// errors to 500 with their message, anything else to an opaque 500.
func (a *BaseController) fail(c *gin.Context, err error) {
	if domain.IsNotFound(err) {
		c.AbortWithStatusJSON(http.StatusNotFound, entity.ErrorResponse{Detail: err.Error()})
		return
	}
	var derr *domain.Error
	if errors.As(err, &derr) {
		logger.Warningf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, entity.ErrorResponse{Detail: derr.Error()})
		return
	}
	logger.Errorf("%s %s: unexpected error: %v", c.Request.Method, c.FullPath(), err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, middleware.ErrorBody(err.Error(), "", a.debug))
}

// invalid writes a 422 for a request that failed binding or validation.
func (a *BaseController) invalid(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, entity.ErrorResponse{Detail: err.Error()})
}
