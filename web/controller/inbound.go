package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mhsanaei/xui-gateway/web/entity"
	"github.com/mhsanaei/xui-gateway/web/service"
)

// InboundController serves the inbound resources.
type InboundController struct {
	BaseController
	inboundService *service.InboundService
}

func NewInboundController(g *gin.RouterGroup, base BaseController, inbounds *service.InboundService) *InboundController {
	a := &InboundController{BaseController: base, inboundService: inbounds}
	a.initRouter(g)
	return a
}

func (a *InboundController) initRouter(g *gin.RouterGroup) {
	g.GET("", a.list)
	g.POST("", a.create)
	g.GET("/:id", a.get)
	g.PUT("/:id", a.update)
	g.DELETE("/:id", a.delete)
}

func (a *InboundController) list(c *gin.Context) {
	inbounds, err := a.inboundService.List(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	metas := a.inboundService.Metadata(inbounds...)
	resp := make([]entity.InboundResponse, 0, len(inbounds))
	for _, in := range inbounds {
		resp = append(resp, entity.NewInboundResponse(in, metas))
	}
	c.JSON(http.StatusOK, resp)
}

func (a *InboundController) get(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		a.invalid(c, err)
		return
	}
	in, err := a.inboundService.Get(c.Request.Context(), id)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entity.NewInboundResponse(in, a.inboundService.Metadata(in)))
}

func (a *InboundController) create(c *gin.Context) {
	var req entity.InboundCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.invalid(c, err)
		return
	}
	in, err := a.inboundService.Create(c.Request.Context(), &req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, entity.NewInboundResponse(in, a.inboundService.Metadata(in)))
}

func (a *InboundController) update(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		a.invalid(c, err)
		return
	}
	var req entity.InboundUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.invalid(c, err)
		return
	}
	in, err := a.inboundService.Update(c.Request.Context(), id, &req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entity.NewInboundResponse(in, a.inboundService.Metadata(in)))
}

func (a *InboundController) delete(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		a.invalid(c, err)
		return
	}
	if err := a.inboundService.Delete(c.Request.Context(), id); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
