package controller

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mhsanaei/xui-gateway/web/entity"
	"github.com/mhsanaei/xui-gateway/web/service"
)

// ClientController serves the clients of one inbound.
type ClientController struct {
	BaseController
	clientService *service.ClientService
}

func NewClientController(g *gin.RouterGroup, base BaseController, clients *service.ClientService) *ClientController {
	a := &ClientController{BaseController: base, clientService: clients}
	a.initRouter(g)
	return a
}

func (a *ClientController) initRouter(g *gin.RouterGroup) {
	g.GET("", a.list)
	g.POST("", a.add)
	g.GET("/:client_id", a.get)
	g.PUT("/:client_id", a.update)
	g.DELETE("/:client_id", a.delete)
}

func (a *ClientController) list(c *gin.Context) {
	inboundID, err := paramID(c, "id")
	if err != nil {
		a.invalid(c, err)
		return
	}
	views, err := a.clientService.List(c.Request.Context(), inboundID)
	if err != nil {
		a.fail(c, err)
		return
	}
	resp := make([]entity.ClientResponse, 0, len(views))
	for i := range views {
		resp = append(resp, views[i].Response())
	}
	c.JSON(http.StatusOK, resp)
}

func (a *ClientController) get(c *gin.Context) {
	inboundID, err := paramID(c, "id")
	if err != nil {
		a.invalid(c, err)
		return
	}
	view, err := a.clientService.Get(c.Request.Context(), inboundID, c.Param("client_id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view.Response())
}

func (a *ClientController) add(c *gin.Context) {
	inboundID, err := paramID(c, "id")
	if err != nil {
		a.invalid(c, err)
		return
	}
	var req entity.ClientCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.invalid(c, err)
		return
	}
	view, err := a.clientService.Add(c.Request.Context(), inboundID, &req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view.Response())
}

func (a *ClientController) update(c *gin.Context) {
	inboundID, err := paramID(c, "id")
	if err != nil {
		a.invalid(c, err)
		return
	}
	var req entity.ClientUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.invalid(c, err)
		return
	}
	if req.Flow != nil && !req.Flow.Valid() {
		a.invalid(c, fmt.Errorf("unsupported flow %q", *req.Flow))
		return
	}
	view, err := a.clientService.Update(c.Request.Context(), inboundID, c.Param("client_id"), &req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view.Response())
}

func (a *ClientController) delete(c *gin.Context) {
	inboundID, err := paramID(c, "id")
	if err != nil {
		a.invalid(c, err)
		return
	}
	if err := a.clientService.Delete(c.Request.Context(), inboundID, c.Param("client_id")); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
