package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mhsanaei/xui-gateway/web/entity"
	"github.com/mhsanaei/xui-gateway/web/service"
)

// OwnerController looks clients up by the caller's owner reference.
type OwnerController struct {
	BaseController
	clientService *service.ClientService
}

func NewOwnerController(g *gin.RouterGroup, base BaseController, clients *service.ClientService) *OwnerController {
	a := &OwnerController{BaseController: base, clientService: clients}
	g.GET("/:owner_ref/clients", a.clients)
	return a
}

func (a *OwnerController) clients(c *gin.Context) {
	rows, err := a.clientService.ListByOwner(c.Param("owner_ref"))
	if err != nil {
		a.fail(c, err)
		return
	}
	resp := make([]entity.OwnerClientResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, entity.NewOwnerClientResponse(row))
	}
	c.JSON(http.StatusOK, resp)
}
