package controller

import (
	"github.com/gin-gonic/gin"

	"github.com/mhsanaei/xui-gateway/web/middleware"
	"github.com/mhsanaei/xui-gateway/web/service"
)

// APIController mounts the versioned API under /api/v1.
type APIController struct {
	inboundController *InboundController
	clientController  *ClientController
	ownerController   *OwnerController
	statsController   *StatsController
}

// NewAPIController registers every /api/v1 route on g.
func NewAPIController(g *gin.RouterGroup, vpn *service.VPNService, apiKey string, debug bool) *APIController {
	a := &APIController{}
	a.initRouter(g, vpn, apiKey, debug)
	return a
}

func (a *APIController) initRouter(g *gin.RouterGroup, vpn *service.VPNService, apiKey string, debug bool) {
	api := g.Group("/api/v1")
	api.Use(middleware.APIKeyAuth(apiKey))

	base := BaseController{debug: debug}
	inbounds := api.Group("/inbounds")
	a.inboundController = NewInboundController(inbounds, base, service.NewInboundService(vpn))
	a.clientController = NewClientController(inbounds.Group("/:id/clients"), base, service.NewClientService(vpn))
	a.ownerController = NewOwnerController(api.Group("/owners"), base, service.NewClientService(vpn))
	a.statsController = NewStatsController(api.Group("/stats"), base, vpn)
}
