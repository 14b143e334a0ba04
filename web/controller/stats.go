package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mhsanaei/xui-gateway/web/entity"
	"github.com/mhsanaei/xui-gateway/web/service"
)

// StatsController exposes traffic totals and panel host status.
type StatsController struct {
	BaseController
	vpn *service.VPNService
}

func NewStatsController(g *gin.RouterGroup, base BaseController, vpn *service.VPNService) *StatsController {
	a := &StatsController{BaseController: base, vpn: vpn}
	a.initRouter(g)
	return a
}

func (a *StatsController) initRouter(g *gin.RouterGroup) {
	g.GET("/traffic", a.traffic)
	g.GET("/server", a.server)
}

func (a *StatsController) traffic(c *gin.Context) {
	stats, err := a.vpn.TrafficStats(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	resp := make([]entity.InboundTrafficResponse, 0, len(stats))
	for _, t := range stats {
		resp = append(resp, entity.NewInboundTrafficResponse(t))
	}
	c.JSON(http.StatusOK, resp)
}

func (a *StatsController) server(c *gin.Context) {
	stats, err := a.vpn.ServerStats(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entity.NewServerStatsResponse(stats))
}
