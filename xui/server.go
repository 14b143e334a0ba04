package xui

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/mhsanaei/xui-gateway/domain"
)

const routeServerStatus = "/panel/api/server/status"

// serverStatus is the subset of the panel's status object the gateway reports.
type serverStatus struct {
	CPU float64 `json:"cpu"`
	Mem struct {
		Current float64 `json:"current"`
	} `json:"mem"`
	Disk struct {
		Current float64 `json:"current"`
	} `json:"disk"`
	Uptime uint64 `json:"uptime"`
	NetIO  struct {
		Up   uint64 `json:"up"`
		Down uint64 `json:"down"`
	} `json:"netIO"`
}

func (c *Client) GetServerStats(ctx context.Context) (domain.ServerStats, error) {
	obj, err := c.call(ctx, http.MethodGet, ep(routeServerStatus), nil)
	if err != nil {
		return domain.ServerStats{}, err
	}
	var status serverStatus
	if !isNull(obj) {
		if err := json.Unmarshal(obj, &status); err != nil {
			return domain.ServerStats{}, domain.Wrap(domain.ErrUpstream, err, "unexpected server status payload: %s", snippet(obj))
		}
	}
	return domain.ServerStats{
		CPUUsage:    status.CPU,
		MemoryUsage: status.Mem.Current,
		DiskUsage:   status.Disk.Current,
		Uptime:      status.Uptime,
		NetworkUp:   status.NetIO.Up,
		NetworkDown: status.NetIO.Down,
	}, nil
}
