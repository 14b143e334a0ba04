package xui

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/mhsanaei/xui-gateway/domain"
	"github.com/mhsanaei/xui-gateway/logger"
	"github.com/mhsanaei/xui-gateway/util/metrics"
)

const (
	routeInboundList   = "/panel/api/inbounds/list"
	routeInboundGet    = "/panel/api/inbounds/get/%d"
	routeInboundAdd    = "/panel/api/inbounds/add"
	routeInboundUpdate = "/panel/api/inbounds/update/%d"
	routeInboundDel    = "/panel/api/inbounds/del/%d"
)

func (c *Client) GetInbounds(ctx context.Context) ([]domain.Inbound, error) {
	obj, err := c.call(ctx, http.MethodGet, ep(routeInboundList), nil)
	if err != nil {
		return nil, err
	}
	var raws []json.RawMessage
	if len(obj) > 0 {
		if err := json.Unmarshal(obj, &raws); err != nil {
			return nil, domain.Wrap(domain.ErrUpstream, err, "unexpected inbound list payload: %s", snippet(obj))
		}
	}
	inbounds := make([]domain.Inbound, 0, len(raws))
	for _, raw := range raws {
		in, err := decodeInbound(raw)
		if err != nil {
			logger.Warning("skipping inbound:", err)
			continue
		}
		inbounds = append(inbounds, in)
	}
	return inbounds, nil
}

// GetInbound fetches one inbound. Both the panel's "record not found"
// refusal and a null obj map to ErrInboundNotFound.
func (c *Client) GetInbound(ctx context.Context, id int) (domain.Inbound, error) {
	e := ep(routeInboundGet, id)
	env, err := c.exchange(ctx, http.MethodGet, e, nil)
	if err != nil {
		return domain.Inbound{}, err
	}
	if !env.Success {
		if recordNotFound(env) {
			metrics.UpstreamRequestsTotal.WithLabelValues(e.route, metrics.OutcomeOK).Inc()
			return domain.Inbound{}, domain.NewError(domain.ErrInboundNotFound, "inbound %d not found", id)
		}
		return domain.Inbound{}, rejected(e, env)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(e.route, metrics.OutcomeOK).Inc()
	obj := env.Obj
	if isNull(obj) {
		return domain.Inbound{}, domain.NewError(domain.ErrInboundNotFound, "inbound %d not found", id)
	}
	return decodeInbound(obj)
}

// CreateInbound adds the inbound and returns the panel's stored copy.
// When the panel does not report the new id the input is returned as is.
func (c *Client) CreateInbound(ctx context.Context, in domain.Inbound) (domain.Inbound, error) {
	if err := in.Validate(); err != nil {
		return domain.Inbound{}, err
	}
	in.ID = nil
	payload, err := encodeInbound(in)
	if err != nil {
		return domain.Inbound{}, err
	}
	obj, err := c.call(ctx, http.MethodPost, ep(routeInboundAdd), payload)
	if err != nil {
		return domain.Inbound{}, err
	}
	var created createdObj
	if isNull(obj) || json.Unmarshal(obj, &created) != nil || created.ID == nil {
		logger.Warning("panel did not return an id for the new inbound")
		return in, nil
	}
	logger.Infof("created inbound %d on port %d", *created.ID, in.Port)
	return c.GetInbound(ctx, *created.ID)
}

func (c *Client) UpdateInbound(ctx context.Context, id int, in domain.Inbound) (domain.Inbound, error) {
	if err := in.Validate(); err != nil {
		return domain.Inbound{}, err
	}
	in.ID = &id
	payload, err := encodeInbound(in)
	if err != nil {
		return domain.Inbound{}, err
	}
	if _, err := c.call(ctx, http.MethodPost, ep(routeInboundUpdate, id), payload); err != nil {
		return domain.Inbound{}, err
	}
	return c.GetInbound(ctx, id)
}

// DeleteInbound removes the inbound. A refusal from the panel, such as an
// unknown id, is logged and not reported.
func (c *Client) DeleteInbound(ctx context.Context, id int) error {
	env, err := c.exchange(ctx, http.MethodPost, ep(routeInboundDel, id), nil)
	if err != nil {
		return err
	}
	if !env.Success {
		logger.Warningf("panel refused to delete inbound %d: %s", id, env.Msg)
	}
	return nil
}

func (c *Client) GetTrafficStats(ctx context.Context) ([]domain.InboundTraffic, error) {
	inbounds, err := c.GetInbounds(ctx)
	if err != nil {
		return nil, err
	}
	stats := make([]domain.InboundTraffic, 0, len(inbounds))
	for _, in := range inbounds {
		if in.ID == nil {
			continue
		}
		stats = append(stats, domain.InboundTraffic{
			InboundID: *in.ID,
			Up:        in.Up,
			Down:      in.Down,
			Total:     in.Total,
		})
	}
	return stats, nil
}

func isNull(raw json.RawMessage) bool {
	s := string(raw)
	return s == "" || s == "null"
}
