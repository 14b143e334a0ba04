package xui

import (
	"context"
	"net/http"
	"net/url"

	"github.com/mhsanaei/xui-gateway/domain"
	"github.com/mhsanaei/xui-gateway/logger"
)

const (
	routeClientAdd    = "/panel/api/inbounds/addClient"
	routeClientUpdate = "/panel/api/inbounds/updateClient/%s"
	routeClientDel    = "/panel/api/inbounds/%d/delClient/%s"
)

func (c *Client) AddClient(ctx context.Context, inboundID int, client domain.Client) (domain.Client, error) {
	payload, err := encodeClients(inboundID, client)
	if err != nil {
		return domain.Client{}, err
	}
	if _, err := c.call(ctx, http.MethodPost, ep(routeClientAdd), payload); err != nil {
		return domain.Client{}, err
	}
	logger.Infof("added client %s to inbound %d", client.Email, inboundID)
	return client, nil
}

// GetClient fetches the inbound and returns the client with the given id.
func (c *Client) GetClient(ctx context.Context, inboundID int, clientID string) (domain.Client, error) {
	in, err := c.GetInbound(ctx, inboundID)
	if err != nil {
		return domain.Client{}, err
	}
	client, err := in.FindClient(clientID)
	if err != nil {
		return domain.Client{}, domain.NewError(domain.ErrClientNotFound, "client %s not found in inbound %d", clientID, inboundID)
	}
	return client, nil
}

func (c *Client) UpdateClient(ctx context.Context, inboundID int, clientID string, client domain.Client) (domain.Client, error) {
	payload, err := encodeClients(inboundID, client)
	if err != nil {
		return domain.Client{}, err
	}
	if _, err := c.call(ctx, http.MethodPost, ep(routeClientUpdate, url.PathEscape(clientID)), payload); err != nil {
		return domain.Client{}, err
	}
	return client, nil
}

// DeleteClient removes the client. Like DeleteInbound, a refusal from the
// panel is logged and not reported.
func (c *Client) DeleteClient(ctx context.Context, inboundID int, clientID string) error {
	env, err := c.exchange(ctx, http.MethodPost, ep(routeClientDel, inboundID, url.PathEscape(clientID)), nil)
	if err != nil {
		return err
	}
	if !env.Success {
		logger.Warningf("panel refused to delete client %s from inbound %d: %s", clientID, inboundID, env.Msg)
	}
	return nil
}
