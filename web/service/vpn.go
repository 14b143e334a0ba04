package service

import (
	"context"

	"github.com/mhsanaei/xui-gateway/domain"
)

// VPNService drives a domain.VPNServer, logging in before every
// operation.
type VPNService struct {
	server domain.VPNServer
}

// NewVPNService wraps server. Every call logs in first.
func NewVPNService(server domain.VPNServer) *VPNService {
	return &VPNService{server: server}
}

// EnsureAuthenticated logs in to the panel and refreshes the session token.
func (s *VPNService) EnsureAuthenticated(ctx context.Context) error {
	return s.server.Authenticate(ctx)
}

// ListInbounds returns every inbound the panel knows about. Inbounds
// whose settings do not decode are skipped.
func (s *VPNService) ListInbounds(ctx context.Context) ([]domain.Inbound, error) {
	if err := s.EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}
	return s.server.GetInbounds(ctx)
}

// GetInbound fails with domain.ErrInboundNotFound for unknown ids.
func (s *VPNService) GetInbound(ctx context.Context, id int) (domain.Inbound, error) {
	if err := s.EnsureAuthenticated(ctx); err != nil {
		return domain.Inbound{}, err
	}
	return s.server.GetInbound(ctx, id)
}

// CreateInbound returns the inbound as the panel stored it, id included.
func (s *VPNService) CreateInbound(ctx context.Context, in domain.Inbound) (domain.Inbound, error) {
	if err := s.EnsureAuthenticated(ctx); err != nil {
		return domain.Inbound{}, err
	}
	return s.server.CreateInbound(ctx, in)
}

// UpdateInbound replaces inbound id with in.
func (s *VPNService) UpdateInbound(ctx context.Context, id int, in domain.Inbound) (domain.Inbound, error) {
	if err := s.EnsureAuthenticated(ctx); err != nil {
		return domain.Inbound{}, err
	}
	return s.server.UpdateInbound(ctx, id, in)
}

// DeleteInbound removes the inbound and all of its clients.
func (s *VPNService) DeleteInbound(ctx context.Context, id int) error {
	if err := s.EnsureAuthenticated(ctx); err != nil {
		return err
	}
	return s.server.DeleteInbound(ctx, id)
}

// AddClient appends c to the inbound's client list.
func (s *VPNService) AddClient(ctx context.Context, inboundID int, c domain.Client) (domain.Client, error) {
	if err := s.EnsureAuthenticated(ctx); err != nil {
		return domain.Client{}, err
	}
	return s.server.AddClient(ctx, inboundID, c)
}

// GetClient looks the client up by id within the inbound.
func (s *VPNService) GetClient(ctx context.Context, inboundID int, clientID string) (domain.Client, error) {
	if err := s.EnsureAuthenticated(ctx); err != nil {
		return domain.Client{}, err
	}
	return s.server.GetClient(ctx, inboundID, clientID)
}

// UpdateClient replaces clientID inside the inbound with c.
func (s *VPNService) UpdateClient(ctx context.Context, inboundID int, clientID string, c domain.Client) (domain.Client, error) {
	if err := s.EnsureAuthenticated(ctx); err != nil {
		return domain.Client{}, err
	}
	return s.server.UpdateClient(ctx, inboundID, clientID, c)
}

// DeleteClient removes one client from the inbound.
func (s *VPNService) DeleteClient(ctx context.Context, inboundID int, clientID string) error {
	if err := s.EnsureAuthenticated(ctx); err != nil {
		return err
	}
	return s.server.DeleteClient(ctx, inboundID, clientID)
}

// TrafficStats reports per-inbound counters.
func (s *VPNService) TrafficStats(ctx context.Context) ([]domain.InboundTraffic, error) {
	if err := s.EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}
	return s.server.GetTrafficStats(ctx)
}

// ServerStats reports host load and network counters.
func (s *VPNService) ServerStats(ctx context.Context) (domain.ServerStats, error) {
	if err := s.EnsureAuthenticated(ctx); err != nil {
		return domain.ServerStats{}, err
	}
	return s.server.GetServerStats(ctx)
}
