package domain

import "context"

// VPNServer is the port the application layer drives. The 3x-ui adapter
// in package xui is the production implementation.
type VPNServer interface {
	Authenticate(ctx context.Context) error

	GetInbounds(ctx context.Context) ([]Inbound, error)
	GetInbound(ctx context.Context, id int) (Inbound, error)
	CreateInbound(ctx context.Context, in Inbound) (Inbound, error)
	UpdateInbound(ctx context.Context, id int, in Inbound) (Inbound, error)
	DeleteInbound(ctx context.Context, id int) error

	AddClient(ctx context.Context, inboundID int, c Client) (Client, error)
	GetClient(ctx context.Context, inboundID int, clientID string) (Client, error)
	UpdateClient(ctx context.Context, inboundID int, clientID string, c Client) (Client, error)
	DeleteClient(ctx context.Context, inboundID int, clientID string) error

	GetTrafficStats(ctx context.Context) ([]InboundTraffic, error)
	GetServerStats(ctx context.Context) (ServerStats, error)
}
