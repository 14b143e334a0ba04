// Package entity defines the request and response bodies of the REST API.
package entity

import (
	"github.com/goccy/go-json"

	"github.com/mhsanaei/xui-gateway/database/model"
	"github.com/mhsanaei/xui-gateway/domain"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Detail any `json:"detail"`
}

// Traceback is the detail of an unexpected failure in debug mode.
type Traceback struct {
	Error     string `json:"error"`
	Traceback string `json:"traceback"`
}

// NullableString tells an absent JSON key apart from an explicit null.
type NullableString struct {
	Set   bool
	Value *string
}

func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

type ClientCreateRequest struct {
	LimitIP  int     `json:"limit_ip" binding:"min=0"`
	TotalGB  int64   `json:"total_gb" binding:"min=0"`
	Expired  int64   `json:"expired"`
	OwnerRef *string `json:"owner_ref"`
}

// ClientUpdateRequest carries only the fields to change.
type ClientUpdateRequest struct {
	Email      *string        `json:"email"`
	Enable     *bool          `json:"enable"`
	Flow       *domain.Flow   `json:"flow"`
	LimitIP    *int           `json:"limit_ip" binding:"omitempty,min=0"`
	TotalGB    *int64         `json:"total_gb" binding:"omitempty,min=0"`
	ExpireTime *int64         `json:"expire_time"`
	OwnerRef   NullableString `json:"owner_ref"`
}

// Apply copies the provided fields onto c. total_gb is the byte quota.
func (r *ClientUpdateRequest) Apply(c *domain.Client) {
	if r.Email != nil {
		c.Email = *r.Email
	}
	if r.Enable != nil {
		c.Enable = *r.Enable
	}
	if r.Flow != nil {
		c.Flow = *r.Flow
	}
	if r.LimitIP != nil {
		c.LimitIP = *r.LimitIP
	}
	if r.TotalGB != nil {
		c.TotalGB = *r.TotalGB
	}
	if r.ExpireTime != nil {
		c.ExpiryTime = *r.ExpireTime
	}
}

type ClientResponse struct {
	ID           string  `json:"id"`
	Email        string  `json:"email"`
	Enable       bool    `json:"enable"`
	LimitIP      int     `json:"limit_ip"`
	TotalGB      int64   `json:"total_gb"`
	AllTimeGB    int64   `json:"all_time_gb"`
	ExpireTime   int64   `json:"expire_time"`
	TotalGBLimit int64   `json:"total_gb_limit"`
	Flow         string  `json:"flow"`
	Up           int64   `json:"up"`
	Down         int64   `json:"down"`
	OwnerRef     *string `json:"owner_ref"`
}

// NewClientResponse merges a client with its traffic row and metadata.
// Either may be nil.
func NewClientResponse(c domain.Client, stat *domain.ClientStat, meta *model.ClientMetadata) ClientResponse {
	resp := ClientResponse{
		ID:           c.ID,
		Email:        c.Email,
		Enable:       c.Enable,
		LimitIP:      c.LimitIP,
		TotalGB:      stat.Used(),
		ExpireTime:   c.ExpiryTime,
		TotalGBLimit: c.TotalGB,
		Flow:         string(c.Flow),
	}
	if stat != nil {
		resp.Up = stat.Up
		resp.Down = stat.Down
		resp.AllTimeGB = stat.AllTime
	}
	if meta != nil {
		resp.OwnerRef = meta.OwnerRef
	}
	return resp
}

type InboundCreateRequest struct {
	Remark         string           `json:"remark" binding:"required"`
	Enable         *bool            `json:"enable"`
	Listen         string           `json:"listen"`
	Port           int              `json:"port" binding:"required,min=1,max=65535"`
	Protocol       domain.Protocol  `json:"protocol" binding:"required,oneof=vmess vless trojan shadowsocks"`
	ExpiryTime     int64            `json:"expiry_time"`
	Total          int64            `json:"total" binding:"min=0"`
	Settings       *domain.Settings `json:"settings"`
	StreamSettings map[string]any   `json:"stream_settings"`
	Sniffing       map[string]any   `json:"sniffing"`
}

func (r *InboundCreateRequest) Inbound() domain.Inbound {
	in := domain.Inbound{
		Remark:         r.Remark,
		Enable:         true,
		Listen:         r.Listen,
		Port:           r.Port,
		Protocol:       r.Protocol,
		ExpiryTime:     r.ExpiryTime,
		Total:          r.Total,
		Settings:       domain.NewSettings(),
		StreamSettings: r.StreamSettings,
		Sniffing:       r.Sniffing,
	}
	if r.Enable != nil {
		in.Enable = *r.Enable
	}
	if r.Settings != nil {
		in.Settings = *r.Settings
	}
	if in.StreamSettings == nil {
		in.StreamSettings = map[string]any{}
	}
	if in.Sniffing == nil {
		in.Sniffing = map[string]any{}
	}
	return in
}

type InboundUpdateRequest struct {
	Remark         *string          `json:"remark"`
	Enable         *bool            `json:"enable"`
	Port           *int             `json:"port" binding:"omitempty,min=1,max=65535"`
	Settings       *domain.Settings `json:"settings"`
	StreamSettings map[string]any   `json:"stream_settings"`
	Sniffing       map[string]any   `json:"sniffing"`
}

// Apply copies the provided fields onto in. A provided settings object
// replaces the whole settings blob, clients included.
func (r *InboundUpdateRequest) Apply(in *domain.Inbound) {
	if r.Remark != nil {
		in.Remark = *r.Remark
	}
	if r.Enable != nil {
		in.Enable = *r.Enable
	}
	if r.Port != nil {
		in.Port = *r.Port
	}
	if r.Settings != nil {
		in.Settings = *r.Settings
	}
	if r.StreamSettings != nil {
		in.StreamSettings = r.StreamSettings
	}
	if r.Sniffing != nil {
		in.Sniffing = r.Sniffing
	}
}

type InboundResponse struct {
	ID             *int             `json:"id"`
	Up             int64            `json:"up"`
	Down           int64            `json:"down"`
	Total          int64            `json:"total"`
	Remark         string           `json:"remark"`
	Enable         bool             `json:"enable"`
	Port           int              `json:"port"`
	Protocol       domain.Protocol  `json:"protocol"`
	Tag            string           `json:"tag"`
	Settings       domain.Settings  `json:"settings"`
	StreamSettings map[string]any   `json:"stream_settings"`
	Sniffing       map[string]any   `json:"sniffing"`
	Clients        []ClientResponse `json:"clients"`
}

// NewInboundResponse renders an inbound with each client joined to its
// traffic row by label. metas is keyed by client id and may be nil.
func NewInboundResponse(in domain.Inbound, metas map[string]*model.ClientMetadata) InboundResponse {
	clients := make([]ClientResponse, 0, len(in.Settings.Clients))
	for _, c := range in.Settings.Clients {
		var stat *domain.ClientStat
		if s, ok := in.StatFor(c.Email); ok {
			stat = &s
		}
		clients = append(clients, NewClientResponse(c, stat, metas[c.ID]))
	}
	stream := in.StreamSettings
	if stream == nil {
		stream = map[string]any{}
	}
	sniffing := in.Sniffing
	if sniffing == nil {
		sniffing = map[string]any{}
	}
	return InboundResponse{
		ID:             in.ID,
		Up:             in.Up,
		Down:           in.Down,
		Total:          in.Total,
		Remark:         in.Remark,
		Enable:         in.Enable,
		Port:           in.Port,
		Protocol:       in.Protocol,
		Tag:            in.Tag,
		Settings:       in.Settings,
		StreamSettings: stream,
		Sniffing:       sniffing,
		Clients:        clients,
	}
}

type InboundTrafficResponse struct {
	InboundID int   `json:"inbound_id"`
	Up        int64 `json:"up"`
	Down      int64 `json:"down"`
	Total     int64 `json:"total"`
}

func NewInboundTrafficResponse(t domain.InboundTraffic) InboundTrafficResponse {
	return InboundTrafficResponse{InboundID: t.InboundID, Up: t.Up, Down: t.Down, Total: t.Total}
}

type ServerStatsResponse struct {
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryUsage float64 `json:"memory_usage"`
	DiskUsage   float64 `json:"disk_usage"`
	Uptime      uint64  `json:"uptime"`
	NetworkUp   uint64  `json:"network_up"`
	NetworkDown uint64  `json:"network_down"`
}

func NewServerStatsResponse(s domain.ServerStats) ServerStatsResponse {
	return ServerStatsResponse{
		CPUUsage:    s.CPUUsage,
		MemoryUsage: s.MemoryUsage,
		DiskUsage:   s.DiskUsage,
		Uptime:      s.Uptime,
		NetworkUp:   s.NetworkUp,
		NetworkDown: s.NetworkDown,
	}
}

// OwnerClientResponse is one metadata row of an owner lookup.
type OwnerClientResponse struct {
	ClientID  string  `json:"client_id"`
	OwnerRef  *string `json:"owner_ref"`
	CreatedAt int64   `json:"created_at"`
	UpdatedAt int64   `json:"updated_at"`
}

func NewOwnerClientResponse(m model.ClientMetadata) OwnerClientResponse {
	return OwnerClientResponse{
		ClientID:  m.ClientID,
		OwnerRef:  m.OwnerRef,
		CreatedAt: m.CreatedAt.UnixMilli(),
		UpdatedAt: m.UpdatedAt.UnixMilli(),
	}
}
