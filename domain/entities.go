// Package domain holds the gateway's view of inbounds, clients and their
// traffic, independent of any particular panel wire format.
package domain

import (
	"github.com/goccy/go-json"
)

type Protocol string

const (
	VMESS       Protocol = "vmess"
	VLESS       Protocol = "vless"
	Trojan      Protocol = "trojan"
	Shadowsocks Protocol = "shadowsocks"
)

// Valid reports whether p is one of the protocols the gateway manages.
func (p Protocol) Valid() bool {
	switch p {
	case VMESS, VLESS, Trojan, Shadowsocks:
		return true
	}
	return false
}

type Flow string

const (
	FlowNone          Flow = ""
	FlowVision        Flow = "xtls-rprx-vision"
	FlowVisionUDP443  Flow = "xtls-rprx-vision-udp443"
	DefaultClientFlow      = FlowVision
)

func (f Flow) Valid() bool {
	switch f {
	case FlowNone, FlowVision, FlowVisionUDP443:
		return true
	}
	return false
}

type TrafficReset string

const (
	ResetNever   TrafficReset = "never"
	ResetDaily   TrafficReset = "daily"
	ResetWeekly  TrafficReset = "weekly"
	ResetMonthly TrafficReset = "monthly"
)

// Client is one credential inside an inbound's settings. Email is the
// label that links it to its ClientStat. OwnerRef lives only in the local
// metadata store and is never serialised to the panel.
type Client struct {
	ID         string `json:"id"`
	Security   string `json:"security,omitempty"`
	Password   string `json:"password,omitempty"`
	Flow       Flow   `json:"flow"`
	Email      string `json:"email"`
	LimitIP    int    `json:"limitIp"`
	TotalGB    int64  `json:"totalGB"`
	ExpiryTime int64  `json:"expiryTime"`
	Enable     bool   `json:"enable"`
	TgID       int64  `json:"tgId"`
	SubID      string `json:"subId"`
	Comment    string `json:"comment"`
	Reset      int    `json:"reset"`
	CreatedAt  int64  `json:"created_at,omitempty"`
	UpdatedAt  int64  `json:"updated_at,omitempty"`

	OwnerRef *string `json:"-"`
}

// ClientStat is the panel's per-client traffic record. It is read-only.
type ClientStat struct {
	ID         int    `json:"id"`
	InboundID  int    `json:"inboundId"`
	Enable     bool   `json:"enable"`
	Email      string `json:"email"`
	UUID       string `json:"uuid,omitempty"`
	SubID      string `json:"subId,omitempty"`
	Up         int64  `json:"up"`
	Down       int64  `json:"down"`
	AllTime    int64  `json:"allTime,omitempty"`
	ExpiryTime int64  `json:"expiryTime"`
	Total      int64  `json:"total"`
	Reset      int    `json:"reset"`
	LastOnline int64  `json:"lastOnline,omitempty"`
}

// Used returns up + down. A nil stat counts as no traffic.
func (s *ClientStat) Used() int64 {
	if s == nil {
		return 0
	}
	return s.Up + s.Down
}

// Settings is the structured form of an inbound's settings blob.
// Keys other than clients, decryption and encryption are kept in Extra.
type Settings struct {
	Clients    []Client
	Decryption string
	Encryption string
	Extra      map[string]any
}

// NewSettings returns settings with no clients and "none" ciphers.
func NewSettings(clients ...Client) Settings {
	if clients == nil {
		clients = []Client{}
	}
	return Settings{Clients: clients, Decryption: "none", Encryption: "none"}
}

func (s Settings) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+3)
	for k, v := range s.Extra {
		out[k] = v
	}
	clients := s.Clients
	if clients == nil {
		clients = []Client{}
	}
	out["clients"] = clients
	out["decryption"] = s.Decryption
	out["encryption"] = s.Encryption
	return json.Marshal(out)
}

func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NewSettings()
	if v, ok := raw["clients"]; ok {
		if err := json.Unmarshal(v, &s.Clients); err != nil {
			return err
		}
		if s.Clients == nil {
			s.Clients = []Client{}
		}
		delete(raw, "clients")
	}
	if v, ok := raw["decryption"]; ok {
		if err := json.Unmarshal(v, &s.Decryption); err != nil {
			return err
		}
		delete(raw, "decryption")
	}
	if v, ok := raw["encryption"]; ok {
		if err := json.Unmarshal(v, &s.Encryption); err != nil {
			return err
		}
		delete(raw, "encryption")
	}
	for k, v := range raw {
		var value any
		if err := json.Unmarshal(v, &value); err != nil {
			return err
		}
		if s.Extra == nil {
			s.Extra = make(map[string]any, len(raw))
		}
		s.Extra[k] = value
	}
	return nil
}

// Inbound is a listener configuration on the panel. ID is nil until the
// panel has assigned one.
type Inbound struct {
	ID                   *int
	Up                   int64
	Down                 int64
	Total                int64
	AllTime              int64
	Remark               string
	Enable               bool
	ExpiryTime           int64
	TrafficReset         TrafficReset
	LastTrafficResetTime int64
	Listen               string
	Port                 int
	Protocol             Protocol
	Settings             Settings
	Tag                  string
	ClientStats          []ClientStat
	StreamSettings       map[string]any
	Sniffing             map[string]any
}

// Validate checks the fields the panel refuses to accept.
func (in *Inbound) Validate() error {
	if in.Port < 1 || in.Port > 65535 {
		return NewError(ErrInvalidConfiguration, "port must be between 1 and 65535, got %d", in.Port)
	}
	if !in.Protocol.Valid() {
		return NewError(ErrInvalidConfiguration, "unsupported protocol %q", in.Protocol)
	}
	return nil
}

// FindClient returns the client with the given credential id.
func (in *Inbound) FindClient(clientID string) (Client, error) {
	for _, c := range in.Settings.Clients {
		if c.ID == clientID {
			return c, nil
		}
	}
	return Client{}, NewError(ErrClientNotFound, "client %s not found", clientID)
}

// StatFor returns the traffic record whose label equals email.
func (in *Inbound) StatFor(email string) (ClientStat, bool) {
	for _, s := range in.ClientStats {
		if s.Email == email {
			return s, true
		}
	}
	return ClientStat{}, false
}

// InboundTraffic aggregates one inbound's counters.
type InboundTraffic struct {
	InboundID int
	Up        int64
	Down      int64
	Total     int64
}

type ServerStats struct {
	CPUUsage    float64
	MemoryUsage float64
	DiskUsage   float64
	Uptime      uint64
	NetworkUp   uint64
	NetworkDown uint64
}
