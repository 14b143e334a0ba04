package xui

import (
	"strconv"

	"github.com/goccy/go-json"

	"github.com/mhsanaei/xui-gateway/domain"
	"github.com/mhsanaei/xui-gateway/logger"
)

// panelInbound mirrors the panel's inbound object. settings,
// streamSettings and sniffing are JSON documents encoded as strings.
type panelInbound struct {
	ID                   *int                `json:"id,omitempty"`
	Up                   int64               `json:"up"`
	Down                 int64               `json:"down"`
	Total                int64               `json:"total"`
	AllTime              int64               `json:"allTime,omitempty"`
	Remark               string              `json:"remark"`
	Enable               bool                `json:"enable"`
	ExpiryTime           int64               `json:"expiryTime"`
	TrafficReset         domain.TrafficReset `json:"trafficReset,omitempty"`
	LastTrafficResetTime int64               `json:"lastTrafficResetTime,omitempty"`
	ClientStats          []domain.ClientStat `json:"clientStats,omitempty"`
	Listen               string              `json:"listen"`
	Port                 int                 `json:"port"`
	Protocol             domain.Protocol     `json:"protocol"`
	Settings             string              `json:"settings"`
	StreamSettings       string              `json:"streamSettings"`
	Tag                  string              `json:"tag,omitempty"`
	Sniffing             string              `json:"sniffing"`
}

// clientPayload is the body of addClient and updateClient.
type clientPayload struct {
	ID       int    `json:"id"`
	Settings string `json:"settings"`
}

type createdObj struct {
	ID *int `json:"id"`
}

func decodeInbound(raw json.RawMessage) (domain.Inbound, error) {
	// Fields the panel omits keep these values.
	p := panelInbound{Enable: true, Port: 443, Protocol: domain.VLESS}
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Inbound{}, domain.Wrap(domain.ErrUpstream, err, "failed to decode inbound: %s", snippet(raw))
	}

	settings, err := decodeSettings(p.Settings)
	if err != nil {
		return domain.Inbound{}, domain.Wrap(domain.ErrInvalidConfiguration, err, "inbound %s has undecodable settings", inboundLabel(p))
	}

	return domain.Inbound{
		ID:                   p.ID,
		Up:                   p.Up,
		Down:                 p.Down,
		Total:                p.Total,
		AllTime:              p.AllTime,
		Remark:               p.Remark,
		Enable:               p.Enable,
		ExpiryTime:           p.ExpiryTime,
		TrafficReset:         p.TrafficReset,
		LastTrafficResetTime: p.LastTrafficResetTime,
		Listen:               p.Listen,
		Port:                 p.Port,
		Protocol:             p.Protocol,
		Settings:             settings,
		Tag:                  p.Tag,
		ClientStats:          p.ClientStats,
		StreamSettings:       decodeBlob(p, "streamSettings", p.StreamSettings),
		Sniffing:             decodeBlob(p, "sniffing", p.Sniffing),
	}, nil
}

func decodeSettings(s string) (domain.Settings, error) {
	if s == "" {
		return domain.NewSettings(), nil
	}
	var settings domain.Settings
	if err := json.Unmarshal([]byte(s), &settings); err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}

// decodeBlob decodes an opaque JSON-string field. A broken blob is
// replaced with an empty object so one bad inbound does not hide the
// rest of the list.
func decodeBlob(p panelInbound, field, s string) map[string]any {
	if s == "" {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		logger.Warningf("inbound %s: ignoring undecodable %s: %v", inboundLabel(p), field, err)
		return map[string]any{}
	}
	if out == nil {
		return map[string]any{}
	}
	return out
}

func inboundLabel(p panelInbound) string {
	if p.ID != nil {
		return strconv.Itoa(*p.ID)
	}
	return p.Remark
}

func encodeInbound(in domain.Inbound) (panelInbound, error) {
	settings, err := json.Marshal(in.Settings)
	if err != nil {
		return panelInbound{}, domain.Wrap(domain.ErrInvalidConfiguration, err, "failed to encode settings")
	}
	stream, err := encodeBlob(in.StreamSettings)
	if err != nil {
		return panelInbound{}, domain.Wrap(domain.ErrInvalidConfiguration, err, "failed to encode streamSettings")
	}
	sniffing, err := encodeBlob(in.Sniffing)
	if err != nil {
		return panelInbound{}, domain.Wrap(domain.ErrInvalidConfiguration, err, "failed to encode sniffing")
	}
	return panelInbound{
		ID:             in.ID,
		Up:             in.Up,
		Down:           in.Down,
		Total:          in.Total,
		Remark:         in.Remark,
		Enable:         in.Enable,
		ExpiryTime:     in.ExpiryTime,
		TrafficReset:   in.TrafficReset,
		Listen:         in.Listen,
		Port:           in.Port,
		Protocol:       in.Protocol,
		Settings:       string(settings),
		StreamSettings: stream,
		Sniffing:       sniffing,
	}, nil
}

func encodeBlob(m map[string]any) (string, error) {
	if m == nil {
		m = map[string]any{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encodeClients(inboundID int, clients ...domain.Client) (clientPayload, error) {
	b, err := json.Marshal(map[string][]domain.Client{"clients": clients})
	if err != nil {
		return clientPayload{}, domain.Wrap(domain.ErrInvalidConfiguration, err, "failed to encode client")
	}
	return clientPayload{ID: inboundID, Settings: string(b)}, nil
}
