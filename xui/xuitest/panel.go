// Package xuitest provides an in-memory 3x-ui panel for tests.
package xuitest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

const (
	Username = "admin"
	Password = "secret"
	Token    = "fake-session-token"
)

// ClientStat is the panel's traffic row for one client.
type ClientStat struct {
	ID         int    `json:"id"`
	InboundID  int    `json:"inboundId"`
	Enable     bool   `json:"enable"`
	Email      string `json:"email"`
	Up         int64  `json:"up"`
	Down       int64  `json:"down"`
	ExpiryTime int64  `json:"expiryTime"`
	Total      int64  `json:"total"`
	Reset      int    `json:"reset"`
}

// Inbound is stored exactly as the panel serves it, with JSON-string
// settings blobs.
type Inbound struct {
	ID             int          `json:"id"`
	Up             int64        `json:"up"`
	Down           int64        `json:"down"`
	Total          int64        `json:"total"`
	Remark         string       `json:"remark"`
	Enable         bool         `json:"enable"`
	ExpiryTime     int64        `json:"expiryTime"`
	ClientStats    []ClientStat `json:"clientStats"`
	Listen         string       `json:"listen"`
	Port           int          `json:"port"`
	Protocol       string       `json:"protocol"`
	Settings       string       `json:"settings"`
	StreamSettings string       `json:"streamSettings"`
	Tag            string       `json:"tag"`
	Sniffing       string       `json:"sniffing"`
}

type Status struct {
	CPU float64 `json:"cpu"`
	Mem struct {
		Current uint64 `json:"current"`
		Total   uint64 `json:"total"`
	} `json:"mem"`
	Disk struct {
		Current uint64 `json:"current"`
		Total   uint64 `json:"total"`
	} `json:"disk"`
	Uptime uint64 `json:"uptime"`
	NetIO  struct {
		Up   uint64 `json:"up"`
		Down uint64 `json:"down"`
	} `json:"netIO"`
}

type msg struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Obj     any    `json:"obj"`
}

// Panel is a fake 3x-ui panel backed by httptest.Server.
type Panel struct {
	*httptest.Server

	mu       sync.Mutex
	inbounds map[int]*Inbound
	nextID   int
	logins   int
	requests []string
	status   Status

	// OmitCreatedID makes add replies carry a null obj.
	OmitCreatedID bool
	// RejectClientUpdates makes updateClient answer success:false.
	RejectClientUpdates bool
	// NullForMissing makes get answer a missing id with success:true and
	// a null obj instead of the "record not found" refusal.
	NullForMissing bool
	// UpdateClientDelay is slept before updateClient replies.
	UpdateClientDelay time.Duration
}

func NewPanel() *Panel {
	p := &Panel{inbounds: map[int]*Inbound{}, nextID: 1}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", p.login)
	mux.HandleFunc("GET /panel/api/inbounds/list", p.auth(p.list))
	mux.HandleFunc("GET /panel/api/inbounds/get/{id}", p.auth(p.get))
	mux.HandleFunc("POST /panel/api/inbounds/add", p.auth(p.add))
	mux.HandleFunc("POST /panel/api/inbounds/update/{id}", p.auth(p.update))
	mux.HandleFunc("POST /panel/api/inbounds/del/{id}", p.auth(p.del))
	mux.HandleFunc("POST /panel/api/inbounds/addClient", p.auth(p.addClient))
	mux.HandleFunc("POST /panel/api/inbounds/updateClient/{clientId}", p.auth(p.updateClient))
	mux.HandleFunc("POST /panel/api/inbounds/{id}/delClient/{clientId}", p.auth(p.delClient))
	mux.HandleFunc("GET /panel/api/server/status", p.auth(p.serverStatus))
	p.Server = httptest.NewServer(p.record(mux))
	return p
}

func (p *Panel) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.requests = append(p.requests, r.Method+" "+r.URL.Path)
		p.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// Put stores an inbound, replacing any with the same id.
func (p *Panel) Put(in Inbound) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := in
	p.inbounds[in.ID] = &cp
	if in.ID >= p.nextID {
		p.nextID = in.ID + 1
	}
}

// Inbound returns a copy of a stored inbound.
func (p *Panel) Inbound(id int) (Inbound, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	in, ok := p.inbounds[id]
	if !ok {
		return Inbound{}, false
	}
	return *in, true
}

// SetTraffic sets the counters of the stat row labelled email.
func (p *Panel) SetTraffic(inboundID int, email string, up, down int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	in, ok := p.inbounds[inboundID]
	if !ok {
		return
	}
	for i := range in.ClientStats {
		if in.ClientStats[i].Email == email {
			in.ClientStats[i].Up = up
			in.ClientStats[i].Down = down
			return
		}
	}
	in.ClientStats = append(in.ClientStats, ClientStat{InboundID: inboundID, Enable: true, Email: email, Up: up, Down: down})
}

func (p *Panel) SetStatus(s Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = s
}

func (p *Panel) Logins() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.logins
}

// Requests returns "METHOD /path" for every request received so far.
func (p *Panel) Requests() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.requests...)
}

// ClientSettings decodes the clients of a stored inbound.
func (p *Panel) ClientSettings(id int) []map[string]any {
	in, ok := p.Inbound(id)
	if !ok {
		return nil
	}
	settings := decodeSettings(in.Settings)
	return clientsOf(settings)
}

func (p *Panel) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Username != Username || req.Password != Password {
		writeJSON(w, msg{Success: false, Msg: "Invalid username or password"})
		return
	}
	p.mu.Lock()
	p.logins++
	p.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: "3x-ui", Value: Token, Path: "/", HttpOnly: true})
	writeJSON(w, msg{Success: true, Msg: "Login Successfully"})
}

func (p *Panel) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("3x-ui")
		if err != nil || cookie.Value != Token {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		next(w, r)
	}
}

func (p *Panel) list(w http.ResponseWriter, _ *http.Request) {
	p.mu.Lock()
	ids := make([]int, 0, len(p.inbounds))
	for id := range p.inbounds {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Inbound, 0, len(ids))
	for _, id := range ids {
		out = append(out, *p.inbounds[id])
	}
	p.mu.Unlock()
	writeJSON(w, msg{Success: true, Obj: out})
}

func (p *Panel) get(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	in, ok := p.Inbound(id)
	if !ok {
		if p.NullForMissing {
			writeJSON(w, msg{Success: true, Obj: nil})
			return
		}
		writeJSON(w, msg{Success: false, Msg: "Failed to obtain inbound (record not found)"})
		return
	}
	writeJSON(w, msg{Success: true, Obj: in})
}

func (p *Panel) add(w http.ResponseWriter, r *http.Request) {
	var in Inbound
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, msg{Success: false, Msg: "Create Failed: " + err.Error()})
		return
	}
	p.mu.Lock()
	in.ID = p.nextID
	p.nextID++
	in.Tag = fmt.Sprintf("inbound-%d", in.Port)
	for _, c := range clientsOf(decodeSettings(in.Settings)) {
		email, _ := c["email"].(string)
		in.ClientStats = append(in.ClientStats, ClientStat{InboundID: in.ID, Enable: true, Email: email})
	}
	p.inbounds[in.ID] = &in
	created := in
	p.mu.Unlock()
	if p.OmitCreatedID {
		writeJSON(w, msg{Success: true, Msg: "Create Successfully"})
		return
	}
	writeJSON(w, msg{Success: true, Msg: "Create Successfully", Obj: created})
}

func (p *Panel) update(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	var in Inbound
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, msg{Success: false, Msg: "Update Failed: " + err.Error()})
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	old, ok := p.inbounds[id]
	if !ok {
		writeJSON(w, msg{Success: false, Msg: "Update Failed: record not found"})
		return
	}
	in.ID = id
	in.Tag = old.Tag
	in.ClientStats = old.ClientStats
	p.inbounds[id] = &in
	writeJSON(w, msg{Success: true, Msg: "Update Successfully", Obj: in})
}

func (p *Panel) del(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.inbounds[id]; !ok {
		writeJSON(w, msg{Success: false, Msg: "Delete Failed: record not found"})
		return
	}
	delete(p.inbounds, id)
	writeJSON(w, msg{Success: true, Msg: "Delete Successfully", Obj: id})
}

type clientPayload struct {
	ID       int    `json:"id"`
	Settings string `json:"settings"`
}

func (p *Panel) addClient(w http.ResponseWriter, r *http.Request) {
	var req clientPayload
	body, _ := io.ReadAll(r.Body)
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, msg{Success: false, Msg: "Add Failed: " + err.Error()})
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	in, ok := p.inbounds[req.ID]
	if !ok {
		writeJSON(w, msg{Success: false, Msg: "Add Failed: record not found"})
		return
	}
	settings := decodeSettings(in.Settings)
	clients := clientsOf(settings)
	for _, c := range clientsOf(decodeSettings(req.Settings)) {
		email, _ := c["email"].(string)
		for _, existing := range clients {
			if existing["email"] == email {
				writeJSON(w, msg{Success: false, Msg: "Duplicate email: " + email})
				return
			}
		}
		clients = append(clients, c)
		in.ClientStats = append(in.ClientStats, ClientStat{InboundID: in.ID, Enable: true, Email: email})
	}
	in.Settings = encodeSettings(settings, clients)
	writeJSON(w, msg{Success: true, Msg: "Client(s) added Successfully"})
}

func (p *Panel) updateClient(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("clientId")
	if p.UpdateClientDelay > 0 {
		time.Sleep(p.UpdateClientDelay)
	}
	if p.RejectClientUpdates {
		writeJSON(w, msg{Success: false, Msg: "Update Failed: rejected"})
		return
	}
	var req clientPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, msg{Success: false, Msg: "Update Failed: " + err.Error()})
		return
	}
	updates := clientsOf(decodeSettings(req.Settings))
	if len(updates) != 1 {
		writeJSON(w, msg{Success: false, Msg: "Update Failed: expected one client"})
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	in, ok := p.inbounds[req.ID]
	if !ok {
		writeJSON(w, msg{Success: false, Msg: "Update Failed: record not found"})
		return
	}
	settings := decodeSettings(in.Settings)
	clients := clientsOf(settings)
	for i, c := range clients {
		if c["id"] == clientID {
			oldEmail, _ := c["email"].(string)
			newEmail, _ := updates[0]["email"].(string)
			clients[i] = updates[0]
			for j := range in.ClientStats {
				if in.ClientStats[j].Email == oldEmail {
					in.ClientStats[j].Email = newEmail
				}
			}
			in.Settings = encodeSettings(settings, clients)
			writeJSON(w, msg{Success: true, Msg: "Client updated Successfully"})
			return
		}
	}
	writeJSON(w, msg{Success: false, Msg: "Update Failed: client not found"})
}

func (p *Panel) delClient(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	clientID := r.PathValue("clientId")
	p.mu.Lock()
	defer p.mu.Unlock()
	in, ok := p.inbounds[id]
	if !ok {
		writeJSON(w, msg{Success: false, Msg: "Delete Failed: record not found"})
		return
	}
	settings := decodeSettings(in.Settings)
	clients := clientsOf(settings)
	for i, c := range clients {
		if c["id"] == clientID {
			email, _ := c["email"].(string)
			clients = append(clients[:i], clients[i+1:]...)
			stats := in.ClientStats[:0]
			for _, s := range in.ClientStats {
				if s.Email != email {
					stats = append(stats, s)
				}
			}
			in.ClientStats = stats
			in.Settings = encodeSettings(settings, clients)
			writeJSON(w, msg{Success: true, Msg: "Client deleted Successfully"})
			return
		}
	}
	writeJSON(w, msg{Success: false, Msg: "Delete Failed: client not found"})
}

func (p *Panel) serverStatus(w http.ResponseWriter, _ *http.Request) {
	p.mu.Lock()
	s := p.status
	p.mu.Unlock()
	writeJSON(w, msg{Success: true, Obj: s})
}

func decodeSettings(s string) map[string]any {
	out := map[string]any{}
	if s != "" {
		_ = json.Unmarshal([]byte(s), &out)
	}
	return out
}

func clientsOf(settings map[string]any) []map[string]any {
	raw, _ := settings["clients"].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, c := range raw {
		if m, ok := c.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func encodeSettings(settings map[string]any, clients []map[string]any) string {
	settings["clients"] = clients
	b, _ := json.Marshal(settings)
	return string(b)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Settings returns a vless settings blob holding the given clients.
func Settings(clients ...map[string]any) string {
	if clients == nil {
		clients = []map[string]any{}
	}
	return encodeSettings(map[string]any{"decryption": "none", "encryption": "none"}, clients)
}

// Client builds a client entry the way the panel stores it.
func Client(id, email string) map[string]any {
	return map[string]any{
		"id":         id,
		"email":      email,
		"enable":     true,
		"flow":       "xtls-rprx-vision",
		"limitIp":    0,
		"totalGB":    0,
		"expiryTime": 0,
		"tgId":       0,
		"subId":      "",
		"comment":    "",
		"reset":      0,
	}
}
