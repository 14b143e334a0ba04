package xui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhsanaei/xui-gateway/domain"
	"github.com/mhsanaei/xui-gateway/xui/xuitest"
)

func setup(t *testing.T) (*Client, *xuitest.Panel) {
	t.Helper()
	panel := xuitest.NewPanel()
	t.Cleanup(panel.Close)
	c := New(Options{BaseURL: panel.URL, Username: xuitest.Username, Password: xuitest.Password})
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Authenticate(context.Background()))
	return c, panel
}

func TestCreateInboundRefetchesById(t *testing.T) {
	c, panel := setup(t)
	panel.Put(xuitest.Inbound{ID: 6, Port: 80, Protocol: "vmess", Settings: xuitest.Settings()})

	created, err := c.CreateInbound(context.Background(), domain.Inbound{
		Remark:   "reality",
		Enable:   true,
		Port:     443,
		Protocol: domain.VLESS,
		Settings: domain.NewSettings(),
		StreamSettings: map[string]any{
			"network": "tcp",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, created.ID)
	assert.Equal(t, 7, *created.ID)
	assert.Equal(t, "inbound-443", created.Tag)
	assert.Equal(t, map[string]any{"network": "tcp"}, created.StreamSettings)
	assert.Contains(t, panel.Requests(), "GET /panel/api/inbounds/get/7")
}

func TestCreateInboundWithoutReturnedId(t *testing.T) {
	c, panel := setup(t)
	panel.OmitCreatedID = true

	in := domain.Inbound{Remark: "r", Enable: true, Port: 8443, Protocol: domain.VLESS, Settings: domain.NewSettings()}
	created, err := c.CreateInbound(context.Background(), in)
	require.NoError(t, err)
	assert.Nil(t, created.ID)
	assert.Equal(t, in, created)
}

func TestCreateInboundValidates(t *testing.T) {
	c, panel := setup(t)
	_, err := c.CreateInbound(context.Background(), domain.Inbound{Port: 70000, Protocol: domain.VLESS})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	assert.NotContains(t, panel.Requests(), "POST /panel/api/inbounds/add")
}

func TestGetInboundMissing(t *testing.T) {
	c, _ := setup(t)
	_, err := c.GetInbound(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrInboundNotFound)
	assert.NotErrorIs(t, err, domain.ErrUpstream)
}

func TestGetInboundNullObj(t *testing.T) {
	c, panel := setup(t)
	panel.NullForMissing = true
	_, err := c.GetInbound(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrInboundNotFound)
}

func TestGetInboundsSkipsUndecodable(t *testing.T) {
	c, panel := setup(t)
	panel.Put(xuitest.Inbound{ID: 1, Port: 443, Protocol: "vless", Settings: "not json"})
	panel.Put(xuitest.Inbound{ID: 2, Port: 8443, Protocol: "vless", Settings: xuitest.Settings()})

	inbounds, err := c.GetInbounds(context.Background())
	require.NoError(t, err)
	require.Len(t, inbounds, 1)
	assert.Equal(t, 2, *inbounds[0].ID)

	_, err = c.GetInbound(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestUpdateInbound(t *testing.T) {
	c, panel := setup(t)
	panel.Put(xuitest.Inbound{ID: 3, Remark: "old", Enable: true, Port: 443, Protocol: "vless", Settings: xuitest.Settings()})

	in, err := c.GetInbound(context.Background(), 3)
	require.NoError(t, err)
	in.Remark = "new"
	in.Port = 2053

	updated, err := c.UpdateInbound(context.Background(), 3, in)
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Remark)
	assert.Equal(t, 2053, updated.Port)
	require.NotNil(t, updated.ID)
	assert.Equal(t, 3, *updated.ID)
}

func TestGetInbounds(t *testing.T) {
	c, panel := setup(t)
	panel.Put(xuitest.Inbound{ID: 1, Port: 443, Protocol: "vless", Settings: xuitest.Settings(xuitest.Client("a", "a@x"))})
	panel.Put(xuitest.Inbound{ID: 2, Port: 80, Protocol: "vmess", Settings: ""})

	inbounds, err := c.GetInbounds(context.Background())
	require.NoError(t, err)
	require.Len(t, inbounds, 2)
	assert.Len(t, inbounds[0].Settings.Clients, 1)
	assert.Empty(t, inbounds[1].Settings.Clients)
}

func TestGetInboundsEmpty(t *testing.T) {
	c, _ := setup(t)
	inbounds, err := c.GetInbounds(context.Background())
	require.NoError(t, err)
	assert.Empty(t, inbounds)
}

func TestDeleteMissingDoesNotFail(t *testing.T) {
	c, panel := setup(t)
	panel.Put(xuitest.Inbound{ID: 1, Port: 443, Protocol: "vless", Settings: xuitest.Settings()})

	assert.NoError(t, c.DeleteInbound(context.Background(), 42))
	assert.NoError(t, c.DeleteClient(context.Background(), 1, "no-such-client"))
	assert.NoError(t, c.DeleteClient(context.Background(), 42, "no-such-client"))
}

func TestDeleteInbound(t *testing.T) {
	c, panel := setup(t)
	panel.Put(xuitest.Inbound{ID: 1, Port: 443, Protocol: "vless", Settings: xuitest.Settings()})

	require.NoError(t, c.DeleteInbound(context.Background(), 1))
	_, ok := panel.Inbound(1)
	assert.False(t, ok)
}

func TestDeleteWithStaleSessionFails(t *testing.T) {
	c, panel := setup(t)
	panel.Put(xuitest.Inbound{ID: 1, Port: 443, Protocol: "vless", Settings: xuitest.Settings()})
	c.token.Store("expired")

	err := c.DeleteInbound(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	_, ok := panel.Inbound(1)
	assert.True(t, ok)
}

func TestClientLifecycle(t *testing.T) {
	c, panel := setup(t)
	panel.Put(xuitest.Inbound{ID: 1, Port: 443, Protocol: "vless", Settings: xuitest.Settings()})
	ctx := context.Background()

	client := domain.Client{ID: "c0ffee00-0000-4000-8000-000000000001", Email: "client-1@vpn.local", Enable: true, Flow: domain.FlowVision}
	_, err := c.AddClient(ctx, 1, client)
	require.NoError(t, err)

	got, err := c.GetClient(ctx, 1, client.ID)
	require.NoError(t, err)
	assert.Equal(t, client.Email, got.Email)

	got.TotalGB = 5 << 30
	got.Enable = false
	_, err = c.UpdateClient(ctx, 1, client.ID, got)
	require.NoError(t, err)

	stored := panel.ClientSettings(1)
	require.Len(t, stored, 1)
	assert.Equal(t, float64(5<<30), stored[0]["totalGB"])
	assert.Equal(t, false, stored[0]["enable"])

	require.NoError(t, c.DeleteClient(ctx, 1, client.ID))
	_, err = c.GetClient(ctx, 1, client.ID)
	assert.ErrorIs(t, err, domain.ErrClientNotFound)
}

func TestGetClientNotFound(t *testing.T) {
	c, panel := setup(t)
	panel.Put(xuitest.Inbound{ID: 1, Port: 443, Protocol: "vless", Settings: xuitest.Settings()})
	panel.Put(xuitest.Inbound{ID: 2, Port: 444, Protocol: "vless", Settings: xuitest.Settings(xuitest.Client("a", "a@x"))})
	panel.Put(xuitest.Inbound{ID: 3, Port: 445, Protocol: "vless", Settings: xuitest.Settings(
		xuitest.Client("a", "a@x"), xuitest.Client("b", "b@x"), xuitest.Client("c", "c@x"),
	)})

	for _, id := range []int{1, 2, 3} {
		_, err := c.GetClient(context.Background(), id, "zzz")
		assert.ErrorIs(t, err, domain.ErrClientNotFound)
	}
	_, err := c.GetClient(context.Background(), 9, "zzz")
	assert.ErrorIs(t, err, domain.ErrInboundNotFound)
}

func TestClientTrafficFromStats(t *testing.T) {
	c, panel := setup(t)
	panel.Put(xuitest.Inbound{ID: 1, Port: 443, Protocol: "vless", Settings: xuitest.Settings(xuitest.Client("a", "x@y"))})
	panel.SetTraffic(1, "x@y", 100, 50)

	in, err := c.GetInbound(context.Background(), 1)
	require.NoError(t, err)
	client, err := in.FindClient("a")
	require.NoError(t, err)
	stat, ok := in.StatFor(client.Email)
	require.True(t, ok)
	assert.Equal(t, int64(150), stat.Used())
}

func TestTrafficStats(t *testing.T) {
	c, panel := setup(t)
	panel.Put(xuitest.Inbound{ID: 1, Up: 10, Down: 20, Total: 1000, Port: 443, Protocol: "vless"})
	panel.Put(xuitest.Inbound{ID: 2, Up: 1, Down: 2, Port: 80, Protocol: "vmess"})

	stats, err := c.GetTrafficStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.InboundTraffic{
		{InboundID: 1, Up: 10, Down: 20, Total: 1000},
		{InboundID: 2, Up: 1, Down: 2},
	}, stats)
}

func TestServerStats(t *testing.T) {
	c, panel := setup(t)
	var status xuitest.Status
	status.CPU = 12.5
	status.Mem.Current = 2048
	status.Disk.Current = 4096
	status.Uptime = 3600
	status.NetIO.Up = 7
	status.NetIO.Down = 9
	panel.SetStatus(status)

	stats, err := c.GetServerStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ServerStats{
		CPUUsage:    12.5,
		MemoryUsage: 2048,
		DiskUsage:   4096,
		Uptime:      3600,
		NetworkUp:   7,
		NetworkDown: 9,
	}, stats)
}

func TestUnauthenticatedCallFails(t *testing.T) {
	panel := xuitest.NewPanel()
	defer panel.Close()
	c := New(Options{BaseURL: panel.URL})

	_, err := c.GetInbounds(context.Background())
	assert.ErrorIs(t, err, domain.ErrUpstream)
}
