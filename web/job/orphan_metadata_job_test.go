package job

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhsanaei/xui-gateway/config"
	"github.com/mhsanaei/xui-gateway/database"
	"github.com/mhsanaei/xui-gateway/util/metrics"
	"github.com/mhsanaei/xui-gateway/web/service"
	"github.com/mhsanaei/xui-gateway/xui"
	"github.com/mhsanaei/xui-gateway/xui/xuitest"
)

func setup(t *testing.T) *service.VPNService {
	t.Helper()
	require.NoError(t, database.InitDB(&config.DatabaseConfig{
		Type: config.DatabaseTypeSQLite,
		Path: filepath.Join(t.TempDir(), "job.db"),
	}))
	t.Cleanup(func() { _ = database.CloseDB() })

	panel := xuitest.NewPanel()
	t.Cleanup(panel.Close)
	panel.Put(xuitest.Inbound{ID: 1, Port: 443, Protocol: "vless", Settings: xuitest.Settings(xuitest.Client("live", "live@y"))})

	var meta service.MetadataService
	for _, id := range []string{"live", "gone-1", "gone-2"} {
		_, err := meta.Create(nil, id, nil)
		require.NoError(t, err)
	}
	return service.NewVPNService(xui.New(xui.Options{BaseURL: panel.URL, Username: xuitest.Username, Password: xuitest.Password}))
}

func TestSweepReportsWithoutPruning(t *testing.T) {
	vpn := setup(t)

	orphans, err := NewOrphanMetadataJob(vpn, false).Sweep(context.Background())
	require.NoError(t, err)
	require.Len(t, orphans, 2)
	assert.Equal(t, "gone-1", orphans[0].ClientID)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.OrphanMetadataRows))

	var meta service.MetadataService
	rows, err := meta.List(nil)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestSweepPrunes(t *testing.T) {
	vpn := setup(t)

	orphans, err := NewOrphanMetadataJob(vpn, true).Sweep(context.Background())
	require.NoError(t, err)
	assert.Len(t, orphans, 2)
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.OrphanMetadataRows))

	var meta service.MetadataService
	rows, err := meta.List(nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "live", rows[0].ClientID)
}

func TestSweepKeepsRowsWhenPanelFails(t *testing.T) {
	setup(t)
	broken := service.NewVPNService(xui.New(xui.Options{BaseURL: "http://127.0.0.1:1", Username: "u", Password: "p"}))

	_, err := NewOrphanMetadataJob(broken, true).Sweep(context.Background())
	assert.Error(t, err)

	var meta service.MetadataService
	rows, err := meta.List(nil)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}
