// Package job holds the gateway's scheduled background tasks.
package job

import (
	"context"
	"time"

	"github.com/mhsanaei/xui-gateway/database/model"
	"github.com/mhsanaei/xui-gateway/logger"
	"github.com/mhsanaei/xui-gateway/util/common"
	"github.com/mhsanaei/xui-gateway/util/metrics"
	"github.com/mhsanaei/xui-gateway/web/service"
)

const sweepTimeout = 2 * time.Minute

// OrphanMetadataJob finds metadata rows whose client no longer exists on
// the panel. Rows are deleted only when prune is set.
type OrphanMetadataJob struct {
	vpn      *service.VPNService
	metadata service.MetadataService
	prune    bool
}

func NewOrphanMetadataJob(vpn *service.VPNService, prune bool) *OrphanMetadataJob {
	return &OrphanMetadataJob{vpn: vpn, prune: prune}
}

func (j *OrphanMetadataJob) Run() {
	defer common.Recover("orphan metadata job")

	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	if _, err := j.Sweep(ctx); err != nil {
		logger.Warning("orphan metadata sweep failed:", err)
	}
}

// Sweep returns the orphaned rows found, which have already been deleted
// when prune is set.
func (j *OrphanMetadataJob) Sweep(ctx context.Context) ([]model.ClientMetadata, error) {
	rows, err := j.metadata.List(nil)
	if err != nil {
		return nil, err
	}
	inbounds, err := j.vpn.ListInbounds(ctx)
	if err != nil {
		return nil, err
	}

	live := make(map[string]struct{})
	for _, in := range inbounds {
		for _, c := range in.Settings.Clients {
			live[c.ID] = struct{}{}
		}
	}

	var orphans []model.ClientMetadata
	for _, row := range rows {
		if _, ok := live[row.ClientID]; !ok {
			orphans = append(orphans, row)
		}
	}
	metrics.OrphanMetadataRows.Set(float64(len(orphans)))
	if len(orphans) == 0 {
		return nil, nil
	}

	if !j.prune {
		logger.Noticef("found %d orphaned client metadata rows", len(orphans))
		return orphans, nil
	}
	for _, row := range orphans {
		if _, err := j.metadata.Delete(nil, row.ClientID); err != nil {
			return orphans, err
		}
	}
	metrics.OrphanMetadataRows.Set(0)
	logger.Infof("pruned %d orphaned client metadata rows", len(orphans))
	return orphans, nil
}
