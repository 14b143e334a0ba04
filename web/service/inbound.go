package service

import (
	"context"

	"github.com/mhsanaei/xui-gateway/database/model"
	"github.com/mhsanaei/xui-gateway/domain"
	"github.com/mhsanaei/xui-gateway/logger"
	"github.com/mhsanaei/xui-gateway/web/entity"
)

type InboundService struct {
	vpn      *VPNService
	metadata MetadataService
}

func NewInboundService(vpn *VPNService) *InboundService {
	return &InboundService{vpn: vpn}
}

func (s *InboundService) List(ctx context.Context) ([]domain.Inbound, error) {
	return s.vpn.ListInbounds(ctx)
}

func (s *InboundService) Get(ctx context.Context, id int) (domain.Inbound, error) {
	return s.vpn.GetInbound(ctx, id)
}

func (s *InboundService) Create(ctx context.Context, req *entity.InboundCreateRequest) (domain.Inbound, error) {
	return s.vpn.CreateInbound(ctx, req.Inbound())
}

// Update fetches the inbound, applies the provided fields and posts the
// whole object back.
func (s *InboundService) Update(ctx context.Context, id int, req *entity.InboundUpdateRequest) (domain.Inbound, error) {
	in, err := s.vpn.GetInbound(ctx, id)
	if err != nil {
		return domain.Inbound{}, err
	}
	req.Apply(&in)
	return s.vpn.UpdateInbound(ctx, id, in)
}

func (s *InboundService) Delete(ctx context.Context, id int) error {
	return s.vpn.DeleteInbound(ctx, id)
}

// Metadata returns the owner rows of every client of the given inbounds.
// A store failure is logged and yields no owners rather than failing the
// read.
func (s *InboundService) Metadata(inbounds ...domain.Inbound) map[string]*model.ClientMetadata {
	var ids []string
	for _, in := range inbounds {
		for _, c := range in.Settings.Clients {
			ids = append(ids, c.ID)
		}
	}
	metas, err := s.metadata.GetByClientIDs(nil, ids)
	if err != nil {
		logger.Warning("failed to load client metadata:", err)
		return nil
	}
	return metas
}
