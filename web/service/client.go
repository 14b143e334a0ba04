package service

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mhsanaei/xui-gateway/database"
	"github.com/mhsanaei/xui-gateway/database/model"
	"github.com/mhsanaei/xui-gateway/domain"
	"github.com/mhsanaei/xui-gateway/logger"
	"github.com/mhsanaei/xui-gateway/util/random"
	"github.com/mhsanaei/xui-gateway/web/entity"
)

const clientEmailDomain = "vpn.local"

// ClientView is a client joined with its traffic row and local metadata.
// Stat and Metadata are nil when absent.
type ClientView struct {
	Client   domain.Client
	Stat     *domain.ClientStat
	Metadata *model.ClientMetadata
}

func (v *ClientView) Response() entity.ClientResponse {
	return entity.NewClientResponse(v.Client, v.Stat, v.Metadata)
}

type ClientService struct {
	vpn      *VPNService
	metadata MetadataService
}

func NewClientService(vpn *VPNService) *ClientService {
	return &ClientService{vpn: vpn}
}

func (s *ClientService) Get(ctx context.Context, inboundID int, clientID string) (*ClientView, error) {
	in, err := s.vpn.GetInbound(ctx, inboundID)
	if err != nil {
		return nil, err
	}
	client, err := in.FindClient(clientID)
	if err != nil {
		return nil, domain.NewError(domain.ErrClientNotFound, "client %s not found in inbound %d", clientID, inboundID)
	}
	meta, err := s.metadata.GetByClientID(nil, clientID)
	if err != nil {
		return nil, err
	}
	return newClientView(in, client, meta), nil
}

// List returns every client of an inbound.
func (s *ClientService) List(ctx context.Context, inboundID int) ([]ClientView, error) {
	in, err := s.vpn.GetInbound(ctx, inboundID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(in.Settings.Clients))
	for _, c := range in.Settings.Clients {
		ids = append(ids, c.ID)
	}
	metas, err := s.metadata.GetByClientIDs(nil, ids)
	if err != nil {
		return nil, err
	}
	views := make([]ClientView, 0, len(in.Settings.Clients))
	for _, c := range in.Settings.Clients {
		views = append(views, *newClientView(in, c, metas[c.ID]))
	}
	return views, nil
}

// Add generates a credential and label for a new client, registers it on
// the panel and records its owner.
func (s *ClientService) Add(ctx context.Context, inboundID int, req *entity.ClientCreateRequest) (*ClientView, error) {
	client := domain.Client{
		ID:         uuid.NewString(),
		Email:      "client-" + random.Hex(16) + "@" + clientEmailDomain,
		Enable:     true,
		Flow:       domain.DefaultClientFlow,
		LimitIP:    req.LimitIP,
		TotalGB:    req.TotalGB,
		ExpiryTime: req.Expired,
		SubID:      random.Seq(16),
	}

	if _, err := s.vpn.AddClient(ctx, inboundID, client); err != nil {
		return nil, err
	}
	err := s.inTransaction(ctx, func(tx *gorm.DB) error {
		_, err := s.metadata.Create(tx, client.ID, req.OwnerRef)
		return err
	})
	if err != nil {
		logger.Warningf("client %s added to inbound %d but its metadata was not stored: %v", client.ID, inboundID, err)
		return nil, err
	}
	logger.Infof("client %s added to inbound %d", client.ID, inboundID)
	return s.Get(ctx, inboundID, client.ID)
}

// Update applies the provided fields to the stored client. The owner
// change is written only after the panel accepted the update, so no
// database lock is held across the panel call.
func (s *ClientService) Update(ctx context.Context, inboundID int, clientID string, req *entity.ClientUpdateRequest) (*ClientView, error) {
	in, err := s.vpn.GetInbound(ctx, inboundID)
	if err != nil {
		return nil, err
	}
	client, err := in.FindClient(clientID)
	if err != nil {
		return nil, domain.NewError(domain.ErrClientNotFound, "client %s not found in inbound %d", clientID, inboundID)
	}
	req.Apply(&client)

	if _, err := s.vpn.UpdateClient(ctx, inboundID, clientID, client); err != nil {
		return nil, err
	}
	if req.OwnerRef.Set {
		err = s.inTransaction(ctx, func(tx *gorm.DB) error {
			_, err := s.metadata.UpdateOwnerRef(tx, clientID, req.OwnerRef.Value)
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, inboundID, clientID)
}

// Delete removes the client from the panel, then drops its metadata.
func (s *ClientService) Delete(ctx context.Context, inboundID int, clientID string) error {
	if err := s.vpn.DeleteClient(ctx, inboundID, clientID); err != nil {
		return err
	}
	return s.inTransaction(ctx, func(tx *gorm.DB) error {
		_, err := s.metadata.Delete(tx, clientID)
		return err
	})
}

// ListByOwner returns the metadata rows of every client an owner holds.
func (s *ClientService) ListByOwner(ownerRef string) ([]model.ClientMetadata, error) {
	return s.metadata.GetByOwnerRef(nil, ownerRef)
}

func (s *ClientService) inTransaction(ctx context.Context, fn func(tx *gorm.DB) error) (err error) {
	tx := database.GetDB().WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if err == nil {
			err = tx.Commit().Error
		} else {
			tx.Rollback()
		}
	}()
	return fn(tx)
}

func newClientView(in domain.Inbound, c domain.Client, meta *model.ClientMetadata) *ClientView {
	view := &ClientView{Client: c, Metadata: meta}
	if stat, ok := in.StatFor(c.Email); ok {
		view.Stat = &stat
	}
	if meta != nil {
		view.Client.OwnerRef = meta.OwnerRef
	}
	return view
}
