package service

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mhsanaei/xui-gateway/database"
	"github.com/mhsanaei/xui-gateway/database/model"
)

// MetadataService stores the owner reference of each client. Every
// method takes an optional transaction; nil means the shared handle.
type MetadataService struct{}

func (s *MetadataService) db(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return database.GetDB()
}

func (s *MetadataService) Create(tx *gorm.DB, clientID string, ownerRef *string) (*model.ClientMetadata, error) {
	meta := &model.ClientMetadata{ClientID: clientID, OwnerRef: ownerRef}
	if err := s.db(tx).Create(meta).Error; err != nil {
		return nil, err
	}
	return meta, nil
}

// GetByClientID returns nil without error when no row exists.
func (s *MetadataService) GetByClientID(tx *gorm.DB, clientID string) (*model.ClientMetadata, error) {
	meta := &model.ClientMetadata{}
	err := s.db(tx).Where("client_id = ?", clientID).First(meta).Error
	if database.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// GetByClientIDs returns the rows for the given ids keyed by client id.
func (s *MetadataService) GetByClientIDs(tx *gorm.DB, clientIDs []string) (map[string]*model.ClientMetadata, error) {
	out := make(map[string]*model.ClientMetadata, len(clientIDs))
	if len(clientIDs) == 0 {
		return out, nil
	}
	var rows []model.ClientMetadata
	if err := s.db(tx).Where("client_id IN ?", clientIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ClientID] = &rows[i]
	}
	return out, nil
}

func (s *MetadataService) GetByOwnerRef(tx *gorm.DB, ownerRef string) ([]model.ClientMetadata, error) {
	var rows []model.ClientMetadata
	err := s.db(tx).Where("owner_ref = ?", ownerRef).Order("id").Find(&rows).Error
	return rows, err
}

// UpdateOwnerRef sets the owner of a client, creating the row for clients
// that were added outside the gateway.
func (s *MetadataService) UpdateOwnerRef(tx *gorm.DB, clientID string, ownerRef *string) (*model.ClientMetadata, error) {
	meta := &model.ClientMetadata{ClientID: clientID, OwnerRef: ownerRef}
	err := s.db(tx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"owner_ref", "updated_at"}),
	}).Create(meta).Error
	if err != nil {
		return nil, err
	}
	return s.GetByClientID(tx, clientID)
}

// Delete reports whether a row was removed.
func (s *MetadataService) Delete(tx *gorm.DB, clientID string) (bool, error) {
	res := s.db(tx).Where("client_id = ?", clientID).Delete(&model.ClientMetadata{})
	return res.RowsAffected > 0, res.Error
}

func (s *MetadataService) List(tx *gorm.DB) ([]model.ClientMetadata, error) {
	var rows []model.ClientMetadata
	err := s.db(tx).Order("id").Find(&rows).Error
	return rows, err
}
