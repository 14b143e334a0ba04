// Package model contains the gorm models of the local metadata store.
package model

import "time"

// ClientMetadata links a panel client credential to the external system
// that owns it. The panel itself knows nothing about owners.
type ClientMetadata struct {
	ID        int       `json:"id" gorm:"primaryKey;autoIncrement"`
	ClientID  string    `json:"client_id" gorm:"size:36;uniqueIndex;not null"`
	OwnerRef  *string   `json:"owner_ref" gorm:"size:255;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ClientMetadata) TableName() string {
	return "client_metadata"
}
