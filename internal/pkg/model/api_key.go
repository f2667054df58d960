package model

import "time"

// ApiKey stores only a salted hash of the issued secret. The prefix is the
// sole plaintext-visible part and exists for lookup.
type ApiKey struct {
	Id          string    `gorm:"primaryKey" json:"id"`
	OwnerUserId string    `gorm:"index" json:"ownerUserId"`
	Prefix      string    `gorm:"uniqueIndex" json:"prefix"`
	SecretHash  string    `json:"-"`
	Label       string    `json:"label,omitempty"`
	Revoked     bool      `json:"revoked"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (ApiKey) TableName() string {
	return "api_key"
}
