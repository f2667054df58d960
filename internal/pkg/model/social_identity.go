package model

import "time"

type SocialProvider string

const (
	SocialProviderGoogle SocialProvider = "GOOGLE"
	SocialProviderPhone  SocialProvider = "PHONE"
)

// SocialIdentity binds one external identity to exactly one custodial wallet.
// Rows are immutable once written; re-binding is not supported.
type SocialIdentity struct {
	Id           string            `gorm:"primaryKey" json:"id"`
	Provider     SocialProvider    `gorm:"uniqueIndex:idx_provider_identity" json:"provider"`
	ProviderId   string            `gorm:"uniqueIndex:idx_provider_identity" json:"providerId"`
	WalletId     string            `json:"walletId"`
	OwnerUserId  string            `json:"ownerUserId"`
	IsVerified   bool              `json:"isVerified"`
	ProviderData map[string]string `gorm:"serializer:json" json:"providerData"`
	CreatedAt    time.Time         `json:"createdAt"`
}

func (SocialIdentity) TableName() string {
	return "social_identity"
}
