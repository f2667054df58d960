package model

import "time"

type WalletType string

const (
	WalletTypeStandard     WalletType = "STANDARD"
	WalletTypeSocialGoogle WalletType = "SOCIAL_GOOGLE"
	WalletTypeSocialPhone  WalletType = "SOCIAL_PHONE"
	WalletTypeMultisig     WalletType = "MULTISIG"
)

// WalletMetadataKeys is the closed set of caller-supplied metadata keys the
// store will persist. Metadata is never read for authorization decisions.
var WalletMetadataKeys = map[string]bool{
	"label":        true,
	"description":  true,
	"color":        true,
	"external_ref": true,
}

type Wallet struct {
	Id                  string            `gorm:"primaryKey" json:"id"`
	Address             string            `gorm:"uniqueIndex" json:"address"`
	PublicKey           string            `json:"publicKey"`
	EncryptedPrivateKey []byte            `json:"-"`
	WalletType          WalletType        `json:"walletType"`
	IsActive            bool              `json:"isActive"`
	Metadata            map[string]string `gorm:"serializer:json" json:"metadata"`
	OwnerUserId         string            `gorm:"index" json:"ownerUserId"`
	CreatedAt           time.Time         `json:"createdAt"`
	UpdatedAt           time.Time         `json:"updatedAt"`
}

func (Wallet) TableName() string {
	return "wallet"
}
