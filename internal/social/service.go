// Package social binds external identities (Google subject, verified phone
// number) to deterministically derived custodial wallets.
package social

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stackvault/stackvault-backend/internal/keymgmt"
	"github.com/stackvault/stackvault-backend/internal/pkg/model"
	"github.com/stackvault/stackvault-backend/internal/wallet"
)

var (
	// ErrInvalidProvider rejects providers outside the supported set.
	ErrInvalidProvider = errors.New("unsupported social identity provider")
	// ErrProviderNotVerified fires when a phone identity arrives without a
	// prior successful OTP verification. Nothing is written.
	ErrProviderNotVerified = errors.New("identity provider not verified")
	// ErrAlreadyBound fires when the identity is bound to a different user.
	ErrAlreadyBound = errors.New("social identity already bound to another user")
)

type Service struct {
	db             *gorm.DB
	wallets        *wallet.Service
	addressVersion byte
	derivationSalt string
}

func NewService(db *gorm.DB, wallets *wallet.Service, addressVersion byte, derivationSalt string) *Service {
	return &Service{
		db:             db,
		wallets:        wallets,
		addressVersion: addressVersion,
		derivationSalt: derivationSalt,
	}
}

// BindOrCreate returns the wallet bound to (provider, providerId), creating
// wallet and mapping together on first sight. Re-invoking for a known
// identity is idempotent and touches nothing. The wallet insert and the
// mapping insert share one transaction so neither can exist without the
// other.
func (s *Service) BindOrCreate(ownerUserId string, provider model.SocialProvider, providerId string, verified bool, providerData map[string]string) (*model.Wallet, error) {
	walletType, err := walletTypeFor(provider)
	if err != nil {
		return nil, err
	}
	if provider == model.SocialProviderPhone && !verified {
		return nil, ErrProviderNotVerified
	}

	if bound, err := s.findBound(provider, providerId, ownerUserId); err != nil || bound != nil {
		return bound, err
	}

	material := keymgmt.DeriveKeyMaterial(s.addressVersion, string(provider), providerId, s.derivationSalt)

	var created *model.Wallet
	err = s.db.Transaction(func(tx *gorm.DB) error {
		created, err = s.wallets.CreateWithMaterial(tx, ownerUserId, walletType, nil, material)
		if err != nil {
			return err
		}

		mapping := &model.SocialIdentity{
			Id:           uuid.NewString(),
			Provider:     provider,
			ProviderId:   providerId,
			WalletId:     created.Id,
			OwnerUserId:  ownerUserId,
			IsVerified:   verified,
			ProviderData: providerData,
		}
		return tx.Create(mapping).Error
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) findBound(provider model.SocialProvider, providerId, ownerUserId string) (*model.Wallet, error) {
	var mapping model.SocialIdentity
	result := s.db.
		Where("provider = ? AND provider_id = ?", provider, providerId).
		First(&mapping)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}

	if mapping.OwnerUserId != ownerUserId {
		return nil, ErrAlreadyBound
	}

	var bound model.Wallet
	if result := s.db.Where("id = ?", mapping.WalletId).First(&bound); result.Error != nil {
		return nil, result.Error
	}
	return &bound, nil
}

func walletTypeFor(provider model.SocialProvider) (model.WalletType, error) {
	switch provider {
	case model.SocialProviderGoogle:
		return model.WalletTypeSocialGoogle, nil
	case model.SocialProviderPhone:
		return model.WalletTypeSocialPhone, nil
	default:
		return "", ErrInvalidProvider
	}
}
