// Package wallet is the custodial wallet store: creation under a per-user
// quota, owner-scoped reads, key decryption and soft deletion.
package wallet

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stackvault/stackvault-backend/internal/keymgmt"
	"github.com/stackvault/stackvault-backend/internal/pkg/model"
)

var (
	// ErrNotFound covers nonexistent, inactive and foreign-owned wallets
	// alike so existence never leaks across users.
	ErrNotFound = errors.New("wallet not found")
	// ErrLimitReached means the owner already has the configured maximum of
	// active wallets. Nothing is written when it fires.
	ErrLimitReached = errors.New("active wallet limit reached")
)

// MetadataKeyError rejects a caller-supplied metadata key outside the
// documented allow-list.
type MetadataKeyError struct {
	Key string
}

func (e *MetadataKeyError) Error() string {
	return fmt.Sprintf("metadata key %q is not allowed", e.Key)
}

type Service struct {
	db               *gorm.DB
	cipher           *keymgmt.SecretCipher
	addressVersion   byte
	maxActivePerUser int
}

func NewService(db *gorm.DB, cipher *keymgmt.SecretCipher, addressVersion byte, maxActivePerUser int) *Service {
	return &Service{
		db:               db,
		cipher:           cipher,
		addressVersion:   addressVersion,
		maxActivePerUser: maxActivePerUser,
	}
}

// Create generates fresh random key material, encrypts the private key and
// persists the wallet. The quota check and the insert share one transaction
// so a quota failure performs no partial writes.
func (s *Service) Create(ownerUserId string, walletType model.WalletType, metadata map[string]string) (*model.Wallet, error) {
	material, err := keymgmt.GenerateKeyMaterial(s.addressVersion)
	if err != nil {
		return nil, fmt.Errorf("generating key material: %w", err)
	}

	var created *model.Wallet
	err = s.db.Transaction(func(tx *gorm.DB) error {
		created, err = s.CreateWithMaterial(tx, ownerUserId, walletType, metadata, material)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateWithMaterial persists a wallet for already-derived key material inside
// the caller's transaction. The social binder uses this to couple wallet and
// identity-mapping writes atomically.
func (s *Service) CreateWithMaterial(tx *gorm.DB, ownerUserId string, walletType model.WalletType, metadata map[string]string, material *keymgmt.KeyMaterial) (*model.Wallet, error) {
	defer keymgmt.Zero(material.PrivateKey)

	if err := validateMetadata(metadata); err != nil {
		return nil, err
	}

	var activeCount int64
	result := tx.Model(&model.Wallet{}).
		Where("owner_user_id = ? AND is_active = ?", ownerUserId, true).
		Count(&activeCount)
	if result.Error != nil {
		return nil, result.Error
	}
	if activeCount >= int64(s.maxActivePerUser) {
		return nil, ErrLimitReached
	}

	encryptedKey, err := s.cipher.Encrypt(material.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("encrypting private key: %w", err)
	}

	wallet := &model.Wallet{
		Id:                  uuid.NewString(),
		Address:             material.Address,
		PublicKey:           material.PublicKey,
		EncryptedPrivateKey: encryptedKey,
		WalletType:          walletType,
		IsActive:            true,
		Metadata:            metadata,
		OwnerUserId:         ownerUserId,
	}
	if result := tx.Create(wallet); result.Error != nil {
		return nil, result.Error
	}
	return wallet, nil
}

// GetActive loads a wallet scoped by (walletId, ownerUserId). There is no
// unscoped read path, so cross-user access is structurally impossible.
func (s *Service) GetActive(walletId, ownerUserId string) (*model.Wallet, error) {
	var wallet model.Wallet
	result := s.db.
		Where("id = ? AND owner_user_id = ? AND is_active = ?", walletId, ownerUserId, true).
		First(&wallet)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &wallet, nil
}

// GetActiveWithKey resolves the wallet and decrypts its key in one lookup,
// for callers that need both. Callers must zero the returned buffer as soon
// as signing is done.
func (s *Service) GetActiveWithKey(walletId, ownerUserId string) (*model.Wallet, []byte, error) {
	wallet, err := s.GetActive(walletId, ownerUserId)
	if err != nil {
		return nil, nil, err
	}
	key, err := s.cipher.Decrypt(wallet.EncryptedPrivateKey)
	if err != nil {
		return nil, nil, err
	}
	return wallet, key, nil
}

// GetPrivateKey decrypts a wallet's key when the caller does not need the
// wallet row itself.
func (s *Service) GetPrivateKey(walletId, ownerUserId string) ([]byte, error) {
	_, key, err := s.GetActiveWithKey(walletId, ownerUserId)
	return key, err
}

func (s *Service) ListByOwner(ownerUserId string) ([]model.Wallet, error) {
	var wallets []model.Wallet
	result := s.db.
		Where("owner_user_id = ? AND is_active = ?", ownerUserId, true).
		Order("created_at").
		Find(&wallets)
	if result.Error != nil {
		return nil, result.Error
	}
	return wallets, nil
}

// UpdateMetadata replaces the caller-facing metadata map. Address, keys and
// type are immutable after creation.
func (s *Service) UpdateMetadata(walletId, ownerUserId string, metadata map[string]string) (*model.Wallet, error) {
	if err := validateMetadata(metadata); err != nil {
		return nil, err
	}

	wallet, err := s.GetActive(walletId, ownerUserId)
	if err != nil {
		return nil, err
	}

	wallet.Metadata = metadata
	if result := s.db.Model(wallet).Update("metadata", metadata); result.Error != nil {
		return nil, result.Error
	}
	return wallet, nil
}

// SoftDelete deactivates the wallet. Rows are never physically deleted since
// historical transactions reference them.
func (s *Service) SoftDelete(walletId, ownerUserId string) error {
	result := s.db.Model(&model.Wallet{}).
		Where("id = ? AND owner_user_id = ? AND is_active = ?", walletId, ownerUserId, true).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func validateMetadata(metadata map[string]string) error {
	for key := range metadata {
		if !model.WalletMetadataKeys[key] {
			return &MetadataKeyError{Key: key}
		}
	}
	return nil
}
