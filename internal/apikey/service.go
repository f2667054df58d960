// Package apikey issues per-user API keys. Secrets are returned exactly once
// and stored only as a salted Argon2id hash plus a plaintext prefix used for
// lookup.
package apikey

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
	"gorm.io/gorm"

	"github.com/stackvault/stackvault-backend/internal/pkg/model"
)

const (
	keyPrefixTag = "svk"
	secretBytes  = 32
	prefixBytes  = 6

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

var ErrInvalidKey = errors.New("api key is invalid or revoked")

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Issue creates a key of the form "svk_<prefix>_<secret>" and persists prefix
// and hash. The returned plaintext is the only time the secret exists outside
// the caller's hands.
func (s *Service) Issue(ownerUserId, label string) (string, *model.ApiKey, error) {
	secret := make([]byte, secretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", nil, fmt.Errorf("generating api key secret: %w", err)
	}
	prefixRaw := make([]byte, prefixBytes)
	if _, err := rand.Read(prefixRaw); err != nil {
		return "", nil, fmt.Errorf("generating api key prefix: %w", err)
	}

	prefix := hex.EncodeToString(prefixRaw)
	secretEncoded := base64.RawURLEncoding.EncodeToString(secret)

	hash, err := hashSecret(secretEncoded)
	if err != nil {
		return "", nil, err
	}

	record := &model.ApiKey{
		Id:          uuid.NewString(),
		OwnerUserId: ownerUserId,
		Prefix:      prefix,
		SecretHash:  hash,
		Label:       label,
	}
	if result := s.db.Create(record); result.Error != nil {
		return "", nil, result.Error
	}

	plaintext := strings.Join([]string{keyPrefixTag, prefix, secretEncoded}, "_")
	return plaintext, record, nil
}

// Verify resolves the key by its prefix and compares the secret hash in
// constant time. The secret segment is base64url and may itself contain
// underscores, so only the first two separators delimit.
func (s *Service) Verify(plaintext string) (*model.ApiKey, error) {
	parts := strings.SplitN(plaintext, "_", 3)
	if len(parts) != 3 || parts[0] != keyPrefixTag || parts[2] == "" {
		return nil, ErrInvalidKey
	}

	var record model.ApiKey
	result := s.db.Where("prefix = ? AND revoked = ?", parts[1], false).First(&record)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidKey
	}
	if result.Error != nil {
		return nil, result.Error
	}

	ok, err := verifySecret(parts[2], record.SecretHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidKey
	}
	return &record, nil
}

func (s *Service) Revoke(keyId, ownerUserId string) error {
	result := s.db.Model(&model.ApiKey{}).
		Where("id = ? AND owner_user_id = ?", keyId, ownerUserId).
		Update("revoked", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInvalidKey
	}
	return nil
}

// hashSecret produces a PHC-formatted Argon2id hash with a fresh salt.
func hashSecret(secret string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	digest := argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory,
		argonTime,
		argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	), nil
}

func verifySecret(secret, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, fmt.Errorf("malformed api key hash")
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, fmt.Errorf("malformed api key hash parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("malformed api key hash salt: %w", err)
	}
	stored, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("malformed api key hash digest: %w", err)
	}

	derived := argon2.IDKey([]byte(secret), salt, time, memory, threads, uint32(len(stored)))
	return subtle.ConstantTimeCompare(stored, derived) == 1, nil
}
