package apikey

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stackvault/stackvault-backend/internal/pkg/model"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.ApiKey{}))

	return NewService(db)
}

func TestIssueAndVerify(t *testing.T) {
	service := newTestService(t)

	plaintext, record, err := service.Issue("user-a", "ci pipeline")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(plaintext, "svk_"+record.Prefix+"_"))
	assert.NotContains(t, record.SecretHash, strings.SplitN(plaintext, "_", 3)[2], "secret must never be stored")

	verified, err := service.Verify(plaintext)
	require.NoError(t, err)
	assert.Equal(t, record.Id, verified.Id)
	assert.Equal(t, "user-a", verified.OwnerUserId)
}

func TestVerifySecretContainingUnderscores(t *testing.T) {
	service := newTestService(t)

	// base64url secrets may carry underscores; splitting the key on "_"
	// must not swallow them
	secret := "ab_cd_ef" + strings.Repeat("_x", 8)
	hash, err := hashSecret(secret)
	require.NoError(t, err)

	record := &model.ApiKey{
		Id:          uuid.NewString(),
		OwnerUserId: "user-a",
		Prefix:      "aabbccddeeff",
		SecretHash:  hash,
	}
	require.NoError(t, service.db.Create(record).Error)

	verified, err := service.Verify("svk_aabbccddeeff_" + secret)
	require.NoError(t, err)
	assert.Equal(t, record.Id, verified.Id)
}

func TestIssuedKeysAlwaysVerify(t *testing.T) {
	service := newTestService(t)

	// enough draws that some secrets are guaranteed to contain "_"
	for i := 0; i < 50; i++ {
		plaintext, _, err := service.Issue("user-a", "")
		require.NoError(t, err)

		_, err = service.Verify(plaintext)
		require.NoError(t, err, "issued key %q must verify", plaintext)
	}
}

func TestVerifyRejectsBadKeys(t *testing.T) {
	service := newTestService(t)

	plaintext, _, err := service.Issue("user-a", "")
	require.NoError(t, err)

	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"wrong shape", "not-a-key"},
		{"wrong tag", strings.Replace(plaintext, "svk", "xxx", 1)},
		{"unknown prefix", "svk_000000000000_" + strings.SplitN(plaintext, "_", 3)[2]},
		{"wrong secret", plaintext[:len(plaintext)-4] + "AAAA"},
		{"empty secret", "svk_" + strings.SplitN(plaintext, "_", 3)[1] + "_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Verify(tt.key)
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestRevoke(t *testing.T) {
	service := newTestService(t)

	plaintext, record, err := service.Issue("user-a", "")
	require.NoError(t, err)

	// foreign user cannot revoke
	assert.ErrorIs(t, service.Revoke(record.Id, "user-b"), ErrInvalidKey)

	require.NoError(t, service.Revoke(record.Id, "user-a"))

	_, err = service.Verify(plaintext)
	assert.ErrorIs(t, err, ErrInvalidKey)
}
