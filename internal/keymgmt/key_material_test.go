package keymgmt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMainnetVersion byte = 22
	testTestnetVersion byte = 26
)

func TestGenerateKeyMaterial(t *testing.T) {
	material, err := GenerateKeyMaterial(testMainnetVersion)
	require.NoError(t, err)

	assert.Len(t, material.PrivateKey, 32)
	assert.Len(t, material.PublicKey, 66, "compressed public key should be 33 bytes hex")
	assert.True(t, strings.HasPrefix(material.Address, "SP"))

	derived, err := AddressFromPublicKey(testMainnetVersion, material.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, material.Address, derived, "address must be re-derivable from the public key")
}

func TestGenerateKeyMaterialTestnetPrefix(t *testing.T) {
	material, err := GenerateKeyMaterial(testTestnetVersion)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(material.Address, "ST"))
}

func TestDeriveKeyMaterialDeterminism(t *testing.T) {
	first := DeriveKeyMaterial(testMainnetVersion, "GOOGLE", "u123", "salt-context")
	second := DeriveKeyMaterial(testMainnetVersion, "GOOGLE", "u123", "salt-context")

	assert.Equal(t, first.Address, second.Address)
	assert.Equal(t, first.PublicKey, second.PublicKey)
	assert.Equal(t, first.PrivateKey, second.PrivateKey)
}

func TestDeriveKeyMaterialDistinctIdentities(t *testing.T) {
	base := DeriveKeyMaterial(testMainnetVersion, "GOOGLE", "u123", "salt-context")

	otherId := DeriveKeyMaterial(testMainnetVersion, "GOOGLE", "u124", "salt-context")
	assert.NotEqual(t, base.Address, otherId.Address)

	otherProvider := DeriveKeyMaterial(testMainnetVersion, "PHONE", "u123", "salt-context")
	assert.NotEqual(t, base.Address, otherProvider.Address)

	otherSalt := DeriveKeyMaterial(testMainnetVersion, "GOOGLE", "u123", "other-salt")
	assert.NotEqual(t, base.Address, otherSalt.Address)
}

func TestGenerateKeyMaterialNonCollision(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping 10k generation run in short mode")
	}

	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		material, err := GenerateKeyMaterial(testMainnetVersion)
		require.NoError(t, err)
		require.False(t, seen[material.Address], "address collision after %d generations", i)
		seen[material.Address] = true
	}
}

func TestC32CheckRoundTrip(t *testing.T) {
	material, err := GenerateKeyMaterial(testMainnetVersion)
	require.NoError(t, err)

	version, hash, err := C32CheckDecode(material.Address)
	require.NoError(t, err)
	assert.Equal(t, testMainnetVersion, version)

	rawPub := material.PublicKey
	derived, err := AddressFromPublicKey(version, rawPub)
	require.NoError(t, err)
	assert.Equal(t, material.Address, derived)
	assert.Len(t, hash, 20)
}

func TestC32CheckEncodeKnownVector(t *testing.T) {
	// the mainnet burn address: version 22 over an all-zero key hash
	address := C32CheckEncode(testMainnetVersion, make([]byte, 20))
	assert.Equal(t, "SP000000000000000000002Q6VF78", address)

	version, hash, err := C32CheckDecode(address)
	require.NoError(t, err)
	assert.Equal(t, testMainnetVersion, version)
	assert.Equal(t, make([]byte, 20), hash)
}

func TestC32CheckDecodeRejectsTampering(t *testing.T) {
	material, err := GenerateKeyMaterial(testMainnetVersion)
	require.NoError(t, err)

	flipped := byte('9')
	if material.Address[3] == flipped {
		flipped = '7'
	}

	tests := []struct {
		name    string
		address string
	}{
		{"empty", ""},
		{"missing prefix", material.Address[1:]},
		{"bad character", material.Address[:len(material.Address)-1] + "U"},
		{"flipped digit", material.Address[:3] + string(flipped) + material.Address[4:]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := C32CheckDecode(tt.address)
			assert.ErrorIs(t, err, ErrInvalidAddress)
		})
	}
}
