// Package keymgmt generates and protects the custodial key material: secp256k1
// keypairs, Stacks address derivation and encryption of private keys at rest.
package keymgmt

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/ripemd160"
)

// KeyMaterial is a freshly derived keypair plus its chain address. It is never
// persisted as-is; the private key goes through the SecretCipher first.
type KeyMaterial struct {
	Address    string
	PublicKey  string // compressed, hex
	PrivateKey []byte // 32-byte scalar
}

// GenerateKeyMaterial draws a cryptographically random private key and derives
// the compressed public key and c32check address for the given version byte.
func GenerateKeyMaterial(addressVersion byte) (*KeyMaterial, error) {
	for {
		var raw [32]byte
		if _, err := rand.Read(raw[:]); err != nil {
			return nil, fmt.Errorf("reading randomness: %w", err)
		}
		if !validScalar(raw[:]) {
			// out-of-range draw, retry
			continue
		}
		return materialFromScalar(raw[:], addressVersion), nil
	}
}

// DeriveKeyMaterial computes key material as a pure function of an external
// identity and the process-wide derivation salt. The same inputs always yield
// the same keypair and address.
func DeriveKeyMaterial(addressVersion byte, provider, providerId, salt string) *KeyMaterial {
	seed := sha256.Sum256([]byte(provider + ":" + providerId + ":" + salt))
	scalar := sha256.Sum256(seed[:])
	for !validScalar(scalar[:]) {
		scalar = sha256.Sum256(scalar[:])
	}
	return materialFromScalar(scalar[:], addressVersion)
}

// AddressFromPublicKey derives the c32check address of a compressed public key.
func AddressFromPublicKey(addressVersion byte, compressedHex string) (string, error) {
	raw, err := hex.DecodeString(compressedHex)
	if err != nil {
		return "", fmt.Errorf("decoding public key: %w", err)
	}
	if _, err := btcec.ParsePubKey(raw); err != nil {
		return "", fmt.Errorf("parsing public key: %w", err)
	}
	return C32CheckEncode(addressVersion, Hash160(raw)), nil
}

// Hash160 is ripemd160(sha256(data)), the key-hash used in addresses and
// transaction spending conditions.
func Hash160(data []byte) []byte {
	sha := sha256.Sum256(data)
	ripe := ripemd160.New()
	ripe.Write(sha[:])
	return ripe.Sum(nil)
}

// Zero wipes a private key buffer once its holder no longer needs it.
func Zero(key []byte) {
	for i := range key {
		key[i] = 0
	}
}

func materialFromScalar(scalar []byte, addressVersion byte) *KeyMaterial {
	priv, pub := btcec.PrivKeyFromBytes(scalar)
	compressed := pub.SerializeCompressed()

	material := &KeyMaterial{
		Address:    C32CheckEncode(addressVersion, Hash160(compressed)),
		PublicKey:  hex.EncodeToString(compressed),
		PrivateKey: priv.Serialize(),
	}
	return material
}

func validScalar(raw []byte) bool {
	var s btcec.ModNScalar
	overflow := s.SetByteSlice(raw)
	return !overflow && !s.IsZero()
}
