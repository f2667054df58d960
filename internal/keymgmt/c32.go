package keymgmt

import (
	"crypto/sha256"
	"errors"
	"math/big"
	"strings"
)

// c32 is the Crockford-style alphabet used by Stacks addresses. It drops the
// easily confused I, L, O and U characters.
const c32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const c32ChecksumLen = 4

var ErrInvalidAddress = errors.New("invalid c32check address")

// C32CheckEncode renders a version byte plus 20-byte key hash as a Stacks
// address: "S", the version character, then the base-32 payload with a
// 4-byte double-sha256 checksum appended.
func C32CheckEncode(version byte, hash160 []byte) string {
	checksum := c32Checksum(version, hash160)

	payload := make([]byte, 0, len(hash160)+c32ChecksumLen)
	payload = append(payload, hash160...)
	payload = append(payload, checksum...)

	return "S" + string(c32Alphabet[version]) + c32Encode(payload)
}

// C32CheckDecode reverses C32CheckEncode, returning the version byte and key
// hash. Any malformed input, unknown character or checksum mismatch yields
// ErrInvalidAddress.
func C32CheckDecode(address string) (byte, []byte, error) {
	if len(address) < 3 || address[0] != 'S' {
		return 0, nil, ErrInvalidAddress
	}

	version := strings.IndexByte(c32Alphabet, address[1])
	if version < 0 {
		return 0, nil, ErrInvalidAddress
	}

	payload, err := c32Decode(address[2:], 20+c32ChecksumLen)
	if err != nil {
		return 0, nil, err
	}

	hash160 := payload[:20]
	checksum := payload[20:]
	expected := c32Checksum(byte(version), hash160)
	for i := range checksum {
		if checksum[i] != expected[i] {
			return 0, nil, ErrInvalidAddress
		}
	}

	return byte(version), hash160, nil
}

func c32Checksum(version byte, data []byte) []byte {
	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, version)
	buf = append(buf, data...)
	first := sha256.Sum256(buf)
	second := sha256.Sum256(first[:])
	return second[:c32ChecksumLen]
}

func c32Encode(data []byte) string {
	leadingZeros := 0
	for _, b := range data {
		if b != 0 {
			break
		}
		leadingZeros++
	}

	n := new(big.Int).SetBytes(data)
	base := big.NewInt(int64(len(c32Alphabet)))
	mod := new(big.Int)

	var out []byte
	for n.Sign() > 0 {
		n.DivMod(n, base, mod)
		out = append(out, c32Alphabet[mod.Int64()])
	}
	for i := 0; i < leadingZeros; i++ {
		out = append(out, c32Alphabet[0])
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

func c32Decode(encoded string, size int) ([]byte, error) {
	n := big.NewInt(0)
	base := big.NewInt(int64(len(c32Alphabet)))
	for i := 0; i < len(encoded); i++ {
		digit := strings.IndexByte(c32Alphabet, encoded[i])
		if digit < 0 {
			return nil, ErrInvalidAddress
		}
		n.Mul(n, base)
		n.Add(n, big.NewInt(int64(digit)))
	}

	raw := n.Bytes()
	if len(raw) > size {
		return nil, ErrInvalidAddress
	}

	out := make([]byte, size)
	copy(out[size-len(raw):], raw)
	return out, nil
}
