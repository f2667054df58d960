package stacks

import (
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/stackvault/stackvault-backend/internal/keymgmt"
)

const (
	memoLength      = 34
	signatureLength = 65 // recovery id + r + s

	authTypeStandard         byte = 0x04
	hashModeP2PKH            byte = 0x00
	keyEncodingCompressed    byte = 0x00
	payloadTypeTokenTransfer byte = 0x00
)

// TokenTransfer is an unsigned single-signature STX transfer. Fee and nonce
// are fixed at construction so serialization, and therefore the txid, is a
// pure function of the inputs.
type TokenTransfer struct {
	Version        byte
	ChainId        uint32
	Nonce          uint64
	Fee            uint64
	SenderKeyHash  []byte // hash160 of the compressed sender public key
	Recipient      string
	recipientVer   byte
	recipientHash  []byte
	AmountMicroStx uint64
	Memo           string
}

// NewTokenTransfer validates the recipient against the network's address
// version and assembles the unsigned transfer.
func NewTokenTransfer(network Network, senderPublicKeyHex, recipient string, amountMicroStx, fee, nonce uint64, memo string) (*TokenTransfer, error) {
	if len(memo) > memoLength {
		return nil, fmt.Errorf("memo exceeds %d bytes", memoLength)
	}

	recipientVer, recipientHash, err := keymgmt.C32CheckDecode(recipient)
	if err != nil {
		return nil, fmt.Errorf("recipient %q: %w", recipient, err)
	}
	if recipientVer != network.AddressVersion {
		return nil, fmt.Errorf("recipient %q: %w", recipient, keymgmt.ErrInvalidAddress)
	}

	senderPub, err := hex.DecodeString(senderPublicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decoding sender public key: %w", err)
	}

	return &TokenTransfer{
		Version:        network.AddressVersion,
		ChainId:        network.ChainId,
		Nonce:          nonce,
		Fee:            fee,
		SenderKeyHash:  keymgmt.Hash160(senderPub),
		Recipient:      recipient,
		recipientVer:   recipientVer,
		recipientHash:  recipientHash,
		AmountMicroStx: amountMicroStx,
		Memo:           memo,
	}, nil
}

// SignedTransaction is the broadcast-ready wire form plus its deterministic
// transaction identifier.
type SignedTransaction struct {
	Raw  []byte
	TxId string
}

// Sign computes the transfer's sighash, signs it with the sender's private
// key (RFC6979, so signing is deterministic) and serializes the result.
// The caller owns the private key buffer and is responsible for zeroing it.
func (t *TokenTransfer) Sign(privateKey []byte) (*SignedTransaction, error) {
	if len(privateKey) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(privateKey))
	}

	priv, _ := btcec.PrivKeyFromBytes(privateKey)
	sigHash := sha512.Sum512_256(t.serialize(make([]byte, signatureLength)))

	compact := btcecdsa.SignCompact(priv, sigHash[:], true)
	if len(compact) != signatureLength {
		return nil, fmt.Errorf("unexpected signature length %d", len(compact))
	}

	raw := t.serialize(compact)
	txId := sha512.Sum512_256(raw)

	return &SignedTransaction{
		Raw:  raw,
		TxId: hex.EncodeToString(txId[:]),
	}, nil
}

// serialize writes the big-endian wire form. The signature slot is zeroed
// while computing the sighash and holds the compact signature afterwards.
func (t *TokenTransfer) serialize(signature []byte) []byte {
	buf := make([]byte, 0, 128)

	buf = append(buf, t.Version)
	buf = binary.BigEndian.AppendUint32(buf, t.ChainId)

	// standard single-signature spending condition
	buf = append(buf, authTypeStandard, hashModeP2PKH)
	buf = append(buf, t.SenderKeyHash...)
	buf = binary.BigEndian.AppendUint64(buf, t.Nonce)
	buf = binary.BigEndian.AppendUint64(buf, t.Fee)
	buf = append(buf, keyEncodingCompressed)
	buf = append(buf, signature...)

	// token transfer payload
	buf = append(buf, payloadTypeTokenTransfer, t.recipientVer)
	buf = append(buf, t.recipientHash...)
	buf = binary.BigEndian.AppendUint64(buf, t.AmountMicroStx)

	memo := make([]byte, memoLength)
	copy(memo, t.Memo)
	buf = append(buf, memo...)

	return buf
}
