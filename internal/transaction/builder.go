// Package transaction implements the STX transfer pipeline: build and sign
// against the wallet store, broadcast to the chain node, and track status.
package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/stackvault/stackvault-backend/internal/keymgmt"
	"github.com/stackvault/stackvault-backend/internal/pkg/model"
	"github.com/stackvault/stackvault-backend/internal/stacks"
	"github.com/stackvault/stackvault-backend/internal/wallet"
)

// ErrNonceFetch marks a failed account-nonce lookup. It is surfaced to the
// caller and never auto-retried, to avoid accidental duplicate submissions.
var ErrNonceFetch = errors.New("fetching account nonce failed")

// BuiltTransfer is a signed, broadcast-ready transfer plus the context the
// tracker needs to persist it.
type BuiltTransfer struct {
	Wallet         *model.Wallet
	Signed         *stacks.SignedTransaction
	ToAddress      string
	AmountMicroStx uint64
	Memo           string
}

// Builder assembles and signs transfers. Signing itself is pure: the same
// wallet, inputs and nonce always produce the same txid.
type Builder struct {
	wallets *wallet.Service
	chain   stacks.ChainClient
	network stacks.Network
	fee     uint64
}

func NewBuilder(wallets *wallet.Service, chain stacks.ChainClient, network stacks.Network, fee uint64) *Builder {
	return &Builder{
		wallets: wallets,
		chain:   chain,
		network: network,
		fee:     fee,
	}
}

// BuildAndSign resolves the wallet, decrypts its key, fetches the current
// account nonce and signs a transfer of amountStx whole STX. The plaintext
// key lives only for the duration of this call.
func (b *Builder) BuildAndSign(ctx context.Context, walletId, ownerUserId, toAddress string, amountStx uint64, memo string) (*BuiltTransfer, error) {
	spendingWallet, privateKey, err := b.wallets.GetActiveWithKey(walletId, ownerUserId)
	if err != nil {
		return nil, err
	}
	defer keymgmt.Zero(privateKey)

	nonce, err := b.chain.GetAccountNonce(ctx, spendingWallet.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNonceFetch, err.Error())
	}

	// exact integer conversion, no floats anywhere in the money path
	if amountStx > ^uint64(0)/stacks.MicroStxPerStx {
		return nil, fmt.Errorf("amount %d STX overflows base units", amountStx)
	}
	amountMicroStx := amountStx * stacks.MicroStxPerStx

	transfer, err := stacks.NewTokenTransfer(b.network, spendingWallet.PublicKey, toAddress, amountMicroStx, b.fee, nonce, memo)
	if err != nil {
		return nil, err
	}

	signed, err := transfer.Sign(privateKey)
	if err != nil {
		return nil, fmt.Errorf("signing transfer: %w", err)
	}

	return &BuiltTransfer{
		Wallet:         spendingWallet,
		Signed:         signed,
		ToAddress:      toAddress,
		AmountMicroStx: amountMicroStx,
		Memo:           memo,
	}, nil
}
