package transaction

import (
	"context"

	"github.com/stackvault/stackvault-backend/internal/pkg/model"
)

// Service glues the builder and tracker into the transfer operation exposed
// to the HTTP layer, serializing same-wallet transfers in-process.
type Service struct {
	builder *Builder
	tracker *Tracker
	locks   *walletLocks
}

func NewService(builder *Builder, tracker *Tracker) *Service {
	return &Service{
		builder: builder,
		tracker: tracker,
		locks:   newWalletLocks(),
	}
}

// Transfer builds, signs and broadcasts a transfer of amountStx whole STX
// from the caller's wallet. Every attempt leaves a ledger row behind.
func (s *Service) Transfer(ctx context.Context, walletId, ownerUserId, toAddress string, amountStx uint64, memo string) (*model.Transaction, error) {
	unlock := s.locks.lock(walletId)
	defer unlock()

	built, err := s.builder.BuildAndSign(ctx, walletId, ownerUserId, toAddress, amountStx, memo)
	if err != nil {
		return nil, err
	}
	return s.tracker.Broadcast(ctx, built)
}

func (s *Service) Get(transactionId, ownerUserId string) (*model.Transaction, error) {
	return s.tracker.Get(transactionId, ownerUserId)
}

func (s *Service) ListByWallet(walletId, ownerUserId string) ([]model.Transaction, error) {
	return s.tracker.ListByWallet(walletId, ownerUserId)
}

// RefreshStatus polls the chain for the transaction's finality and reconciles
// the ledger row when a terminal state is reached.
func (s *Service) RefreshStatus(ctx context.Context, txId string) (model.TransactionStatus, error) {
	return s.tracker.CheckStatus(ctx, txId)
}
