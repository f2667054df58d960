package transaction

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/stackvault/stackvault-backend/internal/pkg/model"
	"github.com/stackvault/stackvault-backend/internal/pkg/ws"
	"github.com/stackvault/stackvault-backend/internal/stacks"
)

// ErrRecordNotFound marks a ledger row lookup that matched nothing.
var ErrRecordNotFound = errors.New("transaction record not found")

// BroadcastError is the caller-facing failure for an explicit node rejection.
// The ledger row is preserved in FAILED state as an audit trail.
type BroadcastError struct {
	Reason string
	Record *model.Transaction
}

func (e *BroadcastError) Error() string {
	return "broadcast failed: " + e.Reason
}

const statusPollAttempts = 3

// Tracker owns the local transaction ledger: the PENDING-before-broadcast
// audit row, rejection handling and terminal status reconciliation.
type Tracker struct {
	db     *gorm.DB
	chain  stacks.ChainClient
	events EventPublisher
	hub    *ws.WebSocketNotificationHub
}

func NewTracker(db *gorm.DB, chain stacks.ChainClient, events EventPublisher, hub *ws.WebSocketNotificationHub) *Tracker {
	return &Tracker{
		db:     db,
		chain:  chain,
		events: events,
		hub:    hub,
	}
}

// Broadcast persists a PENDING row, submits the signed transfer and attaches
// the returned txid. The row is written and committed before the network call
// so a crash mid-broadcast still leaves an auditable record; a transport-level
// failure likewise leaves the row PENDING for later reconciliation.
func (t *Tracker) Broadcast(ctx context.Context, built *BuiltTransfer) (*model.Transaction, error) {
	record := &model.Transaction{
		Id:        uuid.NewString(),
		WalletId:  built.Wallet.Id,
		ToAddress: built.ToAddress,
		Amount:    strconv.FormatUint(built.AmountMicroStx, 10),
		Memo:      built.Memo,
		Type:      model.TransactionTypeTokenTransfer,
		Status:    model.TransactionStatusPending,
	}
	if result := t.db.Create(record); result.Error != nil {
		return nil, result.Error
	}

	txId, err := t.chain.BroadcastTransaction(ctx, built.Signed.Raw)
	if err != nil {
		var rejection *stacks.RejectionError
		if errors.As(err, &rejection) {
			t.markRejected(record, rejection.Reason)
			return nil, &BroadcastError{Reason: rejection.Reason, Record: record}
		}
		// transport failure: outcome unknown, keep the row PENDING and let
		// status polling reconcile it
		log.Warn().Err(err).Msg(fmt.Sprintf("Broadcast outcome unknown for transaction %s", record.Id))
		return nil, err
	}

	record.TxId = &txId
	if result := t.db.Model(record).Update("tx_id", txId); result.Error != nil {
		return nil, result.Error
	}

	t.events.Publish(TransactionEvent{
		Type:          EventBroadcastAccepted,
		TransactionId: record.Id,
		TxId:          txId,
		WalletId:      record.WalletId,
		Status:        record.Status,
	})
	t.notify(built.Wallet.Address, EventBroadcastAccepted, record)

	return record, nil
}

// UpdateStatus applies a terminal status to the row carrying txId. Repeating
// an already-applied terminal status is a no-op; a conflicting terminal
// transition indicates a data inconsistency and is logged loudly without
// failing the caller.
func (t *Tracker) UpdateStatus(txId string, newStatus model.TransactionStatus) error {
	record, err := t.GetByTxId(txId)
	if err != nil {
		return err
	}

	if record.Status == newStatus {
		return nil
	}
	if record.Status.Terminal() {
		log.Error().Msg(fmt.Sprintf(
			"Refusing terminal status transition %s -> %s for transaction %s (txId %s): ledger inconsistency",
			record.Status, newStatus, record.Id, txId))
		return nil
	}

	if result := t.db.Model(record).Update("status", newStatus); result.Error != nil {
		return result.Error
	}
	record.Status = newStatus

	t.events.Publish(TransactionEvent{
		Type:          EventStatusChanged,
		TransactionId: record.Id,
		TxId:          txId,
		WalletId:      record.WalletId,
		Status:        newStatus,
	})
	if address, addrErr := t.walletAddress(record.WalletId); addrErr == nil {
		t.notify(address, EventStatusChanged, record)
	}

	return nil
}

// CheckStatus polls the chain node for finality and applies any terminal
// result to the ledger. Unreachable-node errors are retried with backoff;
// this is a read, so retrying cannot duplicate a submission.
func (t *Tracker) CheckStatus(ctx context.Context, txId string) (model.TransactionStatus, error) {
	retry := &backoff.Backoff{
		Min:    100 * time.Millisecond,
		Max:    2 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var chainStatus stacks.TxStatus
	var err error
	for attempt := 0; attempt < statusPollAttempts; attempt++ {
		chainStatus, err = t.chain.GetTransactionStatus(ctx, txId)
		if err == nil || !errors.Is(err, stacks.ErrNodeUnreachable) {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(retry.Duration()):
		}
	}
	if err != nil {
		return "", err
	}

	status := statusFromChain(chainStatus)
	if status.Terminal() {
		if err := t.UpdateStatus(txId, status); err != nil {
			return "", err
		}
	}
	return status, nil
}

// Get loads a ledger row scoped by owner through the wallet join, so a user
// can only ever see transactions of wallets they own.
func (t *Tracker) Get(transactionId, ownerUserId string) (*model.Transaction, error) {
	var record model.Transaction
	result := t.db.
		Joins("INNER JOIN wallet ON wallet.id = wallet_transaction.wallet_id").
		Where("wallet_transaction.id = ? AND wallet.owner_user_id = ?", transactionId, ownerUserId).
		First(&record)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &record, nil
}

func (t *Tracker) ListByWallet(walletId, ownerUserId string) ([]model.Transaction, error) {
	var records []model.Transaction
	result := t.db.
		Joins("INNER JOIN wallet ON wallet.id = wallet_transaction.wallet_id").
		Where("wallet_transaction.wallet_id = ? AND wallet.owner_user_id = ?", walletId, ownerUserId).
		Order("wallet_transaction.created_at DESC").
		Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}
	return records, nil
}

func (t *Tracker) GetByTxId(txId string) (*model.Transaction, error) {
	var record model.Transaction
	result := t.db.Where("tx_id = ?", txId).First(&record)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &record, nil
}

func (t *Tracker) markRejected(record *model.Transaction, reason string) {
	record.Status = model.TransactionStatusFailed
	if result := t.db.Model(record).Update("status", model.TransactionStatusFailed); result.Error != nil {
		log.Error().Err(result.Error).Msg(fmt.Sprintf("Could not mark transaction %s FAILED after rejection", record.Id))
	}

	t.events.Publish(TransactionEvent{
		Type:          EventBroadcastRejected,
		TransactionId: record.Id,
		WalletId:      record.WalletId,
		Status:        model.TransactionStatusFailed,
		Reason:        reason,
	})
}

func (t *Tracker) notify(address, eventType string, record *model.Transaction) {
	if t.hub == nil {
		return
	}
	t.hub.Publish("transactions/"+address, map[string]any{
		"type":    eventType,
		"payload": record,
	})
}

func (t *Tracker) walletAddress(walletId string) (string, error) {
	var address string
	result := t.db.Table("wallet").Select("address").Where("id = ?", walletId).Scan(&address)
	if result.Error != nil {
		return "", result.Error
	}
	return address, nil
}

func statusFromChain(status stacks.TxStatus) model.TransactionStatus {
	switch status {
	case stacks.TxStatusConfirmed:
		return model.TransactionStatusConfirmed
	case stacks.TxStatusFailed:
		return model.TransactionStatusFailed
	default:
		return model.TransactionStatusPending
	}
}
