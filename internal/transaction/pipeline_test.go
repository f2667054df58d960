package transaction

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stackvault/stackvault-backend/internal/keymgmt"
	"github.com/stackvault/stackvault-backend/internal/pkg/model"
	"github.com/stackvault/stackvault-backend/internal/pkg/pubsub"
	"github.com/stackvault/stackvault-backend/internal/stacks"
	"github.com/stackvault/stackvault-backend/internal/wallet"
)

type stubChain struct {
	nonce         uint64
	nonceErr      error
	broadcastTxId string
	broadcastErr  error
	status        stacks.TxStatus
	statusErr     error
	broadcasts    [][]byte
}

func (s *stubChain) GetAccountNonce(_ context.Context, _ string) (uint64, error) {
	if s.nonceErr != nil {
		return 0, s.nonceErr
	}
	return s.nonce, nil
}

func (s *stubChain) BroadcastTransaction(_ context.Context, raw []byte) (string, error) {
	s.broadcasts = append(s.broadcasts, raw)
	if s.broadcastErr != nil {
		return "", s.broadcastErr
	}
	return s.broadcastTxId, nil
}

func (s *stubChain) GetTransactionStatus(_ context.Context, _ string) (stacks.TxStatus, error) {
	if s.statusErr != nil {
		return "", s.statusErr
	}
	return s.status, nil
}

type recordingPublisher struct {
	events []pubsub.Publishable
}

func (r *recordingPublisher) Publish(message pubsub.Publishable) {
	r.events = append(r.events, message)
}

type pipeline struct {
	db       *gorm.DB
	wallets  *wallet.Service
	service  *Service
	tracker  *Tracker
	chain    *stubChain
	recorder *recordingPublisher
	network  stacks.Network
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Wallet{}, &model.Transaction{}))

	cipher, err := keymgmt.NewSecretCipher("test-master-secret")
	require.NoError(t, err)

	network := stacks.Testnet("http://localhost:3999")
	wallets := wallet.NewService(db, cipher, network.AddressVersion, 5)
	chain := &stubChain{broadcastTxId: "abc"}
	recorder := &recordingPublisher{}

	builder := NewBuilder(wallets, chain, network, 300)
	tracker := NewTracker(db, chain, recorder, nil)

	return &pipeline{
		db:       db,
		wallets:  wallets,
		service:  NewService(builder, tracker),
		tracker:  tracker,
		chain:    chain,
		recorder: recorder,
		network:  network,
	}
}

func (p *pipeline) newWallet(t *testing.T, owner string) *model.Wallet {
	t.Helper()
	created, err := p.wallets.Create(owner, model.WalletTypeStandard, nil)
	require.NoError(t, err)
	return created
}

func (p *pipeline) newRecipient(t *testing.T) string {
	t.Helper()
	material, err := keymgmt.GenerateKeyMaterial(p.network.AddressVersion)
	require.NoError(t, err)
	return material.Address
}

func TestTransferHappyPath(t *testing.T) {
	p := newPipeline(t)
	p.chain.nonce = 5

	spending := p.newWallet(t, "user-a")
	recipient := p.newRecipient(t)

	record, err := p.service.Transfer(context.Background(), spending.Id, "user-a", recipient, 10, "invoice 7")
	require.NoError(t, err)

	require.NotNil(t, record.TxId)
	assert.Equal(t, "abc", *record.TxId)
	assert.Equal(t, model.TransactionStatusPending, record.Status)
	assert.Equal(t, "10000000", record.Amount, "10 STX must convert to exactly 10_000_000 base units")
	assert.Equal(t, recipient, record.ToAddress)

	// the broadcast payload carries the fetched nonce, base-unit amount
	// and recipient key hash
	require.Len(t, p.chain.broadcasts, 1)
	raw := p.chain.broadcasts[0]
	assert.Equal(t, uint64(5), binary.BigEndian.Uint64(raw[27:35]))

	payloadStart := 1 + 4 + 1 + 1 + 20 + 8 + 8 + 1 + 65
	_, recipientHash, err := keymgmt.C32CheckDecode(recipient)
	require.NoError(t, err)
	assert.Equal(t, recipientHash, raw[payloadStart+2:payloadStart+22])
	assert.Equal(t, uint64(10_000_000), binary.BigEndian.Uint64(raw[payloadStart+22:payloadStart+30]))

	// persisted row matches what the handler returned
	persisted, err := p.service.Get(record.Id, "user-a")
	require.NoError(t, err)
	assert.Equal(t, "abc", *persisted.TxId)
	assert.Equal(t, model.TransactionStatusPending, persisted.Status)
}

func TestTransferAuditRowSurvivesTransportFailure(t *testing.T) {
	p := newPipeline(t)
	p.chain.broadcastErr = fmt.Errorf("%w: connection reset", stacks.ErrNodeUnreachable)

	spending := p.newWallet(t, "user-a")

	_, err := p.service.Transfer(context.Background(), spending.Id, "user-a", p.newRecipient(t), 1, "")
	require.ErrorIs(t, err, stacks.ErrNodeUnreachable)

	var rows []model.Transaction
	require.NoError(t, p.db.Find(&rows).Error)
	require.Len(t, rows, 1, "the audit row must be written before the broadcast attempt")
	assert.Equal(t, model.TransactionStatusPending, rows[0].Status)
	assert.Nil(t, rows[0].TxId)
}

func TestTransferBroadcastRejection(t *testing.T) {
	p := newPipeline(t)
	p.chain.broadcastErr = &stacks.RejectionError{Reason: "NotEnoughFunds"}

	spending := p.newWallet(t, "user-a")

	_, err := p.service.Transfer(context.Background(), spending.Id, "user-a", p.newRecipient(t), 1, "")

	var broadcastErr *BroadcastError
	require.ErrorAs(t, err, &broadcastErr)
	assert.Equal(t, "NotEnoughFunds", broadcastErr.Reason)

	// the attempt stays on record, marked FAILED
	var rows []model.Transaction
	require.NoError(t, p.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, model.TransactionStatusFailed, rows[0].Status)
	assert.Nil(t, rows[0].TxId)
}

func TestTransferNonceFetchFailure(t *testing.T) {
	p := newPipeline(t)
	p.chain.nonceErr = errors.New("node exploded")

	spending := p.newWallet(t, "user-a")

	_, err := p.service.Transfer(context.Background(), spending.Id, "user-a", p.newRecipient(t), 1, "")
	require.ErrorIs(t, err, ErrNonceFetch)

	var count int64
	require.NoError(t, p.db.Model(&model.Transaction{}).Count(&count).Error)
	assert.Zero(t, count, "nonce failure happens before any ledger write")
}

func TestTransferCrossUserIsolation(t *testing.T) {
	p := newPipeline(t)

	spending := p.newWallet(t, "user-a")

	_, err := p.service.Transfer(context.Background(), spending.Id, "user-b", p.newRecipient(t), 1, "")
	assert.ErrorIs(t, err, wallet.ErrNotFound)
	assert.Empty(t, p.chain.broadcasts)
}

func TestCheckStatusAppliesTerminalResult(t *testing.T) {
	p := newPipeline(t)
	p.chain.nonce = 2

	spending := p.newWallet(t, "user-a")
	record, err := p.service.Transfer(context.Background(), spending.Id, "user-a", p.newRecipient(t), 1, "")
	require.NoError(t, err)

	p.chain.status = stacks.TxStatusConfirmed

	status, err := p.service.RefreshStatus(context.Background(), *record.TxId)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusConfirmed, status)

	persisted, err := p.tracker.GetByTxId(*record.TxId)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusConfirmed, persisted.Status)

	// repeating the same terminal status is a no-op
	eventsBefore := len(p.recorder.events)
	status, err = p.service.RefreshStatus(context.Background(), *record.TxId)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusConfirmed, status)
	assert.Equal(t, eventsBefore, len(p.recorder.events))
}

func TestUpdateStatusConflictingTerminalTransition(t *testing.T) {
	p := newPipeline(t)

	spending := p.newWallet(t, "user-a")
	record, err := p.service.Transfer(context.Background(), spending.Id, "user-a", p.newRecipient(t), 1, "")
	require.NoError(t, err)

	require.NoError(t, p.tracker.UpdateStatus(*record.TxId, model.TransactionStatusConfirmed))

	// a conflicting terminal status must not crash and must not change the row
	require.NoError(t, p.tracker.UpdateStatus(*record.TxId, model.TransactionStatusFailed))

	persisted, err := p.tracker.GetByTxId(*record.TxId)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusConfirmed, persisted.Status)
}

func TestUpdateStatusUnknownTxId(t *testing.T) {
	p := newPipeline(t)
	err := p.tracker.UpdateStatus("deadbeef", model.TransactionStatusConfirmed)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestBroadcastPublishesLifecycleEvents(t *testing.T) {
	p := newPipeline(t)

	spending := p.newWallet(t, "user-a")
	record, err := p.service.Transfer(context.Background(), spending.Id, "user-a", p.newRecipient(t), 1, "")
	require.NoError(t, err)

	require.Len(t, p.recorder.events, 1)
	accepted, ok := p.recorder.events[0].(TransactionEvent)
	require.True(t, ok)
	assert.Equal(t, EventBroadcastAccepted, accepted.Type)
	assert.Equal(t, record.Id, accepted.TransactionId)

	require.NoError(t, p.tracker.UpdateStatus(*record.TxId, model.TransactionStatusFailed))
	require.Len(t, p.recorder.events, 2)
	changed := p.recorder.events[1].(TransactionEvent)
	assert.Equal(t, EventStatusChanged, changed.Type)
	assert.Equal(t, model.TransactionStatusFailed, changed.Status)
}
