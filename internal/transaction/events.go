package transaction

import (
	"github.com/stackvault/stackvault-backend/internal/pkg/model"
	"github.com/stackvault/stackvault-backend/internal/pkg/pubsub"
)

const (
	EventBroadcastAccepted = "BROADCAST_ACCEPTED"
	EventBroadcastRejected = "BROADCAST_REJECTED"
	EventStatusChanged     = "STATUS_CHANGED"
)

type TransactionEvent struct {
	Type          string                  `json:"type"`
	TransactionId string                  `json:"transactionId"`
	TxId          string                  `json:"txId,omitempty"`
	WalletId      string                  `json:"walletId"`
	Status        model.TransactionStatus `json:"status"`
	Reason        string                  `json:"reason,omitempty"`
}

func (TransactionEvent) GetEventTopicName() string {
	return "wallet.stx.transactions"
}

// EventPublisher decouples the tracker from the pubsub client so tests can
// record events in-process.
type EventPublisher interface {
	Publish(message pubsub.Publishable)
}

// NoopPublisher satisfies EventPublisher where no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(pubsub.Publishable) {}
