package model

import "time"

type TransactionType string

const (
	TransactionTypeTokenTransfer TransactionType = "TOKEN_TRANSFER"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusConfirmed TransactionStatus = "CONFIRMED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusConfirmed || s == TransactionStatusFailed
}

type Transaction struct {
	Id        string            `gorm:"primaryKey" json:"id"`
	TxId      *string           `gorm:"index" json:"txId"`
	WalletId  string            `gorm:"index" json:"walletId"`
	ToAddress string            `json:"toAddress"`
	Amount    string            `json:"amount"` // base units, decimal string
	Memo      string            `json:"memo,omitempty"`
	Type      TransactionType   `json:"type"`
	Status    TransactionStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
}

func (Transaction) TableName() string {
	return "wallet_transaction"
}
