package stacks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gojek/heimdall/v7/httpclient"
)

// TxStatus is the chain-side view of a transaction's lifecycle.
type TxStatus string

const (
	TxStatusPending   TxStatus = "PENDING"
	TxStatusConfirmed TxStatus = "CONFIRMED"
	TxStatusFailed    TxStatus = "FAILED"
)

// ErrNodeUnreachable marks transport-level failures (timeout, connection
// refused) as distinct from an explicit rejection by the node.
var ErrNodeUnreachable = errors.New("chain node unreachable")

// RejectionError is an explicit refusal from the chain node: malformed
// transaction, insufficient balance, conflicting nonce and similar.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return "transaction rejected by chain node: " + e.Reason
}

// ChainClient is the narrow chain-node contract the wallet core consumes.
type ChainClient interface {
	GetAccountNonce(ctx context.Context, address string) (uint64, error)
	BroadcastTransaction(ctx context.Context, raw []byte) (string, error)
	GetTransactionStatus(ctx context.Context, txId string) (TxStatus, error)
}

// NodeClient talks to a Stacks node's HTTP API. Requests carry a hard
// timeout; broadcast is never retried here to avoid duplicate submissions.
type NodeClient struct {
	baseURL string
	http    *httpclient.Client
}

func NewNodeClient(baseURL string, timeout time.Duration) *NodeClient {
	return &NodeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpclient.NewClient(httpclient.WithHTTPTimeout(timeout)),
	}
}

type accountResponse struct {
	Nonce uint64 `json:"nonce"`
}

func (c *NodeClient) GetAccountNonce(ctx context.Context, address string) (uint64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/accounts/"+address+"?proof=0", nil)
	if err != nil {
		return 0, err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNodeUnreachable, err.Error())
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("account lookup for %s returned status %d", address, res.StatusCode)
	}

	var account accountResponse
	if err := json.NewDecoder(res.Body).Decode(&account); err != nil {
		return 0, fmt.Errorf("decoding account response: %w", err)
	}
	return account.Nonce, nil
}

type broadcastRejection struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

func (c *NodeClient) BroadcastTransaction(ctx context.Context, raw []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/transactions", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNodeUnreachable, err.Error())
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("reading broadcast response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		rejection := broadcastRejection{}
		if jsonErr := json.Unmarshal(body, &rejection); jsonErr == nil {
			if rejection.Reason != "" {
				return "", &RejectionError{Reason: rejection.Reason}
			}
			if rejection.Error != "" {
				return "", &RejectionError{Reason: rejection.Error}
			}
		}
		return "", &RejectionError{Reason: fmt.Sprintf("status %d: %s", res.StatusCode, string(body))}
	}

	// the node answers with the quoted txid
	txId := strings.Trim(strings.TrimSpace(string(body)), `"`)
	if txId == "" {
		return "", &RejectionError{Reason: "node returned empty transaction id"}
	}
	return strings.TrimPrefix(txId, "0x"), nil
}

type txStatusResponse struct {
	TxStatus string `json:"tx_status"`
}

func (c *NodeClient) GetTransactionStatus(ctx context.Context, txId string) (TxStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/extended/v1/tx/0x"+txId, nil)
	if err != nil {
		return "", err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNodeUnreachable, err.Error())
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		// not yet visible to the node, treated as still pending
		return TxStatusPending, nil
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status lookup for %s returned status %d", txId, res.StatusCode)
	}

	var status txStatusResponse
	if err := json.NewDecoder(res.Body).Decode(&status); err != nil {
		return "", fmt.Errorf("decoding status response: %w", err)
	}

	switch status.TxStatus {
	case "pending":
		return TxStatusPending, nil
	case "success":
		return TxStatusConfirmed, nil
	default:
		// abort_by_response, abort_by_post_condition, dropped_*
		return TxStatusFailed, nil
	}
}
