package reject

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

const (
	genericUnexpectedError string = "error.generic.unexpected"
	cannotParseBody        string = "error.generic.cannot-parse-payload"

	walletNotFound      string = "error.wallet.not-found"
	walletLimitReached  string = "error.wallet.limit-reached"
	walletDecryption    string = "error.wallet.decryption"
	nonceFetchFailed    string = "error.chain.nonce-fetch-failed"
	broadcastRejected   string = "error.chain.broadcast-rejected"
	txNotFound          string = "error.transaction.not-found"
	providerNotVerified string = "error.social.provider-not-verified"
	invalidProvider     string = "error.social.invalid-provider"
	invalidMetadata     string = "error.wallet.invalid-metadata"
	invalidRecipient    string = "error.transaction.invalid-recipient"
)

func BodyParseProblem() Problem {
	return NewProblem().
		WithTitle("Cannot read payload").
		WithStatus(http.StatusBadRequest).
		WithCode(cannotParseBody).
		Build()
}

func UnexpectedProblem(err error) Problem {
	log.Warn().Err(err).Msg("Unexpected error while handling request: " + err.Error())
	return NewProblem().
		WithTitle("Unexpected error").
		WithStatus(http.StatusInternalServerError).
		WithCode(genericUnexpectedError).
		Build()
}

// WalletNotFoundProblem covers nonexistent, inactive and foreign-owned
// wallets alike so existence never leaks across users.
func WalletNotFoundProblem() Problem {
	return NewProblem().
		WithTitle("Wallet not found").
		WithStatus(http.StatusNotFound).
		WithCode(walletNotFound).
		Build()
}

func WalletLimitProblem() Problem {
	return NewProblem().
		WithTitle("Active wallet limit reached").
		WithStatus(http.StatusConflict).
		WithCode(walletLimitReached).
		Build()
}

func DecryptionProblem(err error) Problem {
	log.Error().Err(err).Msg("Wallet key decryption failed, possible data corruption or secret misconfiguration")
	return NewProblem().
		WithTitle("Stored key material cannot be decrypted").
		WithStatus(http.StatusInternalServerError).
		WithCode(walletDecryption).
		Build()
}

func NonceFetchProblem(err error) Problem {
	return NewProblem().
		WithTitle("Could not fetch account nonce from chain node").
		WithStatus(http.StatusBadGateway).
		WithCode(nonceFetchFailed).
		WithDetail(err.Error()).
		Build()
}

func BroadcastProblem(reason string) Problem {
	return NewProblem().
		WithTitle("Chain node rejected the transaction").
		WithStatus(http.StatusBadGateway).
		WithCode(broadcastRejected).
		WithDetail(reason).
		Build()
}

func TransactionNotFoundProblem() Problem {
	return NewProblem().
		WithTitle("Transaction not found").
		WithStatus(http.StatusNotFound).
		WithCode(txNotFound).
		Build()
}

func ProviderNotVerifiedProblem() Problem {
	return NewProblem().
		WithTitle("Identity provider not verified").
		WithStatus(http.StatusPreconditionFailed).
		WithCode(providerNotVerified).
		Build()
}

func InvalidProviderProblem(provider string) Problem {
	return NewProblem().
		WithTitle("Unsupported identity provider").
		WithStatus(http.StatusBadRequest).
		WithCode(invalidProvider).
		WithParam("provider", provider).
		Build()
}

func InvalidMetadataProblem(key string) Problem {
	return NewProblem().
		WithTitle("Metadata key not allowed").
		WithStatus(http.StatusBadRequest).
		WithCode(invalidMetadata).
		WithParam("key", key).
		Build()
}

func InvalidRecipientProblem(address string) Problem {
	return NewProblem().
		WithTitle("Recipient address is not valid for the configured network").
		WithStatus(http.StatusBadRequest).
		WithCode(invalidRecipient).
		WithParam("address", address).
		Build()
}
