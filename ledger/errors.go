package ledger

import "errors"

// The ledger's failure taxonomy. Every mutation aborts all-or-nothing
// with one of these; nothing is retried internally.
var (
	ErrNoAmount              = errors.New("TOKEN_REQUEST_NO_AMOUNT")
	ErrEthValueMismatch      = errors.New("TOKEN_REQUEST_ETH_VALUE_MISMATCH")
	ErrTokenTransferReverted = errors.New("TOKEN_REQUEST_TOKEN_TRANSFER_REVERTED")
	ErrNoDeposit             = errors.New("TOKEN_REQUEST_NO_DEPOSIT")
	ErrNotOwner              = errors.New("TOKEN_REQUEST_NOT_OWNER")
	ErrAddressNotContract    = errors.New("TOKEN_REQUEST_ADDRESS_NOT_CONTRACT")
	ErrTokenAlreadyAccepted  = errors.New("TOKEN_REQUEST_TOKEN_ALREADY_ACCEPTED")
	ErrTokenNotAccepted      = errors.New("TOKEN_REQUEST_TOKEN_NOT_ACCEPTED")
	ErrTooManyAcceptedTokens = errors.New("TOKEN_REQUEST_TOO_MANY_ACCEPTED_TOKENS")
	ErrAuthFailed            = errors.New("APP_AUTH_FAILED")
)
