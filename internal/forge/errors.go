package forge

import (
	"errors"
	"fmt"
)

// Error is a forge failure kind with a stable numeric code.
type Error struct {
	Code int
	Name string
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Error kinds. Codes start at 6000 and never change meaning.
var (
	ErrUnauthorized               = &Error{6000, "Unauthorized", "unauthorized action"}
	ErrTradingAlreadyEnabled      = &Error{6001, "TradingAlreadyEnabled", "trading already enabled"}
	ErrInvalidSupply              = &Error{6002, "InvalidSupply", "invalid supply amount"}
	ErrDuplicateIssuance          = &Error{6003, "DuplicateIssuance", "token already issued for creator and name"}
	ErrAddressDerivationExhausted = &Error{6004, "AddressDerivationExhausted", "no valid program address for seeds"}
	ErrExternalLedgerRejected     = &Error{6005, "ExternalLedgerRejected", "token program rejected instruction"}
	ErrInvalidName                = &Error{6006, "InvalidName", "invalid token name"}
	ErrInvalidSymbol              = &Error{6007, "InvalidSymbol", "invalid token symbol"}
	ErrInsufficientFunds          = &Error{6008, "InsufficientFunds", "insufficient funds for rent"}
	ErrTokenNotFound              = &Error{6009, "TokenNotFound", "token data not found"}
	ErrRevenueOverflow            = &Error{6010, "RevenueOverflow", "revenue counter overflow"}
	ErrConflict                   = &Error{6011, "Conflict", "concurrent update to the same records"}
)

// Code returns the numeric code of the first forge error in err's chain, or 0.
func Code(err error) int {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return 0
}

// Name returns the name of the first forge error in err's chain, or "".
func Name(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Name
	}
	return ""
}

// fail tags cause with kind. Both stay visible to errors.Is.
func fail(kind *Error, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}
