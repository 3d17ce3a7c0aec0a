package waifu

import "errors"

// Error kinds shared by the ledger, the account store and the services built on them.
// Expected precondition failures are returned as these values; callers match with errors.Is.
var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNotOwner           = errors.New("card is not owned by this user")
	ErrCardLocked         = errors.New("card is locked")
	ErrCardNotFound       = errors.New("card not found")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrDuplicateOffer     = errors.New("user already has a pending trade")
	ErrDuplicateSerial    = errors.New("serial already issued")
	ErrAlreadyMaxTier     = errors.New("card is already at the highest tier")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrBusy               = errors.New("user has a request in progress")
	ErrEmptyTier          = errors.New("catalog has no cards for tier")
	ErrTradeNotFound      = errors.New("trade not found")
)

// ReadRetries bounds how often an idempotent read is retried on ErrStorageUnavailable.
const ReadRetries = 3

// IsPrecondition reports whether err is an expected, user-facing rejection rather than a fault.
func IsPrecondition(err error) bool {
	for _, target := range []error{
		ErrInvalidArgument, ErrNotOwner, ErrCardLocked, ErrCardNotFound, ErrInsufficientFunds,
		ErrDuplicateOffer, ErrAlreadyMaxTier, ErrBusy, ErrEmptyTier, ErrTradeNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
