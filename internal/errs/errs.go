// Package errs holds the desk's failure taxonomy. Every failure is a sentinel
// wrapped with context via fmt.Errorf("%w: ...") and matched with errors.Is.
package errs

import "errors"

var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientPosition = errors.New("insufficient position")
	ErrPositionConflict     = errors.New("position conflict")
	ErrNoPosition           = errors.New("no position")
	ErrOracle               = errors.New("oracle error")
	ErrVenueRejected        = errors.New("venue rejected")
	ErrInvalidOrder         = errors.New("invalid order")
	ErrCancelled            = errors.New("cycle cancelled")
)

var kinds = []struct {
	err  error
	code string
}{
	{ErrInsufficientFunds, "INSUFFICIENT_FUNDS"},
	{ErrInsufficientPosition, "INSUFFICIENT_POSITION"},
	{ErrPositionConflict, "POSITION_CONFLICT"},
	{ErrNoPosition, "NO_POSITION"},
	{ErrOracle, "ORACLE_ERROR"},
	{ErrVenueRejected, "VENUE_REJECTED"},
	{ErrInvalidOrder, "INVALID_ORDER"},
	{ErrCancelled, "CANCELLED"},
}

// Kind maps err onto its taxonomy code. Unclassified errors return "".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return ""
}
