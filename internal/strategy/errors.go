package strategy

import "errors"

var (
	// ErrInsufficientCapital means the investable budget is below the
	// minimum notional floor for a single entry.
	ErrInsufficientCapital = errors.New("insufficient capital for entry")

	// ErrNoExpirationFound means no chain expiration satisfies the first
	// leg's date rule.
	ErrNoExpirationFound = errors.New("no expiration satisfies date rule")

	// ErrLegUnresolved means a leg's contract, price, or quantity could not
	// be resolved. The whole entry is abandoned, never partially placed.
	ErrLegUnresolved = errors.New("leg could not be resolved")
)
