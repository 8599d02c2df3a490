package marketdata

import "errors"

// ErrDataUnavailable indicates the provider could not produce the requested
// data this tick. Callers should treat it as a transient hold, not a failure
// of the trading task.
var ErrDataUnavailable = errors.New("market data unavailable")
