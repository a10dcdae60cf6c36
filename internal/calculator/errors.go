package calculator

import "errors"

var (
	// ErrNoBars is returned when a calculation receives an empty window.
	ErrNoBars = errors.New("no bars provided")
	// ErrDegenerateRange means the window's high equals its low, so no
	// price bins can be built.
	ErrDegenerateRange = errors.New("degenerate price range")
	// ErrInsufficientData means fewer bars than a return-based
	// calculation needs.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidPrice flags NaN, infinite or non-positive prices.
	ErrInvalidPrice = errors.New("invalid price")
	// ErrZeroVolume means the window traded no volume at all.
	ErrZeroVolume = errors.New("zero total volume")
)
