package model

import "time"

// SignalType indicates which trap fired.
type SignalType string

const (
	BearTrap SignalType = "BEAR_TRAP" // false breakdown below support
	BullTrap SignalType = "BULL_TRAP" // false breakout above resistance
)

// Direction is the move a confidence score is measured against.
type Direction string

const (
	DirectionDown Direction = "down"
	DirectionUp   Direction = "up"
)

// Signal is a stop-hunt trade idea produced from the latest intraday bar.
type Signal struct {
	Type       SignalType
	Symbol     string
	Entry      float64
	Stop       float64
	Target     float64
	Confidence float64 // percent, capped
	BarTime    time.Time
}
