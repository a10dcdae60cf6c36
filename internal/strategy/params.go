package strategy

// Params holds the trap thresholds. Multipliers are applied to zone levels
// and to the mean intraday volume.
type Params struct {
	// ZoneTolerance widens the zone a bar must touch: low*(1+t), high*(1-t).
	ZoneTolerance float64
	// StopBuffer places the stop beyond the zone: low*(1-b), high*(1+b).
	StopBuffer float64
	// VolumeMultiplier is how far above mean volume the latest bar must trade.
	VolumeMultiplier float64
	// ConfidenceCap bounds the reported confidence, in percent.
	ConfidenceCap float64
}

// DefaultParams returns the standard stop-hunt thresholds.
func DefaultParams() Params {
	return Params{
		ZoneTolerance:    0.005,
		StopBuffer:       0.005,
		VolumeMultiplier: 1.8,
		ConfidenceCap:    90,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.ZoneTolerance <= 0 {
		p.ZoneTolerance = d.ZoneTolerance
	}
	if p.StopBuffer <= 0 {
		p.StopBuffer = d.StopBuffer
	}
	if p.VolumeMultiplier <= 0 {
		p.VolumeMultiplier = d.VolumeMultiplier
	}
	if p.ConfidenceCap <= 0 || p.ConfidenceCap > 100 {
		p.ConfidenceCap = d.ConfidenceCap
	}
	return p
}
