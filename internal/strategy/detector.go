package strategy

import (
	"fmt"
	"math"

	"StopHunter/internal/calculator"
	"StopHunter/internal/model"
)

// Detector checks the latest intraday bar for false breaks of a zone.
// It holds no state between calls.
type Detector struct {
	Params Params
	Scorer Scorer
}

// NewDetector creates a Detector; zero fields in p take their defaults.
func NewDetector(p Params) *Detector {
	return &Detector{Params: p.withDefaults()}
}

// Evaluate returns zero, one or two signals. Bear and bull traps are checked
// independently. No signal is emitted while the zone has no usable VWAP,
// since the target would be undefined.
func (d *Detector) Evaluate(symbol string, latest model.OHLCV, intraday []model.OHLCV, zone model.LiquidityZone) ([]model.Signal, error) {
	p := d.Params.withDefaults()

	meanVolume, err := calculator.MeanVolume(intraday)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", symbol, err)
	}
	volumeSpike := latest.Volume > meanVolume*p.VolumeMultiplier

	bear := volumeSpike &&
		latest.Low <= zone.RecentLow*(1+p.ZoneTolerance) &&
		latest.Close > zone.RecentLow
	bull := volumeSpike &&
		latest.High >= zone.RecentHigh*(1-p.ZoneTolerance) &&
		latest.Close < zone.RecentHigh

	if !bear && !bull {
		return nil, nil
	}
	if !zone.HasVWAP() {
		return nil, nil
	}

	var signals []model.Signal
	if bear {
		conf, err := d.confidence(intraday, model.DirectionDown, p.ConfidenceCap)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s bear trap: %w", symbol, err)
		}
		signals = append(signals, model.Signal{
			Type:       model.BearTrap,
			Symbol:     symbol,
			Entry:      calculator.Round2(latest.Close),
			Stop:       calculator.Round2(zone.RecentLow * (1 - p.StopBuffer)),
			Target:     calculator.Round2(zone.VWAP),
			Confidence: conf,
			BarTime:    latest.Time,
		})
	}
	if bull {
		conf, err := d.confidence(intraday, model.DirectionUp, p.ConfidenceCap)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s bull trap: %w", symbol, err)
		}
		signals = append(signals, model.Signal{
			Type:       model.BullTrap,
			Symbol:     symbol,
			Entry:      calculator.Round2(latest.Close),
			Stop:       calculator.Round2(zone.RecentHigh * (1 + p.StopBuffer)),
			Target:     calculator.Round2(zone.VWAP),
			Confidence: conf,
			BarTime:    latest.Time,
		})
	}
	return signals, nil
}

func (d *Detector) confidence(bars []model.OHLCV, dir model.Direction, limit float64) (float64, error) {
	score, err := d.Scorer.Score(bars, dir)
	if err != nil {
		return 0, err
	}
	return math.Max(0, math.Min(limit, score*100)), nil
}
