package audit

import "math"

// DeviationEpsilon is the dead zone around zero below which a signed
// quantity counts as neutral
const DeviationEpsilon = 0.01

// DeviationTier classifies a signed quantity
type DeviationTier string

const (
	DeviationOver    DeviationTier = "over"
	DeviationUnder   DeviationTier = "under"
	DeviationNeutral DeviationTier = "neutral"
)

// Color returns the display colour of the tier
func (t DeviationTier) Color() string {
	switch t {
	case DeviationOver:
		return "red"
	case DeviationUnder:
		return "blue"
	default:
		return "gray"
	}
}

// DeviationTierOf classifies v; NaN is neutral
func DeviationTierOf(v float64) DeviationTier {
	switch {
	case v > DeviationEpsilon:
		return DeviationOver
	case v < -DeviationEpsilon:
		return DeviationUnder
	default:
		return DeviationNeutral
	}
}

// Rate severity thresholds in percent (strictly greater than)
const (
	RateHighThreshold = 50.0
	RateMidThreshold  = 20.0
)

// RateTier is the severity of an over-issue rate
type RateTier string

const (
	RateHigh RateTier = "high"
	RateMid  RateTier = "mid"
	RateLow  RateTier = "low"
)

// Color returns the display colour of the tier
func (t RateTier) Color() string {
	switch t {
	case RateHigh:
		return "red"
	case RateMid:
		return "orange"
	default:
		return "yellow"
	}
}

// RateTierOf classifies a rate in percent. A nil or non-finite rate is low.
func RateTierOf(rate *float64) RateTier {
	if rate == nil || math.IsNaN(*rate) || math.IsInf(*rate, 0) {
		return RateLow
	}
	switch {
	case *rate > RateHighThreshold:
		return RateHigh
	case *rate > RateMidThreshold:
		return RateMid
	default:
		return RateLow
	}
}
