package latency

import "math"

type Classification string

const (
	ClassLoopback         Classification = "Loopback or same-host"
	ClassLocal            Classification = "Local network / same building"
	ClassMetro            Classification = "Metro or nearby region"
	ClassRegional         Classification = "Regional / same country"
	ClassInterCountry     Classification = "Inter-country"
	ClassIntercontinental Classification = "Intercontinental"
	ClassDistantOrRelayed Classification = "Very distant or routed via relay/VPN"
)

// Exclusive upper bounds in ascending order; the first match wins.
var classLadder = []struct {
	below float64
	class Classification
}{
	{1, ClassLoopback},
	{5, ClassLocal},
	{20, ClassMetro},
	{50, ClassRegional},
	{100, ClassInterCountry},
	{200, ClassIntercontinental},
	{math.Inf(1), ClassDistantOrRelayed},
}

// Classify maps a median RTT in milliseconds to a distance class.
func Classify(rttMS float64) Classification {
	for _, step := range classLadder {
		if rttMS < step.below {
			return step.class
		}
	}
	return ClassDistantOrRelayed
}
