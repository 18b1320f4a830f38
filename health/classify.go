package health

// HealthState is a discrete classification of relationship staleness.
// It is always derived from current metrics, never stored as ground
// truth on its own.
type HealthState string

const (
	StateHealthy   HealthState = "healthy"
	StateAttention HealthState = "attention"
	StateDormant   HealthState = "dormant"
	StateWilted    HealthState = "wilted"
)

// Classify maps days-since-last-contact to a health state. One
// canonical threshold table; no hysteresis, so consecutive evaluations
// may jump between any two states.
func Classify(daysSinceLastContact float64) HealthState {
	switch {
	case daysSinceLastContact > 60:
		return StateWilted
	case daysSinceLastContact > 30:
		return StateDormant
	case daysSinceLastContact > 14:
		return StateAttention
	default:
		return StateHealthy
	}
}
