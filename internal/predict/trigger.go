package predict

// TriggerPolicy decides whether a prediction is surfaced to the
// customer in the current run.
type TriggerPolicy struct {
	// WindowDays is how close to the expected date a prediction may be
	// to trigger early, provided confidence is high enough.
	WindowDays int
	// MinConfidence is the confidence floor for early triggering.
	MinConfidence float64
}

// DefaultTriggerPolicy returns the stock policy: overdue items always
// trigger; items due within 2 days trigger at confidence >= 0.6.
func DefaultTriggerPolicy() TriggerPolicy {
	return TriggerPolicy{WindowDays: 2, MinConfidence: 0.6}
}

// ShouldTrigger reports whether a nudge should be surfaced now. Due or
// overdue predictions (daysUntil <= 0) always trigger regardless of
// confidence. Beyond the window nothing triggers.
func (p TriggerPolicy) ShouldTrigger(daysUntil int, confidence float64) bool {
	if daysUntil <= 0 {
		return true
	}
	return daysUntil <= p.WindowDays && confidence >= p.MinConfidence
}
