package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldTrigger(t *testing.T) {
	t.Parallel()

	policy := DefaultTriggerPolicy()

	tests := []struct {
		name       string
		daysUntil  int
		confidence float64
		want       bool
	}{
		{"overdue always triggers", -5, 0.0, true},
		{"due today always triggers", 0, 0.1, true},
		{"within window high confidence", 2, 0.6, true},
		{"within window low confidence", 2, 0.59, false},
		{"one day out high confidence", 1, 0.9, true},
		{"beyond window high confidence", 3, 1.0, false},
		{"far out", 30, 1.0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, policy.ShouldTrigger(tt.daysUntil, tt.confidence))
		})
	}
}

func TestShouldTriggerCustomPolicy(t *testing.T) {
	t.Parallel()

	policy := TriggerPolicy{WindowDays: 5, MinConfidence: 0.8}

	assert.True(t, policy.ShouldTrigger(5, 0.8))
	assert.False(t, policy.ShouldTrigger(5, 0.79))
	assert.False(t, policy.ShouldTrigger(6, 1.0))
	assert.True(t, policy.ShouldTrigger(0, 0.0))
}
