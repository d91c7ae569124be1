package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifierDefaults(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		feedback string
		approves bool
	}{
		{"approve", true},
		{"Approved!", true},
		{"  LGTM  ", true},
		{"looks good", true},
		{"go ahead.", true},
		{"", true},
		{"   ", true},
		{"add an economist to the panel", false},
		{"no", false},
		{"looks good but add a skeptic", false},
	}

	for _, tt := range tests {
		t.Run(tt.feedback, func(t *testing.T) {
			assert.Equal(t, tt.approves, c.Approves(tt.feedback))
		})
	}
}

func TestClassifierCustomTerms(t *testing.T) {
	c := NewClassifier([]string{"ship it", "da"})

	assert.True(t, c.Approves("Ship it!"))
	assert.True(t, c.Approves("da"))
	// Defaults are replaced, not extended.
	assert.False(t, c.Approves("approve"))
}
