package time

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShortDur(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     string
	}{
		{"zero", 0, "0s"},
		{"1 second", 1 * time.Second, "1s"},
		{"59 seconds", 59 * time.Second, "59s"},
		{"1 minute 0 seconds", 1 * time.Minute, "1m"},
		{"1 minute 30 seconds", 1*time.Minute + 30*time.Second, "1m30s"},
		{"59 minutes 0 seconds", 59 * time.Minute, "59m"},
		{"1 hour 0 minutes 0 seconds", 1 * time.Hour, "1h"},
		{"1 hour 30 minutes 0 seconds", 1*time.Hour + 30*time.Minute, "1h30m"},
		{"1 hour 0 minutes 30 seconds", 1*time.Hour + 30*time.Second, "1h0m30s"}, // ShortDur does not omit 0m if seconds follow
		{"2 hours 5 minutes 10 seconds", 2*time.Hour + 5*time.Minute + 10*time.Second, "2h5m10s"},
		{"500 milliseconds", 500 * time.Millisecond, "500ms"},
		{"1 second 500 milliseconds", 1*time.Second + 500*time.Millisecond, "1.5s"}, // Standard time.Duration.String() behavior
		{"1 minute 1 second 500 milliseconds", 1*time.Minute + 1*time.Second + 500*time.Millisecond, "1m1.5s"},
		{"just under 1m (has ms)", 59*time.Second + 900*time.Millisecond, "59.9s"},
		{"just under 1h (has s)", 59*time.Minute + 59*time.Second, "59m59s"},
		{"negative 1 minute", -1 * time.Minute, "-1m"},
		{"negative 1 hour", -1 * time.Hour, "-1h"},
		{"negative 1h30m", -(1*time.Hour + 30*time.Minute), "-1h30m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShortDur(tt.duration); got != tt.want {
				t.Errorf("ShortDur(%v) = %q, want %q (original: %q)", tt.duration, got, tt.want, tt.duration.String())
			}
		})
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{1234567 * time.Nanosecond, time.Millisecond},
		{1500*time.Millisecond + 400*time.Microsecond, 1500 * time.Millisecond},
		{90*time.Second + 400*time.Millisecond, 90 * time.Second},
		{-(2*time.Minute + 700*time.Millisecond), -(2*time.Minute + time.Second)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round(tt.in), "Round(%v)", tt.in)
	}
	assert.Equal(t, "1m30s", ShortDur(Round(90*time.Second+400*time.Millisecond)))
}

func TestSince(t *testing.T) {
	got := Since(time.Now().Add(-2 * time.Hour))
	assert.Equal(t, "2h", got)
}
