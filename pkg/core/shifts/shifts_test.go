package shifts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var anchor = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func dayNight(t *testing.T) *Resolver {
	t.Helper()
	resolver, err := NewResolver([]Definition{
		{Name: "day", RRule: "FREQ=DAILY;BYHOUR=7;BYMINUTE=0;BYSECOND=0", Duration: 12 * time.Hour},
		{Name: "night", RRule: "FREQ=DAILY;BYHOUR=19;BYMINUTE=0;BYSECOND=0", Duration: 12 * time.Hour},
	}, anchor)
	require.NoError(t, err)
	return resolver
}

func TestResolver_Current(t *testing.T) {
	resolver := dayNight(t)

	tests := []struct {
		at       time.Time
		expected string
	}{
		{time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC), "day"},
		{time.Date(2025, 3, 10, 12, 30, 0, 0, time.UTC), "day"},
		{time.Date(2025, 3, 10, 18, 59, 59, 0, time.UTC), "day"},
		{time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC), "night"},
		{time.Date(2025, 3, 11, 3, 0, 0, 0, time.UTC), "night"},
		{time.Date(2025, 3, 11, 6, 59, 0, 0, time.UTC), "night"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, resolver.Current(tt.at), tt.at.String())
	}
}

func TestResolver_NoShiftRunning(t *testing.T) {
	resolver, err := NewResolver([]Definition{
		{Name: "weekday-morning", RRule: "FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR;BYHOUR=8;BYMINUTE=0;BYSECOND=0", Duration: 4 * time.Hour},
	}, anchor)
	require.NoError(t, err)

	// Saturday 2025-03-15
	assert.Equal(t, "", resolver.Current(time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)))
	// Monday 2025-03-10 at 13:00, after the window closed
	assert.Equal(t, "", resolver.Current(time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)))
	// Monday 2025-03-10 at 09:00
	assert.Equal(t, "weekday-morning", resolver.Current(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)))
}

func TestResolver_Resolve(t *testing.T) {
	resolver := dayNight(t)
	at := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, "night", resolver.Resolve(CurrentShift, at))
	assert.Equal(t, "day", resolver.Resolve("day", at))
	assert.Equal(t, "", resolver.Resolve("", at))
}

func TestNewResolver_Errors(t *testing.T) {
	_, err := NewResolver([]Definition{{Name: "bad", RRule: "NOT_A_RULE", Duration: time.Hour}}, anchor)
	assert.Error(t, err)

	_, err = NewResolver([]Definition{{Name: "zero", RRule: "FREQ=DAILY", Duration: 0}}, anchor)
	assert.Error(t, err)
}
