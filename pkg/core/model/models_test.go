package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestParsePriority(t *testing.T) {
	tests := []struct {
		raw      string
		expected Priority
	}{
		{"High", PriorityHigh},
		{"critical", PriorityHigh},
		{"MEDIUM", PriorityMedium},
		{"", PriorityMedium},
		{" low ", PriorityLow},
	}
	for _, tt := range tests {
		got, err := ParsePriority(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.expected, got, tt.raw)
	}

	_, err := ParsePriority("whenever")
	assert.Error(t, err)
}

func TestStoredForms(t *testing.T) {
	for _, p := range []Priority{PriorityHigh, PriorityMedium, PriorityLow} {
		for _, form := range StoredForms(p) {
			parsed, err := ParsePriority(form)
			require.NoError(t, err)
			assert.Equal(t, p, parsed, "stored form %q", form)
		}
	}
	assert.Equal(t, []string{"high", "critical"}, StoredForms(PriorityHigh))
}

func TestCertificationLevel_Ordering(t *testing.T) {
	assert.True(t, CertificationAdvanced.AtLeast(CertificationAdvanced))
	assert.True(t, CertificationAdvanced.AtLeast(CertificationIntermediate))
	assert.True(t, CertificationIntermediate.AtLeast(CertificationBasic))
	assert.False(t, CertificationBasic.AtLeast(CertificationIntermediate))
	assert.False(t, CertificationIntermediate.AtLeast(CertificationAdvanced))
}

func TestParseCertificationLevel(t *testing.T) {
	level, err := ParseCertificationLevel("advanced")
	require.NoError(t, err)
	assert.Equal(t, CertificationAdvanced, level)
	assert.Equal(t, "Advanced", level.String())

	_, err = ParseCertificationLevel("expert")
	assert.Error(t, err)
}

func TestParseAvailability(t *testing.T) {
	a, err := ParseAvailability("Available")
	require.NoError(t, err)
	assert.Equal(t, AvailabilityAvailable, a)

	_, err = ParseAvailability("on leave")
	assert.Error(t, err)
}

func TestTask_EstimatedMinutes(t *testing.T) {
	assert.Equal(t, 30, (&Task{}).EstimatedMinutes())
	assert.Equal(t, 45, (&Task{EstimatedDurationMinutes: intPtr(45)}).EstimatedMinutes())
	assert.Equal(t, 0, (&Task{EstimatedDurationMinutes: intPtr(0)}).EstimatedMinutes())
}

func TestTask_ScheduledAt(t *testing.T) {
	t.Run("unscheduled", func(t *testing.T) {
		_, ok, err := (&Task{}).ScheduledAt()
		assert.False(t, ok)
		assert.NoError(t, err)
	})

	t.Run("rfc3339 with zone", func(t *testing.T) {
		at, ok, err := (&Task{ScheduledTime: "2025-03-01T10:00:00+01:00"}).ScheduledAt()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, at.Equal(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)))
	})

	t.Run("naive iso is utc", func(t *testing.T) {
		at, ok, err := (&Task{ScheduledTime: "2025-03-01T10:00:00"}).ScheduledAt()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, at.Equal(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)))
	})

	t.Run("malformed", func(t *testing.T) {
		_, ok, err := (&Task{ScheduledTime: "next tuesday"}).ScheduledAt()
		assert.False(t, ok)
		assert.Error(t, err)
	})
}

func TestPriorityScore_Reasoning(t *testing.T) {
	score := PriorityScore{
		Factors: []Factor{{Name: "hazard", Points: 40}, {Name: "priority_high", Points: 30}},
		Notes:   []string{"overdue skipped"},
	}
	assert.Equal(t, "hazard(+40) | priority_high(+30) | overdue skipped", score.Reasoning())
}

func TestCertificationLevel_MarshalText(t *testing.T) {
	text, err := CertificationAdvanced.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "advanced", string(text))
}
