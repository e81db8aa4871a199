package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"
)

func slot(day, start, end int, dayType string) models.TimeSlot {
	return models.TimeSlot{DayOfWeek: day, StartMinute: start, EndMinute: end, DayType: dayType}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b models.TimeSlot
		want bool
	}{
		{"identical", slot(1, 540, 600, ""), slot(1, 540, 600, ""), true},
		{"partial overlap", slot(1, 540, 600, ""), slot(1, 570, 630, ""), true},
		{"contained", slot(1, 540, 660, ""), slot(1, 570, 600, ""), true},
		{"back to back", slot(1, 540, 600, ""), slot(1, 600, 660, ""), false},
		{"different day", slot(1, 540, 600, ""), slot(2, 540, 600, ""), false},
		{"disjoint day types", slot(1, 540, 600, "A"), slot(1, 540, 600, "B"), false},
		{"same day type", slot(1, 540, 600, "A"), slot(1, 540, 600, "A"), true},
		{"empty type matches tagged", slot(1, 540, 600, ""), slot(1, 540, 600, "B"), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.a, tc.b))
			assert.Equal(t, tc.want, Overlaps(tc.b, tc.a), "overlap must be symmetric")
		})
	}
}

func TestOverlapsAny(t *testing.T) {
	busy := []models.TimeSlot{slot(1, 480, 540, ""), slot(3, 600, 660, "")}

	assert.True(t, OverlapsAny(slot(1, 500, 560, ""), busy))
	assert.False(t, OverlapsAny(slot(2, 500, 560, ""), busy))
	assert.False(t, OverlapsAny(slot(1, 540, 600, ""), busy))
}

func TestStudentHasConflict(t *testing.T) {
	approved := []models.TimeSlot{slot(1, 540, 600, "")}

	// Monday 9:00-10:00 against an approved Monday 9:00-10:00 section.
	assert.True(t, StudentHasConflict(slot(1, 540, 600, ""), approved))
	assert.False(t, StudentHasConflict(slot(1, 600, 660, ""), approved))
	assert.False(t, StudentHasConflict(slot(1, 540, 600, ""), nil))
}
