package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDifficultyStep(t *testing.T) {
	tests := []struct {
		from Difficulty
		dir  Direction
		want Difficulty
		ok   bool
	}{
		{DifficultyBeginner, DirectionIncrease, DifficultyIntermediate, true},
		{DifficultyIntermediate, DirectionIncrease, DifficultyAdvanced, true},
		{DifficultyAdvanced, DirectionIncrease, "", false},
		{DifficultyAdvanced, DirectionDecrease, DifficultyIntermediate, true},
		{DifficultyIntermediate, DirectionDecrease, DifficultyBeginner, true},
		{DifficultyBeginner, DirectionDecrease, "", false},
		{DifficultyIntermediate, DirectionRemove, "", false},
		{"Expert", DirectionIncrease, "", false},
	}
	for _, tc := range tests {
		got, ok := tc.from.Step(tc.dir)
		assert.Equal(t, tc.ok, ok, "%s %s", tc.from, tc.dir)
		assert.Equal(t, tc.want, got, "%s %s", tc.from, tc.dir)
	}
}

func TestParseDifficultyAndDirection(t *testing.T) {
	d, ok := ParseDifficulty(" intermediate ")
	assert.True(t, ok)
	assert.Equal(t, DifficultyIntermediate, d)
	_, ok = ParseDifficulty("hard")
	assert.False(t, ok)

	dir, ok := ParseDirection("Remove")
	assert.True(t, ok)
	assert.Equal(t, DirectionRemove, dir)
	_, ok = ParseDirection("up")
	assert.False(t, ok)
}

func TestAssignmentActiveOn(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, time.October, d, 0, 0, 0, 0, time.UTC) }
	deactivated := day(15)
	a := Assignment{DateActivated: day(10), DateDeactivated: &deactivated}

	assert.False(t, a.ActiveOn(day(9)))
	assert.True(t, a.ActiveOn(day(10)))
	assert.True(t, a.ActiveOn(day(14)))
	assert.False(t, a.ActiveOn(day(15)), "not active on its deactivation day")

	a.DateDeactivated = nil
	assert.True(t, a.ActiveOn(day(30)))
}

func TestMeanPain(t *testing.T) {
	assert.Zero(t, MeanPain(nil))
	assert.Equal(t, 4.5, MeanPain([]SessionEntry{{PainLevel: 3}, {PainLevel: 6}}))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "beginner-wall-squat", Slugify("  Beginner Wall-Squat! "))
	assert.Equal(t, "", Slugify("!!"))
}
