package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayOf(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	assert.NoError(t, err)

	ts := time.Date(2024, time.March, 15, 18, 42, 7, 999, loc)
	day := DayOf(ts)
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, loc), day)
	assert.Equal(t, loc, day.Location())

	midnight := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, midnight, DayOf(midnight))
}
