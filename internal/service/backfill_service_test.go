package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// 2026-08-24 is a Monday, 2026-08-22 a Saturday, 2026-08-23 a Sunday
func istTime(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, marketLocation)
}

func TestWithinMarketHours(t *testing.T) {
	assert.True(t, withinMarketHours(istTime(2026, time.August, 24, 9, 15)))
	assert.True(t, withinMarketHours(istTime(2026, time.August, 24, 12, 0)))
	assert.True(t, withinMarketHours(istTime(2026, time.August, 24, 15, 30)))
}

func TestWithinMarketHoursRejectsOutsideSession(t *testing.T) {
	assert.False(t, withinMarketHours(istTime(2026, time.August, 24, 9, 14)))
	assert.False(t, withinMarketHours(istTime(2026, time.August, 24, 15, 31)))
	assert.False(t, withinMarketHours(istTime(2026, time.August, 24, 3, 0)))
}

func TestWithinMarketHoursRejectsWeekends(t *testing.T) {
	assert.False(t, withinMarketHours(istTime(2026, time.August, 22, 12, 0)))
	assert.False(t, withinMarketHours(istTime(2026, time.August, 23, 12, 0)))
}

func TestClampToSession(t *testing.T) {
	preOpen := istTime(2026, time.August, 24, 9, 5)
	assert.Equal(t, istTime(2026, time.August, 24, 9, 15), clampToSession(preOpen))

	midSession := istTime(2026, time.August, 24, 11, 0)
	assert.Equal(t, midSession, clampToSession(midSession))
}
