package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayNameRoundTrip(t *testing.T) {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		name := DayName(wd)
		n, ok := DayNumber(name)
		assert.True(t, ok)
		assert.Equal(t, int(wd), n)
	}
}

func TestDayNames(t *testing.T) {
	assert.Equal(t, "Minggu", DayName(time.Sunday))
	assert.Equal(t, "Senin", DayName(time.Monday))
	assert.Equal(t, "Jumat", DayName(time.Friday))
	assert.Equal(t, "Sabtu", DayName(time.Saturday))
}

func TestValidDay(t *testing.T) {
	assert.True(t, ValidDay("Rabu"))
	assert.False(t, ValidDay("Wednesday"))
	assert.False(t, ValidDay(""))
	assert.False(t, ValidDay("senin"), "names are case sensitive")
}

func TestClockTime(t *testing.T) {
	at := time.Date(2025, 3, 3, 7, 5, 59, 0, time.UTC)
	assert.Equal(t, "07:05", ClockTime(at))
}

func TestClockTimeOrderIsChronological(t *testing.T) {
	assert.True(t, "07:00" < "09:40")
	assert.True(t, "09:40" < "11:30")
}

func TestValidClockTime(t *testing.T) {
	assert.True(t, ValidClockTime("00:00"))
	assert.True(t, ValidClockTime("23:59"))
	assert.False(t, ValidClockTime("24:00"))
	assert.False(t, ValidClockTime("7:00"))
	assert.False(t, ValidClockTime("07:00:00"))
	assert.False(t, ValidClockTime("bell"))
}
