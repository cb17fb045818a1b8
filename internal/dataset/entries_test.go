package dataset

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEntries(t *testing.T) {
	now := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	in := strings.Join([]string{
		"City,Temperature,WeatherDescription,LastUpdated",
		"London,14.5,light rain,2024-05-16 13:15:00",
		",20,,2024-05-16 13:15",
		"Paris,warm,sunny,2024-05-16 13:15:00",
		"Rome,25,clear,yesterday",
	}, "\n")

	entries, stats, err := ReadEntries(strings.NewReader(in), now)
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Rows: 4, Skipped: 1, DefaultTimes: 1}, stats)
	require.Len(t, entries, 3)

	assert.Equal(t, "London", entries[0].City)
	assert.Equal(t, 14.5, entries[0].Temperature)
	assert.Nil(t, entries[0].UserID)
	assert.True(t, entries[0].Timestamp.Equal(time.Date(2024, 5, 16, 13, 15, 0, 0, time.UTC)))

	assert.Equal(t, "Unknown", entries[1].City)
	assert.Equal(t, "N/A", entries[1].Description)

	assert.Equal(t, "Rome", entries[2].City)
	assert.True(t, entries[2].Timestamp.Equal(now))
}

func TestReadEntries_AliasHeaders(t *testing.T) {
	in := "country,location_name,temperature_celsius,condition_text,last_updated\n" +
		"Peru,Lima,19.1,Overcast,2024-05-16 08:00\n"
	entries, stats, err := ReadEntries(strings.NewReader(in), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Rows)
	require.Len(t, entries, 1)
	assert.Equal(t, "Lima", entries[0].City)
	assert.Equal(t, "Overcast", entries[0].Description)
	assert.Equal(t, 8, entries[0].Timestamp.Hour())
}

func TestReadEntries_Errors(t *testing.T) {
	_, _, err := ReadEntries(strings.NewReader("City,Description\nLondon,rain\n"), time.Now())
	assert.ErrorIs(t, err, ErrNoTemperatureColumn)

	_, _, err = ReadEntries(strings.NewReader(""), time.Now())
	assert.Error(t, err)
}
