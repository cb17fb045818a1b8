package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/weatherlog/internal/repository"
)

const (
	unknownCity        = "Unknown"
	unknownDescription = "N/A"
)

// column aliases, matched case-insensitively against the header.
var (
	cityColumns        = []string{"city", "location_name"}
	temperatureColumns = []string{"temperature", "temperature_celsius"}
	descriptionColumns = []string{"weatherdescription", "condition_text", "description"}
	timestampColumns   = []string{"lastupdated", "last_updated", "timestamp"}
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ErrNoTemperatureColumn is returned when the header has no usable temperature column.
var ErrNoTemperatureColumn = errors.New("csv has no temperature column")

// ImportStats counts what ReadEntries did with the input rows.
type ImportStats struct {
	Rows         int
	Skipped      int
	DefaultTimes int
}

// ReadEntries parses a weather CSV into ownerless entries. Rows whose temperature
// does not parse are skipped; unparseable timestamps fall back to now.
func ReadEntries(r io.Reader, now time.Time) ([]repository.WeatherEntry, ImportStats, error) {
	var stats ImportStats
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, stats, fmt.Errorf("read header: %w", err)
	}
	idx := headerIndex(header)
	cityCol := lookup(idx, cityColumns)
	tempCol := lookup(idx, temperatureColumns)
	descCol := lookup(idx, descriptionColumns)
	tsCol := lookup(idx, timestampColumns)
	if tempCol < 0 {
		return nil, stats, ErrNoTemperatureColumn
	}

	var entries []repository.WeatherEntry
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read row %d: %w", stats.Rows+2, err)
		}
		stats.Rows++

		temp, err := strconv.ParseFloat(field(rec, tempCol), 64)
		if err != nil {
			stats.Skipped++
			continue
		}
		e := repository.WeatherEntry{
			City:        orDefault(field(rec, cityCol), unknownCity),
			Temperature: temp,
			Description: orDefault(field(rec, descCol), unknownDescription),
		}
		if ts, ok := parseTimestamp(field(rec, tsCol)); ok {
			e.Timestamp = ts
		} else {
			e.Timestamp = now.UTC()
			stats.DefaultTimes++
		}
		entries = append(entries, e)
	}
	return entries, stats, nil
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

func lookup(idx map[string]int, names []string) int {
	for _, n := range names {
		if i, ok := idx[n]; ok {
			return i
		}
	}
	return -1
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
