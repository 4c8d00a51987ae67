package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/katatrina/xsmb-live/internal/lottery"
)

var ErrInvalidDate = errors.New("invalid draw date")

// MinDrawYear is the earliest year a draw date may name.
const MinDrawYear = 2000

var drawDatePattern = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)

func ValidateString(value string, minLength int, maxLength int) error {
	n := len(value)
	if n < minLength || n > maxLength {
		return fmt.Errorf("must contain from %d to %d characters", minLength, maxLength)
	}

	return nil
}

// ParseDrawDate validates a DD-MM-YYYY draw date in loc.
// The day must exist in that month and the year must lie between MinDrawYear
// and the current year of now.
func ParseDrawDate(value string, now time.Time, loc *time.Location) (time.Time, error) {
	if !drawDatePattern.MatchString(value) {
		return time.Time{}, fmt.Errorf("%w: %q must use the DD-MM-YYYY format", ErrInvalidDate, value)
	}

	// time.ParseInLocation từ chối ngày không tồn tại, ví dụ 31-02-2025.
	date, err := time.ParseInLocation(lottery.DateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a calendar date", ErrInvalidDate, value)
	}

	if year := date.Year(); year < MinDrawYear || year > now.In(loc).Year() {
		return time.Time{}, fmt.Errorf("%w: year must be between %d and %d", ErrInvalidDate, MinDrawYear, now.In(loc).Year())
	}

	return date, nil
}

// NormalizeStation trims and upper-cases a station code. Empty means the default region.
func NormalizeStation(value string) (string, error) {
	station := strings.ToUpper(strings.TrimSpace(value))
	if station == "" {
		return lottery.DefaultRegionCode, nil
	}
	if err := ValidateString(station, 2, 10); err != nil {
		return "", fmt.Errorf("station %w", err)
	}
	return station, nil
}
