package lottery

import (
	"strings"
	"time"
)

const (
	DefaultRegionName = "Miền Bắc"
	DefaultRegionCode = "MB"
)

// Metadata holds the descriptive part of a draw record.
// Zero values mean "absent" and are filled by WithDefaults.
type Metadata struct {
	RegionName string `json:"tentinh,omitempty"`
	RegionCode string `json:"tinh,omitempty"`
	Year       int    `json:"year,omitempty"`
	Month      int    `json:"month,omitempty"`
}

// regions maps a station code to its display name.
var regions = map[string]string{
	"MB": DefaultRegionName,
	"MT": "Miền Trung",
	"MN": "Miền Nam",
}

// StationMetadata returns the default metadata for a station code.
// Unknown or empty stations fall back to the northern region.
func StationMetadata(station string, now time.Time) Metadata {
	code := strings.ToUpper(strings.TrimSpace(station))
	name, ok := regions[code]
	if !ok {
		code, name = DefaultRegionCode, DefaultRegionName
	}
	return Metadata{
		RegionName: name,
		RegionCode: code,
		Year:       now.Year(),
		Month:      int(now.Month()),
	}
}

// WithDefaults fills each absent field of m individually from fallback.
func (m Metadata) WithDefaults(fallback Metadata) Metadata {
	if m.RegionName == "" {
		m.RegionName = fallback.RegionName
	}
	if m.RegionCode == "" {
		m.RegionCode = fallback.RegionCode
	}
	if m.Year == 0 {
		m.Year = fallback.Year
	}
	if m.Month == 0 {
		m.Month = fallback.Month
	}
	return m
}
