package lottery

import (
	"encoding/json"
)

// Snapshot is the reconciled, complete view of one draw.
type Snapshot struct {
	DrawDate string
	Fields   map[string]string
	Metadata Metadata
}

// Reconcile overlays stored values on top of defaults and fills metadata
// field by field from fallback. Only names present in defaults are kept, so
// the result always carries exactly the fixed field set.
func Reconcile(drawDate string, defaults, stored map[string]string, storedMeta *Metadata, fallback Metadata) Snapshot {
	fields := make(map[string]string, len(defaults))
	for name, def := range defaults {
		if v, ok := stored[name]; ok && v != "" {
			fields[name] = v
			continue
		}
		fields[name] = def
	}

	meta := fallback
	if storedMeta != nil {
		meta = storedMeta.WithDefaults(fallback)
	}

	return Snapshot{
		DrawDate: drawDate,
		Fields:   fields,
		Metadata: meta,
	}
}

// Event builds the reveal event for one field of the snapshot.
func (s Snapshot) Event(field string) RevealEvent {
	return RevealEvent{
		DrawDate: s.DrawDate,
		Field:    field,
		Value:    s.Fields[field],
		Metadata: s.Metadata,
	}
}

// MarshalJSON flattens fields and metadata into one object, the shape served by /initial.
// Keys are emitted in sorted order so equal snapshots encode to identical bytes.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Fields)+5)
	for k, v := range s.Fields {
		out[k] = v
	}
	out["drawDate"] = s.DrawDate
	out["tentinh"] = s.Metadata.RegionName
	out["tinh"] = s.Metadata.RegionCode
	out["year"] = s.Metadata.Year
	out["month"] = s.Metadata.Month
	return json.Marshal(out)
}
