package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Payload field names read from catalog records.
const (
	FieldFolder        = "folder"
	FieldAudioFilename = "audio_filename"
	FieldKey           = "key"
	FieldTempo         = "tempo"
	FieldGenre         = "genre"
	FieldMood          = "mood"
	FieldEnergy        = "energy"
	FieldSource        = "source"
	FieldFoundStems    = "found_stems"
)

// StemTypeField returns the payload key for the type of stem slot i (1-based).
func StemTypeField(i int) string { return "stem_" + strconv.Itoa(i) + "_type" }

// StemFilenameField returns the payload key for the filename of stem slot i.
func StemFilenameField(i int) string { return "stem_" + strconv.Itoa(i) + "_filename" }

// Payload is the free-form metadata attached to a catalog record.
type Payload map[string]any

// Value returns the raw value for key, or nil.
func (p Payload) Value(key string) any {
	if p == nil {
		return nil
	}
	return p[key]
}

// String renders the value for key as text. Missing and null values yield "".
func (p Payload) String(key string) string {
	return FormatValue(p.Value(key))
}

// StringOr renders the value for key, or fallback when missing or null.
func (p Payload) StringOr(key, fallback string) string {
	v := p.Value(key)
	if v == nil {
		return fallback
	}
	return FormatValue(v)
}

// Present reports whether key holds a non-empty value: not null, not an empty
// string, not zero, not false, and not an empty list or map.
func (p Payload) Present(key string) bool {
	return Truthy(p.Value(key))
}

// StemSlot returns the type and filename stored in stem slot i.
func (p Payload) StemSlot(i int) (string, string) {
	return p.String(StemTypeField(i)), p.String(StemFilenameField(i))
}

// Truthy applies the catalog's notion of an empty value.
func Truthy(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case string:
		return value != ""
	case bool:
		return value
	case float64:
		return value != 0
	case float32:
		return value != 0
	case int:
		return value != 0
	case int64:
		return value != 0
	case json.Number:
		f, err := value.Float64()
		return err != nil || f != 0
	case []any:
		return len(value) > 0
	case map[string]any:
		return len(value) > 0
	default:
		return true
	}
}

// FormatValue renders a payload value the way it is written to CSV. Whole
// numbers print without a fractional part.
func FormatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case json.Number:
		return value.String()
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprint(value)
	}
}
