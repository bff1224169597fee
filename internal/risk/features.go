package risk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/nabahah/riskscore/internal/synth"
)

// ErrInvalidBody is returned when the request body is not a JSON object.
var ErrInvalidBody = errors.New("invalid request body")

// FieldError reports a field whose value cannot be read as an integer.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Err.Error() }

func (e *FieldError) Unwrap() error { return e.Err }

// Features are the five transaction signals the model scores.
type Features struct {
	// DeviceType is 1 for a known device, 0 for an unknown one.
	DeviceType int `json:"device_type"`
	// LocationMatch is 1 when the location matches the customer's usual one.
	LocationMatch int `json:"location_match"`
	// TimeAnomaly is 1 when the transaction happens at an unusual time.
	TimeAnomaly int `json:"time_anomaly"`
	// TransactionSensitivity is 0 (low), 1 (medium) or 2 (high).
	TransactionSensitivity int `json:"transaction_sensitivity"`
	// RecentFailedAttempts counts recent failed authentications, 0–5.
	RecentFailedAttempts int `json:"recent_failed_attempts"`
}

// DefaultFeatures is what a request with no fields is scored as.
func DefaultFeatures() Features {
	return Features{DeviceType: 1, LocationMatch: 1}
}

// Vector returns the features in model column order.
func (f Features) Vector() []float64 {
	v := make([]float64, len(synth.FeatureNames))
	v[synth.DeviceType] = float64(f.DeviceType)
	v[synth.LocationMatch] = float64(f.LocationMatch)
	v[synth.TimeAnomaly] = float64(f.TimeAnomaly)
	v[synth.TransactionSensitivity] = float64(f.TransactionSensitivity)
	v[synth.RecentFailedAttempts] = float64(f.RecentFailedAttempts)
	return v
}

// fields binds each JSON key to its destination.
func (f *Features) fields() []struct {
	name string
	dst  *int
} {
	return []struct {
		name string
		dst  *int
	}{
		{"device_type", &f.DeviceType},
		{"location_match", &f.LocationMatch},
		{"time_anomaly", &f.TimeAnomaly},
		{"transaction_sensitivity", &f.TransactionSensitivity},
		{"recent_failed_attempts", &f.RecentFailedAttempts},
	}
}

// ParseFeatures reads Features from a JSON request body. An empty body yields
// DefaultFeatures. Absent fields keep their defaults; present ones are
// coerced to integers: numbers are truncated toward zero, booleans become 0
// or 1 and strings must hold a base-10 integer. Unknown keys are ignored.
func ParseFeatures(body []byte) (Features, error) {
	f := DefaultFeatures()

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return f, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Features{}, fmt.Errorf("%w: malformed JSON: %v", ErrInvalidBody, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Features{}, fmt.Errorf("%w: unexpected data after JSON value", ErrInvalidBody)
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return Features{}, fmt.Errorf("%w: expected a JSON object, got %s", ErrInvalidBody, jsonKind(raw))
	}

	for _, fld := range f.fields() {
		v, ok := obj[fld.name]
		if !ok {
			continue
		}
		n, err := toInt(v)
		if err != nil {
			return Features{}, &FieldError{Field: fld.name, Err: err}
		}
		*fld.dst = n
	}
	return f, nil
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n), nil
		}
		fl, err := x.Float64()
		if err != nil || math.IsInf(fl, 0) {
			return 0, fmt.Errorf("number %s is out of range", x.String())
		}
		fl = math.Trunc(fl)
		if fl < math.MinInt64 || fl >= math.MaxInt64 {
			return 0, fmt.Errorf("number %s is out of range", x.String())
		}
		return int(fl), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			var numErr *strconv.NumError
			if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
				return 0, fmt.Errorf("integer %q is out of range", x)
			}
			return 0, fmt.Errorf("invalid literal for int with base 10: %q", x)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected an integer, got %s", jsonKind(v))
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
