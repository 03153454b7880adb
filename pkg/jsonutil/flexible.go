package jsonutil

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleInt decodes a JSON value that external callers may send either
// as a number or as a numeric string ("2020", " 50000 "). The funnel
// systems posting to the bridge are not consistent about this.
type FlexibleInt struct {
	Value *int
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexibleInt) UnmarshalJSON(raw []byte) error {
	s := string(raw)
	if len(raw) == 0 || s == "null" {
		f.Value = nil
		return nil
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		v := int(numVal)
		f.Value = &v
		return nil
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		strVal = strings.TrimSpace(strVal)
		if strVal == "" {
			f.Value = nil
			return nil
		}
		v, err := strconv.Atoi(strVal)
		if err != nil {
			return fmt.Errorf("value %q is not numeric", strVal)
		}
		f.Value = &v
		return nil
	}

	return fmt.Errorf("value %s is neither number nor string", s)
}

// FlexibleStringValue converts a json.RawMessage to a string, handling
// callers that send numbers or booleans where strings are expected.
// Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return fmt.Sprintf("%d", int64(numVal))
		}
		return fmt.Sprintf("%g", numVal)
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	return string(raw)
}
