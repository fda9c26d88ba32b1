// flex_float64.go
//
// Health device sync and wellness scoring service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of healthsync.
// healthsync is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// healthsync is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with healthsync.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FlexFloat64 is a float64 that can be unmarshaled from either a JSON number or a JSON string.
// Form posts send metric values as strings.
type FlexFloat64 float64

// UnmarshalJSON implements the json.Unmarshaler interface.
func (f *FlexFloat64) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	// Try unmarshaling as a number first
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexFloat64(n)
		return nil
	}

	// Try unmarshaling as a string
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		val, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("FlexFloat64: invalid number string %q: %w", s, err)
		}
		// ParseFloat accepts NaN and Infinity, JSON numbers cannot carry them
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Errorf("FlexFloat64: non-finite number string %q", s)
		}
		*f = FlexFloat64(val)
		return nil
	}

	return fmt.Errorf("FlexFloat64: unexpected type, expected number or string")
}

// MarshalJSON implements the json.Marshaler interface.
func (f FlexFloat64) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(f))
}

// Float64 converts FlexFloat64 back to float64.
func (f FlexFloat64) Float64() float64 {
	return float64(f)
}

// Ptr returns a pointer to the float64 value, or nil for a nil receiver.
func (f *FlexFloat64) Ptr() *float64 {
	if f == nil {
		return nil
	}
	v := float64(*f)
	return &v
}

// IntPtr truncates toward zero and returns a pointer, or nil for a nil receiver.
// Values that do not fit an int are InvalidInput naming field.
func (f *FlexFloat64) IntPtr(field string) (*int, error) {
	if f == nil {
		return nil, nil
	}
	x := float64(*f)
	if math.IsNaN(x) || x >= math.MaxInt64 || x < math.MinInt64 {
		return nil, InvalidInput("%s is out of range", field)
	}
	v := int(x)
	return &v, nil
}
