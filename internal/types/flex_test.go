package types

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestFlexFloat64(t *testing.T) {
	var in struct {
		Sleep   *FlexFloat64 `json:"sleep"`
		Walking *FlexFloat64 `json:"walking"`
		Water   *FlexFloat64 `json:"water"`
	}
	if err := json.Unmarshal([]byte(`{"sleep":"7.5","walking":1.25}`), &in); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if got := *in.Sleep.Ptr(); got != 7.5 {
		t.Errorf("Expected sleep 7.5, got %v", got)
	}
	if got := in.Walking.Float64(); got != 1.25 {
		t.Errorf("Expected walking 1.25, got %v", got)
	}
	if water, err := in.Water.IntPtr("water"); in.Water.Ptr() != nil || water != nil || err != nil {
		t.Error("Expected absent water to stay nil")
	}

	var glasses FlexFloat64
	if err := json.Unmarshal([]byte(`" 9 "`), &glasses); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	got, err := glasses.IntPtr("waterGlasses")
	if err != nil {
		t.Fatalf("IntPtr failed: %v", err)
	}
	if *got != 9 {
		t.Errorf("Expected 9 glasses, got %d", *got)
	}

	if err := json.Unmarshal([]byte(`"lots"`), &glasses); err == nil {
		t.Error("Expected an error for a non-numeric string")
	}
	if err := json.Unmarshal([]byte(`true`), &glasses); err == nil {
		t.Error("Expected an error for a boolean")
	}
}

func TestFlexFloat64RejectsNonFinite(t *testing.T) {
	for _, input := range []string{`"NaN"`, `"nan"`, `"Infinity"`, `"-Inf"`, `" +inf "`} {
		var f FlexFloat64
		if err := json.Unmarshal([]byte(input), &f); err == nil {
			t.Errorf("Unmarshal(%s) accepted a non-finite value: %v", input, f)
		}
	}
}

func TestFlexFloat64IntPtrRange(t *testing.T) {
	tests := []struct {
		value FlexFloat64
		ok    bool
	}{
		{8.9, true},
		{-3, true},
		{1e18, true},
		{1e300, false},
		{-1e300, false},
		{FlexFloat64(math.NaN()), false},
	}

	for _, tt := range tests {
		v, err := tt.value.IntPtr("steps")
		if tt.ok {
			if err != nil || v == nil {
				t.Errorf("IntPtr(%v) failed: %v", tt.value, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("IntPtr(%v) = %v, %v; want InvalidInput", tt.value, v, err)
		}
		if err != nil && !strings.Contains(err.Error(), "steps is out of range") {
			t.Errorf("IntPtr(%v) error %q does not name the field", tt.value, err)
		}
	}
}

func TestFlexList(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{`["a","b"]`, []string{"a", "b"}},
		{`"a"`, []string{"a"}},
		{`null`, nil},
	}

	for _, tt := range tests {
		var ids FlexList[string]
		if err := json.Unmarshal([]byte(tt.input), &ids); err != nil {
			t.Fatalf("Unmarshal(%s) failed: %v", tt.input, err)
		}
		got := ids.Slice()
		if len(got) != len(tt.want) {
			t.Fatalf("Unmarshal(%s) = %v, want %v", tt.input, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Unmarshal(%s)[%d] = %s, want %s", tt.input, i, got[i], tt.want[i])
			}
		}
	}

	var ids FlexList[string]
	if err := json.Unmarshal([]byte(`42`), &ids); err == nil {
		t.Error("Expected an error for a mismatched element type")
	}
}
