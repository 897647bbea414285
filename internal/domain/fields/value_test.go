package fields

import (
	"reflect"
	"testing"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		name      string
		stored    string
		fieldType FieldType
		want      any
		wantErr   bool
	}{
		{"number", "42.5", TypeNumber, 42.5, false},
		{"currency", "1999.99", TypeCurrency, 1999.99, false},
		{"number garbage", "abc", TypeNumber, float64(0), true},
		{"boolean true", "true", TypeBoolean, true, false},
		{"boolean anything else", "yes", TypeBoolean, false, false},
		{"multiselect", `["a","b"]`, TypeMultiSelect, []string{"a", "b"}, false},
		{"multiselect garbage", "not-json", TypeMultiSelect, []string{}, true},
		{"users list", `["u1"]`, TypeUsers, []string{"u1"}, false},
		{"date passthrough", "2026-03-14", TypeDate, "2026-03-14", false},
		{"datetime passthrough", "2026-03-14T10:00:00Z", TypeDateTime, "2026-03-14T10:00:00Z", false},
		{"text", "hello", TypeText, "hello", false},
		{"select stays raw", "opt_a", TypeSelect, "opt_a", false},
		{"empty string is null", "", TypeNumber, nil, false},
		{"empty string is null for text", "", TypeText, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseValue(tt.stored, tt.fieldType)
			if (got.DecodeErr != nil) != tt.wantErr {
				t.Fatalf("DecodeErr = %v, wantErr %v", got.DecodeErr, tt.wantErr)
			}
			if !reflect.DeepEqual(got.Interface(), tt.want) {
				t.Errorf("Interface() = %#v, want %#v", got.Interface(), tt.want)
			}
		})
	}
}

func TestEncodeValue(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want string
	}{
		{"nil clears", nil, ""},
		{"string verbatim", "hello", "hello"},
		{"bool", true, "true"},
		{"float", 42.5, "42.5"},
		{"float no trailing zeros", float64(7), "7"},
		{"int", 15, "15"},
		{"slice to json", []string{"a", "b"}, `["a","b"]`},
		{"map to json", map[string]any{"k": "v"}, `{"k":"v"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeValue(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("EncodeValue(%#v) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	encoded, err := EncodeValue([]string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := ParseValue(encoded, TypeMultiSelect)
	if !reflect.DeepEqual(got.List, []string{"a", "b"}) {
		t.Errorf("round trip lost data: %#v", got.List)
	}
}
