package fields

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// ValueKind is the in-memory shape of a decoded custom-field value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindText
	KindNumber
	KindBool
	KindList
)

// TypedValue is the decoded form of a stored value string. Exactly one of
// the payload fields is meaningful, selected by Kind. A decode failure does
// not surface as an error: the zero payload for the kind is used and
// DecodeErr records what went wrong.
type TypedValue struct {
	Kind      ValueKind
	Text      string
	Number    float64
	Bool      bool
	List      []string
	DecodeErr error
}

// Interface returns the value as a plain JSON-encodable Go value.
// KindNull maps to nil.
func (v TypedValue) Interface() any {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		return v.Number
	case KindBool:
		return v.Bool
	case KindList:
		if v.List == nil {
			return []string{}
		}
		return v.List
	default:
		return nil
	}
}

// ParseValue decodes a stored string according to the field type.
// The empty string always decodes to null regardless of type: clearing a
// value is done by storing "".
func ParseValue(stored string, ft FieldType) TypedValue {
	if stored == "" {
		return TypedValue{Kind: KindNull}
	}

	switch {
	case ft.IsNumeric():
		d, err := decimal.NewFromString(stored)
		if err != nil {
			return TypedValue{Kind: KindNumber, Number: 0, DecodeErr: err}
		}
		f, _ := d.Float64()
		return TypedValue{Kind: KindNumber, Number: f}

	case ft == TypeBoolean:
		return TypedValue{Kind: KindBool, Bool: stored == "true"}

	case ft == TypeMultiSelect || ft == TypeUsers:
		var list []string
		if err := json.Unmarshal([]byte(stored), &list); err != nil {
			return TypedValue{Kind: KindList, List: []string{}, DecodeErr: err}
		}
		return TypedValue{Kind: KindList, List: list}

	default:
		// Dates and datetimes pass through as the ISO strings they were
		// written with; everything else is plain text.
		return TypedValue{Kind: KindText, Text: stored}
	}
}

// EncodeValue serializes an arbitrary input value to the storage string.
// nil becomes the empty string, which reads back as null. Compound values
// are JSON-encoded; scalars use their canonical text form.
func EncodeValue(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case json.Number:
		return v.String(), nil
	case decimal.Decimal:
		return v.String(), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
