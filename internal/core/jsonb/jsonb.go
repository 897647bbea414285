// Package jsonb provides helpers for mapping Go values onto PostgreSQL JSONB
// columns. Typed columns implement sql.Scanner / driver.Valuer on top of these.
package jsonb

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Scan decodes a JSONB column into dst. A NULL column leaves dst untouched.
func Scan(src any, dst any) error {
	if src == nil {
		return nil
	}

	var source []byte
	switch v := src.(type) {
	case []byte:
		source = v
	case string:
		source = []byte(v)
	default:
		return fmt.Errorf("unsupported source type for JSONB: %T", src)
	}

	if len(source) == 0 {
		return nil
	}

	if err := json.Unmarshal(source, dst); err != nil {
		return fmt.Errorf("decode JSONB: %w", err)
	}
	return nil
}

// Value encodes v for a JSONB column. When isNull is true, NULL is written.
func Value(v any, isNull bool) (driver.Value, error) {
	if isNull {
		return nil, nil
	}
	return json.Marshal(v)
}
