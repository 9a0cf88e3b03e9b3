package record

import (
	"encoding/json"
	"fmt"
)

// FromStruct converts a JSON-tagged struct into a Record by round
// tripping through its JSON form. Numeric fields come back as float64,
// matching how records read from the wire look.
func FromStruct(v any) (Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode %T into record: %w", v, err)
	}
	return r, nil
}

// ToStruct decodes a Record into a JSON-tagged struct.
func ToStruct(r Record, dst any) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode record into %T: %w", dst, err)
	}
	return nil
}
