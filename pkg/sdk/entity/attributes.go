package entity

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DecodeAttributes copies the attribute bag of e into out, a pointer to a
// generated attributes struct. Fields are matched by their json tag and
// loosely typed values (numbers decoded as float64, numeric strings) are
// converted.
func DecodeAttributes(e Entity, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook:       mapstructure.StringToTimeHookFunc("2006-01-02T15:04:05Z07:00"),
	})
	if err != nil {
		return fmt.Errorf("failed to create attribute decoder: %w", err)
	}
	if err := decoder.Decode(map[string]interface{}(e.Attributes())); err != nil {
		return fmt.Errorf("failed to decode %s attributes: %w", e.Type(), err)
	}
	return nil
}

// EncodeAttributes replaces the attribute bag of e with the fields of in, a
// generated attributes struct or map. Struct fields are keyed by their json tag.
func EncodeAttributes(e Entity, in interface{}) error {
	var attrs map[string]interface{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &attrs,
	})
	if err != nil {
		return fmt.Errorf("failed to create attribute encoder: %w", err)
	}
	if err := decoder.Decode(in); err != nil {
		return fmt.Errorf("failed to encode %s attributes: %w", e.Type(), err)
	}
	e.core().replaceAttributes(attrs)
	return nil
}
