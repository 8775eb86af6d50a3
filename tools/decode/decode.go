package decode

import (
	"reflect"

	"LinkupIM/tools/errs"

	"github.com/mitchellh/mapstructure"
)

// floatToIntHook converts JSON numbers (decoded as float64) into integer
// fields when the value has no fractional part.
func floatToIntHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Float64 {
		return data, nil
	}
	f := data.(float64)
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if f == float64(int64(f)) {
			return int64(f), nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if f >= 0 && f == float64(uint64(f)) {
			return uint64(f), nil
		}
	}
	return data, nil
}

// Map decodes a generic map (typically the data field of a JSON frame)
// into a typed struct, tolerating the loose typing JSON decoding leaves
// behind.
func Map[T any](m map[string]any) (*T, error) {
	if m == nil {
		return nil, errs.New("decode: nil map")
	}
	out := new(T)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(floatToIntHook),
	})
	if err != nil {
		return nil, errs.WrapMsg(err, "decode: build decoder")
	}
	if err := dec.Decode(m); err != nil {
		return nil, errs.WrapMsg(err, "decode: map to struct")
	}
	return out, nil
}
