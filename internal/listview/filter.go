package listview

import (
	"fmt"
	"net/url"

	"github.com/go-playground/form"
	"github.com/shopspring/decimal"
)

var (
	encoder = newEncoder()
	decoder = newDecoder()
)

func newEncoder() *form.Encoder {
	enc := form.NewEncoder()
	enc.RegisterCustomTypeFunc(func(x interface{}) ([]string, error) {
		return []string{x.(decimal.Decimal).String()}, nil
	}, decimal.Decimal{})
	return enc
}

func newDecoder() *form.Decoder {
	dec := form.NewDecoder()
	dec.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		if len(vals) == 0 || vals[0] == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(vals[0])
	}, decimal.Decimal{})
	return dec
}

// EncodeFilter serializes a typed filter struct into a search form value.
// nil pointers and empty slices are left out.
func EncodeFilter(filter any) (SearchFormValue, error) {
	vals, err := encoder.Encode(filter)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}
	return FormValueFromQuery(vals), nil
}

// DecodeFilter parses query values into a typed filter struct F.
func DecodeFilter[F any](q url.Values) (F, error) {
	var f F
	if err := decoder.Decode(&f, q); err != nil {
		return f, fmt.Errorf("decode filter: %w", err)
	}
	return f, nil
}

// DecodeForm decodes posted form values onto dst. Fields without a posted
// value keep their current content.
func DecodeForm(dst any, vals url.Values) error {
	if err := decoder.Decode(dst, vals); err != nil {
		return fmt.Errorf("decode form: %w", err)
	}
	return nil
}

// NormalizeFilter round-trips a search form through the typed filter F so
// the values that reach the backend are exactly what F can represent.
func NormalizeFilter[F any](value SearchFormValue) (F, SearchFormValue, error) {
	f, err := DecodeFilter[F](value.Values())
	if err != nil {
		return f, nil, err
	}
	out, err := EncodeFilter(&f)
	if err != nil {
		return f, nil, err
	}
	return f, out, nil
}

// EncodeRecord renders a record as form values keyed by form field name.
func EncodeRecord(rec any) (url.Values, error) {
	vals, err := encoder.Encode(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return vals, nil
}
