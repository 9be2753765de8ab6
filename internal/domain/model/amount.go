package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Amount is a number that may arrive in JSON either as a number or as a
// formatted string such as "45 000" or "45,000".
type Amount float64

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := ParseAmount(s)
		if err != nil {
			return err
		}
		*a = Amount(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: amount %s", ErrInvalidField, string(data))
	}
	*a = Amount(f)
	return nil
}

// ParseAmount parses a number, ignoring spaces (including non-breaking
// ones) and thousands commas.
func ParseAmount(s string) (float64, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', ',', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, s)
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q", ErrInvalidField, s)
	}
	return v, nil
}

// flexID accepts an id given as a JSON string or number.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: id %s", ErrInvalidField, string(data))
	}
	*f = flexID(n.String())
	return nil
}
