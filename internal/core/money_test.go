package core

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		err error
	}{
		{"1", 1, nil},
		{"10", 10, nil},
		{"-5", -5, nil},
		{"+7", 7, nil},
		{" 42 ", 42, nil},
		{"0", 0, ErrZeroValue},
		{"+0", 0, ErrZeroValue},
		{"", 0, ErrInvalidValue},
		{"-", 0, ErrInvalidValue},
		{"--5", 0, ErrInvalidValue},
		{"+-5", 0, ErrInvalidValue},
		{"1.5", 0, ErrInvalidValue},
		{"1e3", 0, ErrInvalidValue},
		{"abc", 0, ErrInvalidValue},
		{"99999999999999999999", 0, ErrInvalidValue},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("%q expected %v, got %d (err=%v)", tc.in, tc.err, got, err)
			}
			continue
		}
		if err != nil || got != tc.out {
			t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
		}
	}
}
