package format

import (
	"errors"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		err  error
	}{
		{"xml", XMLFormat, nil},
		{"X", XMLFormat, nil},
		{"html", HTMLFormat, nil},
		{"h", HTMLFormat, nil},
		{"yaml", 0, ErrBadFormat},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if !errors.Is(err, tt.err) {
			t.Errorf("%q: err %v, want %v", tt.in, err, tt.err)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestText(t *testing.T) {
	for _, f := range AllFormats() {
		d, err := f.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back Format
		if err := back.UnmarshalText(d); err != nil || back != f {
			t.Errorf("%v: got %v, %v", f, back, err)
		}
		if FromPath("doc"+f.Suffix()) != f {
			t.Errorf("suffix %q does not map back to %v", f.Suffix(), f)
		}
	}
	if Format(7).String() == "xml" {
		t.Error("unknown format printed as xml")
	}
}
