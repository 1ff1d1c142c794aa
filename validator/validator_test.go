package validator

import "testing"

func f(v float64) *float64 { return &v }

func TestRangeValidate(t *testing.T) {
	cases := []struct {
		name    string
		r       Range
		v       float64
		wantErr bool
	}{
		{"open", Range{}, -1e9, false},
		{"inside", Range{Min: f(0), Max: f(254)}, 100, false},
		{"at min", Range{Min: f(0), Max: f(254)}, 0, false},
		{"at max", Range{Min: f(0), Max: f(254)}, 254, false},
		{"below", Range{Min: f(0), Max: f(254)}, -1, true},
		{"above", Range{Min: f(0), Max: f(254)}, 255, true},
		{"only max", Range{Max: f(10)}, -50, false},
		{"only min", Range{Min: f(153)}, 100, true},
	}
	for _, tc := range cases {
		err := tc.r.Validate(tc.v)
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: Validate(%v) error = %v, wantErr %v", tc.name, tc.v, err, tc.wantErr)
		}
	}
}

func TestRangeString(t *testing.T) {
	if got := (Range{Min: f(0), Max: f(254)}).String(); got != "[0, 254]" {
		t.Fatalf("String() = %q", got)
	}
	if got := (Range{Max: f(1.5)}).String(); got != "[-inf, 1.5]" {
		t.Fatalf("String() = %q", got)
	}
	if (Range{}).Bounded() {
		t.Fatal("Bounded() = true for empty range")
	}
}
