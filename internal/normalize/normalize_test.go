package normalize

import "testing"

func TestToNumber_SeparatorsAndSymbols(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"$1,234.56", 1234.56},
		{"1234.56", 1234.56},
		{"$ 1,234", 1234},
		{"1,234,567", 1234567},
		{"USD 500,000", 500000},
		{"-2,500", -2500},
		{"$500,000", 500000},
	}
	for _, c := range cases {
		got, ok := ToNumber(c.in)
		if !ok || got != c.want {
			t.Fatalf("ToNumber(%q) = %v,%v; want %v", c.in, got, ok, c.want)
		}
	}
}

func TestToNumber_Absent(t *testing.T) {
	for _, in := range []string{"", "-", "--", "abc", "$", ",", "1.2.3", "5-"} {
		if got, ok := ToNumber(in); ok {
			t.Fatalf("ToNumber(%q) = %v; want absent", in, got)
		}
	}
}

func TestToNumberPtr(t *testing.T) {
	if ToNumberPtr(nil) != nil {
		t.Fatalf("expected nil for nil input")
	}
	bad := "n/a"
	if ToNumberPtr(&bad) != nil {
		t.Fatalf("expected nil for non-numeric input")
	}
	good := "$42"
	if p := ToNumberPtr(&good); p == nil || *p != 42 {
		t.Fatalf("expected 42, got %v", p)
	}
}

func TestParseYear_Bounds(t *testing.T) {
	for _, in := range []string{"1900", "1999", "2024", "2100"} {
		if _, ok := ParseYear(in); !ok {
			t.Fatalf("expected %s to be accepted", in)
		}
	}
	for _, in := range []string{"1899", "2101", "", "year"} {
		if y, ok := ParseYear(in); ok {
			t.Fatalf("expected %q to be rejected, got %d", in, y)
		}
	}
}
