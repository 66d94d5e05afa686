package kernel

import "testing"

func TestMoneyArithmetic(t *testing.T) {
	a := NewMoney(1000, "USD")
	b := NewMoney(250, "USD")

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.MinorUnits != 1250 {
		t.Fatalf("expected 1250, got %d", sum.MinorUnits)
	}

	diff, err := a.Sub(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff.MinorUnits != 750 {
		t.Fatalf("expected 750, got %d", diff.MinorUnits)
	}
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	usd := NewMoney(100, "USD")
	eur := NewMoney(100, "EUR")

	if _, err := usd.Add(eur); err == nil {
		t.Fatal("expected CurrencyMismatchError, got nil")
	} else if _, ok := err.(*CurrencyMismatchError); !ok {
		t.Fatalf("expected *CurrencyMismatchError, got %T", err)
	}
}

func TestMoneyCompare(t *testing.T) {
	if NewMoney(100, "USD").Compare(NewMoney(200, "USD")) != -1 {
		t.Fatal("expected -1")
	}
	if NewMoney(200, "USD").Compare(NewMoney(100, "USD")) != 1 {
		t.Fatal("expected 1")
	}
	if NewMoney(100, "USD").Compare(NewMoney(100, "USD")) != 0 {
		t.Fatal("expected 0")
	}
}

func TestMoneyQuantizeBankersRounding(t *testing.T) {
	// 2.345 at scale 3 rounds to 2.34 at scale 2 (round-half-to-even: 4 is even).
	m := Money{MinorUnits: 2345, Currency: "USD"}
	q := m.Quantize(3)
	if q.MinorUnits != 234 {
		t.Fatalf("expected 234, got %d", q.MinorUnits)
	}

	// 2.355 at scale 3 rounds to 2.36 at scale 2 (6 is even, rounds up from 5).
	m2 := Money{MinorUnits: 2355, Currency: "USD"}
	q2 := m2.Quantize(3)
	if q2.MinorUnits != 236 {
		t.Fatalf("expected 236, got %d", q2.MinorUnits)
	}
}

func TestParseDecimalLiteral(t *testing.T) {
	cases := []struct {
		literal string
		scale   int
		want    int64
	}{
		{"10.50", 2, 1050},
		{"-3.1", 2, -310},
		{"7", 2, 700},
		{"0.005", 3, 5},
	}
	for _, c := range cases {
		got, err := ParseDecimalLiteral(c.literal, c.scale)
		if err != nil {
			t.Fatalf("unexpected error parsing %q: %v", c.literal, err)
		}
		if got != c.want {
			t.Fatalf("ParseDecimalLiteral(%q, %d) = %d, want %d", c.literal, c.scale, got, c.want)
		}
	}
}

func TestScaleOfDefaultsToTwo(t *testing.T) {
	if ScaleOf("XXX") != 2 {
		t.Fatal("expected default scale of 2 for unknown currency")
	}
	if ScaleOf("JPY") != 0 {
		t.Fatal("expected JPY scale of 0")
	}
}
