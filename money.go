package kernel

import (
	"fmt"
	"strconv"
	"strings"
)

// Currency is an ISO-4217 alphabetic code, compared strictly (exact-code
// equality only, never normalized case).
type Currency string

// currencyScale holds the number of minor-unit decimal digits per currency,
// generalizing the teacher's implicit "divide by 100" cents convention
// (accounting.go's Amount) into an explicit per-currency table so that
// zero-decimal (JPY) and three-decimal (KWD) currencies are representable.
var currencyScale = map[Currency]int{
	"USD": 2, "EUR": 2, "GBP": 2, "CAD": 2, "AUD": 2, "CHF": 2,
	"JPY": 0, "KRW": 0,
	"KWD": 3, "BHD": 3, "OMR": 3,
}

// ScaleOf returns the number of minor-unit decimal digits for a currency,
// defaulting to 2 (the common case, and the teacher's only case) for any
// currency absent from the table.
func ScaleOf(c Currency) int {
	if s, ok := currencyScale[c]; ok {
		return s
	}
	return 2
}

// Money is a fixed-scale decimal value: an integer count of minor units plus
// the currency that defines the scale. It never uses binary floating-point.
// Grounded on accounting.go's Amount{Value int64, Currency string}.
type Money struct {
	MinorUnits int64
	Currency   Currency
}

// NewMoney constructs a Money value directly from minor units (e.g. cents).
func NewMoney(minorUnits int64, currency Currency) Money {
	return Money{MinorUnits: minorUnits, Currency: currency}
}

// Zero returns the zero value for the given currency.
func Zero(currency Currency) Money {
	return Money{MinorUnits: 0, Currency: currency}
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.MinorUnits == 0 }

// Sign returns -1, 0, or 1.
func (m Money) Sign() int {
	switch {
	case m.MinorUnits < 0:
		return -1
	case m.MinorUnits > 0:
		return 1
	default:
		return 0
	}
}

// Negate returns the additive inverse.
func (m Money) Negate() Money {
	return Money{MinorUnits: -m.MinorUnits, Currency: m.Currency}
}

// Add returns m + other. Fails with CurrencyMismatchError on differing currencies.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, &CurrencyMismatchError{Left: m.Currency, Right: other.Currency}
	}
	return Money{MinorUnits: m.MinorUnits + other.MinorUnits, Currency: m.Currency}, nil
}

// Sub returns m - other. Fails with CurrencyMismatchError on differing currencies.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, &CurrencyMismatchError{Left: m.Currency, Right: other.Currency}
	}
	return Money{MinorUnits: m.MinorUnits - other.MinorUnits, Currency: m.Currency}, nil
}

// MulScalar returns m * n, an exact integer scaling.
func (m Money) MulScalar(n int64) Money {
	return Money{MinorUnits: m.MinorUnits * n, Currency: m.Currency}
}

// Equal reports exact equality of currency and minor units.
func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.MinorUnits == other.MinorUnits
}

// Compare returns -1, 0, 1 comparing m to other. Panics on currency mismatch,
// matching the teacher's assumption that comparisons only ever happen within
// a single ledger/currency context (see posting_engine.go's validateBalance).
func (m Money) Compare(other Money) int {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("cannot compare %s to %s", m.Currency, other.Currency))
	}
	switch {
	case m.MinorUnits < other.MinorUnits:
		return -1
	case m.MinorUnits > other.MinorUnits:
		return 1
	default:
		return 0
	}
}

// Quantize rounds to the currency's scale using banker's rounding (round
// half to even). Money already carries an integer minor-unit count at the
// currency's natural scale, so Quantize is a no-op unless a wider
// intermediate scale was used upstream (e.g. FX conversion); it is provided
// so callers performing multi-step arithmetic at a finer scale have an
// explicit, auditable rounding point rather than relying on implicit
// truncation.
func (m Money) Quantize(fromScale int) Money {
	targetScale := ScaleOf(m.Currency)
	if fromScale <= targetScale {
		return m
	}
	factor := int64(1)
	for i := 0; i < fromScale-targetScale; i++ {
		factor *= 10
	}
	return Money{MinorUnits: bankersRoundDiv(m.MinorUnits, factor), Currency: m.Currency}
}

// bankersRoundDiv divides n by factor, rounding half-to-even.
func bankersRoundDiv(n, factor int64) int64 {
	if factor == 1 {
		return n
	}
	neg := n < 0
	if neg {
		n = -n
	}
	q := n / factor
	r := n % factor
	half := factor / 2
	switch {
	case r > half, r == half && q%2 == 1:
		q++
	}
	if neg {
		return -q
	}
	return q
}

// String renders a human-readable "123.45 USD" form.
func (m Money) String() string {
	scale := ScaleOf(m.Currency)
	if scale == 0 {
		return fmt.Sprintf("%d %s", m.MinorUnits, m.Currency)
	}
	neg := m.MinorUnits < 0
	abs := m.MinorUnits
	if neg {
		abs = -abs
	}
	factor := int64(1)
	for i := 0; i < scale; i++ {
		factor *= 10
	}
	whole := abs / factor
	frac := abs % factor
	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%d.%0*d %s", sign, whole, scale, frac, m.Currency)
}

// ParseDecimalLiteral parses a plain decimal literal (e.g. from a where-clause
// or control expression) into minor units at the given scale, without ever
// routing through a binary float. Used by expression.go's comparison logic.
func ParseDecimalLiteral(literal string, scale int) (int64, error) {
	literal = strings.TrimSpace(literal)
	neg := false
	if strings.HasPrefix(literal, "-") {
		neg = true
		literal = literal[1:]
	} else if strings.HasPrefix(literal, "+") {
		literal = literal[1:]
	}
	parts := strings.SplitN(literal, ".", 2)
	wholePart := parts[0]
	if wholePart == "" {
		wholePart = "0"
	}
	whole, err := strconv.ParseInt(wholePart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal literal %q: %w", literal, err)
	}
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	for len(fracPart) < scale {
		fracPart += "0"
	}
	fracPart = fracPart[:scale]
	var frac int64
	if fracPart != "" {
		frac, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid decimal literal %q: %w", literal, err)
		}
	}
	factor := int64(1)
	for i := 0; i < scale; i++ {
		factor *= 10
	}
	total := whole*factor + frac
	if neg {
		total = -total
	}
	return total, nil
}

// Quantity mirrors Money with a unit tag instead of a currency, used by
// engines that compute physical quantities (variance, valuation inputs).
type Quantity struct {
	MinorUnits int64
	Unit       string
}

// Add returns q + other. Fails if the units differ.
func (q Quantity) Add(other Quantity) (Quantity, error) {
	if q.Unit != other.Unit {
		return Quantity{}, fmt.Errorf("unit mismatch: %s vs %s", q.Unit, other.Unit)
	}
	return Quantity{MinorUnits: q.MinorUnits + other.MinorUnits, Unit: q.Unit}, nil
}

// IsZero reports whether the quantity is exactly zero.
func (q Quantity) IsZero() bool { return q.MinorUnits == 0 }
