package kernel

import "fmt"

// This file supplements the engine registry with two concrete pure
// calculation engines, grounded on original_source/finance_engines/
// variance.py's role as "a concrete pure calculation engine" consumed by
// the dispatcher via invokers. They exist so a kernel wiring (kernel.go,
// cmd/demo) has at least one real engine to register rather than leaving
// the registry conceptually empty.

// VarianceDisposition mirrors variance.py's VarianceDisposition enum:
// what to do with a computed variance.
type VarianceDisposition string

const (
	DispositionPostToVarianceAccount VarianceDisposition = "post"
	DispositionCapitalizeToInventory VarianceDisposition = "capitalize"
	DispositionAllocateToCOGS        VarianceDisposition = "allocate"
	DispositionWriteOff              VarianceDisposition = "write_off"
)

// VarianceResult is the output of the variance engine: the computed
// variance amount and whether it's favorable (actual better than expected
// from the entity's perspective).
type VarianceResult struct {
	Variance   Money
	Favorable  bool
	Disposition VarianceDisposition
}

// NewVarianceEngine constructs the "variance" EngineInvoker. Reads
// expected_price and actual_price (both Money at the same scale, in minor
// units) plus quantity from payload, and the config-projected
// variance_disposition from params (injected by engine_dispatch.go).
// Grounded on variance.py's price_variance: variance = (actual - expected)
// * quantity; same-currency requirement enforced via Money.Sub.
func NewVarianceEngine() EngineInvoker {
	return EngineInvoker{
		EngineName:        "variance",
		EngineVersion:      "1.0",
		FingerprintFields: []string{"expected_price", "actual_price", "quantity"},
		Invoke: func(payload map[string]any, params FrozenEngineParams) (any, error) {
			expected, ok1 := payload["expected_price"].(Money)
			actual, ok2 := payload["actual_price"].(Money)
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("variance engine requires expected_price and actual_price as Money")
			}
			quantity := int64(1)
			if q, ok := payload["quantity"].(int64); ok {
				quantity = q
			}
			diff, err := actual.Sub(expected)
			if err != nil {
				return nil, err
			}
			variance := diff.MulScalar(quantity)

			disposition := DispositionPostToVarianceAccount
			if d, ok := params.Parameters["variance_disposition"].(string); ok && d != "" {
				disposition = VarianceDisposition(d)
			}

			return &VarianceResult{
				Variance:    variance,
				Favorable:   variance.Sign() < 0,
				Disposition: disposition,
			}, nil
		},
	}
}

// ValuationResult is the output of the valuation engine: a restated money
// value under the config-selected valuation model.
type ValuationResult struct {
	Value Money
	Model string
}

// NewValuationEngine constructs the "valuation" EngineInvoker. Reads
// book_value (Money) and market_value (Money) from payload; the
// config-projected valuation_model (lower_of_cost_or_market,
// fair_value, historical_cost) from params selects which to return.
func NewValuationEngine() EngineInvoker {
	return EngineInvoker{
		EngineName:        "valuation",
		EngineVersion:      "1.0",
		FingerprintFields: []string{"book_value", "market_value"},
		Invoke: func(payload map[string]any, params FrozenEngineParams) (any, error) {
			book, ok1 := payload["book_value"].(Money)
			market, ok2 := payload["market_value"].(Money)
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("valuation engine requires book_value and market_value as Money")
			}
			model := "historical_cost"
			if m, ok := params.Parameters["valuation_model"].(string); ok && m != "" {
				model = m
			}

			value := book
			switch model {
			case "fair_value":
				value = market
			case "lower_of_cost_or_market":
				if market.Compare(book) < 0 {
					value = market
				} else {
					value = book
				}
			}

			return &ValuationResult{Value: value, Model: model}, nil
		},
	}
}
