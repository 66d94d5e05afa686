package kernel

import "testing"

func TestDecisionLogAppendEnforcesSerializationFirewall(t *testing.T) {
	log := NewDecisionLog(nil)
	err := log.Append("BAD", map[string]any{"value": make(chan int)})
	if _, ok := err.(*SerializationFirewallError); !ok {
		t.Fatalf("expected *SerializationFirewallError, got %T", err)
	}
	if len(log.Records()) != 0 {
		t.Fatal("a rejected record must not be appended")
	}
}

func TestDecisionLogPreambleIsPrependedUnmodified(t *testing.T) {
	preamble := []map[string]any{{"stage": "upstream"}}
	log := NewDecisionLog(preamble)
	if err := log.Append("KERNEL", map[string]any{"stage": "kernel"}); err != nil {
		t.Fatal(err)
	}
	records := log.Records()
	if len(records) != 2 {
		t.Fatalf("expected preamble + kernel record, got %d", len(records))
	}
	if records[0].Type != "PREAMBLE" || records[0].Fields["stage"] != "upstream" {
		t.Fatalf("expected the preamble record first and unmodified, got %+v", records[0])
	}
}

func TestCheckJSONSafeRejectsFunctions(t *testing.T) {
	err := CheckJSONSafe(map[string]any{"f": func() {}})
	if _, ok := err.(*SerializationFirewallError); !ok {
		t.Fatalf("expected *SerializationFirewallError, got %T", err)
	}
}

func TestCheckJSONSafeAcceptsPlainData(t *testing.T) {
	if err := CheckJSONSafe(map[string]any{"a": 1, "b": "text", "c": []any{1, 2, 3}}); err != nil {
		t.Fatalf("expected plain JSON-safe data to pass, got %v", err)
	}
}

func TestDecisionLogMarshalLinesNewlineDelimited(t *testing.T) {
	log := NewDecisionLog(nil)
	_ = log.Append("A", map[string]any{"x": 1})
	_ = log.Append("B", map[string]any{"x": 2})
	lines, err := log.MarshalLines()
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for _, b := range lines {
		if b == '\n' {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected 2 newline-terminated records, got %d", count)
	}
}
