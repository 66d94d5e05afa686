package kernel

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Canonicalize produces a stable textual representation of value: "null"
// for nil; exact textual form for numbers and strings; maps rendered with
// sorted keys; ordered sequences preserved in order; unknown types fall
// back to fmt.Sprintf("%v", ...). Grounded on
// original_source/finance_engines/tracer.py's _canonicalize.
func Canonicalize(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int:
		return fmt.Sprintf("%d", v)
	case int32:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case float32:
		return trimFloat(float64(v))
	case float64:
		return trimFloat(v)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s:%s", k, Canonicalize(v[k])))
		}
		return "{" + strings.Join(parts, ",") + "}"
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, Canonicalize(item))
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%g", f)
	return s
}

// Fingerprint computes a deterministic SHA-256 fingerprint over the named
// fields of payload, truncated to 16 hex chars. Missing fields canonicalize
// as "null". Grounded on tracer.py's compute_input_fingerprint.
func Fingerprint(fields []string, payload map[string]any) string {
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		val := payload[field]
		parts = append(parts, fmt.Sprintf("%s=%s", field, Canonicalize(val)))
	}
	canonical := strings.Join(parts, "|")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])[:16]
}

// FingerprintValue hashes a single canonicalized value, used by the
// coordinator's reproducibility proof (input_hash/output_hash), which
// canonicalizes a whole structured record rather than selected fields.
func FingerprintValue(value any) string {
	sum := sha256.Sum256([]byte(Canonicalize(value)))
	return hex.EncodeToString(sum[:])
}
