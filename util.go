package tabcodec

import (
	"encoding/hex"
	"log/slog"
	"math"
	"strings"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}

func ptr[T any](v T) *T {
	return &v
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func splitByte(s string, sep byte) (string, string, bool) {
	i := strings.IndexByte(s, sep)
	if i < 0 {
		return s, "", false
	} else {
		return s[:i], s[i+1:], true
	}
}

func rpad(s string, n int, pad rune) string {
	rem := n - len(s)
	if rem <= 0 {
		return s
	}
	return s + strings.Repeat(string(pad), rem)
}

// Line breaks and tabs inside cell text are stored escaped so that exports stay one row per line.
var (
	escaper   = strings.NewReplacer("\n", `\\n`, "\t", `\\t`)
	unescaper = strings.NewReplacer(`\\n`, "\n", `\\t`, "\t")
)

func escapeSpecialChars(s string) string {
	if strings.IndexAny(s, "\n\t") < 0 {
		return s
	}
	return escaper.Replace(s)
}

func unescapeSpecialChars(s string) string {
	if !strings.Contains(s, `\\`) {
		return s
	}
	return unescaper.Replace(s)
}

// lossyCast truncates a float to an integer kind the way a numeric cast does, saturating at the bounds.
func lossyCast[T int16 | int32 | int64 | uint8](v float64) T {
	if math.IsNaN(v) {
		return 0
	}
	var lo, hi float64
	switch any(T(0)).(type) {
	case int16:
		lo, hi = math.MinInt16, math.MaxInt16
	case int32:
		lo, hi = math.MinInt32, math.MaxInt32
	case int64:
		lo, hi = math.MinInt64, math.MaxInt64
	case uint8:
		lo, hi = 0, math.MaxUint8
	}
	switch {
	case v <= lo:
		return T(int64(lo))
	case v >= hi:
		// float64(MaxInt64) rounds up past the int64 range
		top := int64(math.MaxInt64)
		if hi < float64(math.MaxInt64) {
			top = int64(hi)
		}
		return T(top)
	default:
		return T(v)
	}
}

func hexstr(b []byte) string {
	if b == nil {
		return "<nil>"
	}
	if len(b) == 0 {
		return "<empty>"
	}
	return hex.EncodeToString(b)
}

func hexAttr(key string, b []byte) slog.Attr {
	return slog.String(key, hexstr(b))
}
