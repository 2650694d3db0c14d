package store

import (
	"math/big"
	"strconv"
	"time"
)

// DateLayout is the rendering of temporal values.
const DateLayout = "2006-01-02"

// Normalize converts an engine value into a transport-safe one: temporal
// values become YYYY-MM-DD strings, 64-bit integers become decimal strings
// and byte slices become strings. Lists and structs are normalized
// recursively; everything else is returned unchanged.
func Normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(DateLayout)
	case *time.Time:
		if val == nil {
			return nil
		}
		return val.UTC().Format(DateLayout)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case *big.Int:
		if val == nil {
			return nil
		}
		return val.String()
	case []byte:
		return string(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = Normalize(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = Normalize(item)
		}
		return out
	}
	return v
}
