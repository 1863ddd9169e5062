package trainer

import "math"

// sanitizeMap replaces NaN and infinite floats with nil so run documents
// always encode. Only generic containers are walked; typed structs are
// expected to use pointer fields for undefined values.
func sanitizeMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = sanitize(v)
	}
	return out
}

func sanitize(v interface{}) interface{} {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case *float64:
		if x == nil || math.IsNaN(*x) || math.IsInf(*x, 0) {
			return nil
		}
		return *x
	case []float64:
		out := make([]interface{}, len(x))
		for i, f := range x {
			out[i] = sanitize(f)
		}
		return out
	case map[string]float64:
		out := make(map[string]interface{}, len(x))
		for k, f := range x {
			out[k] = sanitize(f)
		}
		return out
	case map[string]interface{}:
		return sanitizeMap(x)
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = sanitize(e)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = sanitizeMap(e)
		}
		return out
	}
	return v
}
