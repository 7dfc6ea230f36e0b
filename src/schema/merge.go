package schema

import (
	"reflect"
	"sort"
)

// Merge combines a core validation schema with a local extension into one
// composite schema. The result accepts a document only if both inputs do:
// properties merge key by key, required lists union, and local fragments may
// narrow a core property (add constraints) but never redefine it. Divergent
// definitions of the same key fail with a CompositionError naming the key.
//
// Merge is pure: inputs are never modified, and merging with an empty local
// schema yields a copy equal to core.
func Merge(core, local Document) (Document, error) {
	if len(local) == 0 {
		return Document(deepCopyMap(core)), nil
	}

	merged, err := mergeMaps("", core, local)
	if err != nil {
		return nil, err
	}

	return Document(merged), nil
}

func mergeMaps(path string, a, b map[string]interface{}) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	for k, av := range a {
		out[k] = deepCopyValue(av)
	}

	for k, bv := range b {
		av, ok := a[k]
		if !ok {
			out[k] = deepCopyValue(bv)
			continue
		}

		key := k
		if path != "" {
			key = path + "." + k
		}

		mv, err := mergeValues(key, av, bv)
		if err != nil {
			return nil, err
		}
		out[k] = mv
	}

	return out, nil
}

func mergeValues(path string, a, b interface{}) (interface{}, error) {
	// required lists union rather than conflict
	if as, bs, ok := stringSlices(a, b); ok && isRequiredPath(path) {
		return unionStrings(as, bs), nil
	}

	am, aIsMap := asMap(a)
	bm, bIsMap := asMap(b)
	if aIsMap && bIsMap {
		return mergeMaps(path, am, bm)
	}

	if reflect.DeepEqual(a, b) {
		return deepCopyValue(a), nil
	}

	return nil, &CompositionError{Key: path}
}

func isRequiredPath(path string) bool {
	return path == "required" || len(path) > len(".required") &&
		path[len(path)-len(".required"):] == ".required"
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case Document:
		return m, true
	}
	return nil, false
}

// stringSlices coerces two values to string slices, accepting the []string
// produced by the generator as well as the []interface{} produced by JSON
// decoding.
func stringSlices(a, b interface{}) ([]string, []string, bool) {
	as, ok := toStrings(a)
	if !ok {
		return nil, nil, false
	}
	bs, ok := toStrings(b)
	if !ok {
		return nil, nil, false
	}
	return as, bs, true
}

func toStrings(v interface{}) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return s, true
	case []interface{}:
		res := make([]string, 0, len(s))
		for _, e := range s {
			str, ok := e.(string)
			if !ok {
				return nil, false
			}
			res = append(res, str)
		}
		return res, true
	}
	return nil, false
}

func unionStrings(a, b []string) []string {
	seen := map[string]bool{}
	res := []string{}
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			res = append(res, s)
		}
	}
	sort.Strings(res)
	return res
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(t)
	case Document:
		return deepCopyMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	}
	return v
}
