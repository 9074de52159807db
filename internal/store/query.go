package store

import (
	"sort"
	"strings"
)

// evalSpec runs a query spec against an in-memory snapshot of a partition.
// Stage order matches the MongoDB backend: filter, unwind, sort, skip, limit.
func evalSpec(records []Record, spec Spec) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if matchFilter(r, spec.Filter) {
			out = append(out, r)
		}
	}

	if spec.Unwind != "" {
		out = unwindField(out, spec.Unwind)
	}

	if len(spec.Sort) > 0 {
		sortRecords(out, spec.Sort)
	}

	if spec.Skip > 0 {
		if spec.Skip >= int64(len(out)) {
			out = out[:0]
		} else {
			out = out[spec.Skip:]
		}
	}
	if spec.Limit > 0 && int64(len(out)) > spec.Limit {
		out = out[:spec.Limit]
	}
	return out
}

// lookupPath follows a dotted path into a nested document. The second
// return reports whether every intermediate key existed.
func lookupPath(doc Record, path string) (any, bool) {
	cur := any(doc)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// matchFilter implements the filter subset the embedded engine understands:
// equality on dotted paths plus the $in, $gt, $gte, $lt, $lte, $ne and
// $exists operators. An empty filter matches everything.
func matchFilter(doc Record, filter map[string]any) bool {
	for path, want := range filter {
		got, found := lookupPath(doc, path)
		if ops, ok := want.(map[string]any); ok && hasOperator(ops) {
			if !matchOperators(got, found, ops) {
				return false
			}
			continue
		}
		if !found || compareValues(got, want) != 0 {
			return false
		}
	}
	return true
}

func hasOperator(m map[string]any) bool {
	for k := range m {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

func matchOperators(got any, found bool, ops map[string]any) bool {
	for op, arg := range ops {
		switch op {
		case "$exists":
			want, _ := arg.(bool)
			if found != want {
				return false
			}
		case "$in":
			list, _ := arg.([]any)
			hit := false
			for _, v := range list {
				if found && compareValues(got, v) == 0 {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
		case "$ne":
			if found && compareValues(got, arg) == 0 {
				return false
			}
		case "$gt":
			if !found || compareValues(got, arg) <= 0 {
				return false
			}
		case "$gte":
			if !found || compareValues(got, arg) < 0 {
				return false
			}
		case "$lt":
			if !found || compareValues(got, arg) >= 0 {
				return false
			}
		case "$lte":
			if !found || compareValues(got, arg) > 0 {
				return false
			}
		default:
			// Unknown operator: no constraint rather than an error, the
			// query path must stay total on malformed specs.
		}
	}
	return true
}

// compareValues orders two JSON-decoded values. Mixed types order by type
// rank (nil < bool < number < string < everything else), which keeps sorts
// stable across heterogeneous records.
func compareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 1:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case 2:
		af, bf := toFloat(a), toFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	case 3:
		return strings.Compare(a.(string), b.(string))
	}
	return 0
}

func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64, float32, int, int32, int64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// sortRecords orders records by the sort spec. Field application order is
// the lexical order of the paths; a JSON object cannot carry key order
// through decoding, so multi-key sorts are deterministic rather than
// caller-ordered.
func sortRecords(records []Record, spec map[string]int) {
	paths := make([]string, 0, len(spec))
	for p := range spec {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	sort.SliceStable(records, func(i, j int) bool {
		for _, p := range paths {
			av, _ := lookupPath(records[i], p)
			bv, _ := lookupPath(records[j], p)
			c := compareValues(av, bv)
			if c == 0 {
				continue
			}
			if spec[p] < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// unwindField flattens an array-valued field: one output row per element,
// with the element in place of the array. Rows where the path is missing or
// not an array are dropped, matching the aggregation $unwind default.
func unwindField(records []Record, path string) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		v, found := lookupPath(r, path)
		if !found {
			continue
		}
		arr, ok := v.([]any)
		if !ok {
			out = append(out, r)
			continue
		}
		for _, elem := range arr {
			clone := cloneRecord(r)
			setPath(clone, path, elem)
			out = append(out, clone)
		}
	}
	return out
}

func cloneRecord(r Record) Record {
	c := make(Record, len(r))
	for k, v := range r {
		if m, ok := v.(map[string]any); ok {
			c[k] = cloneRecord(m)
		} else {
			c[k] = v
		}
	}
	return c
}

func setPath(doc Record, path string, val any) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = val
}
