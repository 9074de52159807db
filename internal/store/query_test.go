package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []Record {
	return []Record{
		{"actor": "alice", "score": float64(90), "metadata": map[string]any{"session": map[string]any{"custom_consumer": "c1"}}},
		{"actor": "bob", "score": float64(70), "metadata": map[string]any{"session": map[string]any{"custom_consumer": "c2"}}},
		{"actor": "carol", "score": float64(80), "metadata": map[string]any{"session": map[string]any{"custom_consumer": "c1"}}},
	}
}

func TestEvalSpecDefaults(t *testing.T) {
	// Every field absent: unfiltered, unsorted, unbounded.
	out := evalSpec(sampleRecords(), Spec{})
	assert.Len(t, out, 3)
	assert.Equal(t, "alice", out[0]["actor"])
	assert.Equal(t, "carol", out[2]["actor"])
}

func TestEvalSpecFilter(t *testing.T) {
	cases := []struct {
		name   string
		filter map[string]any
		want   []string
	}{
		{"equality", map[string]any{"actor": "bob"}, []string{"bob"}},
		{"dotted path", map[string]any{"metadata.session.custom_consumer": "c1"}, []string{"alice", "carol"}},
		{"no match", map[string]any{"actor": "dave"}, []string{}},
		{"missing path", map[string]any{"metadata.session.context_id": "x"}, []string{}},
		{"gt", map[string]any{"score": map[string]any{"$gt": float64(75)}}, []string{"alice", "carol"}},
		{"lte", map[string]any{"score": map[string]any{"$lte": float64(70)}}, []string{"bob"}},
		{"in", map[string]any{"actor": map[string]any{"$in": []any{"alice", "bob"}}}, []string{"alice", "bob"}},
		{"ne", map[string]any{"actor": map[string]any{"$ne": "alice"}}, []string{"bob", "carol"}},
		{"exists true", map[string]any{"score": map[string]any{"$exists": true}}, []string{"alice", "bob", "carol"}},
		{"exists false", map[string]any{"grade": map[string]any{"$exists": false}}, []string{"alice", "bob", "carol"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := evalSpec(sampleRecords(), Spec{Filter: tc.filter})
			got := make([]string, 0, len(out))
			for _, r := range out {
				got = append(got, r["actor"].(string))
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvalSpecSort(t *testing.T) {
	out := evalSpec(sampleRecords(), Spec{Sort: map[string]int{"score": -1}})
	require.Len(t, out, 3)
	assert.Equal(t, "alice", out[0]["actor"])
	assert.Equal(t, "carol", out[1]["actor"])
	assert.Equal(t, "bob", out[2]["actor"])

	out = evalSpec(sampleRecords(), Spec{Sort: map[string]int{"actor": 1}})
	assert.Equal(t, "alice", out[0]["actor"])
}

func TestEvalSpecPagination(t *testing.T) {
	spec := Spec{Sort: map[string]int{"actor": 1}, Skip: 1, Limit: 1}
	out := evalSpec(sampleRecords(), spec)
	require.Len(t, out, 1)
	assert.Equal(t, "bob", out[0]["actor"])

	// Skip past the end yields an empty page, not an error.
	out = evalSpec(sampleRecords(), Spec{Skip: 10})
	assert.Empty(t, out)
}

func TestEvalSpecUnwind(t *testing.T) {
	records := []Record{
		{"actor": "alice", "verbs": []any{"started", "completed"}},
		{"actor": "bob", "verbs": []any{"started"}},
		{"actor": "carol"},                    // no array: dropped
		{"actor": "dave", "verbs": "started"}, // not an array: passed through
	}

	out := evalSpec(records, Spec{Unwind: "verbs"})
	require.Len(t, out, 4)
	assert.Equal(t, "started", out[0]["verbs"])
	assert.Equal(t, "completed", out[1]["verbs"])
	assert.Equal(t, "alice", out[1]["actor"])
	assert.Equal(t, "dave", out[3]["actor"])
}

func TestEvalSpecUnwindDoesNotMutateSource(t *testing.T) {
	records := []Record{{"actor": "alice", "verbs": []any{"a", "b"}}}
	evalSpec(records, Spec{Unwind: "verbs"})
	_, ok := records[0]["verbs"].([]any)
	assert.True(t, ok, "source record must keep its array after unwind")
}

func TestCompareValuesMixedTypes(t *testing.T) {
	// nil < bool < number < string keeps heterogeneous sorts total.
	assert.Negative(t, compareValues(nil, false))
	assert.Negative(t, compareValues(true, float64(0)))
	assert.Negative(t, compareValues(float64(99), "a"))
	assert.Zero(t, compareValues("x", "x"))
	assert.Positive(t, compareValues(float64(2), int64(1)))
}

func TestMatchFilterUnknownOperator(t *testing.T) {
	// Malformed operators must not make the query path error or panic.
	out := evalSpec(sampleRecords(), Spec{Filter: map[string]any{"score": map[string]any{"$bogus": 1}}})
	assert.Len(t, out, 3)
}
