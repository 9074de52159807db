package partition

import "testing"

func TestResolve(t *testing.T) {
	cases := []struct {
		name     string
		consumer string
		course   string
		want     string
	}{
		{"both present", "c1", "course9", "xapi_consumerId_c1_courseId_course9"},
		{"missing consumer", "", "course9", "xapi_consumerId_null_courseId_course9"},
		{"missing course", "c1", "", "xapi_consumerId_c1_courseId_null"},
		{"both missing", "", "", "xapi_consumerId_null_courseId_null"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve("xapi", tc.consumer, tc.course)
			if got != tc.want {
				t.Errorf("Resolve() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolveDeterministic(t *testing.T) {
	a := Resolve("xapi", "moodle-7", "math101")
	b := Resolve("xapi", "moodle-7", "math101")
	if a != b {
		t.Errorf("Resolve is not deterministic: %q vs %q", a, b)
	}
}

func TestResolveDistinctTriples(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range []string{"", "c1", "c2"} {
		for _, crs := range []string{"", "k1", "k2"} {
			name := Resolve("xapi", c, crs)
			if seen[name] {
				t.Errorf("partition %q produced by more than one triple", name)
			}
			seen[name] = true
		}
	}
}
