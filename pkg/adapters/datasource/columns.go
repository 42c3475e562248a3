package datasource

import "strconv"

// UniqueColumnNames returns names with later duplicates suffixed ("id",
// "id_2", ...) so every column gets its own row key. The first occurrence
// keeps its name, and a suffix never collides with a name the query
// returned itself. The input slice is not modified.
func UniqueColumnNames(names []string) []string {
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[n] = true
	}

	out := make([]string, len(names))
	emitted := make(map[string]bool, len(names))
	for i, n := range names {
		if !emitted[n] {
			out[i] = n
			emitted[n] = true
			continue
		}
		for k := 2; ; k++ {
			candidate := n + "_" + strconv.Itoa(k)
			if !taken[candidate] {
				out[i] = candidate
				taken[candidate] = true
				emitted[candidate] = true
				break
			}
		}
	}
	return out
}
