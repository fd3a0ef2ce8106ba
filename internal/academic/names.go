package academic

import "fmt"

// DedupName returns base unchanged when free, otherwise the first
// "base (n)" variant not in taken, counting from 2.
func DedupName(base string, taken map[string]struct{}) string {
	if _, used := taken[base]; !used {
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s (%d)", base, i)
		if _, used := taken[candidate]; !used {
			return candidate
		}
	}
}
