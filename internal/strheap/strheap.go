// Package strheap is a tiny append-only string interner: the same small
// "index -> string, string -> index" arena shape used for the compiled
// program's constant tables (bytecode.Program.Strings/Atoms) and, at
// runtime, a process's spliced-string heap (vm.Process.StrHeap).
package strheap

// Heap interns strings, handing back a stable, dense index for each
// distinct value. The zero Heap is ready to use.
type Heap struct {
	values []string
	index  map[string]int
}

// Intern returns s's index, assigning it a fresh one on first sight.
// Repeated interning of the same string is free: it returns the existing
// index rather than growing the arena (§3.3's constant tables are
// deduplicated; a program that mentions "die" fifty times pays for the
// string once).
func (h *Heap) Intern(s string) int {
	if h.index == nil {
		h.index = map[string]int{}
	}
	if id, ok := h.index[s]; ok {
		return id
	}
	id := len(h.values)
	h.values = append(h.values, s)
	h.index[s] = id
	return id
}

// At returns the string stored at id, or "" if id is out of range.
func (h *Heap) At(id int) string {
	if id < 0 || id >= len(h.values) {
		return ""
	}
	return h.values[id]
}

// Len reports how many distinct strings have been interned.
func (h *Heap) Len() int { return len(h.values) }

// Strings returns the interned values in index order. The caller must not
// mutate the returned slice.
func (h *Heap) Strings() []string { return h.values }

// Append adds s unconditionally, skipping the dedup lookup, and returns
// its index. This is for a runtime string heap (vm.Process.StrHeap),
// where two Splice results that happen to read the same text are still
// distinct values with independent lifetimes, not candidates for sharing.
func (h *Heap) Append(s string) int {
	id := len(h.values)
	h.values = append(h.values, s)
	return id
}
