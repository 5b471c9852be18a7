package engine

import "sort"

// LineIndex maps byte offsets in a file's content to 1-based line numbers,
// built once per content (spec §4.3).
type LineIndex struct {
	starts []int
}

// NewLineIndex scans content once and records the byte offset of every
// line start.
func NewLineIndex(content []byte) *LineIndex {
	starts := []int{0}
	for i, b := range content {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{starts: starts}
}

// LineAt translates a byte offset into a 1-based line number via binary
// search over the recorded line starts.
func (idx *LineIndex) LineAt(offset int) int {
	i := sort.Search(len(idx.starts), func(i int) bool { return idx.starts[i] > offset })
	return i // i is 1-based already since starts[0]=0 maps to line 1
}
