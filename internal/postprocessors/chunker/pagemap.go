package chunker

import "sort"

// pageMap maps rune offsets in the concatenated buffer to source pages.
// starts is sorted ascending; pages[i] begins at starts[i] and runs to
// starts[i+1] (or the buffer end).
type pageMap struct {
	starts []int
	pages  []int
	end    int
}

// index returns the table position of the page containing offset.
func (m *pageMap) index(offset int) int {
	i := sort.Search(len(m.starts), func(i int) bool { return m.starts[i] > offset })
	if i == 0 {
		return 0
	}
	return i - 1
}

func (m *pageMap) spanEnd(i int) int {
	if i+1 < len(m.starts) {
		return m.starts[i+1]
	}
	return m.end
}

// span returns the ordered pages touched by [start, end) and the page
// contributing the most runes (lowest page wins ties).
func (m *pageMap) span(start, end int) (pages []int, dominant int) {
	if len(m.starts) == 0 || end <= start {
		return nil, 0
	}

	first, last := m.index(start), m.index(end-1)
	best := -1
	for i := first; i <= last; i++ {
		lo, hi := max(start, m.starts[i]), min(end, m.spanEnd(i))
		if hi <= lo {
			continue
		}
		pages = append(pages, m.pages[i])
		if hi-lo > best {
			best = hi - lo
			dominant = m.pages[i]
		}
	}
	return pages, dominant
}
