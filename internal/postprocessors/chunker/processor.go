// Package chunker splits extracted page text into overlapping chunks
// that remember which pages they came from.
package chunker

import (
	"strings"

	"github.com/custodia-labs/docket/internal/core/domain"
	"github.com/custodia-labs/docket/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// pageBreak is inserted between pages. It belongs to the preceding page.
const pageBreak = "\n\n"

// separators in priority order. A split lands after the separator so it
// stays at the end of the preceding chunk.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "), []rune("! "), []rune("? "),
	[]rune("; "), []rune(", "), []rune(": "),
	[]rune(" "),
}

// separatorLevels groups separators of equal priority.
var separatorLevels = [][]int{{0}, {1}, {2, 3, 4}, {5, 6, 7}, {8}}

// Processor splits page text into chunks.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the default chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the default overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.overlap = clampOverlap(p.chunkSize, p.overlap)
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Chunk splits pages into chunks of at most maxChars runes, carrying
// overlapChars runes of trailing context into each following chunk.
// Non-positive maxChars or negative overlapChars fall back to the
// processor defaults.
func (p *Processor) Chunk(pages []domain.PageResult, maxChars, overlapChars int) []domain.Chunk {
	if maxChars <= 0 {
		maxChars = p.chunkSize
	}
	if overlapChars < 0 {
		overlapChars = p.overlap
	}
	overlapChars = clampOverlap(maxChars, overlapChars)

	buf, pm := concatenate(pages)
	if len(buf) == 0 {
		return nil
	}

	var chunks []domain.Chunk
	pos := 0
	for pos < len(buf) {
		budget := maxChars
		ov := 0
		if pos > 0 {
			budget = maxChars - overlapChars
			ov = overlapStart(buf, pos, overlapChars, chunks[len(chunks)-1].CharCount)
		}

		end := splitPoint(buf, pos, budget)
		start := pos - ov
		text := string(buf[start:end])
		pageNumbers, dominant := pm.span(start, end)

		chunks = append(chunks, domain.Chunk{
			Index:        len(chunks),
			PageNumbers:  pageNumbers,
			DominantPage: dominant,
			Text:         text,
			Overlap:      ov,
			CharCount:    end - start,
			WordCount:    len(strings.Fields(text)),
		})
		pos = end
	}

	for i := range chunks {
		chunks[i].TotalChunks = len(chunks)
	}
	return chunks
}

func clampOverlap(size, overlap int) int {
	if overlap >= size {
		return size / 2
	}
	return overlap
}

// concatenate joins non-empty pages with pageBreak and records where
// each page starts. A page starts after the break that precedes it.
// Whitespace-only input yields an empty buffer.
func concatenate(pages []domain.PageResult) ([]rune, *pageMap) {
	pm := &pageMap{}
	var b strings.Builder
	offset := 0
	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		if offset > 0 {
			b.WriteString(pageBreak)
			offset += len(pageBreak)
		}
		pm.starts = append(pm.starts, offset)
		pm.pages = append(pm.pages, page.Number)
		b.WriteString(page.Text)
		offset += len([]rune(page.Text))
	}

	buf := []rune(b.String())
	pm.end = len(buf)
	return buf, pm
}

// splitPoint returns the end offset of the segment starting at pos.
// It prefers the highest-priority separator occurring within the budget,
// using its last occurrence, and falls back to a hard cut.
func splitPoint(buf []rune, pos, budget int) int {
	limit := pos + budget
	if limit >= len(buf) {
		return len(buf)
	}

	for _, level := range separatorLevels {
		best := -1
		for _, si := range level {
			if end := lastSeparatorEnd(buf, pos, limit, separators[si]); end > best {
				best = end
			}
		}
		if best > pos {
			return best
		}
	}
	return limit
}

// lastSeparatorEnd finds the largest e in (pos, limit] such that
// buf[e-len(sep):e] == sep, or -1.
func lastSeparatorEnd(buf []rune, pos, limit int, sep []rune) int {
	for e := limit; e-len(sep) >= pos && e > pos; e-- {
		if runesEqual(buf[e-len(sep):e], sep) {
			return e
		}
	}
	return -1
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// overlapStart returns how many runes before pos to repeat at the start of
// the next chunk. The window is capped by the previous chunk's length and
// moved forward to a word boundary when one exists inside it.
func overlapStart(buf []rune, pos, overlap, prevLen int) int {
	if overlap <= 0 {
		return 0
	}
	ov := min(overlap, prevLen, pos)
	start := pos - ov
	if start == 0 || isSpace(buf[start-1]) {
		return ov
	}
	for i := start; i < pos-1; i++ {
		if isSpace(buf[i]) {
			return pos - (i + 1)
		}
	}
	return ov
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
