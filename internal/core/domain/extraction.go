package domain

import (
	"strconv"
	"strings"
)

// FileKind is the family of an input file.
type FileKind string

// Supported file kinds.
const (
	FileKindPDF   FileKind = "pdf"
	FileKindImage FileKind = "image"
)

// PageResult is the extractor's output for one page.
type PageResult struct {
	// Number is the 1-based page number.
	Number int

	// Text is the extracted page text.
	Text string

	// CharCount is the rune count of Text.
	CharCount int

	// Method is the source the text came from.
	Method ExtractionMethod

	// OCRConfidence is the mean OCR word confidence (0-100).
	// Zero when OCR did not run.
	OCRConfidence float64

	// LowConfidence marks OCR output under the warning threshold.
	LowConfidence bool

	// ImageRatio is the fraction of the page covered by images (0-1).
	ImageRatio float64
}

// ExtractionResult is the per-document output of the extractor.
type ExtractionResult struct {
	Pages []PageResult

	// ImageRatio is the average of the page ratios.
	ImageRatio float64
}

// Method aggregates the page methods: uniform when all pages agree
// (empty pages are ignored), otherwise mixed.
func (r *ExtractionResult) Method() ExtractionMethod {
	var method ExtractionMethod
	for _, p := range r.Pages {
		if p.CharCount == 0 {
			continue
		}
		if method == "" {
			method = p.Method
			continue
		}
		if p.Method != method {
			return MethodMixed
		}
	}
	if method == "" {
		return MethodTextLayer
	}
	return method
}

// ContainsDrawings reports whether the aggregate image ratio reaches threshold.
func (r *ExtractionResult) ContainsDrawings(threshold float64) bool {
	return threshold > 0 && r.ImageRatio >= threshold
}

// CharCount is the total number of extracted characters.
func (r *ExtractionResult) CharCount() int {
	n := 0
	for _, p := range r.Pages {
		n += p.CharCount
	}
	return n
}

// AverageRatio averages page image ratios; zero for no pages.
func AverageRatio(ratios []float64) float64 {
	if len(ratios) == 0 {
		return 0
	}
	var sum float64
	for _, r := range ratios {
		sum += r
	}
	return sum / float64(len(ratios))
}

// FormatPages renders page numbers as "1,2,3".
func FormatPages(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}

// ParsePages parses the output of FormatPages. Malformed entries are skipped.
func ParsePages(s string) []int {
	if s == "" {
		return nil
	}
	fields := strings.Split(s, ",")
	pages := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			continue
		}
		pages = append(pages, n)
	}
	return pages
}
