package extractor

import (
	"fmt"
	"math"
	"os"

	"github.com/ledongthuc/pdf"
)

// document is the per-page view of a PDF the extractor needs.
type document interface {
	NumPages() int
	// PageText returns the page's text layer.
	PageText(n int) (string, error)
	// PageImageRatio returns the fraction of the page covered by images.
	PageImageRatio(n int) (float64, error)
	Close() error
}

// openFunc opens a PDF. Replaced in tests.
type openFunc func(path string) (document, error)

// pdfDocument reads PDFs with ledongthuc/pdf.
type pdfDocument struct {
	file   *os.File
	reader *pdf.Reader
}

func openPDF(path string) (document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	return &pdfDocument{file: f, reader: r}, nil
}

func (d *pdfDocument) NumPages() int {
	return d.reader.NumPage()
}

func (d *pdfDocument) PageText(n int) (text string, err error) {
	// The content stream parser panics on malformed input.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("page %d: %v", n, r)
		}
	}()
	p := d.reader.Page(n)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

func (d *pdfDocument) PageImageRatio(n int) (ratio float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			ratio, err = 0, fmt.Errorf("page %d: %v", n, r)
		}
	}()
	p := d.reader.Page(n)
	if p.V.IsNull() {
		return 0, nil
	}
	pageArea := mediaBoxArea(p.V)
	if pageArea <= 0 {
		return 0, nil
	}
	return clampRatio(imageArea(p) / pageArea), nil
}

func (d *pdfDocument) Close() error {
	return d.file.Close()
}

// mediaBoxArea returns the page area, following inherited MediaBox entries.
func mediaBoxArea(page pdf.Value) float64 {
	for v := page; !v.IsNull(); v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.Kind() != pdf.Array || box.Len() < 4 {
			continue
		}
		w := box.Index(2).Float64() - box.Index(0).Float64()
		h := box.Index(3).Float64() - box.Index(1).Float64()
		return math.Abs(w * h)
	}
	return 0
}

// matrix is a PDF transformation matrix [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m x n.
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

// unitArea is the area of the unit square mapped through m, which is the
// placement area of an image XObject.
func (m matrix) unitArea() float64 {
	return math.Abs(m[0]*m[3] - m[1]*m[2])
}

// imageArea sums image XObject placements in the page content streams.
func imageArea(p pdf.Page) float64 {
	xobjects := p.Resources().Key("XObject")
	ctm := identity
	var saved []matrix
	var area float64

	op := func(stk *pdf.Stack, op string) {
		switch op {
		case "q":
			saved = append(saved, ctm)
		case "Q":
			if len(saved) > 0 {
				ctm = saved[len(saved)-1]
				saved = saved[:len(saved)-1]
			}
		case "cm":
			if stk.Len() < 6 {
				return
			}
			var m matrix
			for i := 5; i >= 0; i-- {
				m[i] = stk.Pop().Float64()
			}
			ctm = m.mul(ctm)
		case "Do":
			if stk.Len() < 1 {
				return
			}
			name := stk.Pop().Name()
			if xobjects.Key(name).Key("Subtype").Name() == "Image" {
				area += ctm.unitArea()
			}
		}
	}

	contents := p.V.Key("Contents")
	if contents.IsNull() {
		return 0
	}
	if contents.Kind() == pdf.Array {
		for i := 0; i < contents.Len(); i++ {
			pdf.Interpret(contents.Index(i), op)
		}
	} else {
		pdf.Interpret(contents, op)
	}
	return area
}

func clampRatio(r float64) float64 {
	switch {
	case r < 0 || math.IsNaN(r):
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}
