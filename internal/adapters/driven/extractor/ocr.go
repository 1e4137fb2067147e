package extractor

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ocrResult is recognised text with its mean word confidence.
type ocrResult struct {
	Text       string
	Confidence float64
}

// ocrPDFPage rasterises one PDF page and recognises it.
func (e *Extractor) ocrPDFPage(ctx context.Context, path string, page int) (*ocrResult, error) {
	dir, err := os.MkdirTemp("", "docket-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("creating OCR workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	n := strconv.Itoa(page)
	if _, err := e.runner.Run(ctx, toolRasterise,
		"-r", strconv.Itoa(e.cfg.DPI), "-f", n, "-l", n, "-png", "-singlefile", path, prefix); err != nil {
		return nil, fmt.Errorf("rasterising page %d: %w", page, err)
	}
	return e.ocrImage(ctx, prefix+".png")
}

// ocrImage runs tesseract on an image file and parses its TSV output.
func (e *Extractor) ocrImage(ctx context.Context, path string) (*ocrResult, error) {
	out, err := e.runner.Run(ctx, toolOCR, path, "stdout", "-l", e.cfg.Language, "tsv")
	if err != nil {
		return nil, fmt.Errorf("recognising %s: %w", filepath.Base(path), err)
	}
	return parseTSV(out), nil
}

// tsvColumns is the tesseract TSV header width:
// level page_num block_num par_num line_num word_num left top width height conf text.
const tsvColumns = 12

// parseTSV rebuilds text from tesseract word rows. Words on one line are
// joined by spaces, lines by newlines and blocks or paragraphs by a blank line.
// Confidence is the mean over recognised words.
func parseTSV(data []byte) *ocrResult {
	var b strings.Builder
	var confSum float64
	var words int
	var lastBlock, lastPar, lastLine string

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	first := true
	for sc.Scan() {
		if first {
			first = false
			if strings.HasPrefix(sc.Text(), "level") {
				continue
			}
		}
		cols := strings.SplitN(sc.Text(), "\t", tsvColumns)
		if len(cols) < tsvColumns || cols[0] != "5" {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}

		block, par, line := cols[2], cols[3], cols[4]
		switch {
		case words == 0:
		case block != lastBlock || par != lastPar:
			b.WriteString("\n\n")
		case line != lastLine:
			b.WriteString("\n")
		default:
			b.WriteString(" ")
		}
		b.WriteString(text)
		lastBlock, lastPar, lastLine = block, par, line

		confSum += conf
		words++
	}

	res := &ocrResult{Text: b.String()}
	if words > 0 {
		res.Confidence = confSum / float64(words)
	}
	return res
}
