// Package extractor turns PDF and raster image files into per-page text.
//
// PDF text layers are read natively. Pages whose text layer is too thin are
// rasterised with pdftoppm and recognised with tesseract. Raster images go
// straight to tesseract.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/custodia-labs/docket/internal/core/domain"
	"github.com/custodia-labs/docket/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true,
	".bmp": true, ".gif": true, ".webp": true,
}

var pdfMagic = []byte("%PDF")

// Extractor implements driven.TextExtractor.
type Extractor struct {
	cfg            domain.OCRSettings
	renderPatterns []*regexp.Regexp
	runner         CommandRunner
	open           openFunc
	logger         *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRunner replaces the command runner used for OCR tools.
func WithRunner(r CommandRunner) Option {
	return func(e *Extractor) { e.runner = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// withOpener replaces the PDF reader.
func withOpener(fn openFunc) Option {
	return func(e *Extractor) { e.open = fn }
}

// New creates an extractor. Zero-valued settings take their defaults.
func New(cfg domain.OCRSettings, opts ...Option) (*Extractor, error) {
	if cfg.DPI <= 0 {
		cfg.DPI = domain.DefaultOCRDPI
	}
	if cfg.MinChars <= 0 {
		cfg.MinChars = domain.DefaultOCRMinChars
	}
	if cfg.WarnConfidence <= 0 {
		cfg.WarnConfidence = domain.DefaultOCRWarnConfidence
	}
	if cfg.Language == "" {
		cfg.Language = domain.DefaultOCRLanguage
	}
	if cfg.RenderPatterns == nil {
		cfg.RenderPatterns = domain.DefaultRenderPatterns
	}

	e := &Extractor{
		cfg:    cfg,
		runner: execRunner{},
		open:   openPDF,
		logger: zap.NewNop(),
	}
	for _, p := range cfg.RenderPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: render pattern %q: %v", domain.ErrInvalidInput, p, err)
		}
		e.renderPatterns = append(e.renderPatterns, re)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Detect classifies path by extension, falling back to the PDF magic bytes.
func (e *Extractor) Detect(path string) (domain.FileKind, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", domain.ErrUnsupportedFileType, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		return domain.FileKindPDF, nil
	case imageExtensions[ext]:
		return domain.FileKindImage, nil
	}

	if hasPDFMagic(path) {
		return domain.FileKindPDF, nil
	}
	return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, filepath.Base(path))
}

func hasPDFMagic(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	head := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, head); err != nil {
		return false
	}
	return bytes.Equal(head, pdfMagic)
}

// IsRender reports whether the filename marks a non-text render such as a
// visualisation or photomontage.
func (e *Extractor) IsRender(path string) bool {
	name := strings.NewReplacer("_", " ", "-", " ").Replace(filepath.Base(path))
	for _, re := range e.renderPatterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// ImageRatio returns the average image coverage across pages.
// Renders report 1 and raster images report 0.
func (e *Extractor) ImageRatio(ctx context.Context, path string) (float64, error) {
	kind, err := e.Detect(path)
	if err != nil {
		return 0, err
	}
	if e.IsRender(path) {
		return 1, nil
	}
	if kind == domain.FileKindImage {
		return 0, nil
	}

	doc, err := e.open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: opening %s: %v", domain.ErrExtractionFailed, filepath.Base(path), err)
	}
	defer doc.Close()

	ratios := make([]float64, 0, doc.NumPages())
	for n := 1; n <= doc.NumPages(); n++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		r, err := doc.PageImageRatio(n)
		if err != nil {
			e.logger.Debug("image ratio unavailable", zap.String("file", filepath.Base(path)), zap.Error(err))
			r = 0
		}
		ratios = append(ratios, r)
	}
	return domain.AverageRatio(ratios), nil
}

// Extract returns per-page text for path.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.ExtractionResult, error) {
	kind, err := e.Detect(path)
	if err != nil {
		return nil, err
	}

	var result *domain.ExtractionResult
	switch kind {
	case domain.FileKindImage:
		result, err = e.extractImage(ctx, path)
	default:
		result, err = e.extractPDF(ctx, path)
	}
	if err != nil {
		return nil, err
	}
	if result.CharCount() == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoContent, filepath.Base(path))
	}
	return result, nil
}

func (e *Extractor) extractImage(ctx context.Context, path string) (*domain.ExtractionResult, error) {
	if e.IsRender(path) {
		e.logger.Debug("render image, skipping OCR", zap.String("file", filepath.Base(path)))
		return &domain.ExtractionResult{
			Pages:      []domain.PageResult{{Number: 1, Method: domain.MethodOCR, ImageRatio: 1}},
			ImageRatio: 1,
		}, nil
	}
	if !e.cfg.Enabled {
		return nil, fmt.Errorf("%w: %s is an image and OCR is disabled", domain.ErrNoContent, filepath.Base(path))
	}
	res, err := e.ocrImage(ctx, path)
	if err != nil {
		return nil, e.engineError(ctx, err)
	}
	page := e.ocrPage(path, 1, res)
	page.ImageRatio = 0
	return &domain.ExtractionResult{Pages: []domain.PageResult{page}}, nil
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (*domain.ExtractionResult, error) {
	doc, err := e.open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", domain.ErrExtractionFailed, filepath.Base(path), err)
	}
	defer doc.Close()

	render := e.IsRender(path)
	pages := make([]domain.PageResult, 0, doc.NumPages())
	ratios := make([]float64, 0, doc.NumPages())

	for n := 1; n <= doc.NumPages(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := doc.PageText(n)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrExtractionFailed, filepath.Base(path), err)
		}
		text := cleanText(raw)
		page := domain.PageResult{
			Number:    n,
			Text:      text,
			CharCount: utf8.RuneCountInString(text),
			Method:    domain.MethodTextLayer,
		}

		if render {
			page.ImageRatio = 1
		} else if r, err := doc.PageImageRatio(n); err == nil {
			page.ImageRatio = r
		}

		if !render && e.cfg.Enabled && contentChars(text) < e.cfg.MinChars {
			res, err := e.ocrPDFPage(ctx, path, n)
			if err != nil {
				return nil, e.engineError(ctx, err)
			}
			if ocrPage := e.ocrPage(path, n, res); ocrPage.CharCount > page.CharCount {
				ocrPage.ImageRatio = page.ImageRatio
				page = ocrPage
			}
		}

		pages = append(pages, page)
		ratios = append(ratios, page.ImageRatio)
	}

	return &domain.ExtractionResult{Pages: pages, ImageRatio: domain.AverageRatio(ratios)}, nil
}

// ocrPage turns OCR output into a page result, flagging low confidence.
func (e *Extractor) ocrPage(path string, n int, res *ocrResult) domain.PageResult {
	text := cleanText(res.Text)
	page := domain.PageResult{
		Number:        n,
		Text:          text,
		CharCount:     utf8.RuneCountInString(text),
		Method:        domain.MethodOCR,
		OCRConfidence: res.Confidence,
	}
	if page.CharCount > 0 && res.Confidence < e.cfg.WarnConfidence {
		page.LowConfidence = true
		e.logger.Warn("low OCR confidence",
			zap.String("file", filepath.Base(path)),
			zap.Int("page", n),
			zap.Float64("confidence", res.Confidence))
	}
	return page
}

// engineError wraps OCR failures, keeping cancellation distinguishable.
func (e *Extractor) engineError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, ErrToolNotFound) {
		return fmt.Errorf("%w: %w\n%s", domain.ErrExtractionFailed, err, InstallInstructions())
	}
	return fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
}
