package extractor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docket/internal/core/domain"
	"github.com/custodia-labs/docket/internal/core/ports/driven"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	tsv   string
	err   error
	calls []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.calls = append(m.calls, name+" "+strings.Join(args, " "))
	if m.err != nil {
		return nil, m.err
	}
	if name == toolOCR {
		return []byte(m.tsv), nil
	}
	return nil, nil
}

// fakeDocument serves fixed page texts and ratios.
type fakeDocument struct {
	texts  []string
	ratios []float64
	err    error
}

func (d *fakeDocument) NumPages() int { return len(d.texts) }

func (d *fakeDocument) PageText(n int) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	return d.texts[n-1], nil
}

func (d *fakeDocument) PageImageRatio(n int) (float64, error) {
	if d.ratios == nil {
		return 0, nil
	}
	return d.ratios[n-1], nil
}

func (d *fakeDocument) Close() error { return nil }

func opener(doc *fakeDocument) openFunc {
	return func(string) (document, error) { return doc, nil }
}

const tsvHeader = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n"

func tsvWord(block, par, line int, conf, text string) string {
	return strings.Join([]string{"5", "1",
		itoa(block), itoa(par), itoa(line), "1", "0", "0", "10", "10", conf, text}, "\t") + "\n"
}

func itoa(n int) string { return string(rune('0' + n)) }

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func newExtractor(t *testing.T, cfg domain.OCRSettings, opts ...Option) *Extractor {
	t.Helper()
	e, err := New(cfg, opts...)
	require.NoError(t, err)
	return e
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.TextExtractor = (*Extractor)(nil)
}

func TestNew_InvalidRenderPattern(t *testing.T) {
	_, err := New(domain.OCRSettings{RenderPatterns: []string{"("}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDetect(t *testing.T) {
	e := newExtractor(t, domain.OCRSettings{})

	pdfPath := writeFile(t, "a.PDF", []byte("%PDF-1.7"))
	kind, err := e.Detect(pdfPath)
	require.NoError(t, err)
	assert.Equal(t, domain.FileKindPDF, kind)

	magic := writeFile(t, "noext", []byte("%PDF-1.4 rest"))
	kind, err = e.Detect(magic)
	require.NoError(t, err)
	assert.Equal(t, domain.FileKindPDF, kind)

	img := writeFile(t, "scan.jpeg", []byte{0xff, 0xd8})
	kind, err = e.Detect(img)
	require.NoError(t, err)
	assert.Equal(t, domain.FileKindImage, kind)

	_, err = e.Detect(writeFile(t, "notes.docx", []byte("PK")))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)

	_, err = e.Detect(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorIs(t, err, domain.ErrFileNotFound)

	_, err = e.Detect(t.TempDir())
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}

func TestIsRender(t *testing.T) {
	e := newExtractor(t, domain.OCRSettings{})

	assert.True(t, e.IsRender("/x/Site_Visualisation_01.pdf"))
	assert.True(t, e.IsRender("/x/photomontage-view-2.pdf"))
	assert.True(t, e.IsRender("/x/proposed_render.pdf"))
	assert.True(t, e.IsRender("/x/Street-Scene.pdf"))
	assert.False(t, e.IsRender("/x/planning_statement.pdf"))
	assert.False(t, e.IsRender("/x/surrender_notice.pdf"))
}

func TestExtract_TextLayer(t *testing.T) {
	long := strings.Repeat("The proposed development accords with policy. ", 3)
	doc := &fakeDocument{texts: []string{long, long + "\r\n\r\n\r\n\r\nEnd."}, ratios: []float64{0.2, 0.4}}
	runner := &mockRunner{}
	e := newExtractor(t, domain.OCRSettings{Enabled: true}, withOpener(opener(doc)), WithRunner(runner))

	res, err := e.Extract(context.Background(), writeFile(t, "statement.pdf", []byte("%PDF")))
	require.NoError(t, err)

	require.Len(t, res.Pages, 2)
	assert.Equal(t, 1, res.Pages[0].Number)
	assert.Equal(t, domain.MethodTextLayer, res.Method())
	assert.NotContains(t, res.Pages[1].Text, "\r")
	assert.NotContains(t, res.Pages[1].Text, "\n\n\n")
	assert.InDelta(t, 0.3, res.ImageRatio, 1e-9)
	assert.Empty(t, runner.calls, "OCR must not run on pages with a text layer")
}

func TestExtract_OCRFallback(t *testing.T) {
	doc := &fakeDocument{texts: []string{strings.Repeat("Text layer page. ", 5), ""}}
	runner := &mockRunner{tsv: tsvHeader +
		tsvWord(1, 1, 1, "91.5", "Scanned") +
		tsvWord(1, 1, 1, "88.5", "heading") +
		tsvWord(1, 1, 2, "90", "second") +
		tsvWord(2, 1, 1, "90", "Next")}
	e := newExtractor(t, domain.OCRSettings{Enabled: true, DPI: 150},
		withOpener(opener(doc)), WithRunner(runner))

	res, err := e.Extract(context.Background(), writeFile(t, "scan.pdf", []byte("%PDF")))
	require.NoError(t, err)

	page := res.Pages[1]
	assert.Equal(t, domain.MethodOCR, page.Method)
	assert.Equal(t, "Scanned heading\nsecond\n\nNext", page.Text)
	assert.InDelta(t, 90, page.OCRConfidence, 1e-9)
	assert.False(t, page.LowConfidence)
	assert.Equal(t, domain.MethodMixed, res.Method())

	require.Len(t, runner.calls, 2)
	assert.Contains(t, runner.calls[0], "pdftoppm -r 150 -f 2 -l 2 -png")
	assert.Contains(t, runner.calls[1], "tesseract")
}

func TestExtract_LowConfidence(t *testing.T) {
	doc := &fakeDocument{texts: []string{""}}
	runner := &mockRunner{tsv: tsvHeader + tsvWord(1, 1, 1, "30", "blurry")}
	e := newExtractor(t, domain.OCRSettings{Enabled: true}, withOpener(opener(doc)), WithRunner(runner))

	res, err := e.Extract(context.Background(), writeFile(t, "scan.pdf", []byte("%PDF")))
	require.NoError(t, err)
	assert.True(t, res.Pages[0].LowConfidence)
}

func TestExtract_NoContent(t *testing.T) {
	doc := &fakeDocument{texts: []string{"", "  "}}
	runner := &mockRunner{tsv: tsvHeader}
	e := newExtractor(t, domain.OCRSettings{Enabled: true}, withOpener(opener(doc)), WithRunner(runner))

	_, err := e.Extract(context.Background(), writeFile(t, "blank.pdf", []byte("%PDF")))
	assert.ErrorIs(t, err, domain.ErrNoContent)
}

func TestExtract_OCRDisabledKeepsThinText(t *testing.T) {
	doc := &fakeDocument{texts: []string{"Short."}}
	runner := &mockRunner{}
	e := newExtractor(t, domain.OCRSettings{Enabled: false}, withOpener(opener(doc)), WithRunner(runner))

	res, err := e.Extract(context.Background(), writeFile(t, "short.pdf", []byte("%PDF")))
	require.NoError(t, err)
	assert.Equal(t, "Short.", res.Pages[0].Text)
	assert.Empty(t, runner.calls)
}

func TestExtract_ToolFailure(t *testing.T) {
	doc := &fakeDocument{texts: []string{""}}
	runner := &mockRunner{err: ErrToolNotFound}
	e := newExtractor(t, domain.OCRSettings{Enabled: true}, withOpener(opener(doc)), WithRunner(runner))

	_, err := e.Extract(context.Background(), writeFile(t, "scan.pdf", []byte("%PDF")))
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestExtract_ParseFailure(t *testing.T) {
	doc := &fakeDocument{texts: []string{"x"}, err: errors.New("malformed xref")}
	e := newExtractor(t, domain.OCRSettings{}, withOpener(opener(doc)))

	_, err := e.Extract(context.Background(), writeFile(t, "broken.pdf", []byte("%PDF")))
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestExtract_RenderBypassesOCR(t *testing.T) {
	doc := &fakeDocument{texts: []string{"", "Proposed view from the north east"}}
	runner := &mockRunner{}
	e := newExtractor(t, domain.OCRSettings{Enabled: true}, withOpener(opener(doc)), WithRunner(runner))
	path := writeFile(t, "CGI_view.pdf", []byte("%PDF"))

	res, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, runner.calls)
	assert.Equal(t, 1.0, res.ImageRatio)

	ratio, err := e.ImageRatio(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1.0, ratio)
}

func TestExtract_RenderImageBypassesOCR(t *testing.T) {
	runner := &mockRunner{tsv: tsvHeader + tsvWord(1, 1, 1, "95", "Hello")}
	e := newExtractor(t, domain.OCRSettings{Enabled: true}, WithRunner(runner))
	path := writeFile(t, "Street_Scene_Visualisation.png", []byte{0x89, 'P', 'N', 'G'})

	_, err := e.Extract(context.Background(), path)
	require.ErrorIs(t, err, domain.ErrNoContent)
	assert.Empty(t, runner.calls)
}

func TestExtract_Image(t *testing.T) {
	runner := &mockRunner{tsv: tsvHeader + tsvWord(1, 1, 1, "95", "Decision") + tsvWord(1, 1, 1, "95", "notice")}
	e := newExtractor(t, domain.OCRSettings{Enabled: true}, WithRunner(runner))
	path := writeFile(t, "notice.png", []byte{0x89, 'P', 'N', 'G'})

	res, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, res.Pages, 1)
	assert.Equal(t, "Decision notice", res.Pages[0].Text)
	assert.Equal(t, domain.MethodOCR, res.Method())
	assert.Equal(t, 0.0, res.ImageRatio)

	ratio, err := e.ImageRatio(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ratio)
}

func TestImageRatio_AveragesPages(t *testing.T) {
	doc := &fakeDocument{texts: []string{"a", "b", "c", "d"}, ratios: []float64{1, 1, 0.5, 0.3}}
	e := newExtractor(t, domain.OCRSettings{}, withOpener(opener(doc)))

	ratio, err := e.ImageRatio(context.Background(), writeFile(t, "plans.pdf", []byte("%PDF")))
	require.NoError(t, err)
	assert.InDelta(t, 0.7, ratio, 1e-9)
}

func TestParseTSV_SkipsNonWords(t *testing.T) {
	data := tsvHeader +
		"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t\n" +
		tsvWord(1, 1, 1, "-1", "ghost") +
		tsvWord(1, 1, 1, "80", "real") +
		tsvWord(1, 1, 1, "60", "  ")
	res := parseTSV([]byte(data))
	assert.Equal(t, "real", res.Text)
	assert.InDelta(t, 80, res.Confidence, 1e-9)

	assert.Equal(t, 0.0, parseTSV(nil).Confidence)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a\n\nb", cleanText("  a  \r\n\r\n\r\n\r\nb\x00  "))
	assert.Equal(t, "", cleanText(" \n\t "))
}

func TestMatrix(t *testing.T) {
	scale := matrix{200, 0, 0, 100, 50, 50}
	assert.InDelta(t, 20000, scale.mul(identity).unitArea(), 1e-9)

	half := matrix{0.5, 0, 0, 0.5, 0, 0}
	assert.InDelta(t, 5000, scale.mul(half).unitArea(), 1e-9)

	assert.Equal(t, 1.0, clampRatio(3))
	assert.Equal(t, 0.0, clampRatio(-1))
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "pdftoppm")
	assert.Contains(t, instructions, "tesseract")
	assert.Contains(t, instructions, "brew install poppler tesseract")
}
