package extractor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrToolNotFound is returned when an OCR tool is not installed.
var ErrToolNotFound = errors.New("OCR tool not found: pdftoppm and tesseract are required")

// Tool names.
const (
	toolRasterise = "pdftoppm"
	toolOCR       = "tesseract"
)

// CommandRunner runs external tools. Injected for tests.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

// Run executes name and returns its stdout. Stderr is included in the error.
func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	return out, nil
}

// CheckAvailable reports whether the OCR tools are on PATH.
func CheckAvailable() error {
	for _, tool := range []string{toolRasterise, toolOCR} {
		if _, err := exec.LookPath(tool); err != nil {
			return fmt.Errorf("%w: %s", ErrToolNotFound, tool)
		}
	}
	return nil
}

// InstallInstructions returns platform-specific installation instructions.
func InstallInstructions() string {
	return `OCR needs pdftoppm (poppler) and tesseract. Install them with:

  macOS:         brew install poppler tesseract
  Ubuntu/Debian: sudo apt install poppler-utils tesseract-ocr
  Fedora:        sudo dnf install poppler-utils tesseract
  Arch:          sudo pacman -S poppler tesseract tesseract-data-eng

Or disable OCR with ocr.enabled = false.`
}
