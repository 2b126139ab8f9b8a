// Package ocr recognizes text in cover images through an external
// tesseract binary. Engines are expensive to probe, so callers obtain
// them through EngineFor, which caches one engine per language set.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"sortbook/internal/services"
)

var commandContext = exec.CommandContext

// Engine recognizes text in a raster image.
type Engine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
	Languages() []string
}

// Option configures the tesseract engine.
type Option func(*Tesseract)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(e *Tesseract) {
		if binary != "" {
			e.binary = binary
		}
	}
}

// WithLanguages sets the recognition languages.
func WithLanguages(languages []string) Option {
	return func(e *Tesseract) {
		if len(languages) > 0 {
			e.languages = append([]string(nil), languages...)
		}
	}
}

// WithMaxChars bounds the recognized text length. Zero means unbounded.
func WithMaxChars(limit int) Option {
	return func(e *Tesseract) {
		if limit > 0 {
			e.maxChars = limit
		}
	}
}

// WithGPU marks the engine as acceleration-preferring. Tesseract decides
// acceleration at build time, so the flag only distinguishes cached
// engines.
func WithGPU(enabled bool) Option {
	return func(e *Tesseract) {
		e.useGPU = enabled
	}
}

// Tesseract wraps the tesseract command-line recognizer.
type Tesseract struct {
	binary    string
	languages []string
	maxChars  int
	useGPU    bool
}

// NewTesseract constructs an engine using defaults.
func NewTesseract(opts ...Option) *Tesseract {
	engine := &Tesseract{binary: "tesseract", languages: []string{"eng"}}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Available reports whether the binary resolves on PATH.
func Available(binary string) bool {
	if binary == "" {
		binary = "tesseract"
	}
	_, err := exec.LookPath(binary)
	return err == nil
}

// Languages returns the configured recognition languages.
func (e *Tesseract) Languages() []string {
	return append([]string(nil), e.languages...)
}

// Recognize runs the binary over the image bytes and returns collapsed
// whitespace text.
func (e *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", errors.New("image data required")
	}

	tmp, err := os.CreateTemp("", "sortbook-ocr-*.img")
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp image: %w", err)
	}

	args := []string{tmp.Name(), "stdout", "-l", strings.Join(e.languages, "+")}
	cmd := commandContext(ctx, e.binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return "", services.Wrap(services.ErrExternalTool, "ocr", "recognize", detail, err)
	}

	text := strings.Join(strings.Fields(stdout.String()), " ")
	if e.maxChars > 0 {
		if runes := []rune(text); len(runes) > e.maxChars {
			text = string(runes[:e.maxChars])
		}
	}
	return text, nil
}

var _ Engine = (*Tesseract)(nil)
