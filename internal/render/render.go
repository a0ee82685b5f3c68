// Package render turns PDF pages into PNG images for the vision oracle.
package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// DefaultDPI matches the resolution the extraction prompts were tuned
// against.
const DefaultDPI = 200

// Renderer produces a PNG image of one PDF page.
type Renderer interface {
	RenderPage(ctx context.Context, pdfPath string, pageNumber int) ([]byte, error)
}

// PopplerRenderer renders pages by shelling out to pdftoppm.
type PopplerRenderer struct {
	// Binary is the pdftoppm executable. Empty means "pdftoppm" on PATH.
	Binary string
	// DPI is the render resolution. Zero means DefaultDPI.
	DPI int
}

// RenderPage renders the 1-based pageNumber of the PDF at pdfPath to PNG.
func (r *PopplerRenderer) RenderPage(ctx context.Context, pdfPath string, pageNumber int) ([]byte, error) {
	binary := r.Binary
	if binary == "" {
		binary = "pdftoppm"
	}
	dpi := r.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	dir, err := os.MkdirTemp("", "scopematch-render-")
	if err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}
	defer os.RemoveAll(dir)

	out := filepath.Join(dir, "page")
	page := strconv.Itoa(pageNumber)
	cmd := exec.CommandContext(ctx, binary,
		"-png",
		"-r", strconv.Itoa(dpi),
		"-f", page,
		"-l", page,
		"-singlefile",
		pdfPath,
		out,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("render page %d of %s: %w: %s", pageNumber, filepath.Base(pdfPath), err, output)
	}

	png, err := os.ReadFile(out + ".png")
	if err != nil {
		return nil, fmt.Errorf("read rendered page %d: %w", pageNumber, err)
	}
	return png, nil
}
