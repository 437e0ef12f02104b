// Package render turns a source document into the ordered page-image
// sequence the recognition pipeline consumes. PDF pages are rasterised
// with MuPDF at a configurable DPI; embedded images are pulled out with
// pdfcpu; plain image files become single synthetic pages.
package render

import (
	"bytes"
	"fmt"
	"image/png"
	"mime"
	"os"
	"path/filepath"
	"strings"

	fitz "github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// SourceMode selects which images of a PDF are recognised.
type SourceMode string

const (
	SourceEmbedded SourceMode = "embedded"
	SourcePage     SourceMode = "page"
	SourceBoth     SourceMode = "both"
)

// Page is one rendered image plus its position in processing order.
// Immutable once rendered.
type Page struct {
	Index int
	Name  string
	MIME  string
	Data  []byte
}

// SourceError marks an unreadable or corrupt input; it fails the whole
// job before any page is dispatched.
type SourceError struct {
	Path  string
	Cause error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("unreadable source %s: %v", e.Path, e.Cause)
}

func (e *SourceError) Unwrap() error { return e.Cause }

// Renderer produces page sequences from PDF sources.
type Renderer struct {
	DPI    int
	Source SourceMode
}

// RenderPDF produces the page sequence for one PDF in source order:
// embedded images first (page order), then full-page rasters. The order
// matches the extraction order, not a filename re-sort.
func (r *Renderer) RenderPDF(path string) ([]Page, error) {
	if err := Preflight(path); err != nil {
		return nil, err
	}
	dpi := r.DPI
	if dpi <= 0 {
		dpi = 200
	}
	mode := r.Source
	if mode == "" {
		mode = SourceBoth
	}

	var pages []Page
	if mode == SourceEmbedded || mode == SourceBoth {
		embedded, err := extractEmbedded(path)
		if err != nil {
			return nil, &SourceError{Path: path, Cause: err}
		}
		pages = append(pages, embedded...)
	}
	if mode == SourcePage || mode == SourceBoth {
		rendered, err := renderFullPages(path, dpi)
		if err != nil {
			return nil, &SourceError{Path: path, Cause: err}
		}
		pages = append(pages, rendered...)
	}
	for i := range pages {
		pages[i].Index = i
	}
	return pages, nil
}

// renderFullPages rasterises every page to PNG at the requested DPI.
func renderFullPages(path string, dpi int) ([]Page, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open for rasterization: %w", err)
	}
	defer doc.Close()

	pages := make([]Page, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		img, err := doc.ImageDPI(n, float64(dpi))
		if err != nil {
			return nil, fmt.Errorf("rasterize page %d: %w", n+1, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", n+1, err)
		}
		pages = append(pages, Page{
			Name: fmt.Sprintf("page-%d-full.png", n+1),
			MIME: "image/png",
			Data: buf.Bytes(),
		})
	}
	return pages, nil
}

// extractEmbedded pulls the PDF's embedded raster images into a scratch
// directory via pdfcpu and loads them back in natural name order, which
// pdfcpu emits keyed by page number.
func extractEmbedded(path string) ([]Page, error) {
	tmp, err := os.MkdirTemp("", "pdf2word-embedded-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractImagesFile(path, tmp, nil, conf); err != nil {
		return nil, fmt.Errorf("extract embedded images: %w", err)
	}
	entries, err := os.ReadDir(tmp)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	SortNatural(names)

	pages := make([]Page, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(tmp, name))
		if err != nil {
			return nil, err
		}
		pages = append(pages, Page{Name: name, MIME: mimeFor(name), Data: data})
	}
	return pages, nil
}

// imageExts are the image inputs accepted alongside PDFs.
var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".bmp": true, ".webp": true,
}

// IsImagePath reports whether the file is a supported image input.
func IsImagePath(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// LoadImages builds the page sequence for an image batch. Files are
// ordered by natural filename sort so img2 comes before img10.
func LoadImages(paths []string) ([]Page, error) {
	names := append([]string(nil), paths...)
	SortNatural(names)

	pages := make([]Page, 0, len(names))
	for i, p := range names {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, &SourceError{Path: p, Cause: err}
		}
		pages = append(pages, Page{
			Index: i,
			Name:  filepath.Base(p),
			MIME:  mimeFor(p),
			Data:  data,
		})
	}
	return pages, nil
}

func mimeFor(path string) string {
	if mt := mime.TypeByExtension(filepath.Ext(path)); mt != "" {
		return mt
	}
	return "image/png"
}
