package render

import (
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	rpdf "rsc.io/pdf"
)

// Preflight verifies the PDF is readable before any page enters the
// worker pool. The rsc.io/pdf reader is a cheap structural check with no
// cgo involved; an unreadable source becomes a SourceError here rather
// than a mid-job failure.
func Preflight(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &SourceError{Path: path, Cause: err}
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return &SourceError{Path: path, Cause: err}
	}
	if _, err := rpdf.NewReader(f, st.Size()); err != nil {
		return &SourceError{Path: path, Cause: err}
	}
	return nil
}

// PageCount returns the PDF's page count, used for the job's initial
// progress total before rendering finishes.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, &SourceError{Path: path, Cause: err}
	}
	return n, nil
}
