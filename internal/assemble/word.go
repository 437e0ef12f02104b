// Package assemble folds an ordered document-node sequence into a single
// output artifact. The fold is a pure function of its input: identical
// node sequences always yield a structurally identical document.
package assemble

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	docx "github.com/fumiama/go-docx"

	"github.com/visionocr/pdf2word/internal/structure"
)

// AssemblyError marks a document serialization failure; it is fatal for
// the job and produces no partial output.
type AssemblyError struct {
	Path  string
	Cause error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assemble %s: %v", e.Path, e.Cause)
}

func (e *AssemblyError) Unwrap() error { return e.Cause }

// Font sizes in half-points, matching the original output styling:
// 22pt/16pt/14pt headings over an 11pt body.
var headingSizes = map[int]string{1: "44", 2: "32", 3: "28"}

const bodySize = "22"

// WriteWord serializes the node sequence to a .docx at path, appending
// each node as the corresponding document element in sequence. failed
// lists zero-based indices of pages whose recognition permanently failed;
// they are surfaced as a note at the end of the document.
func WriteWord(nodes []structure.Node, failed []int, path string) error {
	doc := docx.New().WithDefaultTheme()

	if len(nodes) == 0 {
		writeEmptyNotice(doc)
	} else {
		lastPage := -1
		for _, n := range nodes {
			if lastPage >= 0 && n.Page != lastPage {
				doc.AddParagraph()
			}
			lastPage = n.Page
			appendNode(doc, n)
		}
	}
	if len(failed) > 0 {
		doc.AddParagraph()
		doc.AddParagraph().AddText(failedNote(failed)).Size(bodySize).Bold()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &AssemblyError{Path: path, Cause: err}
	}
	f, err := os.Create(path)
	if err != nil {
		return &AssemblyError{Path: path, Cause: err}
	}
	defer f.Close()
	if _, err := doc.WriteTo(f); err != nil {
		return &AssemblyError{Path: path, Cause: err}
	}
	return nil
}

func appendNode(doc *docx.Docx, n structure.Node) {
	switch n.Kind {
	case structure.KindHeading:
		size, ok := headingSizes[n.Level]
		if !ok {
			size = headingSizes[3]
		}
		doc.AddParagraph().AddText(n.Text).Size(size).Bold()
	case structure.KindListItem:
		doc.AddParagraph().AddText(listLine(n)).Size(bodySize)
	case structure.KindTable:
		appendTable(doc, n.Rows)
	default:
		doc.AddParagraph().AddText(n.Text).Size(bodySize)
	}
}

// listLine re-renders the retained marker in front of the item text:
// ordinals get their dot back, glyphs stand alone.
func listLine(n structure.Node) string {
	if structure.IsBulletMarker(n.Marker) {
		return "• " + n.Text
	}
	return n.Marker + ". " + n.Text
}

func appendTable(doc *docx.Docx, rows [][]string) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}
	tbl := doc.AddTable(len(rows), len(rows[0]), 0, nil)
	for i, row := range tbl.TableRows {
		for j, cell := range row.TableCells {
			text := ""
			if i < len(rows) && j < len(rows[i]) {
				text = rows[i][j]
			}
			cell.AddParagraph().AddText(text).Size(bodySize)
		}
	}
	// Breathing room after the grid.
	doc.AddParagraph()
}

func writeEmptyNotice(doc *docx.Docx) {
	for _, line := range []string{
		"No text content was recognised.",
		"",
		"Possible causes:",
		"1. Source mode is set to embedded but the PDF's embedded images contain no text.",
		"2. Image quality is too low for the model to recognise.",
		"",
		"Try source mode \"page\" or \"both\" for native PDFs, or a higher DPI for scans.",
	} {
		doc.AddParagraph().AddText(line).Size(bodySize)
	}
}

func failedNote(failed []int) string {
	pages := make([]string, len(failed))
	for i, p := range failed {
		pages[i] = strconv.Itoa(p + 1)
	}
	return fmt.Sprintf("Note: page(s) %s could not be recognised and are missing from this document.",
		strings.Join(pages, ", "))
}
