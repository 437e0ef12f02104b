// Package structure infers typed document nodes from raw per-page
// recognition output: heading levels from font-size classes, list items
// from enumerator patterns, repaired row/cell grids for tables, and
// best-effort suppression of watermark noise.
package structure

import (
	"strings"

	"github.com/visionocr/pdf2word/internal/ocr"
)

// NodeKind is the variant tag of a document node.
type NodeKind int

const (
	KindHeading NodeKind = iota
	KindParagraph
	KindListItem
	KindTable
	// kindSkip marks blocks that produce no output (noise, empties).
	kindSkip
)

// Node is one typed unit of final document structure, in document order.
type Node struct {
	Kind NodeKind
	// Level is 1..3 for headings.
	Level int
	Text  string
	// Marker is the retained ordinal or bullet for list items, without
	// trailing punctuation ("1", "a", "•").
	Marker string
	Rows   [][]string
	// Page is the zero-based source page index the node derives from.
	Page int
}

// PageResult associates one page's recognition output with its index.
// Err is set when recognition permanently failed for the page; such pages
// contribute no nodes but are reported by Build.
type PageResult struct {
	Index  int
	Name   string
	Result ocr.RecognitionResult
	Err    error
}

// Watermark suppression: identical text recurring on this fraction of
// pages (and on at least WatermarkMinPages of them) at a stable position
// is treated as a repeated background element.
const (
	WatermarkPageFraction = 0.6
	WatermarkMinPages     = 3
)

// Build consumes recognition results in page order and produces the ordered
// node sequence for the whole job plus the indices of failed pages. Output
// order is exactly document order: page index ascending, then block order
// as received from the model. No re-ranking across pages happens.
func Build(pages []PageResult) ([]Node, []int) {
	repeated := repeatedBlocks(pages)

	var nodes []Node
	var failed []int
	for _, pg := range pages {
		if pg.Err != nil {
			failed = append(failed, pg.Index)
			continue
		}
		baseline := pageBaseline(pg.Result.Blocks)
		for _, b := range pg.Result.Blocks {
			if isNoise(b, repeated) {
				continue
			}
			nodes = append(nodes, blockNodes(b, baseline, pg.Index)...)
		}
	}
	return nodes, failed
}

// blockNodes expands one block into zero or more nodes.
func blockNodes(b ocr.Block, baseline SizeRank, page int) []Node {
	switch {
	case b.Type == "table" || len(b.Rows) > 0:
		rows := RepairRows(b.Rows)
		if len(rows) == 0 {
			return nil
		}
		return []Node{{Kind: KindTable, Rows: rows, Page: page}}
	case b.Type == "list" || len(b.Items) > 0:
		var out []Node
		for _, item := range b.Items {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			n := Node{Kind: KindListItem, Text: item, Marker: "•", Page: page}
			if marker, rest, ok := SplitEnumerator(item); ok {
				n.Marker, n.Text = marker, rest
			}
			out = append(out, n)
		}
		return out
	}

	text := strings.TrimSpace(b.Text)
	if text == "" {
		return nil
	}
	kind, level := Classify(b, baseline)
	switch kind {
	case KindHeading:
		return []Node{{Kind: KindHeading, Level: level, Text: text, Page: page}}
	case kindSkip:
		return nil
	}
	if marker, rest, ok := SplitEnumerator(text); ok {
		return []Node{{Kind: KindListItem, Text: rest, Marker: marker, Page: page}}
	}
	return []Node{{Kind: KindParagraph, Text: text, Page: page}}
}

// Classify decides whether a text block is a heading and at which level,
// from its font-size class relative to the page's body baseline and its
// vertical position. It is a pure function of its inputs.
//
// The rank delta over the baseline maps to levels 3/2/1; a top-of-page
// block one step short of level 1 is promoted, since page-top blocks with
// a large size class rank higher. Heading levels are monotonic by
// evidence only: an h3-sized block may directly follow an h1-sized one.
func Classify(b ocr.Block, baseline SizeRank) (NodeKind, int) {
	if b.Type == "watermark" || b.Type == "stamp" {
		return kindSkip, 0
	}
	rank, known := rankOf(b.Size)
	if !known {
		// No size estimate: fall back to the model's role hint.
		switch b.Type {
		case "h1":
			return KindHeading, 1
		case "h2":
			return KindHeading, 2
		case "h3":
			return KindHeading, 3
		}
		return KindParagraph, 0
	}
	if rank <= baseline || rank == rankSmall {
		return KindParagraph, 0
	}
	delta := int(rank - baseline)
	switch {
	case delta >= 3:
		return KindHeading, 1
	case delta == 2:
		if b.Position == "top" {
			return KindHeading, 1
		}
		return KindHeading, 2
	default:
		return KindHeading, 3
	}
}

type SizeRank int

const (
	rankSmall SizeRank = iota
	rankBody
	rankH3
	rankH2
	rankH1
)

func rankOf(size string) (SizeRank, bool) {
	switch strings.ToLower(strings.TrimSpace(size)) {
	case "small-size", "small":
		return rankSmall, true
	case "body-size", "body":
		return rankBody, true
	case "h3-size", "h3":
		return rankH3, true
	case "h2-size", "h2":
		return rankH2, true
	case "h1-size", "h1":
		return rankH1, true
	}
	return rankBody, false
}

// pageBaseline is the page's body-text size: the most frequent class among
// body and small sized blocks. Heading-sized classes never vote, so a page
// whose only text is a large title still classifies it against a body
// baseline. Ties go to body.
func pageBaseline(blocks []ocr.Block) SizeRank {
	small, body := 0, 0
	for _, b := range blocks {
		if b.Type == "table" || len(b.Rows) > 0 {
			continue
		}
		switch r, ok := rankOf(b.Size); {
		case !ok:
		case r == rankSmall:
			small++
		case r == rankBody:
			body++
		}
	}
	if small > body {
		return rankSmall
	}
	return rankBody
}

// isNoise reports whether a block is watermark/stamp noise, either by the
// model's role hint or by the repeated-background signature.
func isNoise(b ocr.Block, repeated map[string]bool) bool {
	if b.Type == "watermark" || b.Type == "stamp" {
		return true
	}
	if len(b.Rows) > 0 || len(b.Items) > 0 {
		return false
	}
	return repeated[noiseKey(b)]
}

func noiseKey(b ocr.Block) string {
	return strings.TrimSpace(b.Text) + "\x00" + b.Position
}

// repeatedBlocks finds text that recurs across a threshold fraction of
// pages at a stable position. Best effort: it catches the common
// every-page watermark, not every background element.
func repeatedBlocks(pages []PageResult) map[string]bool {
	if len(pages) < WatermarkMinPages {
		return nil
	}
	onPages := make(map[string]map[int]bool)
	for _, pg := range pages {
		if pg.Err != nil {
			continue
		}
		for _, b := range pg.Result.Blocks {
			if len(b.Rows) > 0 || len(b.Items) > 0 || strings.TrimSpace(b.Text) == "" {
				continue
			}
			k := noiseKey(b)
			if onPages[k] == nil {
				onPages[k] = make(map[int]bool)
			}
			onPages[k][pg.Index] = true
		}
	}
	threshold := int(WatermarkPageFraction * float64(len(pages)))
	if threshold < WatermarkMinPages {
		threshold = WatermarkMinPages
	}
	out := make(map[string]bool)
	for k, pgs := range onPages {
		if len(pgs) >= threshold {
			out[k] = true
		}
	}
	return out
}

// RepairRows normalises a table grid to a consistent column count: short
// rows are padded with empty cells up to the widest row. Rows are never
// dropped.
func RepairRows(rows [][]string) [][]string {
	if len(rows) == 0 {
		return nil
	}
	cols := 0
	for _, r := range rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	if cols == 0 {
		return nil
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		row := make([]string, cols)
		copy(row, r)
		out[i] = row
	}
	return out
}
