package structure_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionocr/pdf2word/internal/ocr"
	"github.com/visionocr/pdf2word/internal/structure"
)

func page(idx int, blocks ...ocr.Block) structure.PageResult {
	return structure.PageResult{
		Index:  idx,
		Result: ocr.RecognitionResult{Status: "ok", Blocks: blocks},
	}
}

func TestBuildTwoPageScenario(t *testing.T) {
	pages := []structure.PageResult{
		page(0,
			ocr.Block{Type: "h1", Text: "title", Size: "h1-size", Position: "top"},
			ocr.Block{Type: "paragraph", Text: "body text", Size: "body-size", Position: "mid"},
		),
		page(1,
			ocr.Block{Type: "paragraph", Text: "1. first item", Size: "body-size", Position: "top"},
		),
	}

	nodes, failed := structure.Build(pages)
	require.Empty(t, failed)
	require.Len(t, nodes, 3)

	assert.Equal(t, structure.KindHeading, nodes[0].Kind)
	assert.Equal(t, 1, nodes[0].Level)
	assert.Equal(t, "title", nodes[0].Text)

	assert.Equal(t, structure.KindParagraph, nodes[1].Kind)
	assert.Equal(t, "body text", nodes[1].Text)

	assert.Equal(t, structure.KindListItem, nodes[2].Kind)
	assert.Equal(t, "first item", nodes[2].Text)
	assert.Equal(t, "1", nodes[2].Marker)
}

func TestBuildPreservesPageOrder(t *testing.T) {
	pages := []structure.PageResult{
		page(0, ocr.Block{Type: "paragraph", Text: "alpha", Size: "body-size"}),
		page(1, ocr.Block{Type: "paragraph", Text: "beta", Size: "body-size"}),
		page(2, ocr.Block{Type: "paragraph", Text: "gamma", Size: "body-size"}),
	}
	nodes, _ := structure.Build(pages)
	require.Len(t, nodes, 3)
	for i := 1; i < len(nodes); i++ {
		assert.GreaterOrEqual(t, nodes[i].Page, nodes[i-1].Page)
	}
}

func TestHeadingMonotonicityNotForced(t *testing.T) {
	pages := []structure.PageResult{
		page(0,
			ocr.Block{Type: "h1", Text: "big", Size: "h1-size", Position: "top"},
			ocr.Block{Type: "h3", Text: "small heading", Size: "h3-size", Position: "mid"},
			ocr.Block{Type: "paragraph", Text: "body", Size: "body-size"},
			ocr.Block{Type: "paragraph", Text: "more body", Size: "body-size"},
		),
	}
	nodes, _ := structure.Build(pages)
	require.Len(t, nodes, 4)
	assert.Equal(t, 1, nodes[0].Level)
	assert.Equal(t, 3, nodes[1].Level)
}

func TestTitleOnlyPageKeepsHeading(t *testing.T) {
	// A cover page whose only text is the title must not demote it to a
	// paragraph just because nothing body-sized shares the page.
	pages := []structure.PageResult{
		page(0, ocr.Block{Type: "h1", Text: "Annual Report 2024", Size: "h1-size", Position: "top"}),
	}
	nodes, _ := structure.Build(pages)
	require.Len(t, nodes, 1)
	assert.Equal(t, structure.KindHeading, nodes[0].Kind)
	assert.Equal(t, 1, nodes[0].Level)
}

func TestClassifyRoleHintFallback(t *testing.T) {
	// No size estimate at all: the model's role hint decides.
	kind, level := structure.Classify(ocr.Block{Type: "h2", Text: "x"}, 0)
	assert.Equal(t, structure.KindHeading, kind)
	assert.Equal(t, 2, level)

	kind, _ = structure.Classify(ocr.Block{Type: "paragraph", Text: "x"}, 0)
	assert.Equal(t, structure.KindParagraph, kind)
}

func TestTopPositionBoost(t *testing.T) {
	pages := []structure.PageResult{
		page(0,
			ocr.Block{Type: "h2", Text: "cover title", Size: "h2-size", Position: "top"},
			ocr.Block{Type: "paragraph", Text: "a", Size: "body-size"},
			ocr.Block{Type: "paragraph", Text: "b", Size: "body-size"},
		),
	}
	nodes, _ := structure.Build(pages)
	require.NotEmpty(t, nodes)
	assert.Equal(t, structure.KindHeading, nodes[0].Kind)
	assert.Equal(t, 1, nodes[0].Level, "h2-size at page top ranks as level 1")
}

func TestTableRepairPadsShortRows(t *testing.T) {
	rows := [][]string{
		{"a", "b", "c", "d"},
		{"e", "f"},
		{"g", "h", "i", "j"},
	}
	repaired := structure.RepairRows(rows)
	require.Len(t, repaired, 3, "rows must never be dropped")
	for _, r := range repaired {
		assert.Len(t, r, 4)
	}
	assert.Equal(t, []string{"e", "f", "", ""}, repaired[1])
}

func TestListBlockExpandsItems(t *testing.T) {
	pages := []structure.PageResult{
		page(0, ocr.Block{Type: "list", Items: []string{"2) second", "plain entry"}}),
	}
	nodes, _ := structure.Build(pages)
	require.Len(t, nodes, 2)
	assert.Equal(t, "2", nodes[0].Marker)
	assert.Equal(t, "second", nodes[0].Text)
	assert.Equal(t, "•", nodes[1].Marker)
	assert.Equal(t, "plain entry", nodes[1].Text)
}

func TestWatermarkSuppression(t *testing.T) {
	wm := ocr.Block{Type: "paragraph", Text: "CONFIDENTIAL", Size: "small-size", Position: "bottom"}
	var pages []structure.PageResult
	for i := 0; i < 5; i++ {
		pages = append(pages, page(i,
			ocr.Block{Type: "paragraph", Text: fmt.Sprintf("content of page %d", i+1), Size: "body-size"},
			wm,
		))
	}
	nodes, _ := structure.Build(pages)
	require.Len(t, nodes, 5, "per-page content survives, the recurring watermark does not")
	for _, n := range nodes {
		assert.NotEqual(t, "CONFIDENTIAL", n.Text)
	}

	// Explicit role hints are dropped regardless of recurrence.
	single := []structure.PageResult{
		page(0, ocr.Block{Type: "watermark", Text: "DRAFT"}, ocr.Block{Type: "paragraph", Text: "kept", Size: "body-size"}),
	}
	nodes, _ = structure.Build(single)
	require.Len(t, nodes, 1)
	assert.Equal(t, "kept", nodes[0].Text)
}

func TestFailedPagesReportedNotEmitted(t *testing.T) {
	pages := []structure.PageResult{
		page(0, ocr.Block{Type: "paragraph", Text: "ok", Size: "body-size"}),
		{Index: 1, Err: errors.New("retries exhausted")},
		page(2, ocr.Block{Type: "paragraph", Text: "also ok", Size: "body-size"}),
	}
	nodes, failed := structure.Build(pages)
	assert.Len(t, nodes, 2)
	assert.Equal(t, []int{1}, failed)
}

func TestSplitEnumerator(t *testing.T) {
	cases := []struct {
		in     string
		marker string
		rest   string
		ok     bool
	}{
		{"1. first item", "1", "first item", true},
		{"2) second", "2", "second", true},
		{"(3) third", "3", "third", true},
		{"a. lettered", "a", "lettered", true},
		{"• bullet", "•", "bullet", true},
		{"- dashed", "-", "dashed", true},
		{"no marker here", "", "", false},
		{"3.14 is pi", "", "", false}, // decimal, not an enumerator
	}
	for _, tc := range cases {
		marker, rest, ok := structure.SplitEnumerator(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.Equal(t, tc.marker, marker, tc.in)
			assert.Equal(t, tc.rest, rest, tc.in)
		}
	}
}
