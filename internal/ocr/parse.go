package ocr

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// ParseContent coerces raw model output into a RecognitionResult. The model
// is asked for strict JSON but frequently wraps it in code fences or chatter,
// so the fallbacks run in order: direct parse, fenced block, first
// brace-balanced object, then plain-text lines as paragraphs. Output that
// cannot be coerced at all yields a zero-block result, never an error.
func ParseContent(raw string) RecognitionResult {
	if res, ok := decodeContent(raw); ok {
		return res
	}
	for _, cand := range fencedBlocks(raw) {
		if res, ok := decodeContent(cand); ok {
			return res
		}
	}
	if obj := findFirstJSON(raw); obj != "" {
		if res, ok := decodeContent(obj); ok {
			return res
		}
	}
	return plainTextResult(raw)
}

// ParseTables coerces table-extraction output. Shapes tried: the JSON
// "tables" schema, a Markdown pipe table, then comma-separated lines.
func ParseTables(raw string) RecognitionResult {
	if res, ok := decodeTables(raw); ok {
		return res
	}
	for _, cand := range fencedBlocks(raw) {
		if res, ok := decodeTables(cand); ok {
			return res
		}
	}
	if obj := findFirstJSON(raw); obj != "" {
		if res, ok := decodeTables(obj); ok {
			return res
		}
	}
	if rows := parseMarkdownTable(raw); len(rows) > 0 {
		return RecognitionResult{Status: "ok", Blocks: []Block{{Type: "table", Name: "Table 1", Rows: rows}}}
	}
	if rows := parseCSVLines(raw); len(rows) > 0 {
		return RecognitionResult{Status: "ok", Blocks: []Block{{Type: "table", Name: "Table 1", Rows: rows}}}
	}
	return RecognitionResult{Status: "no_table"}
}

func decodeContent(s string) (RecognitionResult, bool) {
	var res RecognitionResult
	if err := json.Unmarshal([]byte(stripCodeFences(s)), &res); err != nil {
		return RecognitionResult{}, false
	}
	if res.Status == "" && res.Blocks == nil {
		return RecognitionResult{}, false
	}
	return res, true
}

type tablePayload struct {
	Status string `json:"status"`
	Tables []struct {
		Name string     `json:"name"`
		Rows [][]string `json:"rows"`
	} `json:"tables"`
}

func decodeTables(s string) (RecognitionResult, bool) {
	var p tablePayload
	if err := json.Unmarshal([]byte(stripCodeFences(s)), &p); err != nil {
		return RecognitionResult{}, false
	}
	if p.Status == "" && p.Tables == nil {
		return RecognitionResult{}, false
	}
	res := RecognitionResult{Status: p.Status}
	if res.Status == "" {
		res.Status = "ok"
	}
	for i, t := range p.Tables {
		name := t.Name
		if name == "" {
			name = "Table " + strconv.Itoa(i+1)
		}
		res.Blocks = append(res.Blocks, Block{Type: "table", Name: name, Rows: t.Rows})
	}
	return res, true
}

func plainTextResult(raw string) RecognitionResult {
	var res RecognitionResult
	for _, ln := range strings.Split(raw, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			continue
		}
		res.Blocks = append(res.Blocks, Block{Type: "paragraph", Text: ln})
	}
	if len(res.Blocks) == 0 {
		res.Status = "no_text"
	} else {
		res.Status = "ok"
	}
	return res
}

var fenceRe = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")

func fencedBlocks(s string) []string {
	var out []string
	for _, m := range fenceRe.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1])
	}
	return out
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i != -1 {
			s = s[i+1:]
		}
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// findFirstJSON returns the first brace-balanced object in s, or "".
func findFirstJSON(s string) string {
	start := -1
	depth := 0
	for i, r := range s {
		switch r {
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start != -1 {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

func parseMarkdownTable(md string) [][]string {
	var rows [][]string
	for _, ln := range strings.Split(md, "\n") {
		ln = strings.TrimSpace(ln)
		if !strings.HasPrefix(ln, "|") || !strings.HasSuffix(ln, "|") {
			continue
		}
		parts := strings.Split(strings.Trim(ln, "|"), "|")
		cells := make([]string, 0, len(parts))
		sep := true
		for _, p := range parts {
			c := strings.TrimSpace(p)
			if strings.Trim(c, "-:") != "" {
				sep = false
			}
			cells = append(cells, c)
		}
		if sep {
			continue
		}
		rows = append(rows, cells)
	}
	return rows
}

func parseCSVLines(s string) [][]string {
	var lines []string
	for _, ln := range strings.Split(s, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	if len(lines) == 0 || !strings.Contains(lines[0], ",") {
		return nil
	}
	rows := make([][]string, 0, len(lines))
	for _, ln := range lines {
		parts := strings.Split(ln, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		rows = append(rows, parts)
	}
	return rows
}
