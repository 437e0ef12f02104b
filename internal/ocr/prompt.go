package ocr

// textPrompt asks the model for all recognisable text organised by
// hierarchy. The schema mirrors what the Structure Builder consumes:
// role-hinted blocks annotated with a font-size class and page position.
const textPrompt = `Recognise all printed text in this image and output strict JSON.

Rules:
1. Recognise every piece of printed text exactly as written; do not omit anything.
2. Ignore watermarks, stamps, seals, handwriting and background decoration. If such an element must be reported, mark its type as "watermark" or "stamp".
3. Judge hierarchy from formatting: font size, boldness and position on the page.
4. For tables, recognise every row and column; all rows must have the same number of cells as the header row, using "" for empty cells. Never drop a cell.
5. Order content top to bottom, left to right.

Output ONLY this JSON structure (no code fences, no commentary):
{
  "status": "ok",
  "content": [
    {"type": "h1", "text": "top-level heading", "size": "h1-size", "position": "top"},
    {"type": "h2", "text": "section heading", "size": "h2-size", "position": "mid"},
    {"type": "h3", "text": "subsection heading", "size": "h3-size", "position": "mid"},
    {"type": "paragraph", "text": "body text, may be long", "size": "body-size", "position": "mid"},
    {"type": "list", "items": ["first item", "second item"], "size": "body-size", "position": "mid"},
    {"type": "table", "rows": [["head1","head2"], ["cell1","cell2"]]}
  ]
}

Field notes:
- "size": one of h1-size, h2-size, h3-size, body-size, small-size, relative to the page's body text.
- "position": one of top, mid, bottom.
- Keep numbering such as "1." or "(a)" inside the text of the item it belongs to.
- If the image contains no recognisable text output {"status":"no_text","content":[]}.`

// tablePrompt asks only for tabular data, for the table-extraction mode.
const tablePrompt = `Extract every table from this image and output strict JSON:
{
  "status": "ok",
  "tables": [ { "name": "Table 1", "rows": [["col1","col2"], ["..."]] } ]
}

Rules:
- Output nothing but the JSON.
- If there is no table output {"status":"no_table","tables":[]}.
- Keep numbers, decimals, dates and units exactly as written; expand merged cells by their visual rows and columns.
- Every row must carry the same number of cells, using "" for empty cells.`

func promptFor(mode Mode) string {
	if mode == ModeTable {
		return tablePrompt
	}
	return textPrompt
}

func parseFor(mode Mode, raw string) RecognitionResult {
	if mode == ModeTable {
		return ParseTables(raw)
	}
	return ParseContent(raw)
}
