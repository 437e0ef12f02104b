package ocr

import "context"

// Mode selects what the vision model is asked to extract from a page.
type Mode string

const (
	// ModeText asks for the full text content organised by hierarchy.
	ModeText Mode = "text"
	// ModeTable asks only for tabular data.
	ModeTable Mode = "table"
)

// Block is one unit of recognised content as reported by the model,
// annotated with the model's formatting estimates.
type Block struct {
	// Type is the model's role hint: h1, h2, h3, paragraph, list, table,
	// watermark or stamp.
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	// Items carries list entries when Type is "list".
	Items []string `json:"items,omitempty"`
	// Rows carries the row/cell grid when Type is "table".
	Rows [][]string `json:"rows,omitempty"`
	// Name is an optional table caption in table mode.
	Name string `json:"name,omitempty"`
	// Size is the estimated font-size class relative to the page:
	// h1-size, h2-size, h3-size, body-size or small-size.
	Size string `json:"size,omitempty"`
	// Position is the vertical region of the page: top, mid or bottom.
	Position string `json:"position,omitempty"`
}

// RecognitionResult is the raw model output for one page. A zero-block
// result means no content was found; it is not an error.
type RecognitionResult struct {
	Status string  `json:"status"`
	Blocks []Block `json:"content"`
}

// Usage is the token accounting reported by the provider for one call.
type Usage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// Add accumulates u2 into u.
func (u *Usage) Add(u2 Usage) {
	u.Prompt += u2.Prompt
	u.Completion += u2.Completion
	u.Total += u2.Total
}

// Image is one encoded page image handed to a provider.
type Image struct {
	Name string
	MIME string
	Data []byte
}

// Recognizer performs one remote vision-model call for one page image.
// Implementations retry internally; a returned error means retries are
// exhausted or the failure is not retryable.
type Recognizer interface {
	Recognize(ctx context.Context, img Image) (RecognitionResult, Usage, error)
}

// Noop is a Recognizer that returns an empty result. Useful for dry runs
// and as a test double.
type Noop struct{}

func (Noop) Recognize(ctx context.Context, img Image) (RecognitionResult, Usage, error) {
	return RecognitionResult{Status: "no_text"}, Usage{}, nil
}
