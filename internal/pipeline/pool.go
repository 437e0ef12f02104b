package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/visionocr/pdf2word/internal/ocr"
	"github.com/visionocr/pdf2word/internal/render"
)

// RecognitionError marks one page whose model call exhausted its retries.
// Under the default policy it is absorbed at job granularity.
type RecognitionError struct {
	Page  int
	Cause error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("recognition failed for page %d: %v", e.Page+1, e.Cause)
}

func (e *RecognitionError) Unwrap() error { return e.Cause }

// PageOutcome is one page's result slot. Slots are indexed, never
// appended, so out-of-order completion cannot corrupt final ordering.
type PageOutcome struct {
	Index  int
	Name   string
	Result ocr.RecognitionResult
	Usage  ocr.Usage
	Err    error
}

// fanOut dispatches up to `workers` concurrent recognition calls, one per
// page, and returns the outcomes indexed by page. Pages complete in
// arbitrary order; onDone fires once per finished page for progress
// reporting. gate, when non-nil, runs before each dispatch and may block
// (the tracker's pause control). With failFast set, the first page failure
// cancels the rest; otherwise failures are recorded in their slot and
// processing continues. A cancelled ctx stops dispatch; in-flight calls
// run to completion or timeout but pages never dispatched keep ctx.Err()
// in their slot.
func fanOut(ctx context.Context, pages []render.Page, rec ocr.Recognizer, workers int, failFast bool, gate func(context.Context) error, onDone func(PageOutcome)) []PageOutcome {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]PageOutcome, len(pages))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, pg := range pages {
		if err := ctx.Err(); err != nil {
			results[i] = PageOutcome{Index: i, Name: pg.Name, Err: err}
			continue
		}
		if gate != nil {
			if err := gate(ctx); err != nil {
				results[i] = PageOutcome{Index: i, Name: pg.Name, Err: err}
				continue
			}
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			results[i] = PageOutcome{Index: i, Name: pg.Name, Err: ctx.Err()}
			continue
		}
		wg.Add(1)
		go func(i int, pg render.Page) {
			defer wg.Done()
			defer func() { <-sem }()

			res, usage, err := rec.Recognize(ctx, ocr.Image{Name: pg.Name, MIME: pg.MIME, Data: pg.Data})
			out := PageOutcome{Index: i, Name: pg.Name, Result: res, Usage: usage}
			if err != nil {
				out.Err = &RecognitionError{Page: i, Cause: err}
				if failFast {
					cancel()
				}
			}
			results[i] = out
			if onDone != nil {
				onDone(out)
			}
		}(i, pg)
	}
	wg.Wait()
	return results
}

// firstFailure picks the error to blame for an aborted job: the
// lowest-index page that genuinely failed. Cancellation echoes from other
// pages' aborts are only returned when no real failure exists.
func firstFailure(outcomes []PageOutcome) error {
	var cancelled error
	for _, o := range outcomes {
		if o.Err == nil {
			continue
		}
		if errors.Is(o.Err, context.Canceled) {
			if cancelled == nil {
				cancelled = o.Err
			}
			continue
		}
		return o.Err
	}
	return cancelled
}
