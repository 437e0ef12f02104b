// Package pipeline wires the conversion stages together: page rendering,
// concurrent recognition, structure inference and document assembly, with
// progress observed through the job tracker at every stage.
package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/visionocr/pdf2word/internal/assemble"
	"github.com/visionocr/pdf2word/internal/ocr"
	"github.com/visionocr/pdf2word/internal/render"
	"github.com/visionocr/pdf2word/internal/structure"
	"github.com/visionocr/pdf2word/internal/tracker"
)

// Options are the per-deployment knobs of a Pipeline.
type Options struct {
	OutDir string
	Mode   ocr.Mode
	Source render.SourceMode
	DPI    int
	// Workers bounds simultaneous in-flight recognition requests.
	Workers int
	// FailFast aborts the whole job on the first permanent page failure
	// instead of tolerating it as a marked gap.
	FailFast bool
}

// Summary is the result of one finished job.
type Summary struct {
	JobID       string    `json:"job_id"`
	Source      string    `json:"source"`
	Output      string    `json:"output"`
	Pages       int       `json:"pages"`
	FailedPages []int     `json:"failed_pages,omitempty"`
	Usage       ocr.Usage `json:"usage"`
}

// Pipeline runs conversion jobs against a fixed recognizer and tracker.
type Pipeline struct {
	rec    ocr.Recognizer
	reg    *tracker.Registry
	logger *logrus.Logger
	opts   Options
}

func New(rec ocr.Recognizer, reg *tracker.Registry, logger *logrus.Logger, opts Options) *Pipeline {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.OutDir == "" {
		opts.OutDir = "output"
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Pipeline{rec: rec, reg: reg, logger: logger, opts: opts}
}

// ConvertPDF runs one full conversion job for a PDF source.
func (p *Pipeline) ConvertPDF(ctx context.Context, path string) (Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	name := stem(path)
	// Best-effort page count so polls see a total before rendering is done.
	total, _ := render.PageCount(path)
	id := p.reg.Create(name, total, cancel)

	r := &render.Renderer{DPI: p.opts.DPI, Source: p.opts.Source}
	pages, err := r.RenderPDF(path)
	if err != nil {
		p.reg.Fail(id, err)
		return Summary{JobID: id, Source: path}, err
	}
	return p.run(ctx, id, name, path, pages)
}

// ConvertImages runs one job over an already-rendered image batch.
func (p *Pipeline) ConvertImages(ctx context.Context, paths []string, batchName string) (Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	id := p.reg.Create(batchName, len(paths), cancel)
	pages, err := render.LoadImages(paths)
	if err != nil {
		p.reg.Fail(id, err)
		return Summary{JobID: id, Source: batchName}, err
	}
	return p.run(ctx, id, batchName, batchName, pages)
}

func (p *Pipeline) run(ctx context.Context, id, name, source string, pages []render.Page) (Summary, error) {
	p.reg.Start(id, len(pages))
	log := p.logger.WithFields(logrus.Fields{"job": id, "name": name})
	log.WithField("pages", len(pages)).Info("job started")

	var usage ocr.Usage
	gate := func(ctx context.Context) error { return p.reg.WaitIfPaused(ctx, id) }
	outcomes := fanOut(ctx, pages, p.rec, p.opts.Workers, p.opts.FailFast, gate, func(o PageOutcome) {
		p.reg.UpdateProgress(id)
		if o.Err != nil {
			p.reg.AddPageError(id, o.Index, o.Err.Error())
			log.WithFields(logrus.Fields{"page": o.Index + 1, "image": o.Name}).WithError(o.Err).Warn("page failed")
		} else {
			log.WithFields(logrus.Fields{"page": o.Index + 1, "image": o.Name}).Debug("page recognised")
		}
	})

	if err := ctx.Err(); err != nil {
		// Cancelled mid-flight: discard results, no artifact.
		p.reg.Fail(id, err)
		return Summary{JobID: id, Source: source, Pages: len(pages)}, err
	}

	pageResults := make([]structure.PageResult, len(outcomes))
	for i, o := range outcomes {
		usage.Add(o.Usage)
		pageResults[i] = structure.PageResult{Index: o.Index, Name: o.Name, Result: o.Result, Err: o.Err}
	}
	if p.opts.FailFast {
		if err := firstFailure(outcomes); err != nil {
			p.reg.Fail(id, err)
			return Summary{JobID: id, Source: source, Pages: len(pages)}, err
		}
	}

	nodes, failed := structure.Build(pageResults)

	out := p.outputPath(name)
	var err error
	if p.opts.Mode == ocr.ModeTable {
		err = assemble.WriteExcel(nodes, out)
	} else {
		err = assemble.WriteWord(nodes, failed, out)
	}
	if err != nil {
		p.reg.Fail(id, err)
		return Summary{JobID: id, Source: source, Pages: len(pages)}, err
	}

	p.reg.Complete(id, out)
	log.WithFields(logrus.Fields{
		"output": out,
		"failed": len(failed),
		"tokens": usage.Total,
	}).Info("job completed")

	return Summary{
		JobID:       id,
		Source:      source,
		Output:      out,
		Pages:       len(pages),
		FailedPages: failed,
		Usage:       usage,
	}, nil
}

// outputPath is deterministic from the source name: <out>/word/<stem>.docx
// or <out>/excel/<stem>.xlsx.
func (p *Pipeline) outputPath(name string) string {
	if p.opts.Mode == ocr.ModeTable {
		return filepath.Join(p.opts.OutDir, "excel", name+".xlsx")
	}
	return filepath.Join(p.opts.OutDir, "word", name+".docx")
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsSourceError reports whether err is a fatal unreadable-input failure.
func IsSourceError(err error) bool {
	var se *render.SourceError
	return errors.As(err, &se)
}
