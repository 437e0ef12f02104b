package ocr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	genai "google.golang.org/genai"
)

// Gemini is the alternative Recognizer, driving Google's multimodal models
// through the genai SDK.
type Gemini struct {
	client *genai.Client
	model  string
	mode   Mode
	policy retryPolicy
	logger *logrus.Logger
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	Mode    Mode
	Timeout time.Duration
	Retries int
	Backoff time.Duration
	Logger  *logrus.Logger
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: missing GOOGLE_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, err
	}
	return &Gemini{
		client: c,
		model:  cfg.Model,
		mode:   cfg.Mode,
		policy: retryPolicy{Retries: cfg.Retries, Timeout: cfg.Timeout, Base: cfg.Backoff},
		logger: cfg.Logger,
	}, nil
}

func (g *Gemini) Recognize(ctx context.Context, img Image) (RecognitionResult, Usage, error) {
	mt := img.MIME
	if mt == "" {
		mt = "image/png"
	}
	content := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{Text: promptFor(g.mode)},
				{InlineData: &genai.Blob{MIMEType: mt, Data: img.Data}},
			},
		},
	}

	return g.policy.run(ctx, func(ctx context.Context) (RecognitionResult, Usage, outcome, error) {
		res, err := g.client.Models.GenerateContent(ctx, g.model, content, nil)
		if err != nil {
			kind := classifyGeminiErr(err)
			if kind == outcomeRetry {
				g.logger.WithFields(logrus.Fields{"image": img.Name, "error": err}).Warn("recognition attempt failed, will retry")
			}
			return RecognitionResult{}, Usage{}, kind, fmt.Errorf("gemini generate content: %w", err)
		}
		var usage Usage
		if um := res.UsageMetadata; um != nil {
			usage = Usage{
				Prompt:     int(um.PromptTokenCount),
				Completion: int(um.CandidatesTokenCount),
				Total:      int(um.TotalTokenCount),
			}
		}
		return parseFor(g.mode, res.Text()), usage, outcomeOK, nil
	})
}

func classifyGeminiErr(err error) outcome {
	var apierr genai.APIError
	if errors.As(err, &apierr) {
		if apierr.Code == 429 || apierr.Code >= 500 {
			return outcomeRetry
		}
		return outcomeFatal
	}
	return outcomeRetry
}
