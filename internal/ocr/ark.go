package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"
)

// Ark calls a vision model through an OpenAI-compatible chat/completions
// endpoint (Volcengine Ark serving Doubao models, or any provider speaking
// the same protocol). It is the default Recognizer.
type Ark struct {
	client openai.Client
	model  string
	mode   Mode
	policy retryPolicy
	logger *logrus.Logger
}

// ArkConfig carries the caller-supplied knobs; timeout and retry count are
// configuration, not protocol fields.
type ArkConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Mode    Mode
	Timeout time.Duration
	Retries int
	// Backoff is the base delay between retries; doubled per attempt.
	Backoff time.Duration
	Logger  *logrus.Logger
}

// NewArk validates the configuration and builds the client.
func NewArk(cfg ArkConfig) (*Ark, error) {
	if cfg.APIKey == "" || cfg.BaseURL == "" {
		return nil, errors.New("ark: missing API key or base URL")
	}
	if cfg.Model == "" {
		return nil, errors.New("ark: missing model identifier")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
	)
	return &Ark{
		client: client,
		model:  cfg.Model,
		mode:   cfg.Mode,
		policy: retryPolicy{Retries: cfg.Retries, Timeout: cfg.Timeout, Base: cfg.Backoff},
		logger: cfg.Logger,
	}, nil
}

// Recognize issues the chat/completions call for one image, retrying
// timeouts and transient server failures under the configured policy.
func (a *Ark) Recognize(ctx context.Context, img Image) (RecognitionResult, Usage, error) {
	dataURI := toDataURI(img)
	prompt := promptFor(a.mode)

	return a.policy.run(ctx, func(ctx context.Context) (RecognitionResult, Usage, outcome, error) {
		resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: a.model,
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
					openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURI}),
					openai.TextContentPart(prompt),
				}),
			},
		})
		if err != nil {
			kind := classifyArkErr(err)
			if kind == outcomeRetry {
				a.logger.WithFields(logrus.Fields{"image": img.Name, "error": err}).Warn("recognition attempt failed, will retry")
			}
			return RecognitionResult{}, Usage{}, kind, fmt.Errorf("ark chat completion: %w", err)
		}
		var usage Usage
		if u := resp.Usage; u.TotalTokens > 0 || u.PromptTokens > 0 {
			usage = Usage{
				Prompt:     int(u.PromptTokens),
				Completion: int(u.CompletionTokens),
				Total:      int(u.TotalTokens),
			}
		}
		if len(resp.Choices) == 0 {
			// Degrade to an empty page rather than failing the job.
			return RecognitionResult{Status: "no_text"}, usage, outcomeOK, nil
		}
		return parseFor(a.mode, resp.Choices[0].Message.Content), usage, outcomeOK, nil
	})
}

// classifyArkErr maps transport and server-side failures to retryable and
// everything else (bad request, auth) to fatal.
func classifyArkErr(err error) outcome {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		if apierr.StatusCode == 429 || apierr.StatusCode >= 500 {
			return outcomeRetry
		}
		return outcomeFatal
	}
	// Timeouts and connection errors surface as plain errors.
	return outcomeRetry
}

func toDataURI(img Image) string {
	mt := img.MIME
	if mt == "" {
		mt = "image/png"
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
