package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

var errNoImageClassifier = errors.New("no image classifier configured")

// textRejectionReason is surfaced to the user when the classifier flags text.
const textRejectionReason = "Contains inappropriate content"

// OpenAITextClassifier classifies free text through the OpenAI moderation
// endpoint using the omni moderation model.
type OpenAITextClassifier struct {
	client *openai.Client
}

var _ TextClassifier = (*OpenAITextClassifier)(nil)

// NewOpenAITextClassifier wraps an existing OpenAI client.
func NewOpenAITextClassifier(client *openai.Client) *OpenAITextClassifier {
	return &OpenAITextClassifier{client: client}
}

// ClassifyText sends the raw text to the moderation endpoint and returns the
// verdict verbatim. Transport and parse errors are returned to the caller so
// the gate's failure policy can decide.
func (c *OpenAITextClassifier) ClassifyText(ctx context.Context, text string) (Verdict, error) {
	resp, err := c.client.Moderations(ctx, openai.ModerationRequest{
		Model: openai.ModerationOmniLatest,
		Input: text,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("text moderation request: %w", err)
	}
	if len(resp.Results) == 0 {
		return Verdict{}, fmt.Errorf("text moderation: empty results")
	}

	result := resp.Results[0]
	log.Debug().Bool("flagged", result.Flagged).Int("length", len(text)).Msg("Text moderation verdict")

	if result.Flagged {
		return Verdict{Safe: false, Reason: textRejectionReason}, nil
	}
	return Verdict{Safe: true}, nil
}
