package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// notClothingSentinel is the exact token the vision prompt demands for
// non-fashion images; enforced verbatim to prevent false positives.
const notClothingSentinel = "NOT_CLOTHING"

// queryPrompt instructs the vision model to emit either a shopping search
// query for the garment in the image or the NOT_CLOTHING sentinel.
const queryPrompt = `You are a fashion-only product recognition expert.

Your job:
1. Look at the image.
2. If the image contains ANY clothing item (shirt, hoodie, jacket, pants, shorts, shoes, accessories like hats/bags), return the BEST search query for that clothing item.
3. If the image does NOT clearly show a clothing item, respond with EXACTLY: "NOT_CLOTHING"

Search query rules:
- Identify likely brand (commit)
- Identify graphics, logos, text, colors, garment type
- Keep it concise & optimized for search engines
- No extra words. ONLY the search query.

If it is NOT clothing, return ONLY "NOT_CLOTHING".`

// QueryGenerator turns a publicly addressable image into a shopping search
// query using a GPT-4o vision prompt.
type QueryGenerator struct {
	client *openai.Client
	model  string
}

// NewQueryGenerator wraps an OpenAI client. An empty model uses GPT-4o.
func NewQueryGenerator(client *openai.Client, model string) *QueryGenerator {
	if model == "" {
		model = openai.GPT4o
	}
	return &QueryGenerator{client: client, model: model}
}

// Generate returns the search query for the garment in the image, or
// ErrNotClothing when the model emits the sentinel.
func (q *QueryGenerator) Generate(ctx context.Context, imageURL string) (string, error) {
	resp, err := q.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: q.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: queryPrompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: imageURL},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("query generation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("query generation: empty response")
	}

	query := strings.TrimSpace(resp.Choices[0].Message.Content)
	if strings.EqualFold(strings.Trim(query, `"`), notClothingSentinel) {
		return "", ErrNotClothing
	}

	log.Debug().Str("query", query).Msg("Search query generated")
	return query, nil
}
