package catalog

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/sourcedapp/sourced-backend/internal/jsonutil"
	"github.com/sourcedapp/sourced-backend/internal/store"
)

// categorizeSystemPrompt gates catalog items to wearable fashion and
// extracts structured attributes in one call.
const categorizeSystemPrompt = `You are a fashion expert AI. Categorize fashion items with precision.
IMPORTANT: First determine if this is actually a FASHION item. Fashion includes:
- Clothing (shirts, pants, dresses, etc.)
- Footwear (shoes, sneakers, boots, sandals)
- Accessories (bags, belts, hats, scarves, gloves)
- Jewelry (rings, necklaces, bracelets, earrings)
- Eyewear (sunglasses, glasses)
- Watches
- Hair accessories
- Any wearable fashion item

NOT fashion: furniture, food, electronics (unless wearable tech like smartwatches), home decor, cars, etc.
Return ONLY valid JSON, no markdown.`

const categorizeUserPrompt = `Analyze this item:

TITLE: %s
PRICE: %s
URL: %s

Return JSON with:
{
  "is_fashion_item": true/false (Is this a wearable fashion item?),
  "category": "tops/bottoms/outerwear/shoes/accessories/dresses/activewear/bags/jewelry/eyewear/watches/other",
  "subcategory": "specific type",
  "brand": "brand name or null",
  "product_type": "casual/formal/athletic/streetwear/luxury",
  "colors": ["array"],
  "primary_color": "main color",
  "material": "material or null",
  "pattern": "pattern or null",
  "style_tags": ["tag1", "tag2"],
  "season": "spring/summer/fall/winter/all-season",
  "formality": "casual/business-casual/formal/athletic",
  "gender": "men/women/unisex",
  "fit_type": "slim/regular/oversized or null",
  "occasion_tags": ["everyday", "work"],
  "price_tier": "budget/mid-range/luxury or null",
  "confidence": 0.95
}

If is_fashion_item is false, still provide best-guess values for other fields but they won't be used.`

// Categorizer extracts fashion attributes from an item using a vision
// chat completion in JSON mode.
type Categorizer interface {
	Categorize(ctx context.Context, title, imageURL, productURL, price string) store.ItemMetadata
}

// OpenAICategorizer implements Categorizer on GPT-4o-mini.
type OpenAICategorizer struct {
	client *openai.Client
	model  string
}

// NewCategorizer wraps an OpenAI client. An empty model uses GPT-4o-mini.
func NewCategorizer(client *openai.Client, model string) *OpenAICategorizer {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAICategorizer{client: client, model: model}
}

// Categorize returns the item's metadata. Categorization never fails the
// item: on any error a permissive default is returned so a flaky model
// cannot block legitimate items.
func (c *OpenAICategorizer) Categorize(ctx context.Context, title, imageURL, productURL, price string) store.ItemMetadata {
	meta, err := c.categorize(ctx, title, imageURL, productURL, price)
	if err != nil {
		log.Warn().Err(err).Str("title", title).Msg("Item categorization failed, using defaults")
		return defaultMetadata()
	}
	return meta
}

func (c *OpenAICategorizer) categorize(ctx context.Context, title, imageURL, productURL, price string) (store.ItemMetadata, error) {
	userPrompt := fmt.Sprintf(categorizeUserPrompt,
		title, orUnknown(price, "Unknown"), orUnknown(productURL, "Not provided"))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   500,
		Temperature: 0.3,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: categorizeSystemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: userPrompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: imageURL},
					},
				},
			},
		},
	})
	if err != nil {
		return store.ItemMetadata{}, fmt.Errorf("categorize completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return store.ItemMetadata{}, fmt.Errorf("categorize: empty response")
	}

	meta, err := jsonutil.ParseJSON[store.ItemMetadata](resp.Choices[0].Message.Content)
	if err != nil {
		return store.ItemMetadata{}, fmt.Errorf("categorize parse: %w", err)
	}
	return meta, nil
}

// defaultMetadata assumes the item is fashion so errors never block it.
func defaultMetadata() store.ItemMetadata {
	return store.ItemMetadata{
		IsFashionItem: true,
		Category:      "other",
		Subcategory:   "unknown",
		ProductType:   "casual",
		Colors:        []string{"unknown"},
		PrimaryColor:  "unknown",
		StyleTags:     []string{"uncategorized"},
		Season:        "all-season",
		Formality:     "casual",
		Gender:        "unisex",
		OccasionTags:  []string{"everyday"},
		Confidence:    0,
	}
}

func orUnknown(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
