package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"

	"github.com/theimaginaryfoundation/comment-o-bot/comment"
	"github.com/theimaginaryfoundation/comment-o-bot/comment/fileutils"
)

// defaultDraftChars keeps drafts to a few comment parts.
const defaultDraftChars = 3 * comment.MaxLen

// OpenAIComposer drafts comments with the OpenAI Responses API.
type OpenAIComposer struct {
	Client          *openai.Client
	Model           string
	MaxOutputTokens int64
	// MaxChars is the length asked of the model; 0 means three comment parts.
	MaxChars int
	Retry    RetryPolicy
}

type draftRequest struct {
	ItemID      string `json:"item_id"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	MaxChars    int    `json:"max_chars"`
}

type draftResponse struct {
	Comment string `json:"comment" jsonschema:"description=Comment text to post"`
	Skip    bool   `json:"skip" jsonschema:"description=True when no comment should be posted"`
}

var draftSchema = GenerateSchema[draftResponse]()

// Compose returns the drafted comment, or "" when the model chose to skip the item.
func (c OpenAIComposer) Compose(ctx context.Context, item comment.Item) (string, error) {
	if c.Client == nil {
		return "", errors.New("OpenAIComposer: client is nil")
	}
	if c.Model == "" {
		return "", errors.New("OpenAIComposer: model is empty")
	}
	maxChars := c.MaxChars
	if maxChars <= 0 {
		maxChars = defaultDraftChars
	}
	maxTokens := c.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 800
	}
	policy := c.Retry
	if policy.MaxAttempts == 0 {
		policy = DefaultRetryPolicy()
	}

	payload, err := json.Marshal(draftRequest{
		ItemID:      item.ID,
		Title:       fileutils.Truncate(item.Title, 300),
		Description: fileutils.Truncate(item.Description, 1500),
		MaxChars:    maxChars,
	})
	if err != nil {
		return "", err
	}

	params := responses.ResponseNewParams{
		Model:           c.Model,
		MaxOutputTokens: openai.Int(maxTokens),
		Instructions:    openai.String(composeCommentPrompt),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(string(payload), responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        "CommentDraft",
					Schema:      draftSchema,
					Strict:      openai.Bool(true),
					Description: openai.String("Drafted comment JSON"),
					Type:        "json_schema",
				},
			},
		},
	}

	resp, err := CallWithRetry(ctx, c.Client, params, policy)
	if err != nil {
		return "", fmt.Errorf("OpenAIComposer: %w", err)
	}

	var out draftResponse
	if err := fileutils.DecodeModelJSON(resp.OutputText(), &out); err != nil {
		return "", fmt.Errorf("OpenAIComposer: decode draft: %w", err)
	}
	if out.Skip {
		return "", nil
	}
	return strings.TrimSpace(out.Comment), nil
}
