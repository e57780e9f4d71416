package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"

	"github.com/theimaginaryfoundation/note-sheets/migration"
	"github.com/theimaginaryfoundation/note-sheets/migration/fileutils"
)

const threadSummaryPrompt = `You read one role-play conversation thread exported from a social network.
Each line is "<time> <author>: [@target] <text>".
Return JSON with:
- title: a short title for the scene (max 8 words)
- summary: one or two sentences describing what happens
Write in the same language as the conversation. Do not invent events that are not in the log.`

var threadSummarySchema = GenerateSchema[migration.ThreadSummary]()

// OpenAIThreadSummarizer implements migration.ThreadSummarizer with the Responses API.
type OpenAIThreadSummarizer struct {
	Client *openai.Client
	Model  string

	// MaxInputChars caps the transcript sent to the model (0 = 12000).
	MaxInputChars int

	// Flex requests the flex service tier.
	Flex bool
}

func (s OpenAIThreadSummarizer) SummarizeThread(ctx context.Context, d migration.ThreadDigest) (migration.ThreadSummary, error) {
	if s.Client == nil {
		return migration.ThreadSummary{}, errors.New("OpenAIThreadSummarizer: client is nil")
	}
	if s.Model == "" {
		return migration.ThreadSummary{}, errors.New("OpenAIThreadSummarizer: model is empty")
	}
	maxChars := s.MaxInputChars
	if maxChars <= 0 {
		maxChars = 12000
	}

	var b strings.Builder
	fmt.Fprintf(&b, "thread %d, started %s, participants: %s\n\n", d.Index, d.Started, strings.Join(d.Participants, ", "))
	b.WriteString(d.Transcript(maxChars))

	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "ThreadSummary",
			Schema:      threadSummarySchema,
			Strict:      openai.Bool(true),
			Description: openai.String("Thread title and summary JSON"),
			Type:        "json_schema",
		},
	}

	var out migration.ThreadSummary
	for attempt := 0; attempt < 2; attempt++ {
		maxOut := int64(400)
		if attempt == 1 {
			maxOut = 900
		}
		params := responses.ResponseNewParams{
			Model:           s.Model,
			MaxOutputTokens: openai.Int(maxOut),
			Instructions:    openai.String(threadSummaryPrompt),
			Input: responses.ResponseNewParamsInputUnion{
				OfInputItemList: []responses.ResponseInputItemUnionParam{
					responses.ResponseInputItemParamOfMessage(b.String(), responses.EasyInputMessageRoleUser),
				},
			},
			Text: responses.ResponseTextConfigParam{
				Format: format,
			},
		}
		if s.Flex {
			params.ServiceTier = responses.ResponseNewParamsServiceTierFlex
		}

		resp, err := CallWithRetry(ctx, s.Client, params)
		if err != nil {
			return migration.ThreadSummary{}, err
		}
		text := resp.OutputText()
		if err := fileutils.DecodeModelJSON(text, &out); err != nil {
			if attempt == 0 {
				continue
			}
			return migration.ThreadSummary{}, fmt.Errorf("unmarshal thread summary: %w (model_output_prefix=%q)", err, fileutils.Truncate(text, 300))
		}
		break
	}
	return out, nil
}
