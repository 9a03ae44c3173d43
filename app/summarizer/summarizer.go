// Package summarizer extracts contract metadata from documents with a
// language model.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/lysyi3m/regwatch/app/metrics"
	"github.com/sashabaranov/go-openai"
)

const promptTemplate = `The following text is a contract. Extract the following details:
- Execution Date
- Effective Date
- Termination Date
- Parties Involved
- Title of the Contract
- Description of the Contract
- Renewal Time (if mentioned)

Contract Text:
"%s"

Provide the details in JSON format using exactly the field names above. If any field is not found, use null for its value.`

// LLM completes a single prompt.
type LLM interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	if model == "" {
		model = openai.GPT4
	}
	return &OpenAIClient{client: openai.NewClient(apiKey), model: model}
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		// A zero temperature is dropped by omitempty.
		Temperature: math.SmallestNonzeroFloat32,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

type Summarizer struct {
	llm       LLM
	chunkSize int
	logger    *slog.Logger
}

func New(llm LLM, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{llm: llm, chunkSize: DefaultChunkSize, logger: logger}
}

// Summarize extracts fields chunk by chunk and merges them. Any chunk that
// fails aborts the whole document.
func (s *Summarizer) Summarize(ctx context.Context, text string) (ContractFields, error) {
	chunks := Chunk(text, s.chunkSize)
	if len(chunks) == 0 {
		return ContractFields{}, ErrNoText
	}

	results := make([]ContractFields, 0, len(chunks))
	for i, chunk := range chunks {
		reply, err := s.llm.Complete(ctx, fmt.Sprintf(promptTemplate, chunk))
		if err != nil {
			metrics.RecordChunk(metrics.StatusError)
			return ContractFields{}, fmt.Errorf("failed to process chunk %d of %d: %w", i+1, len(chunks), err)
		}

		fields, err := parseReply(reply)
		if err != nil {
			metrics.RecordChunk(metrics.StatusError)
			return ContractFields{}, fmt.Errorf("chunk %d of %d: %w", i+1, len(chunks), err)
		}

		metrics.RecordChunk(metrics.StatusSuccess)
		s.logger.Debug("Chunk processed", "chunk", i+1, "total", len(chunks))
		results = append(results, fields)
	}

	return Merge(results), nil
}

// SummarizePDF extracts the text of a PDF and summarizes it.
func (s *Summarizer) SummarizePDF(ctx context.Context, data []byte) (ContractFields, error) {
	text, err := ExtractText(data)
	if err != nil {
		return ContractFields{}, err
	}
	return s.Summarize(ctx, text)
}
