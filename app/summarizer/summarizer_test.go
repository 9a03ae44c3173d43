package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

type fakeLLM struct {
	replies []string
	err     error
	prompts []string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func TestChunkRespectsSizeAndSentences(t *testing.T) {
	sentence := strings.Repeat("a", 90)
	text := strings.TrimSpace(strings.Repeat(sentence+". ", 10))

	chunks := Chunk(text, 200)

	require.Len(t, chunks, 5)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 200)
		assert.True(t, strings.HasPrefix(c, "a"))
	}
	assert.Equal(t, sentence+". "+sentence+".", chunks[0])
}

func TestChunkShortText(t *testing.T) {
	assert.Equal(t, []string{"This Agreement is made. It binds both parties."}, Chunk("This Agreement is made. It binds both parties.", DefaultChunkSize))
	assert.Nil(t, Chunk("   ", DefaultChunkSize))
}

func TestChunkCutsOverlongSentence(t *testing.T) {
	chunks := Chunk(strings.Repeat("é", 450), 200)

	require.Len(t, chunks, 3)
	assert.Equal(t, 200, utf8.RuneCountInString(chunks[0]))
	assert.Equal(t, 50, utf8.RuneCountInString(chunks[2]))
}

func TestParseReply(t *testing.T) {
	fields, err := parseReply("```json\n" + `{
		"Execution Date": "1 January 2024",
		"Effective Date": null,
		"Parties Involved": ["Acme Ltd", "Globex Pvt Ltd"],
		"Title of the Contract": "Master Services Agreement",
		"Renewal Time": 12
	}` + "\n```")
	require.NoError(t, err)

	assert.Equal(t, strptr("1 January 2024"), fields.ExecutionDate)
	assert.Nil(t, fields.EffectiveDate)
	assert.Nil(t, fields.TerminationDate)
	assert.Equal(t, []string{"Acme Ltd", "Globex Pvt Ltd"}, fields.Parties)
	assert.Equal(t, strptr("Master Services Agreement"), fields.Title)
	assert.Equal(t, strptr("12"), fields.RenewalTime)
}

func TestParseReplySinglePartyString(t *testing.T) {
	fields, err := parseReply(`{"Parties Involved": "Acme Ltd"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme Ltd"}, fields.Parties)
}

func TestParseReplyRejectsProse(t *testing.T) {
	_, err := parseReply("I could not find any contract details.")
	assert.ErrorIs(t, err, ErrParse)
}

func TestMerge(t *testing.T) {
	merged := Merge([]ContractFields{
		{Parties: []string{"Acme Ltd"}, Description: strptr("Supply of goods.")},
		{ExecutionDate: strptr("1 January 2024"), Parties: []string{"Globex Pvt Ltd", "Acme Ltd"}, Title: strptr("MSA")},
		{ExecutionDate: strptr("2 January 2024"), Description: strptr("Payment within 30 days.")},
	})

	assert.Equal(t, strptr("1 January 2024"), merged.ExecutionDate, "first non-null wins")
	assert.Equal(t, []string{"Acme Ltd", "Globex Pvt Ltd"}, merged.Parties)
	assert.Equal(t, strptr("MSA"), merged.Title)
	assert.Equal(t, strptr("Supply of goods. Payment within 30 days."), merged.Description)
	assert.Nil(t, merged.TerminationDate)
}

func TestMergeEmpty(t *testing.T) {
	merged := Merge(nil)
	assert.NotNil(t, merged.Parties)
	assert.Nil(t, merged.Description)
}

func TestSummarizeMergesChunks(t *testing.T) {
	llm := &fakeLLM{replies: []string{
		`{"Execution Date": "1 January 2024", "Parties Involved": ["Acme Ltd"], "Description of the Contract": "Part one."}`,
		`{"Execution Date": null, "Termination Date": "31 December 2025", "Parties Involved": ["Globex Pvt Ltd"], "Description of the Contract": "Part two."}`,
	}}
	s := New(llm, nil)
	s.chunkSize = 60

	text := strings.Repeat("x", 50) + ". " + strings.Repeat("y", 50) + "."
	fields, err := s.Summarize(context.Background(), text)
	require.NoError(t, err)

	assert.Len(t, llm.prompts, 2)
	assert.Contains(t, llm.prompts[0], strings.Repeat("x", 50))
	assert.Contains(t, llm.prompts[1], strings.Repeat("y", 50))

	assert.Equal(t, strptr("1 January 2024"), fields.ExecutionDate)
	assert.Equal(t, strptr("31 December 2025"), fields.TerminationDate)
	assert.Equal(t, []string{"Acme Ltd", "Globex Pvt Ltd"}, fields.Parties)
	assert.Equal(t, strptr("Part one. Part two."), fields.Description)
}

func TestSummarizeParseFailureAbortsDocument(t *testing.T) {
	llm := &fakeLLM{replies: []string{"not json at all", `{"Title of the Contract": "MSA"}`}}
	s := New(llm, nil)
	s.chunkSize = 60

	text := strings.Repeat("x", 50) + ". " + strings.Repeat("y", 50) + "."
	_, err := s.Summarize(context.Background(), text)

	assert.ErrorIs(t, err, ErrParse)
	assert.Len(t, llm.prompts, 1, "later chunks are not sent")
}

func TestSummarizeModelError(t *testing.T) {
	s := New(&fakeLLM{err: errors.New("rate limited")}, nil)

	_, err := s.Summarize(context.Background(), "A short contract.")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrParse)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestSummarizeEmptyText(t *testing.T) {
	_, err := New(&fakeLLM{}, nil).Summarize(context.Background(), " \n ")
	assert.ErrorIs(t, err, ErrNoText)
}

func TestExtractTextRejectsNonPDF(t *testing.T) {
	_, err := ExtractText([]byte("plain text, not a PDF"))
	assert.ErrorIs(t, err, ErrInvalidPDF)
}

func TestOpenAIClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4","choices":[{"index":0,"message":{"role":"assistant","content":"{\"Title of the Contract\":\"MSA\"}"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	client := &OpenAIClient{client: openai.NewClientWithConfig(cfg), model: openai.GPT4}

	reply, err := client.Complete(context.Background(), "extract")
	require.NoError(t, err)
	assert.Equal(t, `{"Title of the Contract":"MSA"}`, reply)
}
