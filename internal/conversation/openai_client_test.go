package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChatCompleter struct {
	gotRequest openai.ChatCompletionRequest
	resp       openai.ChatCompletionResponse
	err        error
}

func (s *stubChatCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.gotRequest = req
	return s.resp, s.err
}

func TestOpenAIClientComplete(t *testing.T) {
	stub := &stubChatCompleter{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message:      openai.ChatCompletionMessage{Content: `{"intent":"comprar"}`},
			FinishReason: openai.FinishReasonStop,
		}},
		Usage: openai.Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
	}}
	c := &OpenAIClient{client: stub, timeout: time.Second, logger: nil}

	got, err := c.Complete(context.Background(), LLMRequest{
		Model:     "gpt-4o-mini",
		System:    []string{"Eres Luisa"},
		Messages:  []ChatMessage{{Role: ChatRoleUser, Content: "hola"}},
		MaxTokens: 250,
		JSONMode:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"intent":"comprar"}`, got.Text)
	assert.Equal(t, int32(120), got.Usage.TotalTokens)

	require.Len(t, stub.gotRequest.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, stub.gotRequest.Messages[0].Role)
	require.NotNil(t, stub.gotRequest.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, stub.gotRequest.ResponseFormat.Type)
}

func TestOpenAIClientNoChoices(t *testing.T) {
	c := &OpenAIClient{client: &stubChatCompleter{}, timeout: time.Second}

	_, err := c.Complete(context.Background(), LLMRequest{Model: "gpt-4o-mini"})
	assert.Error(t, err)
}

func TestOpenAIClientError(t *testing.T) {
	c := &OpenAIClient{client: &stubChatCompleter{err: errors.New("quota")}, timeout: time.Second}

	_, err := c.Complete(context.Background(), LLMRequest{Model: "gpt-4o-mini"})
	assert.ErrorContains(t, err, "chat completion failed")
}
