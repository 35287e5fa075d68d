package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	reply  string
	err    error
	panics bool
	prompt string
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if f.panics {
		panic("sdk exploded")
	}
	if len(messages) == 1 && len(messages[0].Parts) == 1 {
		if p, ok := messages[0].Parts[0].(llms.TextContent); ok {
			f.prompt = p.Text
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestNewClient_NilModel(t *testing.T) {
	_, err := NewClient(nil, "m", nil)
	require.Error(t, err)
}

func TestGenerate_Success(t *testing.T) {
	m := &fakeModel{reply: "1. Bali"}
	c, err := NewClient(m, "gemini", nil)
	require.NoError(t, err)

	res := c.Generate(context.Background(), "prompt text")
	require.False(t, res.Failed())
	require.Equal(t, "1. Bali", res.Reply())
	require.Equal(t, "prompt text", m.prompt)
}

func TestGenerate_ProviderError(t *testing.T) {
	c, err := NewClient(&fakeModel{err: errors.New("quota exceeded")}, "gemini", nil)
	require.NoError(t, err)

	res := c.Generate(context.Background(), "p")
	require.True(t, res.Failed())
	require.Equal(t, "Error: quota exceeded", res.Reply())
}

func TestGenerate_RecoversPanic(t *testing.T) {
	c, err := NewClient(&fakeModel{panics: true}, "gemini", nil)
	require.NoError(t, err)

	res := c.Generate(context.Background(), "p")
	require.True(t, res.Failed())
	require.Contains(t, res.Reply(), "sdk exploded")
}

func TestNewModel_Validation(t *testing.T) {
	_, err := NewModel(context.Background(), Config{Provider: ProviderOpenAI, Model: "gpt-4o-mini"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "API key")

	_, err = NewModel(context.Background(), Config{Provider: "watson", APIKey: "k"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported provider")
}

func TestNewModel_OpenAI(t *testing.T) {
	m, err := NewModel(context.Background(), Config{Provider: ProviderOpenAI, Model: "gpt-4o-mini", APIKey: "sk-test"})
	require.NoError(t, err)
	require.NotNil(t, m)
}
