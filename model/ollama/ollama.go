// Package ollama provides a model.ChatClient for a local Ollama server via
// its OpenAI compatible endpoint. No credential is required.
package ollama

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hupe1980/slick/model"
)

// DefaultBaseURL is the OpenAI compatible endpoint of a default local install.
const DefaultBaseURL = "http://localhost:11434/v1"

// Options configures the Ollama adapter.
type Options struct {
	Model string
	model.Options
}

// Model talks to an Ollama server.
type Model struct {
	api  *openai.Client
	opts Options
}

// NewModel creates a new Ollama model.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:   "llama3.2",
		Options: model.NewOptions(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.StreamWriter == nil {
		opts.StreamWriter = model.NewOptions().StreamWriter
	}

	return &Model{api: newClient(opts.Options), opts: opts}
}

func newClient(o model.Options) *openai.Client {
	// Ollama ignores the key but the client always sends one.
	key := o.APIKey
	if key == "" {
		key = "ollama"
	}
	cfg := openai.DefaultConfig(key)
	cfg.BaseURL = DefaultBaseURL
	if o.BaseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(o.BaseURL, "/")
	}
	return openai.NewClientWithConfig(cfg)
}

// Invoke implements model.ChatClient.
func (m *Model) Invoke(ctx context.Context, prompt string) (string, error) {
	return m.generate(ctx, prompt, m.opts.Stream)
}

// BatchGenerate implements model.ChatClient. Ollama ignores the n parameter,
// so completions are requested sequentially and only the first is streamed.
func (m *Model) BatchGenerate(ctx context.Context, prompt string, n int) ([]string, error) {
	if n < 1 {
		return nil, errors.Newf("ollama: invalid completion count %d", n)
	}

	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		text, err := m.generate(ctx, prompt, m.opts.Stream && i == 0)
		if err != nil {
			return nil, err
		}
		out = append(out, text)
	}
	return out, nil
}

func (m *Model) generate(ctx context.Context, prompt string, stream bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: m.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if m.opts.Temperature != nil {
		req.Temperature = float32(*m.opts.Temperature)
	}
	if m.opts.MaxTokens > 0 {
		req.MaxTokens = int(m.opts.MaxTokens)
	}

	if stream {
		return m.handleStreaming(ctx, req)
	}

	resp, err := m.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "ollama api error")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("ollama: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func (m *Model) handleStreaming(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	stream, err := m.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "ollama streaming error")
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", errors.Wrap(err, "ollama streaming error")
		}
		for _, ch := range chunk.Choices {
			if ch.Index != 0 || ch.Delta.Content == "" {
				continue
			}
			sb.WriteString(ch.Delta.Content)
			if _, err := m.opts.StreamWriter.Write([]byte(ch.Delta.Content)); err != nil {
				return "", errors.Wrap(err, "failed to write stream output")
			}
		}
	}
	return sb.String(), nil
}

// Info returns metadata describing this model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:      m.opts.Model,
		Provider:  "ollama",
		Streaming: m.opts.Stream,
	}
}

// ListModels returns the sorted ids of locally pulled models.
func ListModels(ctx context.Context, o model.Options) ([]string, error) {
	list, err := newClient(o).ListModels(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "ollama list models")
	}

	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids, nil
}
