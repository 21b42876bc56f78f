// Package openai provides a model.ChatClient backed by the OpenAI Chat
// Completions API. Any vendor exposing an OpenAI compatible endpoint
// (Gemini, Mistral, Groq, Together, Fireworks) is served by the same adapter
// with a different base URL.
package openai

import (
	"context"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/slick/model"
)

// Options configure the OpenAI model adapter.
type Options struct {
	Model string
	// Provider is reported through Info; defaults to "openai".
	Provider string
	model.Options
}

// Model wraps the OpenAI Chat Completions API behind model.ChatClient.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI model using the official client. BaseURL and
// APIKey, when set, override the SDK's environment defaults.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions(optFns...)
	client := openai.NewClient(requestOptions(opts.Options)...)
	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new OpenAI model from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: defaultOptions(optFns...)}
}

func defaultOptions(optFns ...func(o *Options)) Options {
	opts := Options{
		Model:    openai.ChatModelGPT4oMini,
		Provider: "openai",
		Options:  model.NewOptions(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.StreamWriter == nil {
		opts.StreamWriter = model.NewOptions().StreamWriter
	}
	return opts
}

func requestOptions(o model.Options) []option.RequestOption {
	var ro []option.RequestOption
	if o.BaseURL != "" {
		ro = append(ro, option.WithBaseURL(o.BaseURL))
	}
	if o.APIKey != "" {
		ro = append(ro, option.WithAPIKey(o.APIKey))
	}
	return ro
}

// Invoke implements model.ChatClient.
func (m *Model) Invoke(ctx context.Context, prompt string) (string, error) {
	out, err := m.generate(ctx, prompt, 1)
	if err != nil {
		return "", err
	}
	return out[0], nil
}

// BatchGenerate implements model.ChatClient using the API's n parameter so
// all completions come from a single request.
func (m *Model) BatchGenerate(ctx context.Context, prompt string, n int) ([]string, error) {
	if n < 1 {
		return nil, errors.Newf("openai: invalid completion count %d", n)
	}
	return m.generate(ctx, prompt, n)
}

func (m *Model) generate(ctx context.Context, prompt string, n int) ([]string, error) {
	params := m.buildParams(prompt, n)
	if m.opts.Stream {
		return m.handleStreaming(ctx, params, n)
	}
	return m.handleNonStreaming(ctx, params, n)
}

// buildParams assembles the request; unset options keep the vendor defaults.
func (m *Model) buildParams(prompt string, n int) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Model:    m.opts.Model,
	}
	if m.opts.Temperature != nil {
		params.Temperature = openai.Float(*m.opts.Temperature)
	}
	if m.opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(m.opts.MaxTokens)
	}
	if n > 1 {
		params.N = openai.Int(int64(n))
	}
	return params
}

// handleStreaming accumulates every choice and writes choice 0 to the
// stream writer as deltas arrive.
func (m *Model) handleStreaming(ctx context.Context, params openai.ChatCompletionNewParams, n int) ([]string, error) {
	stream := m.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	builders := make([]strings.Builder, n)
	for stream.Next() {
		ck := stream.Current()
		for _, ch := range ck.Choices {
			if ch.Delta.Content == "" || ch.Index < 0 || int(ch.Index) >= n {
				continue
			}
			builders[ch.Index].WriteString(ch.Delta.Content)
			if ch.Index == 0 {
				if _, err := m.opts.StreamWriter.Write([]byte(ch.Delta.Content)); err != nil {
					return nil, errors.Wrap(err, "failed to write stream output")
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, errors.Wrap(err, "openai streaming error")
	}

	out := make([]string, n)
	for i := range builders {
		out[i] = builders[i].String()
	}
	return out, nil
}

// handleNonStreaming processes a normal (non-streaming) completion.
func (m *Model) handleNonStreaming(ctx context.Context, params openai.ChatCompletionNewParams, n int) ([]string, error) {
	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "openai api error")
	}
	if len(resp.Choices) < n {
		return nil, errors.Newf("openai: expected %d choices, got %d", n, len(resp.Choices))
	}

	choices := resp.Choices
	sort.SliceStable(choices, func(i, j int) bool { return choices[i].Index < choices[j].Index })

	out := make([]string, n)
	for i := range out {
		out[i] = choices[i].Message.Content
	}
	return out, nil
}

// Info returns metadata describing this model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:      m.opts.Model,
		Provider:  m.opts.Provider,
		Streaming: m.opts.Stream,
	}
}

// ListModels returns the sorted model ids visible to the credential.
func ListModels(ctx context.Context, o model.Options) ([]string, error) {
	client := openai.NewClient(requestOptions(o)...)
	page, err := client.Models.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "openai list models")
	}

	ids := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids, nil
}
