// Package anthropic provides a model.ChatClient for the Anthropic Messages API.
package anthropic

import (
	"context"
	"sort"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cockroachdb/errors"

	"github.com/hupe1980/slick/model"
)

// defaultMaxTokens is sent when no limit is configured; the API requires one.
const defaultMaxTokens = 4096

// Options configures the Anthropic model adapter.
type Options struct {
	Model string
	model.Options
}

// Model wraps the Anthropic Messages API behind model.ChatClient.
type Model struct {
	client *anthropic.Client
	opts   Options
}

// NewModel creates a new Anthropic model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions(optFns...)
	client := anthropic.NewClient(requestOptions(opts.Options)...)
	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new Anthropic model from an existing client.
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: defaultOptions(optFns...)}
}

func defaultOptions(optFns ...func(o *Options)) Options {
	opts := Options{
		Model:   string(anthropic.ModelClaude3_5HaikuLatest),
		Options: model.NewOptions(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
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
	return m.generate(ctx, prompt, m.opts.Stream)
}

// BatchGenerate implements model.ChatClient. The Messages API has no
// multi-choice parameter, so completions are requested one after another;
// only the first one is streamed.
func (m *Model) BatchGenerate(ctx context.Context, prompt string, n int) ([]string, error) {
	if n < 1 {
		return nil, errors.Newf("anthropic: invalid completion count %d", n)
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
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.opts.Model),
		MaxTokens: m.opts.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if m.opts.Temperature != nil {
		params.Temperature = anthropic.Float(*m.opts.Temperature)
	}

	if stream {
		return m.handleStreaming(ctx, params)
	}
	return m.handleNonStreaming(ctx, params)
}

// handleStreaming writes text deltas as they arrive and returns the
// accumulated message text.
func (m *Model) handleStreaming(ctx context.Context, params anthropic.MessageNewParams) (string, error) {
	stream := m.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	msg := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := msg.Accumulate(event); err != nil {
			return "", errors.Wrap(err, "anthropic stream accumulate")
		}

		ev, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
			if _, err := m.opts.StreamWriter.Write([]byte(delta.Text)); err != nil {
				return "", errors.Wrap(err, "failed to write stream output")
			}
		}
	}
	if err := stream.Err(); err != nil {
		return "", errors.Wrap(err, "anthropic streaming error")
	}

	return text(msg.Content), nil
}

func (m *Model) handleNonStreaming(ctx context.Context, params anthropic.MessageNewParams) (string, error) {
	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return "", errors.Wrap(err, "anthropic api error")
	}
	return text(resp.Content), nil
}

func text(blocks []anthropic.ContentBlockUnion) string {
	var sb strings.Builder
	for _, b := range blocks {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// Info returns metadata describing this model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:      m.opts.Model,
		Provider:  "anthropic",
		Streaming: m.opts.Stream,
	}
}

// ListModels returns the sorted model ids visible to the credential.
func ListModels(ctx context.Context, o model.Options) ([]string, error) {
	client := anthropic.NewClient(requestOptions(o)...)
	page, err := client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, errors.Wrap(err, "anthropic list models")
	}

	ids := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids, nil
}
