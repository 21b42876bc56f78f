package model

import (
	"context"
	"io"
	"os"
)

// Info contains metadata about a chat client implementation.
type Info struct {
	Name      string `json:"name"`
	Provider  string `json:"provider"` // "openai", "anthropic", "ollama", etc.
	Streaming bool   `json:"streaming"`
}

// ChatClient is the minimal capability the prompt engine drives.
//
// Invoke returns exactly one completion. BatchGenerate returns n completions
// in generation order; when streaming is enabled only the first completion
// is written to the stream writer.
type ChatClient interface {
	Invoke(ctx context.Context, prompt string) (string, error)
	BatchGenerate(ctx context.Context, prompt string, n int) ([]string, error)

	// Info returns information about the client implementation.
	Info() Info
}

// Options are forwarded verbatim from a prompt function to the adapter.
type Options struct {
	// Stream enables incremental output to StreamWriter.
	Stream bool
	// StreamWriter receives streamed tokens. Defaults to os.Stdout.
	StreamWriter io.Writer
	// Temperature overrides the vendor default when non-nil.
	Temperature *float64
	// MaxTokens overrides the vendor default when > 0.
	MaxTokens int64
	// BaseURL overrides the endpoint (OpenAI compatible vendors, local servers).
	BaseURL string
	// APIKey overrides the credential read from the environment.
	APIKey string
}

// Option mutates Options.
type Option func(o *Options)

// NewOptions applies opts on top of the defaults.
func NewOptions(opts ...Option) Options {
	o := Options{StreamWriter: os.Stdout}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	if o.StreamWriter == nil {
		o.StreamWriter = os.Stdout
	}
	return o
}

// WithStream toggles streaming.
func WithStream(stream bool) Option {
	return func(o *Options) { o.Stream = stream }
}

// WithStreamWriter sets the destination of streamed tokens.
func WithStreamWriter(w io.Writer) Option {
	return func(o *Options) { o.StreamWriter = w }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Options) { o.Temperature = &t }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int64) Option {
	return func(o *Options) { o.MaxTokens = n }
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(o *Options) { o.BaseURL = url }
}

// WithAPIKey overrides the API key.
func WithAPIKey(key string) Option {
	return func(o *Options) { o.APIKey = key }
}
