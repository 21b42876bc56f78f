package step

import (
	"reflect"

	"github.com/hupe1980/slick/logging"
	"github.com/hupe1980/slick/model"
	"github.com/hupe1980/slick/prompt"
)

// Options configure a prompt function at construction time.
type Options struct {
	// Name identifies the function in errors and logs.
	Name string
	// Params are the declared parameters, in positional order.
	Params []prompt.Param
	// Model and Provider pin the selection; empty fields fall through to
	// the factory's default resolution.
	Model    string
	Provider string
	// N is the completion count used for slice return types. Defaults to 1.
	N int
	// Stream requests streamed output. Defaults to true.
	Stream bool
	// ChatOptions are forwarded verbatim to the chat client.
	ChatOptions []model.Option
	// Logger receives call lifecycle entries.
	Logger logging.Logger
}

// WithName sets the function name.
func WithName(name string) func(o *Options) {
	return func(o *Options) { o.Name = name }
}

// WithParams declares untyped parameters.
func WithParams(names ...string) func(o *Options) {
	return func(o *Options) {
		for _, n := range names {
			o.Params = append(o.Params, prompt.Param{Name: n})
		}
	}
}

// WithParam declares a parameter whose values must be assignable to typ.
func WithParam(name string, typ reflect.Type) func(o *Options) {
	return func(o *Options) {
		o.Params = append(o.Params, prompt.Param{Name: name, Type: typ})
	}
}

// TypedParam declares a parameter of type V.
func TypedParam[V any](name string) func(o *Options) {
	return WithParam(name, reflect.TypeOf((*V)(nil)).Elem())
}

// WithModel pins the model id.
func WithModel(name string) func(o *Options) {
	return func(o *Options) { o.Model = name }
}

// WithProvider pins the provider id or alias.
func WithProvider(id string) func(o *Options) {
	return func(o *Options) { o.Provider = id }
}

// WithN sets the completion count for slice return types.
func WithN(n int) func(o *Options) {
	return func(o *Options) { o.N = n }
}

// WithStream sets the default streaming behavior.
func WithStream(stream bool) func(o *Options) {
	return func(o *Options) { o.Stream = stream }
}

// WithChatOptions appends options forwarded to the chat client.
func WithChatOptions(opts ...model.Option) func(o *Options) {
	return func(o *Options) { o.ChatOptions = append(o.ChatOptions, opts...) }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// CallOption adjusts a single call.
type CallOption func(c *callOptions)

type callOptions struct {
	stream   bool
	model    string
	provider string
}

// Stream overrides the streaming default for one call.
func Stream(stream bool) CallOption {
	return func(c *callOptions) { c.stream = stream }
}

// Model overrides the model for one call.
func Model(name string) CallOption {
	return func(c *callOptions) { c.model = name }
}

// Provider overrides the provider for one call.
func Provider(id string) CallOption {
	return func(c *callOptions) { c.provider = id }
}
