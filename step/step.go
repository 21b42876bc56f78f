package step

import (
	"context"
	"reflect"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/hupe1980/slick/config"
	"github.com/hupe1980/slick/logging"
	"github.com/hupe1980/slick/model"
	"github.com/hupe1980/slick/output"
	"github.com/hupe1980/slick/prompt"
	"github.com/hupe1980/slick/provider"
)

// ChatFactory resolves default selections and constructs chat clients.
type ChatFactory interface {
	// Resolve fills empty fields from the default resolution chain.
	Resolve(modelName, providerID string) config.Selection
	// CreateChatModel constructs a client for the given selection.
	CreateChatModel(modelName, providerID string, opts ...model.Option) (model.ChatClient, error)
}

// Request describes one model request issued by a call.
type Request struct {
	Model    string `json:"model"`
	Provider string `json:"provider"`
	Stream   bool   `json:"stream"`
	N        int    `json:"n"`
}

// Func is a prompt function returning T. It is immutable after New and safe
// for concurrent calls.
type Func[T any] struct {
	sig     prompt.Signature
	tmpl    prompt.Template
	parser  *output.Parser[T]
	factory ChatFactory
	opts    Options
	logger  logging.Logger
}

// New builds a prompt function. doc is the prompt template; it is dedented
// and, for structured return types, followed by format instructions.
func New[T any](factory ChatFactory, doc string, optFns ...func(o *Options)) (*Func[T], error) {
	opts := Options{
		N:      1,
		Stream: true,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if factory == nil {
		return nil, errors.New("step: nil chat factory")
	}
	if opts.N < 1 {
		return nil, errors.Wrapf(ErrInvalidCompletionCount, "got %d", opts.N)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	parser, err := output.NewParser[T]()
	if err != nil {
		return nil, err
	}

	sig := prompt.Signature{
		Name:   opts.Name,
		Doc:    doc,
		Params: opts.Params,
		Return: reflect.TypeOf((*T)(nil)).Elem(),
	}.Clone()
	if err := sig.Validate(); err != nil {
		return nil, err
	}

	tmpl, err := prompt.Build(doc, parser.FormatInstructions())
	if err != nil {
		return nil, err
	}

	opts.Params = sig.Params
	opts.ChatOptions = append([]model.Option(nil), opts.ChatOptions...)

	return &Func[T]{
		sig:     sig,
		tmpl:    tmpl,
		parser:  parser,
		factory: factory,
		opts:    opts,
		logger:  opts.Logger,
	}, nil
}

// Signature returns a copy of the function metadata.
func (f *Func[T]) Signature() prompt.Signature { return f.sig.Clone() }

// Template returns the prompt template.
func (f *Func[T]) Template() prompt.Template { return f.tmpl }

// Kind returns the output strategy selected for T.
func (f *Func[T]) Kind() output.Kind { return f.parser.Kind() }

// Render binds args and renders the prompt without calling a model.
func (f *Func[T]) Render(args prompt.Args) (string, error) {
	bound, err := f.sig.Bind(args)
	if err != nil {
		return "", newError(f.sig.Name, StageBinding, err)
	}
	text, err := f.tmpl.Render(f.sig.Params, bound)
	if err != nil {
		return "", newError(f.sig.Name, StageRendering, err)
	}
	return text, nil
}

// CallPositional binds values to the declared parameters in order and calls
// the function.
func (f *Func[T]) CallPositional(ctx context.Context, values ...any) (T, error) {
	args, err := f.sig.BindPositional(values...)
	if err != nil {
		var zero T
		return zero, newError(f.sig.Name, StageBinding, err)
	}
	return f.Call(ctx, args)
}

// CallAsync runs Call on its own goroutine. Exactly one of the channels
// receives a value; both are closed afterwards.
func (f *Func[T]) CallAsync(ctx context.Context, args prompt.Args, opts ...CallOption) (<-chan T, <-chan error) {
	resultCh := make(chan T, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(resultCh)
		defer close(errCh)

		result, err := f.Call(ctx, args, opts...)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- result
	}()

	return resultCh, errCh
}

// Call executes the prompt function.
func (f *Func[T]) Call(ctx context.Context, args prompt.Args, opts ...CallOption) (T, error) {
	var zero T

	co := callOptions{stream: f.opts.Stream, model: f.opts.Model, provider: f.opts.Provider}
	for _, fn := range opts {
		fn(&co)
	}

	sel := f.factory.Resolve(co.model, co.provider)
	req := Request{Model: sel.Model, Provider: sel.Provider, Stream: co.stream, N: f.completions()}
	logger := logging.ForInvocation(f.logger, "step", f.sig.Name, uuid.NewString())

	logger.Debug("step.call.start",
		"model", req.Model, "provider", req.Provider, "stream", req.Stream, "n", req.N)

	fail := func(stage Stage, err error) (T, error) {
		logger.Error("step.call.error", "stage", string(stage), "error", err.Error())
		return zero, newError(f.sig.Name, stage, err)
	}

	chatOpts := append(append([]model.Option(nil), f.opts.ChatOptions...), model.WithStream(req.Stream))
	client, err := f.factory.CreateChatModel(req.Model, req.Provider, chatOpts...)
	if err != nil {
		if errors.Is(err, provider.ErrUnknownProvider) {
			return fail(StageResolution, err)
		}
		return fail(StageClient, err)
	}

	bound, err := f.sig.Bind(args)
	if err != nil {
		return fail(StageBinding, err)
	}
	text, err := f.tmpl.Render(f.sig.Params, bound)
	if err != nil {
		return fail(StageRendering, err)
	}

	start := time.Now()
	var result T
	if req.N > 1 {
		raws, err := client.BatchGenerate(ctx, text, req.N)
		logging.LogLLMCall(logger, req.Model, req.N, time.Since(start), err == nil, err)
		if err != nil {
			return fail(StageInvocation, err)
		}
		if len(raws) != req.N {
			return fail(StageInvocation, errors.Newf("expected %d completions, got %d", req.N, len(raws)))
		}
		if result, err = f.parser.ParseAll(raws); err != nil {
			return fail(StageParsing, err)
		}
	} else {
		raw, err := client.Invoke(ctx, text)
		logging.LogLLMCall(logger, req.Model, 1, time.Since(start), err == nil, err)
		if err != nil {
			return fail(StageInvocation, err)
		}
		if result, err = f.parser.Parse(raw); err != nil {
			return fail(StageParsing, err)
		}
	}

	logger.Info("step.call.success", "duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// completions returns the count for multi-completion mode; non-slice
// return types always use a single completion.
func (f *Func[T]) completions() int {
	if f.parser.Kind() != output.KindSequence {
		return 1
	}
	return f.opts.N
}
