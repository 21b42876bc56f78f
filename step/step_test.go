package step

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/slick/config"
	"github.com/hupe1980/slick/logging"
	"github.com/hupe1980/slick/model"
	"github.com/hupe1980/slick/output"
	"github.com/hupe1980/slick/prompt"
	"github.com/hupe1980/slick/provider"
	"github.com/hupe1980/slick/session"
)

type Summary struct {
	Title   string   `json:"title"`
	Bullets []string `json:"bullets"`
}

// MockFactory records chat client requests.
type MockFactory struct {
	mock.Mock
	resolver *config.Resolver
}

func newMockFactory(sources ...config.Source) *MockFactory {
	return &MockFactory{resolver: config.NewResolver(sources)}
}

func (f *MockFactory) Resolve(modelName, providerID string) config.Selection {
	return f.resolver.Resolve(config.Selection{Model: modelName, Provider: providerID})
}

func (f *MockFactory) CreateChatModel(modelName, providerID string, opts ...model.Option) (model.ChatClient, error) {
	args := f.Called(modelName, providerID, model.NewOptions(opts...).Stream)
	client, _ := args.Get(0).(model.ChatClient)
	return client, args.Error(1)
}

func factoryFor(client model.ChatClient) *MockFactory {
	f := newMockFactory()
	f.On("CreateChatModel", mock.Anything, mock.Anything, mock.Anything).Return(client, nil)
	return f
}

func stageOf(t *testing.T, err error) Stage {
	t.Helper()
	var serr *Error
	require.True(t, errors.As(err, &serr), "expected *step.Error, got %v", err)
	return serr.Stage
}

func TestCall_SayHelloVerbatim(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddResponse("Say hello.", "  Hello there!\n")

	hello, err := New[string](factoryFor(llm), "Say hello.")
	require.NoError(t, err)
	assert.Equal(t, output.KindRaw, hello.Kind())

	out, err := hello.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "  Hello there!\n", out)

	calls := llm.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Say hello.", calls[0].Prompt)
	assert.Equal(t, 1, calls[0].N)
}

func TestCall_UnconstrainedReturnsRawText(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.SetDefaultResponse(`{"not":"parsed"}`)

	fn, err := New[any](factoryFor(llm), "Anything {{.x}}", WithParams("x"))
	require.NoError(t, err)

	out, err := fn.Call(context.Background(), prompt.Args{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"not":"parsed"}`, out)
}

func TestCall_StructuredSummary(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.SetDefaultResponse(`{"title":"Go 1.24","bullets":["generic type aliases","faster maps"]}`)

	summarize, err := New[Summary](factoryFor(llm), `
		Summarize the following text:
		{{.text}}
	`, WithName("summarize"), TypedParam[string]("text"))
	require.NoError(t, err)

	out, err := summarize.Call(context.Background(), prompt.Args{"text": "release notes"})
	require.NoError(t, err)
	assert.Equal(t, Summary{Title: "Go 1.24", Bullets: []string{"generic type aliases", "faster maps"}}, out)

	sent := llm.Calls()[0].Prompt
	assert.True(t, strings.HasPrefix(sent, "Summarize the following text:\nrelease notes\n\nThe output should be formatted as a JSON instance"))
	assert.Contains(t, sent, `"bullets"`)
}

func TestCall_SchemaValidationFailure(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.SetDefaultResponse(`{"title": 42}`)

	summarize, err := New[Summary](factoryFor(llm), "Summarize", WithName("summarize"))
	require.NoError(t, err)

	_, err = summarize.Call(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, output.ErrSchemaValidation))
	assert.False(t, errors.Is(err, ErrClientUnavailable))
	assert.Equal(t, StageParsing, stageOf(t, err))
	assert.Contains(t, err.Error(), "summarize")
}

func TestCall_NullFieldsAreRejected(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.SetDefaultResponse(`{"title": null, "bullets": null}`)

	summarize, err := New[Summary](factoryFor(llm), "Summarize")
	require.NoError(t, err)

	_, err = summarize.Call(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, output.ErrSchemaValidation))
	assert.Equal(t, StageParsing, stageOf(t, err))
}

type Outline struct {
	Heading  string    `json:"heading"`
	Sections []Outline `json:"sections"`
}

func TestCall_RecursiveReturnType(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.SetDefaultResponse(`{"heading":"Go","sections":[{"heading":"Types","sections":[{"heading":"Structs","sections":[]}]}]}`)

	outline, err := New[Outline](factoryFor(llm), "Outline {{.topic}}", WithParams("topic"))
	require.NoError(t, err)

	out, err := outline.Call(context.Background(), prompt.Args{"topic": "Go"})
	require.NoError(t, err)
	assert.Equal(t, "Structs", out.Sections[0].Sections[0].Heading)
}

func TestCall_Mapping(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.SetDefaultResponse("```json\n{\"output\": {\"sentiment\": \"positive\"}}\n```")

	fn, err := New[map[string]string](factoryFor(llm), "Classify {{.text}}", WithParams("text"))
	require.NoError(t, err)
	assert.Contains(t, fn.Template().Text(), `"output"`)

	out, err := fn.Call(context.Background(), prompt.Args{"text": "great"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"sentiment": "positive"}, out)
}

func TestCall_MultiCompletion(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.SetDefaultResponse(
		`{"title":"first","bullets":[]}`,
		`{"title":"second","bullets":["b"]}`,
		`{"title":"third","bullets":[]}`,
	)

	fn, err := New[[]Summary](factoryFor(llm), "Give me titles", WithN(3))
	require.NoError(t, err)

	out, err := fn.Call(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "first", out[0].Title)
	assert.Equal(t, "second", out[1].Title)
	assert.Equal(t, "third", out[2].Title)

	calls := llm.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 3, calls[0].N)
}

func TestCall_MultiCompletionOfText(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.SetDefaultResponse("a", "b")

	fn, err := New[[]string](factoryFor(llm), "Name a color", WithN(2))
	require.NoError(t, err)

	out, err := fn.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out)
}

func TestCall_SequenceWithSingleCompletion(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.SetDefaultResponse(`{"title":"only","bullets":[]}`)

	fn, err := New[[]Summary](factoryFor(llm), "Give me a title")
	require.NoError(t, err)

	out, err := fn.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []Summary{{Title: "only", Bullets: []string{}}}, out)
	assert.Equal(t, 1, llm.Calls()[0].N)
}

func TestCall_NIgnoredForNonSequence(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.SetDefaultResponse("one", "two")

	fn, err := New[string](factoryFor(llm), "x", WithN(2))
	require.NoError(t, err)

	out, err := fn.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "one", out)
	assert.Equal(t, 1, llm.Calls()[0].N)
}

func TestNew_Validation(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")

	_, err := New[[]string](factoryFor(llm), "x", WithN(0))
	assert.True(t, errors.Is(err, ErrInvalidCompletionCount))

	_, err = New[int](factoryFor(llm), "x")
	assert.True(t, errors.Is(err, output.ErrUnsupportedType))

	_, err = New[fmt.Stringer](factoryFor(llm), "x")
	assert.True(t, errors.Is(err, output.ErrUnsupportedType))

	_, err = New[string](factoryFor(llm), "x", WithParams("a", "a"))
	assert.True(t, errors.Is(err, prompt.ErrInvalidSignature))

	_, err = New[string](factoryFor(llm), "Hello {{.name")
	assert.Error(t, err)

	_, err = New[string](nil, "x")
	assert.Error(t, err)
}

func TestCall_ClientUnavailable(t *testing.T) {
	f := newMockFactory()
	f.On("CreateChatModel", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.Wrap(provider.ErrProviderUnavailable, "OPENAI_API_KEY is not set"))

	fn, err := New[string](f, "Say hello.")
	require.NoError(t, err)

	_, err = fn.Call(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrClientUnavailable))
	assert.True(t, errors.Is(err, provider.ErrProviderUnavailable))
	assert.Equal(t, StageClient, stageOf(t, err))
}

func TestCall_UnknownProvider(t *testing.T) {
	f := newMockFactory()
	f.On("CreateChatModel", mock.Anything, "acme", mock.Anything).
		Return(nil, errors.Wrap(provider.ErrUnknownProvider, `"acme"`))

	fn, err := New[string](f, "Say hello.", WithProvider("acme"))
	require.NoError(t, err)

	_, err = fn.Call(context.Background(), nil)
	assert.True(t, errors.Is(err, provider.ErrUnknownProvider))
	assert.False(t, errors.Is(err, ErrClientUnavailable))
	assert.Equal(t, StageResolution, stageOf(t, err))
}

func TestCall_InvocationFailurePropagates(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	boom := errors.New("upstream 500")
	llm.SetError(boom)

	fn, err := New[string](factoryFor(llm), "x")
	require.NoError(t, err)

	_, err = fn.Call(context.Background(), nil)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, StageInvocation, stageOf(t, err))
}

func TestCall_CancellationNotMasked(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")

	fn, err := New[[]string](factoryFor(llm), "x", WithN(2))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = fn.Call(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StageInvocation, stageOf(t, err))
}

func TestCall_BindingAndRendering(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")

	fn, err := New[string](factoryFor(llm), "[{{.a}}][{{.b}}]", WithParams("a"), TypedParam[int]("b"))
	require.NoError(t, err)

	out, err := fn.Render(prompt.Args{"a": "x"})
	require.NoError(t, err)
	assert.Equal(t, "[x][]", out)

	_, err = fn.Call(context.Background(), prompt.Args{"c": 1})
	assert.True(t, errors.Is(err, prompt.ErrUnknownArgument))
	assert.Equal(t, StageBinding, stageOf(t, err))

	_, err = fn.Call(context.Background(), prompt.Args{"b": "not an int"})
	assert.True(t, errors.Is(err, prompt.ErrArgumentType))

	undeclared, err := New[string](factoryFor(llm), "Hello {{.who}}", WithParams("name"))
	require.NoError(t, err)
	_, err = undeclared.Call(context.Background(), prompt.Args{"name": "x"})
	assert.Equal(t, StageRendering, stageOf(t, err))
}

func TestCallPositional(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddResponse("Translate hi to fr", "salut")

	fn, err := New[string](factoryFor(llm), "Translate {{.text}} to {{.lang}}", WithParams("text", "lang"))
	require.NoError(t, err)

	out, err := fn.CallPositional(context.Background(), "hi", "fr")
	require.NoError(t, err)
	assert.Equal(t, "salut", out)

	_, err = fn.CallPositional(context.Background(), "hi", "fr", "extra")
	assert.True(t, errors.Is(err, prompt.ErrTooManyArguments))
	assert.Equal(t, StageBinding, stageOf(t, err))
}

func TestCall_ResolutionPrecedence(t *testing.T) {
	t.Setenv("SLICK_MODEL", "m2")
	t.Setenv("SLICK_PROVIDER", "p2")

	defaults := session.NewDefaults()
	defaults.Set(config.Selection{Model: "m1", Provider: "p1"})

	llm := model.NewMockModel("mock", "mock")
	f := newMockFactory(defaults, config.NewEnvSource())
	f.On("CreateChatModel", mock.Anything, mock.Anything, mock.Anything).Return(llm, nil)

	fn, err := New[string](f, "x")
	require.NoError(t, err)
	_, err = fn.Call(context.Background(), nil)
	require.NoError(t, err)
	f.AssertCalled(t, "CreateChatModel", "m1", "p1", true)

	defaults.Clear()
	_, err = fn.Call(context.Background(), nil)
	require.NoError(t, err)
	f.AssertCalled(t, "CreateChatModel", "m2", "p2", true)

	pinned, err := New[string](f, "x", WithModel("pinned"))
	require.NoError(t, err)
	_, err = pinned.Call(context.Background(), nil)
	require.NoError(t, err)
	f.AssertCalled(t, "CreateChatModel", "pinned", "p2", true)

	_, err = pinned.Call(context.Background(), nil, Model("call-time"), Provider("anthropic"))
	require.NoError(t, err)
	f.AssertCalled(t, "CreateChatModel", "call-time", "anthropic", true)
}

func TestCall_StreamFlag(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	f := factoryFor(llm)

	streaming, err := New[string](f, "x")
	require.NoError(t, err)
	quiet, err := New[string](f, "x", WithStream(false))
	require.NoError(t, err)

	_, err = streaming.Call(context.Background(), nil)
	require.NoError(t, err)
	_, err = quiet.Call(context.Background(), nil)
	require.NoError(t, err)
	_, err = quiet.Call(context.Background(), nil, Stream(true))
	require.NoError(t, err)

	var streams []bool
	for _, c := range f.Calls {
		streams = append(streams, c.Arguments.Bool(2))
	}
	assert.Equal(t, []bool{true, false, true}, streams)
}

func TestCall_StreamDoesNotChangeResult(t *testing.T) {
	var buf bytes.Buffer
	f := newMockFactory()
	f.On("CreateChatModel", mock.Anything, mock.Anything, true).
		Return(model.NewMockModel("m", "p", model.WithStream(true), model.WithStreamWriter(&buf)), nil)
	f.On("CreateChatModel", mock.Anything, mock.Anything, false).
		Return(model.NewMockModel("m", "p"), nil)

	fn, err := New[string](f, "Say hello.")
	require.NoError(t, err)

	streamed, err := fn.Call(context.Background(), nil)
	require.NoError(t, err)
	plain, err := fn.Call(context.Background(), nil, Stream(false))
	require.NoError(t, err)

	assert.Equal(t, plain, streamed)
	assert.Equal(t, streamed, buf.String())
}

func TestCallAsync(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddResponse("Say hello.", "Hello!")

	fn, err := New[string](factoryFor(llm), "Say hello.")
	require.NoError(t, err)

	resultCh, errCh := fn.CallAsync(context.Background(), nil)
	assert.Equal(t, "Hello!", <-resultCh)
	assert.NoError(t, <-errCh)

	llm.SetError(errors.New("boom"))
	resultCh, errCh = fn.CallAsync(context.Background(), nil)
	_, ok := <-resultCh
	assert.False(t, ok)
	err = <-errCh
	assert.Equal(t, StageInvocation, stageOf(t, err))
}

func TestCall_ConcurrentCallsAreIndependent(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	for i := 0; i < 20; i++ {
		llm.AddResponse(fmt.Sprintf("Echo %d", i), fmt.Sprintf("echo-%d", i))
	}

	fn, err := New[string](factoryFor(llm), "Echo {{.i}}", WithParams("i"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 20)
	errs := make([]error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ch, errCh := fn.CallAsync(context.Background(), prompt.Args{"i": i})
			results[i], errs[i] = <-ch, <-errCh
		}(i)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, fmt.Sprintf("echo-%d", i), results[i])
	}
}

func TestCall_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelDebug, Format: "json", Output: &buf})

	llm := model.NewMockModel("mock", "mock")
	fn, err := New[string](factoryFor(llm), "x", WithName("greet"), WithLogger(logger))
	require.NoError(t, err)

	_, err = fn.Call(context.Background(), nil)
	require.NoError(t, err)

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		entries = append(entries, e)
	}
	require.Len(t, entries, 3)
	assert.Equal(t, "step.call.start", entries[0]["msg"])
	assert.Equal(t, "LLM call completed", entries[1]["msg"])
	assert.Equal(t, "step.call.success", entries[2]["msg"])
	assert.Equal(t, "greet", entries[0]["function"])
	assert.NotEmpty(t, entries[0]["invocation_id"])
	assert.Equal(t, entries[0]["invocation_id"], entries[2]["invocation_id"])
	for _, e := range entries {
		assert.Equal(t, "step", e["component"])
		assert.Equal(t, entries[0]["invocation_id"], e["invocation_id"])
	}
}

func TestCall_LoggingScopesEachInvocation(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	fn, err := New[string](factoryFor(model.NewMockModel("mock", "mock")), "x", WithName("greet"), WithLogger(logger))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = fn.Call(context.Background(), nil)
		require.NoError(t, err)
	}

	ids := map[any]int{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		assert.Equal(t, "greet", e["function"])
		assert.Equal(t, "step", e["component"])
		ids[e["invocation_id"]]++
	}
	assert.Len(t, ids, 2)
	for _, n := range ids {
		assert.Equal(t, 3, n)
	}
}

func TestFunc_Accessors(t *testing.T) {
	fn, err := New[Summary](factoryFor(model.NewMockModel("mock", "mock")), "Summarize {{.text}}",
		WithName("summarize"),
		TypedParam[string]("text"),
	)
	require.NoError(t, err)

	sig := fn.Signature()
	assert.Equal(t, "summarize", sig.Name)
	assert.Equal(t, "Summarize {{.text}}", sig.Doc)
	require.Len(t, sig.Params, 1)
	assert.Equal(t, "string", sig.Params[0].Type.String())
	assert.Equal(t, "step.Summary", sig.Return.String())
	assert.Equal(t, output.KindObject, fn.Kind())

	sig.Params[0].Name = "mutated"
	assert.Equal(t, "text", fn.Signature().Params[0].Name)

	text, err := fn.Render(prompt.Args{"text": "the report"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Summarize the report\n\n"))
	assert.Contains(t, text, `"title"`)
	assert.Contains(t, fn.Template().Text(), "Here is the output schema:")
}
