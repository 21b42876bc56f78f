package provider

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/hupe1980/slick/model"
	"github.com/hupe1980/slick/model/anthropic"
	"github.com/hupe1980/slick/model/ollama"
	"github.com/hupe1980/slick/model/openai"
)

// Base URLs of the OpenAI compatible vendors.
const (
	GoogleBaseURL    = "https://generativelanguage.googleapis.com/v1beta/openai/"
	MistralBaseURL   = "https://api.mistral.ai/v1"
	GroqBaseURL      = "https://api.groq.com/openai/v1"
	TogetherBaseURL  = "https://api.together.xyz/v1"
	FireworksBaseURL = "https://api.fireworks.ai/inference/v1"
)

var (
	builtinOnce sync.Once
	builtin     *Registry
)

// Builtin returns the registry of bundled vendors.
func Builtin() *Registry {
	builtinOnce.Do(func() {
		builtin = NewRegistry(BuiltinRecords()...)
	})
	return builtin
}

// BuiltinRecords returns fresh records for the bundled vendors.
func BuiltinRecords() []Record {
	compatible := func(id, envKey, baseURL string, aliases ...string) Record {
		return Record{
			ID:       id,
			EnvKey:   envKey,
			Aliases:  aliases,
			Provider: &OpenAICompatible{ID: id, EnvKey: envKey, BaseURL: baseURL},
		}
	}

	return []Record{
		compatible("openai", "OPENAI_API_KEY", "", "gpt"),
		{
			ID:       "anthropic",
			EnvKey:   "ANTHROPIC_API_KEY",
			Aliases:  []string{"claude"},
			Provider: &Anthropic{EnvKey: "ANTHROPIC_API_KEY"},
		},
		compatible("google", "GOOGLE_API_KEY", GoogleBaseURL, "gemini"),
		compatible("mistral", "MISTRAL_API_KEY", MistralBaseURL),
		compatible("groq", "GROQ_API_KEY", GroqBaseURL),
		compatible("together", "TOGETHER_API_KEY", TogetherBaseURL),
		compatible("fireworks", "FIREWORKS_API_KEY", FireworksBaseURL),
		{
			ID:       "ollama",
			Aliases:  []string{"local"},
			Provider: &Ollama{HostEnv: "OLLAMA_HOST"},
		},
	}
}

// OpenAICompatible serves OpenAI and every vendor exposing the same API.
// An empty BaseURL selects the OpenAI endpoint.
type OpenAICompatible struct {
	ID      string
	EnvKey  string
	BaseURL string
}

func (p *OpenAICompatible) options(opts ...model.Option) model.Options {
	defaults := []model.Option{}
	if p.BaseURL != "" {
		defaults = append(defaults, model.WithBaseURL(p.BaseURL))
	}
	return model.NewOptions(append(defaults, opts...)...)
}

// ListModels implements Provider.
func (p *OpenAICompatible) ListModels(ctx context.Context) []string {
	o := p.options()
	o.APIKey = credential(p.EnvKey, o)
	if o.APIKey == "" {
		return []string{}
	}
	ids, err := openai.ListModels(ctx, o)
	if err != nil {
		return []string{}
	}
	return ids
}

// MakeChat implements Provider.
func (p *OpenAICompatible) MakeChat(modelName string, opts ...model.Option) (model.ChatClient, error) {
	o := p.options(opts...)
	o.APIKey = credential(p.EnvKey, o)
	if o.APIKey == "" {
		return nil, missingCredential(p.ID, p.EnvKey)
	}

	return openai.NewModel(func(mo *openai.Options) {
		mo.Model = modelName
		mo.Provider = p.ID
		mo.Options = o
	}), nil
}

// Anthropic serves the Anthropic Messages API.
type Anthropic struct {
	EnvKey  string
	BaseURL string
}

func (p *Anthropic) options(opts ...model.Option) model.Options {
	defaults := []model.Option{}
	if p.BaseURL != "" {
		defaults = append(defaults, model.WithBaseURL(p.BaseURL))
	}
	o := model.NewOptions(append(defaults, opts...)...)
	o.APIKey = credential(p.EnvKey, o)
	return o
}

// ListModels implements Provider.
func (p *Anthropic) ListModels(ctx context.Context) []string {
	o := p.options()
	if o.APIKey == "" {
		return []string{}
	}
	ids, err := anthropic.ListModels(ctx, o)
	if err != nil {
		return []string{}
	}
	return ids
}

// MakeChat implements Provider.
func (p *Anthropic) MakeChat(modelName string, opts ...model.Option) (model.ChatClient, error) {
	o := p.options(opts...)
	if o.APIKey == "" {
		return nil, missingCredential("anthropic", p.EnvKey)
	}

	return anthropic.NewModel(func(mo *anthropic.Options) {
		mo.Model = modelName
		mo.Options = o
	}), nil
}

// Ollama serves a local Ollama server. HostEnv names the variable holding
// the server address (e.g. "127.0.0.1:11434"); the default install is used
// when unset.
type Ollama struct {
	HostEnv string
}

func (p *Ollama) options(opts ...model.Option) model.Options {
	return model.NewOptions(append([]model.Option{model.WithBaseURL(p.baseURL())}, opts...)...)
}

func (p *Ollama) baseURL() string {
	host := strings.TrimSpace(os.Getenv(p.HostEnv))
	if host == "" || p.HostEnv == "" {
		return ollama.DefaultBaseURL
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	host = strings.TrimSuffix(host, "/")
	if !strings.HasSuffix(host, "/v1") {
		host += "/v1"
	}
	return host
}

// ListModels implements Provider.
func (p *Ollama) ListModels(ctx context.Context) []string {
	ids, err := ollama.ListModels(ctx, p.options())
	if err != nil {
		return []string{}
	}
	return ids
}

// MakeChat implements Provider.
func (p *Ollama) MakeChat(modelName string, opts ...model.Option) (model.ChatClient, error) {
	o := p.options(opts...)
	return ollama.NewModel(func(mo *ollama.Options) {
		mo.Model = modelName
		mo.Options = o
	}), nil
}
