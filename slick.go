// Package slick provides typed prompt functions for Go: a prompt template
// plus a declared return type become a callable whose body is a language
// model request.
//
// Most applications interact with this package by:
//  1. Creating a Slick via New() (optionally overriding the registry, the
//     default tiers or the logger)
//  2. Building prompt functions with step.New, passing the Slick as factory
//  3. Calling them synchronously (Call) or asynchronously (CallAsync)
//
// The Slick also exposes the operations used by the command line tool:
// listing providers and models, setting and showing the default selection
// and creating one-off chat clients.
package slick

import (
	"context"

	"github.com/hupe1980/slick/config"
	"github.com/hupe1980/slick/logging"
	"github.com/hupe1980/slick/model"
	"github.com/hupe1980/slick/provider"
	"github.com/hupe1980/slick/session"
	"github.com/hupe1980/slick/step"
)

// Version is the library and CLI version.
const Version = "0.1.0"

// Options configures the Slick instance.
type Options struct {
	// Registry of vendors (defaults to provider.Builtin()).
	Registry *provider.Registry

	// Defaults is the in-memory default tier. Share one instance to share
	// defaults between Slick values.
	Defaults *session.Defaults

	// Sources are the tiers consulted after the in-memory defaults
	// (defaults to env, user config and project config).
	Sources []config.Source

	// Fallback is used when no tier supplies a value.
	Fallback config.Selection

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Slick is the high-level façade over provider registry and default resolution.
type Slick struct {
	opts     Options
	resolver *config.Resolver
}

// Interface compliance (compile-time assertion)
var _ step.ChatFactory = (*Slick)(nil)

// New creates a new Slick instance with optional overrides.
func New(optFns ...func(o *Options)) *Slick {
	opts := Options{
		Registry: provider.Builtin(),
		Defaults: session.NewDefaults(),
		Sources:  config.DefaultSources(""),
		Fallback: config.Selection{Model: config.DefaultModel, Provider: config.DefaultProvider},
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Defaults == nil {
		opts.Defaults = session.NewDefaults()
	}

	sources := append([]config.Source{opts.Defaults}, opts.Sources...)
	resolver := config.NewResolver(sources, func(o *config.ResolverOptions) {
		o.Fallback = opts.Fallback
		o.Logger = opts.Logger
	})

	return &Slick{opts: opts, resolver: resolver}
}

// Registry returns the provider registry.
func (s *Slick) Registry() *provider.Registry { return s.opts.Registry }

// ListProviders returns the registered provider ids in sorted order.
func (s *Slick) ListProviders() []string { return s.opts.Registry.IDs() }

// ListModels lists the models of a provider. Unknown providers fail; a
// missing credential yields an empty list.
func (s *Slick) ListModels(ctx context.Context, providerID string) ([]string, error) {
	rec, err := s.opts.Registry.Get(providerID)
	if err != nil {
		return nil, err
	}

	models := rec.Provider.ListModels(ctx)
	s.opts.Logger.Debug("slick.models.list", "provider", rec.ID, "count", len(models), "available", rec.Available())
	return models, nil
}

// SetDefault stores the in-memory default. A "provider:model" reference is
// split when providerID is empty.
func (s *Slick) SetDefault(modelName, providerID string) {
	sel := config.Selection{Model: modelName, Provider: providerID}
	if providerID == "" {
		sel = s.ParseModelRef(modelName)
	}
	s.opts.Defaults.Set(sel)
	s.opts.Logger.Debug("slick.default.set", "model", sel.Model, "provider", sel.Provider)
}

// GetDefault returns the in-memory default; empty fields are unset.
func (s *Slick) GetDefault() config.Selection { return s.opts.Defaults.Get() }

// Resolve applies the default precedence to an explicit (model, provider).
// A "provider:model" reference is split when providerID is empty.
func (s *Slick) Resolve(modelName, providerID string) config.Selection {
	explicit := config.Selection{Model: modelName, Provider: providerID}
	if providerID == "" && modelName != "" {
		explicit = s.ParseModelRef(modelName)
	}
	return s.resolver.Resolve(explicit)
}

// ParseModelRef splits "provider:model" when the prefix names a registered
// provider or alias.
func (s *Slick) ParseModelRef(ref string) config.Selection {
	sel := config.ParseModelRef(ref, s.opts.Registry.Has)
	if id, ok := s.opts.Registry.Canonical(sel.Provider); ok {
		sel.Provider = id
	}
	return sel
}

// CreateChatModel resolves the selection and constructs a chat client.
// Errors match provider.ErrUnknownProvider or provider.ErrProviderUnavailable.
func (s *Slick) CreateChatModel(modelName, providerID string, opts ...model.Option) (model.ChatClient, error) {
	sel := s.Resolve(modelName, providerID)
	rec, err := s.opts.Registry.Get(sel.Provider)
	if err != nil {
		return nil, err
	}

	s.opts.Logger.Debug("slick.chat.create", "model", sel.Model, "provider", rec.ID)
	return rec.Provider.MakeChat(sel.Model, opts...)
}
