package config

import (
	"github.com/hupe1980/slick/logging"
)

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	// Fallback is used for fields no tier supplies.
	Fallback Selection
	// Logger receives warnings about unusable tiers.
	Logger logging.Logger
}

// Resolver applies the tiered default precedence.
type Resolver struct {
	sources  []Source
	fallback Selection
	logger   logging.Logger
}

// NewResolver creates a resolver over sources, ordered highest precedence
// first.
func NewResolver(sources []Source, optFns ...func(o *ResolverOptions)) *Resolver {
	opts := ResolverOptions{
		Fallback: Selection{Model: DefaultModel, Provider: DefaultProvider},
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Resolver{
		sources:  append([]Source(nil), sources...),
		fallback: opts.Fallback,
		logger:   opts.Logger,
	}
}

// DefaultSources returns the environment, user and project tiers. Project
// discovery starts at dir (the working directory when empty).
func DefaultSources(dir string) []Source {
	return []Source{
		NewEnvSource(),
		NewUserSource(""),
		NewProjectSource(dir),
	}
}

// Resolve fills the empty fields of explicit from the tiers and finally from
// the fallback. It never fails.
func (r *Resolver) Resolve(explicit Selection) Selection {
	sel := explicit
	for _, src := range r.sources {
		if sel.Complete() {
			return sel
		}

		found, err := src.Lookup()
		if err != nil {
			r.logger.Warn("config.source.unusable", "source", src.Name(), "error", err.Error())
			continue
		}
		sel = sel.Merge(found)
	}

	return sel.Merge(r.fallback)
}
