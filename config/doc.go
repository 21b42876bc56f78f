// Package config resolves the default (model, provider) selection used by
// prompt functions when a call does not name one explicitly.
//
// Resolution walks a chain of Sources, highest precedence first:
//
//	explicit > in-memory defaults > SLICK_MODEL / SLICK_PROVIDER
//	         > user config.toml > project slick.toml or pyproject.toml [tool.slick]
//	         > built-in fallback (openai / gpt-4o-mini)
//
// Model and provider resolve independently: every tier only fills the fields
// that are still empty. Resolution never fails; unreadable files are logged
// and skipped.
package config
