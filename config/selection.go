package config

import "strings"

const (
	// DefaultProvider is the provider used when no tier supplies one.
	DefaultProvider = "openai"
	// DefaultModel is the model used when no tier supplies one.
	DefaultModel = "gpt-4o-mini"
)

// Selection is a (model, provider) pair. Empty fields mean "not chosen".
type Selection struct {
	Model    string `json:"model,omitempty" toml:"default_model,omitempty"`
	Provider string `json:"provider,omitempty" toml:"default_provider,omitempty"`
}

// IsZero reports whether neither field is set.
func (s Selection) IsZero() bool {
	return s.Model == "" && s.Provider == ""
}

// Complete reports whether both fields are set.
func (s Selection) Complete() bool {
	return s.Model != "" && s.Provider != ""
}

// Merge fills the empty fields of s from other and returns the result.
func (s Selection) Merge(other Selection) Selection {
	if s.Model == "" {
		s.Model = other.Model
	}
	if s.Provider == "" {
		s.Provider = other.Provider
	}
	return s
}

// String renders the selection as "provider:model".
func (s Selection) String() string {
	if s.Provider == "" {
		return s.Model
	}
	return s.Provider + ":" + s.Model
}

// ParseModelRef splits a "provider:model" reference. The prefix is only
// treated as a provider when isProvider accepts it, so model ids that contain
// a colon (e.g. "llama3:8b") are kept intact.
func ParseModelRef(ref string, isProvider func(string) bool) Selection {
	ref = strings.TrimSpace(ref)
	prefix, rest, ok := strings.Cut(ref, ":")
	if !ok || rest == "" || isProvider == nil || !isProvider(prefix) {
		return Selection{Model: ref}
	}
	return Selection{Model: rest, Provider: strings.ToLower(prefix)}
}
