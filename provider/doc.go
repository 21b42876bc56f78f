// Package provider holds the registry of chat model vendors. Each Record
// names a vendor, the environment variable carrying its credential and the
// Provider that lists models and constructs model.ChatClient values.
//
// Lookups accept the canonical id or any alias, case-insensitively:
//
//	rec, err := provider.Builtin().Get("claude")
//	client, err := rec.Provider.MakeChat("claude-3-5-haiku-latest", model.WithStream(false))
package provider
