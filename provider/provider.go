package provider

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/hupe1980/slick/model"
)

var (
	// ErrUnknownProvider is returned for ids that are neither registered nor aliases.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrProviderUnavailable is returned when a vendor cannot be used, usually
	// because its credential is missing.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// Provider lists models and constructs chat clients for one vendor.
type Provider interface {
	// ListModels returns sorted model ids. It never fails: a missing
	// credential or an unreachable API yields an empty list.
	ListModels(ctx context.Context) []string
	// MakeChat constructs a chat client for modelName.
	MakeChat(modelName string, opts ...model.Option) (model.ChatClient, error)
}

// Record describes a registered vendor.
type Record struct {
	ID       string
	EnvKey   string // empty when no credential is needed
	Aliases  []string
	Provider Provider
}

// Available reports whether the vendor's credential is present.
func (r Record) Available() bool {
	if r.EnvKey == "" {
		return true
	}
	v, ok := os.LookupEnv(r.EnvKey)
	return ok && v != ""
}

// Registry maps ids and aliases to records. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	records map[string]Record
	aliases map[string]string
}

// NewRegistry builds a registry from records. Later records with the same id
// replace earlier ones.
func NewRegistry(records ...Record) *Registry {
	r := &Registry{
		records: make(map[string]Record, len(records)),
		aliases: make(map[string]string),
	}
	for _, rec := range records {
		id := strings.ToLower(rec.ID)
		rec.ID = id
		r.records[id] = rec
		for _, a := range rec.Aliases {
			r.aliases[strings.ToLower(a)] = id
		}
	}
	return r
}

// Canonical maps an id or alias to the registered id.
func (r *Registry) Canonical(id string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(id))
	if _, ok := r.records[key]; ok {
		return key, true
	}
	if target, ok := r.aliases[key]; ok {
		return target, true
	}
	return "", false
}

// Has reports whether id is a registered id or alias.
func (r *Registry) Has(id string) bool {
	_, ok := r.Canonical(id)
	return ok
}

// Get returns the record for an id or alias.
func (r *Registry) Get(id string) (Record, error) {
	key, ok := r.Canonical(id)
	if !ok {
		err := errors.Wrapf(ErrUnknownProvider, "%q", id)
		return Record{}, errors.WithHintf(err, "known providers: %s", strings.Join(r.IDs(), ", "))
	}
	return r.records[key], nil
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// missingCredential builds the error returned when envKey is unset.
func missingCredential(id, envKey string) error {
	err := errors.Wrapf(ErrProviderUnavailable, "%s: %s is not set", id, envKey)
	return errors.WithHintf(err, "export %s=<your key>", envKey)
}

// credential returns the explicit key or the environment value.
func credential(envKey string, o model.Options) string {
	if o.APIKey != "" {
		return o.APIKey
	}
	return os.Getenv(envKey)
}
