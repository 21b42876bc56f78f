package session

import (
	"sync/atomic"

	"github.com/hupe1980/slick/config"
)

// Defaults is the in-memory default (model, provider) selection. The zero
// value is ready to use and starts unset.
type Defaults struct {
	current atomic.Pointer[config.Selection]
}

// NewDefaults constructs an empty Defaults.
func NewDefaults() *Defaults {
	return &Defaults{}
}

// Set replaces the stored selection. Empty fields stay unset so lower tiers
// can still supply them.
func (d *Defaults) Set(sel config.Selection) {
	d.current.Store(&sel)
}

// Get returns a snapshot of the stored selection.
func (d *Defaults) Get() config.Selection {
	if p := d.current.Load(); p != nil {
		return *p
	}
	return config.Selection{}
}

// Clear forgets the stored selection.
func (d *Defaults) Clear() {
	d.current.Store(nil)
}

// Name implements config.Source.
func (d *Defaults) Name() string { return "session" }

// Lookup implements config.Source.
func (d *Defaults) Lookup() (config.Selection, error) {
	return d.Get(), nil
}
