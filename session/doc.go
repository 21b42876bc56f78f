// Package session holds the process (or session) scoped in-memory defaults
// that sit between explicit call arguments and the environment in the
// default resolution chain.
//
// A Defaults value is created once and shared by reference. Reads are
// lock-free snapshots; concurrent writers follow last-writer-wins.
package session
