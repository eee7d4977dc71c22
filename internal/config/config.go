// Package config holds the in-process construction parameters for a
// datastore + module ABI host: sequence batch size, WASM host memory
// limits, and the ABI version the host advertises. There is no
// file-based config format — the control plane and deployment
// configuration are out of scope, so this is purely a constructor
// parameter object, built with functional options the way the teacher's
// own fluent builders (internal/db's TableSchemaBuilder/IndexBuilder,
// wazero's own wazero.NewRuntimeConfig().With...()) are chained.
package config

// Store holds the tunables a Host needs at construction time.
type Store struct {
	ABIVersion       uint32
	MemoryLimitPages uint32
	SequenceBatch    uint64
}

// Option configures a Store.
type Option func(*Store)

// WithABIVersion sets the module ABI version the host advertises via
// spacetime_module_abi_version (§4.6).
func WithABIVersion(v uint32) Option {
	return func(s *Store) { s.ABIVersion = v }
}

// WithMemoryLimitPages bounds the WASM guest's linear memory, in 64KB
// pages, mirroring wazero.RuntimeConfig.WithMemoryLimitPages.
func WithMemoryLimitPages(pages uint32) Option {
	return func(s *Store) { s.MemoryLimitPages = pages }
}

// WithSequenceBatch sets the Store's SequenceBatch value. internal/datastore
// does not read it: its sequence reservations use the fixed
// sequenceBatchSize constant.
func WithSequenceBatch(n uint64) Option {
	return func(s *Store) { s.SequenceBatch = n }
}

// New builds a Store with defaults overridden by opts.
func New(opts ...Option) *Store {
	s := &Store{
		ABIVersion:       10,
		MemoryLimitPages: 1000,
		SequenceBatch:    32,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
