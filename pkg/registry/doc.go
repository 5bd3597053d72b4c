// Package registry maintains the canonical model catalog: canonical
// models with capabilities and pricing, provider bindings, and alias
// tables. The catalog is held as an immutable snapshot behind an atomic
// pointer; hot reloads build a fresh snapshot and swap it in, so readers
// never observe a partially updated catalog.
package registry
