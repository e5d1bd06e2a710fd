// Package index defines the vector index contract shared by the exact flat
// index and the approximate IVF index, together with the typed errors both
// implementations return.
package index
