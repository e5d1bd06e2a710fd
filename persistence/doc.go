// Package persistence provides the low-level building blocks of the
// snapshot format: CRC32 checksumming and a named compression registry.
package persistence
