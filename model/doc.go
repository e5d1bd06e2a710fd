// Package model defines the core value types shared across the recognition
// engine: identifiers, embedding vectors, coordinates and recognition results.
package model
