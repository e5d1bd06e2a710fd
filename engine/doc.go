// Package engine implements the recognition pipeline and the feedback
// ingestor over a shared vector index and landmark catalog.
//
// A recognition request first attempts reverse geocoding when coordinates
// are supplied; a geocoding hit is authoritative and short-circuits the
// request. Otherwise the image is embedded and matched against the vector
// index, with an externally configured acceptance threshold deciding
// between a visual match and "no match". Feedback corrections mutate the
// index and catalog in place and are effective for the very next query.
//
// The engine owns no global state: it is an explicit handle constructed at
// process start and passed to every invocation, with snapshot export/load
// as the only persistence surface.
package engine
