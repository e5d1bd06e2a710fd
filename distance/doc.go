// Package distance provides the similarity kernels used by the vector
// indexes: dot product, squared L2 and cosine similarity, plus L2
// normalization helpers.
//
// Cosine similarity of L2-normalized vectors reduces to their dot product;
// the indexes normalize on insert and query so the hot path is a plain dot.
package distance
