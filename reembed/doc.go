// Package reembed rebuilds the stored vectors of every profile with the
// configured embedder.
//
// Switching embedding models changes vector dimensionality, and vectors of
// different sizes cannot be compared. Run a Reembedder after such a switch
// so that every profile is embedded by the same model again. Profiles are
// read in pages, embedded one batch per provider call with retries, and
// written back as unit vectors.
package reembed
