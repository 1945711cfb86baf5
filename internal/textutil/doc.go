// Package textutil provides token-based text similarity used to rank
// search results against a requested title and artist.
//
// Fingerprints are term-frequency vectors: text is lowercased, split on
// non-alphanumeric characters, and tokens shorter than 3 characters are
// dropped before counting.
package textutil
