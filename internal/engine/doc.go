// Package engine is the tree engine underneath xmlh.
//
// It plays the part of a foreign DOM library: a document is an arena of
// records addressed by raw positions, anything can be freed, unlinked or
// reparented through any position, and failures are reported as sentinels
// (Nil positions, negative status codes, nil results). Nothing in here
// protects against aliasing, use after free or concurrent mutation; that is
// the job of package tree.
package engine
