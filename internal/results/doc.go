// Package results writes the CSV artifacts produced by a run: the interim and
// final combination files and the catalog metadata export. Every write replaces
// the target atomically.
package results
