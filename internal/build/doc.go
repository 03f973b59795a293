// Package build turns a resolved manifest into a directory tree.
//
// Planning assigns every project a destination and orders projects whose
// destinations nest. Execution runs each project's pipeline (fetch,
// checksum, extract, patch, translations, stamp, place) on a worker pool;
// projects are staged in a work directory next to the build root and moved
// into place only when complete.
package build
