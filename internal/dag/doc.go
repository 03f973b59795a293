// Package dag holds the dependency graph between projects of a build and
// the worker pool that runs one task per project once everything it depends
// on has finished.
package dag
