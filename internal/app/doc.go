// Package app wires the manifest parser, the retrieval backends and the
// build orchestrator into one runnable unit, decoupled from the command
// line front end that configures it.
package app
