// Package manifest defines the in-memory model of a build manifest and the
// parser that produces it.
//
// Parsing happens in three stages:
//
//   - A format decoder (HCL, YAML, JSONC) turns one document into a
//     format-agnostic Document. Project declarations keep pointer fields so
//     that "not set" can be told apart from "set to the zero value".
//
//   - The Parser follows `includes` recursively, producing an IncludeTree.
//     This is the only stage that performs I/O and it is where include cycles
//     are detected.
//
//   - Merge folds the tree into a single Document (pure, last-wins per field
//     at the including level) and Resolve validates it into a Manifest.
//
// A Manifest is immutable once Parse returns.
package manifest
