package build

import (
	"errors"

	"github.com/vk/distmake/internal/manifest"
)

// Status is the final state of a project.
type Status string

const (
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// ProjectResult reports what happened to one project.
type ProjectResult struct {
	Name string
	Type manifest.ProjectType
	// Destination is relative to the build root, slash-separated.
	Destination string
	Status      Status
	// Version is the declared version, or the fetched revision if none was declared.
	Version  string
	Revision string
	// Patches lists applied patches by declared name.
	Patches   []string
	InfoFiles []string
	Warnings  []string
	// Nested holds the projects of a manifest shipped inside this project,
	// with destinations relative to the project directory.
	Nested []ProjectResult
	Err    error
}

// Result is the outcome of a build.
type Result struct {
	Root string
	// Fingerprint is set only when every project succeeded.
	Fingerprint string
	// Projects are in manifest order.
	Projects []ProjectResult
	Success  bool
}

// Project returns the result of the named project, or nil.
func (r *Result) Project(name string) *ProjectResult {
	for i := range r.Projects {
		if r.Projects[i].Name == name {
			return &r.Projects[i]
		}
	}
	return nil
}

// Err joins the errors of every failed project. Projects skipped because of
// another failure are not repeated.
func (r *Result) Err() error {
	var errs []error
	for _, p := range r.Projects {
		if p.Status == StatusFailed && p.Err != nil {
			errs = append(errs, p.Err)
		}
	}
	return errors.Join(errs...)
}
