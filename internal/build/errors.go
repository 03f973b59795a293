package build

import (
	"errors"
	"fmt"
)

// Stage names a step of the project pipeline.
type Stage string

const (
	StageFetch        Stage = "fetch"
	StageChecksum     Stage = "checksum"
	StageExtract      Stage = "extract"
	StagePatch        Stage = "patch"
	StageTranslations Stage = "translations"
	StageStamp        Stage = "stamp"
	StageRecursion    Stage = "recursion"
	StagePlace        Stage = "place"
)

// ErrChecksumOnDirectory is returned when checksums are declared for a
// download that produced a directory rather than a single file.
var ErrChecksumOnDirectory = errors.New("checksums need a single downloaded file, got a directory")

// ProjectError ties a failure to the project and stage it happened in.
type ProjectError struct {
	Project string
	Stage   Stage
	Err     error
}

func (e *ProjectError) Error() string {
	return fmt.Sprintf("project %s: %s: %v", e.Project, e.Stage, e.Err)
}

func (e *ProjectError) Unwrap() error { return e.Err }

// PlacementError reports a destination that cannot be used.
type PlacementError struct {
	Project     string
	Destination string
	Err         error
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("cannot place %s at %s: %v", e.Project, e.Destination, e.Err)
}

func (e *PlacementError) Unwrap() error { return e.Err }
