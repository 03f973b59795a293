// Package infofile records build metadata in a project's *.info files.
package infofile

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/google/renameio"
	"github.com/vk/distmake/internal/clock"
	"github.com/vk/distmake/internal/ctxlog"
	"github.com/vk/distmake/internal/fsutil"
)

// Extension is the suffix of the files Stamper writes to.
const Extension = ".info"

// StampError reports an info file that could not be stamped.
type StampError struct {
	Path string
	Err  error
}

func (e *StampError) Error() string { return fmt.Sprintf("stamping %s: %v", e.Path, e.Err) }

func (e *StampError) Unwrap() error { return e.Err }

// Stamper appends a version block to info files.
type Stamper struct {
	// Tool is the name written into the block header.
	Tool  string
	Clock clock.Clock
}

// NewStamper creates a stamper that signs its blocks with tool.
func NewStamper(tool string, c clock.Clock) *Stamper {
	return &Stamper{Tool: tool, Clock: c}
}

func (s *Stamper) header() string {
	return "; Information added by " + s.Tool + " on "
}

// Block returns the lines appended to an info file.
func (s *Stamper) Block(project, version string) string {
	return fmt.Sprintf("%s%s\nversion = %q\nproject = %q\n", s.header(), s.Clock.Now().Format("2006-01-02"), version, project)
}

// Apply returns content with any earlier block of this tool removed and a
// fresh block appended.
func (s *Stamper) Apply(content, project, version string) string {
	body := s.strip(content)
	if body != "" {
		body += "\n\n"
	}
	return body + s.Block(project, version)
}

// strip removes the tool's block and the blank lines around it.
func (s *Stamper) strip(content string) string {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	header := s.header()
	for i := 0; i < len(lines); i++ {
		if !strings.HasPrefix(lines[i], header) {
			out = append(out, lines[i])
			continue
		}
		for i+1 < len(lines) && (strings.HasPrefix(lines[i+1], "version = ") || strings.HasPrefix(lines[i+1], "project = ")) {
			i++
		}
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n \t")
}

// Stamp rewrites the info file at path atomically.
func (s *Stamper) Stamp(path, project, version string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &StampError{Path: path, Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return &StampError{Path: path, Err: err}
	}
	out := s.Apply(string(data), project, version)
	if err := renameio.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
		return &StampError{Path: path, Err: err}
	}
	return nil
}

// StampTree stamps every info file below dir and returns the paths stamped.
func (s *Stamper) StampTree(ctx context.Context, dir, project, version string) ([]string, error) {
	files, err := fsutil.FindFilesByExtension(dir, Extension)
	if err != nil {
		return nil, &StampError{Path: dir, Err: err}
	}
	for _, f := range files {
		if err := s.Stamp(f, project, version); err != nil {
			return nil, err
		}
	}
	ctxlog.FromContext(ctx).Debug("Info files stamped.", "dir", dir, "count", len(files), "version", version)
	return files, nil
}

var stampDate = regexp.MustCompile(`(?m)^(; Information added by \S+ on )\d{4}-\d{2}-\d{2}$`)

// Canonical blanks out the date of every stamp header so that identical
// builds on different days produce identical bytes.
func Canonical(content []byte) []byte {
	return stampDate.ReplaceAll(content, []byte("${1}YYYY-MM-DD"))
}
