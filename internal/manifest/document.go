package manifest

import "context"

// Decoder turns the raw bytes of one manifest document into a Document.
// Implementations live in format-specific packages (hcl_adapter,
// yaml_adapter) and are handed to the Parser by the caller.
type Decoder interface {
	// Extensions lists the file extensions (with leading dot) this decoder
	// handles.
	Extensions() []string
	// Decode parses data read from source. Unknown fields must be reported
	// as a *ParseError naming the project and the field.
	Decode(ctx context.Context, source string, data []byte) (*Document, error)
}

// Document is the format-agnostic representation of a single manifest file,
// before includes are merged. Pointer fields are nil when the document does
// not set them.
type Document struct {
	Source            string
	Core              *string
	API               *int
	TranslationServer *string
	Translations      *[]string
	Includes          []string
	Defaults          DefaultsDecl
	Projects          []*ProjectDecl
}

// DefaultsDecl holds values applied to projects that do not set them.
type DefaultsDecl struct {
	Subdir             *string
	ContribDestination *string
}

// ProjectDecl is a project as declared in one document. Each non-nil field
// overrides the same field of an included declaration with the same name.
type ProjectDecl struct {
	Name   string
	Source string

	Type               *string
	Version            *string
	Subdir             *string
	DirectoryName      *string
	Destination        *string
	ContribDestination *string
	Download           *DownloadDecl
	Patches            *[]PatchDecl
	Translations       *[]string
	SkipInfoStamp      *bool
}

// DownloadDecl is a declared download. It is overridden as a whole.
type DownloadDecl struct {
	Type     string
	URL      string
	Path     string
	Filename string
	Subtree  string
	Branch   string
	Tag      string
	Revision string

	ReferenceCache *bool
	WorkingCopy    *bool
	Extract        *bool

	// Checksums maps algorithm name to expected digest.
	Checksums map[string]string
}

// PatchDecl is one declared patch.
type PatchDecl struct {
	Location string
	// Resolved is Location made absolute against the declaring document.
	Resolved  string
	Checksums map[string]string
}

func (d *ProjectDecl) clone() *ProjectDecl {
	c := *d
	if d.Download != nil {
		dl := *d.Download
		c.Download = &dl
	}
	if d.Patches != nil {
		patches := append([]PatchDecl(nil), (*d.Patches)...)
		c.Patches = &patches
	}
	if d.Translations != nil {
		langs := append([]string(nil), (*d.Translations)...)
		c.Translations = &langs
	}
	return &c
}
