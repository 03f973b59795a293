package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// Every block body is decoded in its own pass so that an unsupported
// argument can be attributed to the project and block it appears in.

type rootBlock struct {
	Core              *string          `hcl:"core,optional"`
	API               *int             `hcl:"api,optional"`
	TranslationServer *string          `hcl:"translation_server,optional"`
	Translations      *[]string        `hcl:"translations,optional"`
	Includes          []string         `hcl:"includes,optional"`
	Defaults          *defaultsBlock   `hcl:"defaults,block"`
	Projects          []*projectHeader `hcl:"project,block"`
}

type defaultsBlock struct {
	Subdir             *string `hcl:"subdir,optional"`
	ContribDestination *string `hcl:"contrib_destination,optional"`
}

type projectHeader struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

type projectBlock struct {
	Type               *string   `hcl:"type,optional"`
	Version            *string   `hcl:"version,optional"`
	Subdir             *string   `hcl:"subdir,optional"`
	DirectoryName      *string   `hcl:"directory_name,optional"`
	Destination        *string   `hcl:"destination,optional"`
	ContribDestination *string   `hcl:"contrib_destination,optional"`
	Translations       *[]string `hcl:"translations,optional"`
	SkipInfoStamp      *bool     `hcl:"skip_info_stamp,optional"`
	// PatchList is the short form: a list of locations without checksums.
	PatchList *[]string `hcl:"patches,optional"`

	Download *blockHeader   `hcl:"download,block"`
	Patches  []*blockHeader `hcl:"patch,block"`
}

// blockHeader captures a labelled block whose body is decoded later.
type blockHeader struct {
	Label string   `hcl:"label,label"`
	Body  hcl.Body `hcl:",remain"`
}

type downloadBlock struct {
	URL            string            `hcl:"url,optional"`
	Path           string            `hcl:"path,optional"`
	Filename       string            `hcl:"filename,optional"`
	Subtree        string            `hcl:"subtree,optional"`
	Branch         string            `hcl:"branch,optional"`
	Tag            string            `hcl:"tag,optional"`
	Revision       string            `hcl:"revision,optional"`
	ReferenceCache *bool             `hcl:"reference_cache,optional"`
	WorkingCopy    *bool             `hcl:"working_copy,optional"`
	Extract        *bool             `hcl:"extract,optional"`
	Checksums      map[string]string `hcl:"checksums,optional"`
}

type patchBlock struct {
	Checksums map[string]string `hcl:"checksums,optional"`
}
