package manifest

// Manifest is the fully resolved build manifest: the core package reference
// plus every project, with all includes merged.
type Manifest struct {
	// Source is the location of the root document.
	Source            string
	Core              string
	API               int
	TranslationServer string
	Translations      []string
	Projects          []*Project
}

// Project returns the project with the given name, or nil.
func (m *Manifest) Project(name string) *Project {
	for _, p := range m.Projects {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// ProjectType determines the default destination subtree of a project.
type ProjectType string

const (
	TypeCore    ProjectType = "core"
	TypeModule  ProjectType = "module"
	TypeTheme   ProjectType = "theme"
	TypeLibrary ProjectType = "library"
	TypeProfile ProjectType = "profile"
)

// Project is one buildable unit of the manifest.
type Project struct {
	Name    string
	Type    ProjectType
	Version string

	Download  DownloadSpec
	Checksums []Checksum
	Patches   []Patch

	Subdir             string
	DirectoryName      string
	Destination        string
	ContribDestination string

	Translations  []string
	SkipInfoStamp bool

	// Source is the document that last defined this project.
	Source string
}

// DirName is the directory the project is placed into: DirectoryName when
// set, otherwise the project name.
func (p *Project) DirName() string {
	if p.DirectoryName != "" {
		return p.DirectoryName
	}
	return p.Name
}

// Patch is one entry of a project's ordered patch list.
type Patch struct {
	// Name is the location exactly as declared; it is what PATCHES.txt lists.
	Name string
	// Source is Name resolved to a URL or an absolute local path.
	Source    string
	Checksums []Checksum
}

// Checksum is a declared digest of an artifact.
type Checksum struct {
	Algorithm string
	Value     string
}

// ChecksumAlgorithms lists the supported algorithms in the order they are
// tried during validation.
var ChecksumAlgorithms = []string{"md5", "sha1", "sha256", "sha512", "blake2b-256", "blake3"}

// DownloadKind names a retrieval backend.
type DownloadKind string

const (
	KindGet  DownloadKind = "get"
	KindGit  DownloadKind = "git"
	KindSvn  DownloadKind = "svn"
	KindBzr  DownloadKind = "bzr"
	KindFile DownloadKind = "file"
)

// DownloadSpec is the closed set of retrieval descriptions. Each variant
// carries only what its backend needs.
type DownloadSpec interface {
	Kind() DownloadKind
	// Location is the URL or path the backend reads from.
	Location() string
	isDownloadSpec()
}

// GetSpec downloads a single artifact over HTTP(S).
type GetSpec struct {
	URL string
	// Filename overrides the name the artifact is saved under.
	Filename string
	// Subtree selects one archive member to extract instead of the whole archive.
	Subtree string
	// Extract controls whether recognised archives are unpacked.
	Extract bool
}

// GitSpec clones a repository at a branch, tag or commit.
type GitSpec struct {
	URL string
	// Ref is a branch, tag or commit; empty means the default branch tip.
	Ref            string
	ReferenceCache bool
	// WorkingCopy keeps the .git directory in the placed tree.
	WorkingCopy bool
}

// SvnSpec exports a Subversion URL at a revision.
type SvnSpec struct {
	URL string
	Ref string
}

// BzrSpec exports a Bazaar branch at a revision.
type BzrSpec struct {
	URL string
	Ref string
}

// FileSpec copies a local file or directory.
type FileSpec struct {
	Path    string
	Subtree string
	Extract bool
}

func (GetSpec) Kind() DownloadKind  { return KindGet }
func (GitSpec) Kind() DownloadKind  { return KindGit }
func (SvnSpec) Kind() DownloadKind  { return KindSvn }
func (BzrSpec) Kind() DownloadKind  { return KindBzr }
func (FileSpec) Kind() DownloadKind { return KindFile }

func (s GetSpec) Location() string  { return s.URL }
func (s GitSpec) Location() string  { return s.URL }
func (s SvnSpec) Location() string  { return s.URL }
func (s BzrSpec) Location() string  { return s.URL }
func (s FileSpec) Location() string { return s.Path }

func (GetSpec) isDownloadSpec()  {}
func (GitSpec) isDownloadSpec()  {}
func (SvnSpec) isDownloadSpec()  {}
func (BzrSpec) isDownloadSpec()  {}
func (FileSpec) isDownloadSpec() {}
