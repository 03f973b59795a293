package manifest

import (
	"fmt"
	"path"
	"slices"
	"strings"
)

// DefaultTranslationServer is used when a manifest does not name one.
const DefaultTranslationServer = "https://ftp.drupal.org/files/translations"

// Resolve validates a merged Document and converts it into a Manifest.
func Resolve(doc *Document) (*Manifest, error) {
	m := &Manifest{
		Source:            doc.Source,
		Core:              deref(doc.Core),
		TranslationServer: DefaultTranslationServer,
	}
	if doc.API != nil {
		m.API = *doc.API
	}
	if doc.TranslationServer != nil {
		m.TranslationServer = *doc.TranslationServer
	}
	if doc.Translations != nil {
		m.Translations = append([]string(nil), (*doc.Translations)...)
	}

	for _, decl := range doc.Projects {
		p, err := resolveProject(decl, doc.Defaults)
		if err != nil {
			return nil, err
		}
		m.Projects = append(m.Projects, p)
	}
	return m, nil
}

func resolveProject(decl *ProjectDecl, defaults DefaultsDecl) (*Project, error) {
	fail := func(field string, format string, args ...any) error {
		return &ParseError{
			Source:  decl.Source,
			Project: decl.Name,
			Field:   field,
			Err:     fmt.Errorf("%w: "+format, append([]any{ErrInvalidValue}, args...)...),
		}
	}

	if strings.TrimSpace(decl.Name) == "" {
		return nil, &ParseError{Source: decl.Source, Field: "name", Err: fmt.Errorf("%w: project name is empty", ErrInvalidValue)}
	}
	if strings.ContainsAny(decl.Name, `/\`) || decl.Name == "." || decl.Name == ".." {
		return nil, fail("name", "project name %q is not a valid directory name", decl.Name)
	}

	p := &Project{
		Name:               decl.Name,
		Type:               TypeModule,
		Version:            deref(decl.Version),
		Subdir:             derefOr(decl.Subdir, defaults.Subdir),
		DirectoryName:      deref(decl.DirectoryName),
		Destination:        deref(decl.Destination),
		ContribDestination: derefOr(decl.ContribDestination, defaults.ContribDestination),
		SkipInfoStamp:      decl.SkipInfoStamp != nil && *decl.SkipInfoStamp,
		Source:             decl.Source,
	}
	if decl.Translations != nil {
		p.Translations = append([]string(nil), (*decl.Translations)...)
	}

	if decl.Type != nil {
		switch t := ProjectType(*decl.Type); t {
		case TypeCore, TypeModule, TypeTheme, TypeLibrary, TypeProfile:
			p.Type = t
		default:
			return nil, fail("type", "unknown project type %q", *decl.Type)
		}
	}
	for field, value := range map[string]string{"subdir": p.Subdir, "destination": p.Destination, "contrib_destination": p.ContribDestination, "directory_name": p.DirectoryName} {
		if !isRelativeClean(value) {
			return nil, fail(field, "%q must be a relative path inside the build", value)
		}
	}

	if decl.Download == nil {
		return nil, fail("download", "project has no download")
	}
	spec, checksums, err := resolveDownload(decl.Download)
	if err != nil {
		return nil, fail("download."+err.field, "%s", err.msg)
	}
	p.Download = spec
	p.Checksums = checksums

	if decl.Patches != nil {
		for i, pd := range *decl.Patches {
			if strings.TrimSpace(pd.Location) == "" {
				return nil, fail(fmt.Sprintf("patch[%d]", i), "patch location is empty")
			}
			sums, bad := resolveChecksums(pd.Checksums)
			if bad != "" {
				return nil, fail(fmt.Sprintf("patch[%d].%s", i, bad), "unsupported checksum algorithm")
			}
			src := pd.Resolved
			if src == "" {
				src = pd.Location
			}
			p.Patches = append(p.Patches, Patch{Name: pd.Location, Source: src, Checksums: sums})
		}
	}
	return p, nil
}

type fieldError struct {
	field string
	msg   string
}

func resolveDownload(d *DownloadDecl) (DownloadSpec, []Checksum, *fieldError) {
	sums, bad := resolveChecksums(d.Checksums)
	if bad != "" {
		return nil, nil, &fieldError{bad, "unsupported checksum algorithm"}
	}

	kind := DownloadKind(d.Type)
	if kind == "" {
		kind = KindGet
	}
	if kind != KindGet && kind != KindFile && len(sums) > 0 {
		return nil, nil, &fieldError{sums[0].Algorithm, fmt.Sprintf("checksums are not supported for %s downloads", kind)}
	}

	ref, refErr := singleRef(d)
	if refErr != nil {
		return nil, nil, refErr
	}
	extract := d.Extract == nil || *d.Extract

	switch kind {
	case KindGet:
		if d.URL == "" {
			return nil, nil, &fieldError{"url", "get downloads need a url"}
		}
		return GetSpec{URL: d.URL, Filename: d.Filename, Subtree: d.Subtree, Extract: extract}, sums, nil
	case KindFile:
		if d.Path == "" && d.URL == "" {
			return nil, nil, &fieldError{"path", "file downloads need a path"}
		}
		p := d.Path
		if p == "" {
			p = d.URL
		}
		return FileSpec{Path: p, Subtree: d.Subtree, Extract: extract}, sums, nil
	case KindGit:
		if d.URL == "" {
			return nil, nil, &fieldError{"url", "git downloads need a url"}
		}
		return GitSpec{
			URL:            d.URL,
			Ref:            ref,
			ReferenceCache: d.ReferenceCache == nil || *d.ReferenceCache,
			WorkingCopy:    d.WorkingCopy != nil && *d.WorkingCopy,
		}, nil, nil
	case KindSvn:
		if d.URL == "" {
			return nil, nil, &fieldError{"url", "svn downloads need a url"}
		}
		return SvnSpec{URL: d.URL, Ref: ref}, nil, nil
	case KindBzr:
		if d.URL == "" {
			return nil, nil, &fieldError{"url", "bzr downloads need a url"}
		}
		return BzrSpec{URL: d.URL, Ref: ref}, nil, nil
	default:
		return nil, nil, &fieldError{"type", fmt.Sprintf("unknown download type %q", d.Type)}
	}
}

// singleRef folds branch, tag and revision into one ref; at most one may be set.
func singleRef(d *DownloadDecl) (string, *fieldError) {
	var ref string
	set := 0
	for _, v := range []string{d.Branch, d.Tag, d.Revision} {
		if v != "" {
			ref = v
			set++
		}
	}
	if set > 1 {
		return "", &fieldError{"revision", "only one of branch, tag and revision may be set"}
	}
	return ref, nil
}

// resolveChecksums returns the declared checksums in validation order, or
// the name of the first unsupported algorithm.
func resolveChecksums(declared map[string]string) ([]Checksum, string) {
	if len(declared) == 0 {
		return nil, ""
	}
	names := make([]string, 0, len(declared))
	for name := range declared {
		names = append(names, name)
	}
	slices.Sort(names)

	var sums []Checksum
	for _, name := range names {
		alg := NormalizeAlgorithm(name)
		if !slices.Contains(ChecksumAlgorithms, alg) {
			return nil, name
		}
		sums = append(sums, Checksum{Algorithm: alg, Value: strings.ToLower(strings.TrimSpace(declared[name]))})
	}
	slices.SortStableFunc(sums, func(a, b Checksum) int {
		return slices.Index(ChecksumAlgorithms, a.Algorithm) - slices.Index(ChecksumAlgorithms, b.Algorithm)
	})
	return sums, ""
}

// NormalizeAlgorithm maps spellings such as "blake2b_256" or "SHA256" onto
// the canonical algorithm name.
func NormalizeAlgorithm(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
}

func isRelativeClean(p string) bool {
	if p == "" {
		return true
	}
	p = strings.ReplaceAll(p, `\`, "/")
	if strings.HasPrefix(p, "/") {
		return false
	}
	clean := path.Clean(p)
	return clean != ".." && !strings.HasPrefix(clean, "../")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefOr(s, fallback *string) string {
	if s != nil {
		return *s
	}
	return deref(fallback)
}
