package app

import (
	"fmt"
	"strings"

	"github.com/google/renameio"
	"github.com/vk/distmake/internal/build"
	"github.com/vk/distmake/internal/manifest"
	"gopkg.in/yaml.v3"
)

// lockDoc is a YAML manifest in which every version control download is
// pinned to the revision that was built. It can be fed back as a manifest.
type lockDoc struct {
	Core              string    `yaml:"core,omitempty"`
	API               int       `yaml:"api,omitempty"`
	TranslationServer string    `yaml:"translation_server,omitempty"`
	Translations      []string  `yaml:"translations,omitempty"`
	Projects          yaml.Node `yaml:"projects"`
}

type lockProject struct {
	Type               string       `yaml:"type"`
	Version            string       `yaml:"version,omitempty"`
	Subdir             string       `yaml:"subdir,omitempty"`
	DirectoryName      string       `yaml:"directory_name,omitempty"`
	Destination        string       `yaml:"destination,omitempty"`
	ContribDestination string       `yaml:"contrib_destination,omitempty"`
	Translations       []string     `yaml:"translations,omitempty"`
	SkipInfoStamp      bool         `yaml:"skip_info_stamp,omitempty"`
	Download           lockDownload `yaml:"download"`
	Patches            []lockPatch  `yaml:"patches,omitempty"`
}

type lockDownload struct {
	Type      string            `yaml:"type"`
	URL       string            `yaml:"url,omitempty"`
	Path      string            `yaml:"path,omitempty"`
	Filename  string            `yaml:"filename,omitempty"`
	Subtree   string            `yaml:"subtree,omitempty"`
	Revision  string            `yaml:"revision,omitempty"`
	Extract   *bool             `yaml:"extract,omitempty"`
	Checksums map[string]string `yaml:"checksums,omitempty"`
}

type lockPatch struct {
	URL       string            `yaml:"url,omitempty"`
	Path      string            `yaml:"path,omitempty"`
	Checksums map[string]string `yaml:"checksums,omitempty"`
}

// WriteLock writes the lock manifest for a finished build to path.
func WriteLock(path string, m *manifest.Manifest, res *build.Result) error {
	data, err := MarshalLock(m, res)
	if err != nil {
		return err
	}
	return renameio.WriteFile(path, data, 0o644)
}

// MarshalLock renders the lock manifest. Projects keep manifest order.
// Projects missing from res keep their declared download.
func MarshalLock(m *manifest.Manifest, res *build.Result) ([]byte, error) {
	doc := lockDoc{
		Core:              m.Core,
		API:               m.API,
		TranslationServer: m.TranslationServer,
		Translations:      m.Translations,
		Projects:          yaml.Node{Kind: yaml.MappingNode},
	}
	for _, p := range m.Projects {
		revision := ""
		if pr := res.Project(p.Name); pr != nil {
			revision = pr.Revision
		}
		var value yaml.Node
		if err := value.Encode(lockEntry(p, revision)); err != nil {
			return nil, fmt.Errorf("encoding project %s: %w", p.Name, err)
		}
		doc.Projects.Content = append(doc.Projects.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: p.Name}, &value)
	}
	return yaml.Marshal(&doc)
}

func lockEntry(p *manifest.Project, revision string) lockProject {
	lp := lockProject{
		Type:               string(p.Type),
		Version:            p.Version,
		Subdir:             p.Subdir,
		DirectoryName:      p.DirectoryName,
		Destination:        p.Destination,
		ContribDestination: p.ContribDestination,
		Translations:       p.Translations,
		SkipInfoStamp:      p.SkipInfoStamp,
		Download:           lockDownloadOf(p.Download, revision),
	}
	if len(p.Checksums) > 0 {
		lp.Download.Checksums = checksumMap(p.Checksums)
	}
	for _, patch := range p.Patches {
		lpatch := lockPatch{Checksums: checksumMap(patch.Checksums)}
		if strings.HasPrefix(patch.Source, "http://") || strings.HasPrefix(patch.Source, "https://") {
			lpatch.URL = patch.Source
		} else {
			lpatch.Path = patch.Source
		}
		lp.Patches = append(lp.Patches, lpatch)
	}
	return lp
}

func lockDownloadOf(spec manifest.DownloadSpec, revision string) lockDownload {
	d := lockDownload{Type: string(spec.Kind())}
	noExtract := false
	switch s := spec.(type) {
	case manifest.GetSpec:
		d.URL, d.Filename, d.Subtree = s.URL, s.Filename, s.Subtree
		if !s.Extract {
			d.Extract = &noExtract
		}
	case manifest.FileSpec:
		d.Path, d.Subtree = s.Path, s.Subtree
		if !s.Extract {
			d.Extract = &noExtract
		}
	case manifest.GitSpec:
		d.URL, d.Revision = s.URL, pinned(revision, s.Ref)
	case manifest.SvnSpec:
		d.URL, d.Revision = s.URL, pinned(strings.TrimPrefix(revision, "r"), s.Ref)
	case manifest.BzrSpec:
		d.URL, d.Revision = s.URL, pinned(revision, s.Ref)
	}
	return d
}

func pinned(revision, declared string) string {
	if revision != "" {
		return revision
	}
	return declared
}

func checksumMap(sums []manifest.Checksum) map[string]string {
	if len(sums) == 0 {
		return nil
	}
	m := make(map[string]string, len(sums))
	for _, c := range sums {
		m[c.Algorithm] = c.Value
	}
	return m
}
