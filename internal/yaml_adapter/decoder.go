// Package yaml_adapter decodes YAML and JSON manifest documents. JSON input
// may carry comments and trailing commas; it is normalised and then read as
// YAML, of which it is a subset.
package yaml_adapter

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
	"github.com/vk/distmake/internal/ctxlog"
	"github.com/vk/distmake/internal/manifest"
	"gopkg.in/yaml.v3"
)

// Decoder is the YAML/JSON implementation of manifest.Decoder.
type Decoder struct{}

// NewDecoder creates a YAML/JSON decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Extensions implements manifest.Decoder.
func (d *Decoder) Extensions() []string {
	return []string{".yml", ".yaml", ".json", ".jsonc"}
}

var (
	rootKeys     = []string{"core", "api", "translation_server", "translations", "includes", "defaults", "projects"}
	defaultsKeys = []string{"subdir", "contrib_destination"}
	projectKeys  = []string{"type", "version", "subdir", "directory_name", "destination", "contrib_destination", "download", "patches", "translations", "skip_info_stamp"}
	downloadKeys = []string{"type", "url", "path", "filename", "subtree", "branch", "tag", "revision", "reference_cache", "working_copy", "extract", "checksums"}
	patchKeys    = []string{"url", "path", "checksums"}
)

type rootDoc struct {
	Core              *string      `yaml:"core"`
	API               *int         `yaml:"api"`
	TranslationServer *string      `yaml:"translation_server"`
	Translations      *[]string    `yaml:"translations"`
	Includes          []string     `yaml:"includes"`
	Defaults          *defaultsDoc `yaml:"defaults"`
}

type defaultsDoc struct {
	Subdir             *string `yaml:"subdir"`
	ContribDestination *string `yaml:"contrib_destination"`
}

type projectDoc struct {
	Type               *string      `yaml:"type"`
	Version            *string      `yaml:"version"`
	Subdir             *string      `yaml:"subdir"`
	DirectoryName      *string      `yaml:"directory_name"`
	Destination        *string      `yaml:"destination"`
	ContribDestination *string      `yaml:"contrib_destination"`
	Download           *downloadDoc `yaml:"download"`
	Patches            *[]patchDoc  `yaml:"patches"`
	Translations       *[]string    `yaml:"translations"`
	SkipInfoStamp      *bool        `yaml:"skip_info_stamp"`
}

type downloadDoc struct {
	Type           string            `yaml:"type"`
	URL            string            `yaml:"url"`
	Path           string            `yaml:"path"`
	Filename       string            `yaml:"filename"`
	Subtree        string            `yaml:"subtree"`
	Branch         string            `yaml:"branch"`
	Tag            string            `yaml:"tag"`
	Revision       string            `yaml:"revision"`
	ReferenceCache *bool             `yaml:"reference_cache"`
	WorkingCopy    *bool             `yaml:"working_copy"`
	Extract        *bool             `yaml:"extract"`
	Checksums      map[string]string `yaml:"checksums"`
}

// patchDoc accepts either a bare location string or a mapping with checksums.
type patchDoc struct {
	Location  string
	Checksums map[string]string
}

func (p *patchDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		p.Location = node.Value
		return nil
	}
	var m struct {
		URL       string            `yaml:"url"`
		Path      string            `yaml:"path"`
		Checksums map[string]string `yaml:"checksums"`
	}
	if err := node.Decode(&m); err != nil {
		return err
	}
	p.Location = m.URL
	if p.Location == "" {
		p.Location = m.Path
	}
	p.Checksums = m.Checksums
	return nil
}

// Decode implements manifest.Decoder.
func (d *Decoder) Decode(ctx context.Context, source string, data []byte) (*manifest.Document, error) {
	logger := ctxlog.FromContext(ctx)
	if ext := strings.ToLower(path.Ext(source)); ext == ".json" || ext == ".jsonc" {
		data = jsonc.ToJSON(data)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, &manifest.ParseError{Source: source, Err: err}
	}
	doc := &manifest.Document{Source: source}
	if node.Kind == 0 || len(node.Content) == 0 {
		logger.Debug("Empty manifest document.", "source", source)
		return doc, nil
	}
	root := node.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &manifest.ParseError{Source: source, Err: fmt.Errorf("%w: document root must be a mapping", manifest.ErrInvalidValue)}
	}
	if err := checkKeys(source, "", "", root, rootKeys); err != nil {
		return nil, err
	}

	var rd rootDoc
	if err := root.Decode(&rd); err != nil {
		return nil, &manifest.ParseError{Source: source, Err: err}
	}
	doc.Core = rd.Core
	doc.API = rd.API
	doc.TranslationServer = rd.TranslationServer
	doc.Translations = rd.Translations
	doc.Includes = rd.Includes
	if rd.Defaults != nil {
		if err := checkKeys(source, "", "defaults.", valueOf(root, "defaults"), defaultsKeys); err != nil {
			return nil, err
		}
		doc.Defaults = manifest.DefaultsDecl{Subdir: rd.Defaults.Subdir, ContribDestination: rd.Defaults.ContribDestination}
	}

	projects := valueOf(root, "projects")
	if projects == nil {
		return doc, nil
	}
	if projects.Kind != yaml.MappingNode {
		return nil, &manifest.ParseError{Source: source, Field: "projects", Err: fmt.Errorf("%w: projects must be a mapping", manifest.ErrInvalidValue)}
	}
	for i := 0; i+1 < len(projects.Content); i += 2 {
		name := projects.Content[i].Value
		decl, err := decodeProject(source, name, projects.Content[i+1])
		if err != nil {
			return nil, err
		}
		doc.Projects = append(doc.Projects, decl)
	}
	logger.Debug("YAML document decoded.", "source", source, "projects", len(doc.Projects), "includes", len(doc.Includes))
	return doc, nil
}

func decodeProject(source, name string, node *yaml.Node) (*manifest.ProjectDecl, error) {
	decl := &manifest.ProjectDecl{Name: name, Source: source}
	// "name: ~" or "name:" declares a project with nothing set.
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return decl, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, &manifest.ParseError{Source: source, Project: name, Err: fmt.Errorf("%w: project must be a mapping", manifest.ErrInvalidValue)}
	}
	if err := checkKeys(source, name, "", node, projectKeys); err != nil {
		return nil, err
	}
	if dl := valueOf(node, "download"); dl != nil {
		if err := checkKeys(source, name, "download.", dl, downloadKeys); err != nil {
			return nil, err
		}
	}
	if patches := valueOf(node, "patches"); patches != nil && patches.Kind == yaml.SequenceNode {
		for _, item := range patches.Content {
			if item.Kind == yaml.MappingNode {
				if err := checkKeys(source, name, "patches.", item, patchKeys); err != nil {
					return nil, err
				}
			}
		}
	}

	var pd projectDoc
	if err := node.Decode(&pd); err != nil {
		return nil, &manifest.ParseError{Source: source, Project: name, Err: err}
	}
	decl.Type = pd.Type
	decl.Version = pd.Version
	decl.Subdir = pd.Subdir
	decl.DirectoryName = pd.DirectoryName
	decl.Destination = pd.Destination
	decl.ContribDestination = pd.ContribDestination
	decl.Translations = pd.Translations
	decl.SkipInfoStamp = pd.SkipInfoStamp
	if pd.Download != nil {
		dl := manifest.DownloadDecl(*pd.Download)
		decl.Download = &dl
	}
	if pd.Patches != nil {
		patches := make([]manifest.PatchDecl, 0, len(*pd.Patches))
		for _, p := range *pd.Patches {
			patches = append(patches, manifest.PatchDecl{Location: p.Location, Checksums: p.Checksums})
		}
		decl.Patches = &patches
	}
	return decl, nil
}

// checkKeys reports the first key of a mapping node that is not allowed.
func checkKeys(source, project, prefix string, node *yaml.Node, allowed []string) error {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if !slices.Contains(allowed, key) {
			return &manifest.ParseError{Source: source, Project: project, Field: prefix + key, Err: manifest.ErrUnknownField}
		}
	}
	return nil
}

func valueOf(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
