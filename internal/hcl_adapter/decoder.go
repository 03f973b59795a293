// Package hcl_adapter decodes HCL manifest documents into the
// format-agnostic manifest.Document.
package hcl_adapter

import (
	"context"
	"fmt"
	"regexp"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/distmake/internal/ctxlog"
	"github.com/vk/distmake/internal/manifest"
)

// Decoder is the HCL implementation of manifest.Decoder.
type Decoder struct{}

// NewDecoder creates a new HCL manifest decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Extensions implements manifest.Decoder.
func (d *Decoder) Extensions() []string {
	return []string{".hcl", ".make"}
}

// Decode implements manifest.Decoder.
func (d *Decoder) Decode(ctx context.Context, source string, data []byte) (*manifest.Document, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL decoder started.", "source", source)

	file, diags := hclparse.NewParser().ParseHCL(data, source)
	if diags.HasErrors() {
		return nil, &manifest.ParseError{Source: source, Err: diags}
	}

	var root rootBlock
	if diags := gohcl.DecodeBody(file.Body, evalContext(source, nil), &root); diags.HasErrors() {
		return nil, diagError(source, "", "", diags)
	}

	doc := &manifest.Document{
		Source:            source,
		Core:              root.Core,
		API:               root.API,
		TranslationServer: root.TranslationServer,
		Translations:      root.Translations,
		Includes:          root.Includes,
	}
	if root.Defaults != nil {
		doc.Defaults = manifest.DefaultsDecl{
			Subdir:             root.Defaults.Subdir,
			ContribDestination: root.Defaults.ContribDestination,
		}
	}

	evalCtx := evalContext(source, root.Core)
	for _, header := range root.Projects {
		decl, err := decodeProject(source, header, evalCtx)
		if err != nil {
			return nil, err
		}
		doc.Projects = append(doc.Projects, decl)
	}

	logger.Debug("HCL document decoded.", "source", source, "projects", len(doc.Projects), "includes", len(doc.Includes))
	return doc, nil
}

func decodeProject(source string, header *projectHeader, evalCtx *hcl.EvalContext) (*manifest.ProjectDecl, error) {
	var pb projectBlock
	if diags := gohcl.DecodeBody(header.Body, evalCtx, &pb); diags.HasErrors() {
		return nil, diagError(source, header.Name, "", diags)
	}

	decl := &manifest.ProjectDecl{
		Name:               header.Name,
		Source:             source,
		Type:               pb.Type,
		Version:            pb.Version,
		Subdir:             pb.Subdir,
		DirectoryName:      pb.DirectoryName,
		Destination:        pb.Destination,
		ContribDestination: pb.ContribDestination,
		Translations:       pb.Translations,
		SkipInfoStamp:      pb.SkipInfoStamp,
	}

	if pb.Download != nil {
		var db downloadBlock
		if diags := gohcl.DecodeBody(pb.Download.Body, evalCtx, &db); diags.HasErrors() {
			return nil, diagError(source, header.Name, "download.", diags)
		}
		decl.Download = &manifest.DownloadDecl{
			Type:           pb.Download.Label,
			URL:            db.URL,
			Path:           db.Path,
			Filename:       db.Filename,
			Subtree:        db.Subtree,
			Branch:         db.Branch,
			Tag:            db.Tag,
			Revision:       db.Revision,
			ReferenceCache: db.ReferenceCache,
			WorkingCopy:    db.WorkingCopy,
			Extract:        db.Extract,
			Checksums:      db.Checksums,
		}
	}

	if pb.PatchList != nil && len(pb.Patches) > 0 {
		return nil, &manifest.ParseError{
			Source:  source,
			Project: header.Name,
			Field:   "patches",
			Err:     fmt.Errorf("%w: use either the patches list or patch blocks, not both", manifest.ErrInvalidValue),
		}
	}
	switch {
	case pb.PatchList != nil:
		patches := make([]manifest.PatchDecl, 0, len(*pb.PatchList))
		for _, loc := range *pb.PatchList {
			patches = append(patches, manifest.PatchDecl{Location: loc})
		}
		decl.Patches = &patches
	case len(pb.Patches) > 0:
		patches := make([]manifest.PatchDecl, 0, len(pb.Patches))
		for _, ph := range pb.Patches {
			var patch patchBlock
			if diags := gohcl.DecodeBody(ph.Body, evalCtx, &patch); diags.HasErrors() {
				return nil, diagError(source, header.Name, "patch.", diags)
			}
			patches = append(patches, manifest.PatchDecl{Location: ph.Label, Checksums: patch.Checksums})
		}
		decl.Patches = &patches
	}
	return decl, nil
}

var quotedName = regexp.MustCompile(`"([^"]+)"`)

// diagError converts decoding diagnostics into a *manifest.ParseError.
// Unsupported arguments and block types become ErrUnknownField naming the
// offending field.
func diagError(source, project, prefix string, diags hcl.Diagnostics) error {
	for _, diag := range diags.Errs() {
		d, ok := diag.(*hcl.Diagnostic)
		if !ok {
			continue
		}
		if d.Summary != "Unsupported argument" && d.Summary != "Unsupported block type" {
			continue
		}
		field := "?"
		if m := quotedName.FindStringSubmatch(d.Detail); m != nil {
			field = m[1]
		}
		return &manifest.ParseError{Source: source, Project: project, Field: prefix + field, Err: manifest.ErrUnknownField}
	}
	return &manifest.ParseError{Source: source, Project: project, Err: diags}
}
