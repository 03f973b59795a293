package manifest

// IncludeTree is a document together with the documents it includes, in
// declaration order.
type IncludeTree struct {
	Document *Document
	Includes []*IncludeTree
}

// Merge folds an include tree into a single Document. Included documents
// are merged first, in order, so a later include overrides an earlier one;
// the including document is applied last and wins. Overrides are shallow:
// each field set on a project replaces the included value of that field and
// nothing else. Merge never mutates the tree.
func Merge(tree *IncludeTree) *Document {
	merged := &Document{Source: tree.Document.Source}
	for _, child := range tree.Includes {
		overlay(merged, Merge(child))
	}
	overlay(merged, tree.Document)
	merged.Source = tree.Document.Source
	merged.Includes = nil
	return merged
}

// overlay applies every field set in src on top of dst.
func overlay(dst, src *Document) {
	if src.Core != nil {
		dst.Core = src.Core
	}
	if src.API != nil {
		dst.API = src.API
	}
	if src.TranslationServer != nil {
		dst.TranslationServer = src.TranslationServer
	}
	if src.Translations != nil {
		langs := append([]string(nil), (*src.Translations)...)
		dst.Translations = &langs
	}
	if src.Defaults.Subdir != nil {
		dst.Defaults.Subdir = src.Defaults.Subdir
	}
	if src.Defaults.ContribDestination != nil {
		dst.Defaults.ContribDestination = src.Defaults.ContribDestination
	}

	for _, p := range src.Projects {
		if existing := findDecl(dst.Projects, p.Name); existing != nil {
			overrideProject(existing, p)
			continue
		}
		dst.Projects = append(dst.Projects, p.clone())
	}
}

func overrideProject(dst, src *ProjectDecl) {
	src = src.clone()
	dst.Source = src.Source
	if src.Type != nil {
		dst.Type = src.Type
	}
	if src.Version != nil {
		dst.Version = src.Version
	}
	if src.Subdir != nil {
		dst.Subdir = src.Subdir
	}
	if src.DirectoryName != nil {
		dst.DirectoryName = src.DirectoryName
	}
	if src.Destination != nil {
		dst.Destination = src.Destination
	}
	if src.ContribDestination != nil {
		dst.ContribDestination = src.ContribDestination
	}
	if src.Download != nil {
		dst.Download = src.Download
	}
	if src.Patches != nil {
		dst.Patches = src.Patches
	}
	if src.Translations != nil {
		dst.Translations = src.Translations
	}
	if src.SkipInfoStamp != nil {
		dst.SkipInfoStamp = src.SkipInfoStamp
	}
}

func findDecl(decls []*ProjectDecl, name string) *ProjectDecl {
	for _, d := range decls {
		if d.Name == name {
			return d
		}
	}
	return nil
}
