package build

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vk/distmake/internal/ctxlog"
	"github.com/vk/distmake/internal/fetch"
	"github.com/vk/distmake/internal/fsutil"
	"github.com/vk/distmake/internal/manifest"
	"golang.org/x/sync/errgroup"
)

// translationsDir holds downloaded .po files inside a project.
const translationsDir = "translations"

// maxTranslationDownloads bounds concurrent .po downloads per project.
const maxTranslationDownloads = 4

// languages picks the translation languages of the project: its own list,
// then the command line, then the manifest.
func (p *pipeline) languages() []string {
	switch {
	case len(p.project.Translations) > 0:
		return p.project.Translations
	case len(p.opts.Languages) > 0:
		return p.opts.Languages
	default:
		return p.langs
	}
}

// TranslationURL is the location of a project's .po file on server.
func TranslationURL(server, core, project, version, lang string) string {
	return fmt.Sprintf("%s/%s/%s/%s-%s.%s.po", server, core, project, project, version, lang)
}

// translations downloads one .po file per language. A missing translation
// is a warning, never a failure.
func (p *pipeline) translations(ctx context.Context, _ *fetch.Result) error {
	langs := p.languages()
	if len(langs) == 0 || p.project.Type == manifest.TypeLibrary || p.server == "" || p.result.Version == "" {
		return nil
	}
	logger := ctxlog.FromContext(ctx)

	// Warnings are kept per language so they are reported in list order.
	warnings := make([]string, len(langs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxTranslationDownloads)
	for i, lang := range langs {
		g.Go(func() error {
			url := TranslationURL(p.server, p.core, p.project.Name, p.result.Version, lang)
			res, err := p.builder.fetcher.Fetch(gctx, p.project.Name,
				manifest.GetSpec{URL: url, Filename: lang + ".po"},
				filepath.Join(p.work, translationsDir, lang))
			if err == nil {
				err = fsutil.Move(res.Artifact, filepath.Join(p.tree(), translationsDir, lang+".po"))
			}
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn("Translation not available.", "language", lang, "error", err)
				warnings[i] = fmt.Sprintf("translation %s: %v", lang, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, w := range warnings {
		if w != "" {
			p.result.Warnings = append(p.result.Warnings, w)
		}
	}
	return nil
}
