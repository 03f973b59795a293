package manifest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/vk/distmake/internal/ctxlog"
)

// maxRemoteDocument bounds the size of a manifest fetched over HTTP.
const maxRemoteDocument = 8 << 20

// Parser reads a manifest and everything it includes, merges the documents
// and resolves the result into a Manifest.
type Parser struct {
	decoders []Decoder
	client   *http.Client
}

// NewParser creates a parser. The first decoder is used for documents whose
// extension no decoder claims. A nil client means http.DefaultClient.
func NewParser(client *http.Client, decoders ...Decoder) *Parser {
	if client == nil {
		client = http.DefaultClient
	}
	return &Parser{decoders: decoders, client: client}
}

// Parse loads the manifest at location (a local path or an http(s) URL).
func (p *Parser) Parse(ctx context.Context, location string) (*Manifest, error) {
	tree, err := p.Load(ctx, location)
	if err != nil {
		return nil, err
	}
	m, err := Resolve(Merge(tree))
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Manifest resolved.", "source", m.Source, "projects", len(m.Projects))
	return m, nil
}

// Load reads location and, recursively, every document it includes. Relative
// paths inside each document are resolved against that document's location.
func (p *Parser) Load(ctx context.Context, location string) (*IncludeTree, error) {
	canonical, err := canonicalLocation(location)
	if err != nil {
		return nil, &ParseError{Source: location, Err: err}
	}
	return p.load(ctx, canonical, nil)
}

func (p *Parser) load(ctx context.Context, location string, stack []string) (*IncludeTree, error) {
	if slices.Contains(stack, location) {
		chain := strings.Join(append(stack, location), " -> ")
		return nil, &ParseError{Source: location, Err: fmt.Errorf("%w: %s", ErrIncludeCycle, chain)}
	}
	stack = append(stack, location)

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Reading manifest document.", "source", location)

	data, err := p.read(ctx, location)
	if err != nil {
		return nil, &ParseError{Source: location, Err: err}
	}
	doc, err := p.decoderFor(location).Decode(ctx, location, data)
	if err != nil {
		return nil, err
	}
	doc.Source = location
	if err := checkDuplicates(doc); err != nil {
		return nil, err
	}
	resolvePaths(doc)

	tree := &IncludeTree{Document: doc}
	for _, inc := range doc.Includes {
		child, err := p.load(ctx, inc, stack)
		if err != nil {
			return nil, err
		}
		tree.Includes = append(tree.Includes, child)
	}
	return tree, nil
}

func (p *Parser) decoderFor(location string) Decoder {
	ext := strings.ToLower(path.Ext(strings.SplitN(location, "?", 2)[0]))
	for _, d := range p.decoders {
		if slices.Contains(d.Extensions(), ext) {
			return d
		}
	}
	return p.decoders[0]
}

func (p *Parser) read(ctx context.Context, location string) ([]byte, error) {
	if !isURL(location) {
		return os.ReadFile(location)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected HTTP status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxRemoteDocument))
}

func checkDuplicates(doc *Document) error {
	seen := make(map[string]struct{}, len(doc.Projects))
	for _, pd := range doc.Projects {
		if _, ok := seen[pd.Name]; ok {
			return &ParseError{Source: doc.Source, Project: pd.Name, Err: fmt.Errorf("%w: project declared twice in one document", ErrInvalidValue)}
		}
		seen[pd.Name] = struct{}{}
	}
	return nil
}

// resolvePaths rewrites every relative reference in doc against its source.
func resolvePaths(doc *Document) {
	for i, inc := range doc.Includes {
		doc.Includes[i] = resolveAgainst(doc.Source, inc)
	}
	for _, pd := range doc.Projects {
		pd.Source = doc.Source
		if pd.Download != nil && pd.Download.Type == string(KindFile) {
			pd.Download.Path = resolveAgainst(doc.Source, pd.Download.Path)
			pd.Download.URL = resolveAgainst(doc.Source, pd.Download.URL)
		}
		if pd.Patches != nil {
			for i := range *pd.Patches {
				patch := &(*pd.Patches)[i]
				patch.Resolved = resolveAgainst(doc.Source, patch.Location)
			}
		}
	}
}

// resolveAgainst resolves ref relative to the document at base.
func resolveAgainst(base, ref string) string {
	if isURL(ref) || ref == "" {
		return ref
	}
	if isURL(base) {
		b, err := url.Parse(base)
		if err != nil {
			return ref
		}
		r, err := url.Parse(filepath.ToSlash(ref))
		if err != nil {
			return ref
		}
		return b.ResolveReference(r).String()
	}
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref)
	}
	return filepath.Join(filepath.Dir(base), ref)
}

func canonicalLocation(location string) (string, error) {
	if isURL(location) {
		u, err := url.Parse(location)
		if err != nil {
			return "", err
		}
		return u.String(), nil
	}
	return filepath.Abs(location)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
