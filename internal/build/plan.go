package build

import (
	"fmt"
	"path"

	"github.com/vk/distmake/internal/dag"
	"github.com/vk/distmake/internal/fsutil"
	"github.com/vk/distmake/internal/manifest"
)

var typeDirs = map[manifest.ProjectType]string{
	manifest.TypeModule:  "modules",
	manifest.TypeTheme:   "themes",
	manifest.TypeLibrary: "libraries",
}

// Plan is the validated layout of a build.
type Plan struct {
	// Order lists the planned projects in manifest order.
	Order []*manifest.Project
	// Destinations maps project name to its slash path below the root.
	Destinations map[string]string
	// Graph orders projects whose destinations nest.
	Graph *dag.Graph
}

// Destination computes where a project is placed, relative to the root.
func Destination(p *manifest.Project, contribOverride string) string {
	if p.Type == manifest.TypeCore {
		return "."
	}
	contrib := DefaultContribDestination
	if contribOverride != "" {
		contrib = contribOverride
	}
	if p.ContribDestination != "" {
		contrib = p.ContribDestination
	}

	var base string
	switch {
	case p.Destination != "" && p.Type == manifest.TypeProfile:
		base = p.Destination
	case p.Destination != "":
		base = path.Join(contrib, p.Destination)
	case p.Type == manifest.TypeProfile:
		base = "profiles"
	default:
		base = path.Join(contrib, typeDirs[p.Type])
	}
	return path.Join(base, p.Subdir, p.DirName())
}

// NewPlan assigns destinations and builds the dependency graph. Two projects
// with the same destination are a *PlacementError. A project placed inside
// another project's destination depends on it.
func NewPlan(m *manifest.Manifest, opts Options) (*Plan, error) {
	plan := &Plan{
		Destinations: make(map[string]string),
		Graph:        dag.New(),
	}
	owners := make(map[string]string)
	for _, p := range m.Projects {
		if opts.NoCore && p.Type == manifest.TypeCore {
			continue
		}
		dest := Destination(p, opts.ContribDestination)
		if other, ok := owners[dest]; ok {
			return nil, &PlacementError{
				Project:     p.Name,
				Destination: dest,
				Err:         fmt.Errorf("destination already used by project %s", other),
			}
		}
		owners[dest] = p.Name
		plan.Destinations[p.Name] = dest
		plan.Order = append(plan.Order, p)
		plan.Graph.AddNode(p.Name)
	}

	for _, outer := range plan.Order {
		for _, inner := range plan.Order {
			if outer == inner {
				continue
			}
			if fsutil.IsWithin(plan.Destinations[outer.Name], plan.Destinations[inner.Name]) {
				if err := plan.Graph.AddEdge(outer.Name, inner.Name); err != nil {
					return nil, err
				}
			}
		}
	}
	return plan, nil
}
