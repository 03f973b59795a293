package build

import "github.com/vk/distmake/internal/fingerprint"

const (
	// DefaultConcurrency is the number of projects built at once.
	DefaultConcurrency = 4
	// DefaultContribDestination holds contributed projects.
	DefaultContribDestination = "sites/all"
)

// Options controls a build.
type Options struct {
	// Root is the directory the build is assembled in.
	Root        string
	Concurrency int
	// NoCore leaves out projects of type core.
	NoCore          bool
	WriteInfoFiles  bool
	IgnoreChecksums bool
	// WritePatchManifest writes PATCHES.txt into patched projects.
	WritePatchManifest bool
	// Languages overrides the manifest's translation languages.
	Languages          []string
	ContribDestination string
	// BestEffort keeps building independent projects after a failure.
	BestEffort bool
	// UseReferenceCache lets git downloads borrow objects from the cache.
	UseReferenceCache bool
	// WorkingCopy keeps VCS metadata in every git checkout.
	WorkingCopy bool
	// NoGitInfoFiles leaves .info files of git checkouts unstamped.
	NoGitInfoFiles bool
	// NoRecursion ignores manifests shipped inside projects.
	NoRecursion          bool
	FingerprintAlgorithm string
}

// DefaultOptions returns the options used when a flag is not given.
func DefaultOptions(root string) Options {
	return Options{
		Root:                 root,
		Concurrency:          DefaultConcurrency,
		WriteInfoFiles:       true,
		WritePatchManifest:   true,
		UseReferenceCache:    true,
		FingerprintAlgorithm: fingerprint.DefaultAlgorithm,
	}
}
