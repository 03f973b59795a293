package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/vk/distmake/internal/app"
	"github.com/vk/distmake/internal/build"
	"github.com/vk/distmake/internal/fetch"
	"github.com/vk/distmake/internal/fingerprint"
)

// Exit codes.
const (
	ExitBuildFailed = 1
	ExitUsage       = 2
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: ExitUsage, Message: fmt.Sprintf(format, args...)}
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := pflag.NewFlagSet("distmake", pflag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.SortFlags = false

	flagSet.Usage = func() {
		fmt.Fprint(output, `
distmake - assembles a site from a build manifest.

Usage:
  distmake [options] MANIFEST [BUILD_PATH]

Arguments:
  MANIFEST
    Path or http(s) URL of a .make/.hcl, .yml/.yaml or .json manifest.
  BUILD_PATH
    Directory to assemble the build in. Defaults to the current directory.

Options:
`)
		flagSet.PrintDefaults()
	}

	concurrency := flagSet.IntP("concurrency", "j", build.DefaultConcurrency, "Number of projects built at once.")
	noCore := flagSet.Bool("no-core", false, "Leave out the core project.")
	noInfoFiles := flagSet.Bool("no-info-files", false, "Do not stamp version information into .info files.")
	noGitInfoFile := flagSet.Bool("no-gitinfofile", false, "Do not stamp .info files of projects checked out from git.")
	ignoreChecksums := flagSet.Bool("ignore-checksums", false, "Warn instead of failing on checksum mismatches.")
	noPatchTxt := flagSet.Bool("no-patch-txt", false, "Do not write PATCHES.txt into patched projects.")
	translations := flagSet.StringSlice("translations", nil, "Comma separated translation languages, overriding the manifest.")
	contribDestination := flagSet.String("contrib-destination", "", "Directory holding contributed projects (default \"sites/all\").")
	cacheDir := flagSet.String("cache-dir", app.DefaultCacheDir(), "Directory holding git reference mirrors.")
	noCache := flagSet.Bool("no-cache", false, "Clone git repositories without the reference cache.")
	bestEffort := flagSet.Bool("best-effort", false, "Keep building independent projects after a failure.")
	lock := flagSet.String("lock", "", "Write a manifest pinning every resolved revision to this path.")
	fingerprintAlg := flagSet.String("fingerprint", fingerprint.DefaultAlgorithm, "Build fingerprint algorithm. Options: 'md5' or 'blake3'.")
	httpTimeout := flagSet.Duration("http-timeout", fetch.DefaultTimeout, "Timeout of a single HTTP download.")
	workingCopy := flagSet.Bool("working-copy", false, "Keep VCS metadata in git checkouts.")
	noRecursion := flagSet.Bool("no-recursion", false, "Ignore manifests shipped inside projects.")
	logFormat := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevel := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError("%v", err)
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() == 0 {
		slog.Debug("No manifest provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	if flagSet.NArg() > 2 {
		return nil, false, usageError("too many arguments: %s", strings.Join(flagSet.Args()[2:], " "))
	}

	*logFormat = strings.ToLower(*logFormat)
	if *logFormat != "text" && *logFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}
	*logLevel = strings.ToLower(*logLevel)
	switch *logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
	if *concurrency < 1 {
		return nil, false, usageError("invalid concurrency: must be at least 1")
	}
	*fingerprintAlg = strings.ToLower(*fingerprintAlg)
	if *fingerprintAlg != "md5" && *fingerprintAlg != "blake3" {
		return nil, false, usageError("invalid fingerprint: must be 'md5' or 'blake3'")
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ManifestPath:       flagSet.Arg(0),
		BuildPath:          flagSet.Arg(1),
		Concurrency:        *concurrency,
		NoCore:             *noCore,
		NoInfoFiles:        *noInfoFiles,
		IgnoreChecksums:    *ignoreChecksums,
		NoPatchTxt:         *noPatchTxt,
		Translations:       *translations,
		ContribDestination: *contribDestination,
		BestEffort:         *bestEffort,
		WorkingCopy:        *workingCopy,
		NoGitInfoFile:      *noGitInfoFile,
		NoRecursion:        *noRecursion,
		Fingerprint:        *fingerprintAlg,
		CacheDir:           *cacheDir,
		NoCache:            *noCache,
		LockPath:           *lock,
		HTTPTimeout:        *httpTimeout,
		LogFormat:          *logFormat,
		LogLevel:           *logLevel,
	})
	if err != nil {
		return nil, false, usageError("%v", err)
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
