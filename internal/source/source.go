package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"alert-digest/internal/digest"
)

// Reader decodes the records contained in one file.
type Reader interface {
	Read(path string) ([]digest.Record, error)
}

// Options parameterise the file loader.
type Options struct {
	Extensions []string
}

// Loader expands paths into files and dispatches each to a Reader by extension.
type Loader struct {
	readers map[string]Reader
	logger  zerolog.Logger
}

// NewLoader builds a loader for the given extensions. Unknown extensions
// are ignored with a warning.
func NewLoader(opts Options, logger zerolog.Logger) *Loader {
	l := &Loader{
		readers: make(map[string]Reader),
		logger:  logger.With().Str("component", "source").Logger(),
	}
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = []string{".eml", ".yaml", ".yml"}
	}
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		switch ext {
		case ".eml":
			l.readers[ext] = EML{}
		case ".yaml", ".yml":
			l.readers[ext] = YAML{}
		default:
			l.logger.Warn().Str("extension", ext).Msg("no reader for extension")
		}
	}
	return l
}

// Load reads every record reachable from paths. Directories are listed
// one level deep in lexical order. Files that cannot be read become
// rejections; only context cancellation returns an error.
func (l *Loader) Load(ctx context.Context, paths []string) ([]digest.Record, []digest.Rejection, error) {
	var (
		records    []digest.Record
		rejections []digest.Rejection
	)

	for _, file := range l.expand(paths, &rejections) {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		reader, ok := l.readers[strings.ToLower(filepath.Ext(file))]
		if !ok {
			rejections = append(rejections, digest.NewIgnoredFileRejection(filepath.Base(file)))
			continue
		}

		recs, err := reader.Read(file)
		if err != nil {
			l.logger.Warn().Err(err).Str("path", file).Msg("failed to read source file")
			rejections = append(rejections, digest.NewSourceRejection(file, err))
			continue
		}
		records = append(records, recs...)
	}

	l.logger.Info().Int("records", len(records)).Int("rejected", len(rejections)).Msg("sources loaded")
	return records, rejections, nil
}

func (l *Loader) expand(paths []string, rejections *[]digest.Rejection) []string {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			*rejections = append(*rejections, digest.NewSourceRejection(p, err))
			continue
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			*rejections = append(*rejections, digest.NewSourceRejection(p, fmt.Errorf("list directory: %w", err)))
			continue
		}
		var names []string
		for _, e := range entries {
			if e.Type().IsRegular() {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			files = append(files, filepath.Join(p, name))
		}
	}
	return files
}
