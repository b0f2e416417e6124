package context

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/promptlab/promptflow/artifact"
)

// SourceLimits bounds how much raw material a SourceSet will assemble.
type SourceLimits struct {
	MaxFileSize  int64 // Max size per source file in bytes
	MaxTotalSize int64 // Max assembled size in bytes
	MaxFileCount int   // Max number of source files
}

// DefaultSourceLimits returns the standard extraction limits.
func DefaultSourceLimits() SourceLimits {
	return SourceLimits{
		MaxFileSize:  100 * 1024,
		MaxTotalSize: 500 * 1024,
		MaxFileCount: 50,
	}
}

// SourceSet gathers raw prompt material from a directory and assembles it
// into seed content for a raw-stage artifact. Extraction steps use it to
// turn scattered notes and exports into one document the lifecycle can
// score and promote.
type SourceSet struct {
	dir      string
	limits   SourceLimits
	includes []string
	excludes []string
	files    []sourceFile
}

type sourceFile struct {
	path    string
	content []byte
}

// NewSourceSet creates a source set rooted at dir.
func NewSourceSet(dir string) *SourceSet {
	return &SourceSet{
		dir:    dir,
		limits: DefaultSourceLimits(),
	}
}

// WithLimits replaces the default extraction limits.
func (s *SourceSet) WithLimits(limits SourceLimits) *SourceSet {
	s.limits = limits
	return s
}

// Include adds glob patterns, relative to the set's directory, whose matches
// Gather will read.
func (s *SourceSet) Include(patterns ...string) *SourceSet {
	s.includes = append(s.includes, patterns...)
	return s
}

// Exclude adds glob patterns whose matches Gather will skip even when an
// include pattern matched them.
func (s *SourceSet) Exclude(patterns ...string) *SourceSet {
	s.excludes = append(s.excludes, patterns...)
	return s
}

// AddContent adds pre-loaded material under a virtual path, ahead of
// anything Gather reads from disk.
func (s *SourceSet) AddContent(path string, content []byte) {
	s.files = append(s.files, sourceFile{path: path, content: content})
}

// Gather reads every file the include patterns match and the exclude
// patterns do not, in sorted path order. Directories, binary files, and
// unreadable files are skipped with a debug log rather than failing the
// extraction.
func (s *SourceSet) Gather() error {
	matched := make(map[string]bool)

	for _, pattern := range s.includes {
		paths, err := filepath.Glob(filepath.Join(s.dir, pattern))
		if err != nil {
			return fmt.Errorf("glob %s: %w", pattern, err)
		}
		for _, path := range paths {
			if rel, err := filepath.Rel(s.dir, path); err == nil {
				matched[rel] = true
			}
		}
	}

	for _, pattern := range s.excludes {
		paths, err := filepath.Glob(filepath.Join(s.dir, pattern))
		if err != nil {
			continue
		}
		for _, path := range paths {
			if rel, err := filepath.Rel(s.dir, path); err == nil {
				delete(matched, rel)
			}
		}
	}

	paths := make([]string, 0, len(matched))
	for path := range matched {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		full := filepath.Join(s.dir, path)
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			continue
		}
		content, err := os.ReadFile(full)
		if err != nil {
			slog.Debug("skipping unreadable source",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		if isBinary(content) {
			slog.Debug("skipping binary source", slog.String("path", path))
			continue
		}
		s.files = append(s.files, sourceFile{path: path, content: content})
	}

	return nil
}

// FileCount returns the number of gathered files.
func (s *SourceSet) FileCount() int {
	return len(s.files)
}

// Assemble concatenates the gathered material into one tagged document,
// truncating oversized files and enforcing the set's limits.
func (s *SourceSet) Assemble() (string, error) {
	if len(s.files) > s.limits.MaxFileCount {
		return "", fmt.Errorf("%w: %d files > max %d",
			ErrSourceTooLarge, len(s.files), s.limits.MaxFileCount)
	}

	var buf bytes.Buffer
	var totalSize int64

	for _, f := range s.files {
		content := f.content
		if int64(len(content)) > s.limits.MaxFileSize {
			content = content[:s.limits.MaxFileSize]
			content = append(content, []byte("\n\n[... truncated ...]")...)
		}

		totalSize += int64(len(content))
		if totalSize > s.limits.MaxTotalSize {
			return "", fmt.Errorf("%w: total size %d > max %d",
				ErrSourceTooLarge, totalSize, s.limits.MaxTotalSize)
		}

		fmt.Fprintf(&buf, "<source path=%q>\n", f.path)
		buf.Write(content)
		if !bytes.HasSuffix(content, []byte("\n")) {
			buf.WriteByte('\n')
		}
		buf.WriteString("</source>\n\n")
	}

	return buf.String(), nil
}

// Artifact assembles the gathered material into a fresh raw-stage artifact
// named base, at version 1.0.0, ready for the scoring gate.
func (s *SourceSet) Artifact(base string) (artifact.Artifact, error) {
	content, err := s.Assemble()
	if err != nil {
		return artifact.Artifact{}, err
	}
	if content == "" {
		return artifact.Artifact{}, fmt.Errorf("no source material gathered for %s", base)
	}
	return artifact.New(base, artifact.Version{Major: 1}, []byte(content)), nil
}

// isBinary detects binary content by checking for null bytes.
func isBinary(data []byte) bool {
	sample := data
	if len(sample) > 8192 {
		sample = sample[:8192]
	}
	return bytes.Contains(sample, []byte{0})
}
