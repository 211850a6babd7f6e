// Package filefilter discovers the processable files of a working copy,
// applying the extension allow-list, ignore patterns, size ceiling, and
// binary detection.
package filefilter

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"codevectorizer/internal/application/common/slogger"
	"codevectorizer/internal/port/outbound"
)

// binarySniffSize is how many leading bytes are inspected for null bytes
// when classifying a file as binary.
const binarySniffSize = 1024

// DefaultMaxFileSize is the default per-file size ceiling (1 MiB).
const DefaultMaxFileSize int64 = 1024 * 1024

// DefaultExtensions returns the default allow-list of processable file
// extensions.
func DefaultExtensions() []string {
	return []string{
		".py", ".js", ".ts", ".jsx", ".tsx", ".java", ".cpp", ".c", ".h", ".hpp",
		".cs", ".php", ".rb", ".go", ".rs", ".swift", ".kt", ".scala", ".clj",
		".hs", ".ml", ".fs", ".sql", ".sh", ".bash", ".zsh", ".fish", ".ps1",
		".r", ".m", ".scm", ".lisp", ".el", ".vim", ".tex", ".md", ".rst",
		".yaml", ".yml", ".json", ".xml", ".html", ".css", ".scss", ".sass",
		".vue", ".svelte", ".astro", ".toml", ".ini", ".cfg", ".conf",
	}
}

// DefaultIgnorePatterns returns the path segments that exclude a file from
// discovery when any ancestor directory (or the file itself) matches.
func DefaultIgnorePatterns() []string {
	return []string{
		"__pycache__", ".git", ".svn", ".hg", ".DS_Store", "node_modules",
		"vendor", "dist", "build", "target", ".idea", ".vscode",
	}
}

// Config holds discovery rules.
type Config struct {
	Extensions     []string
	IgnorePatterns []string
	MaxFileSize    int64
}

// Discovery implements outbound.FileDiscovery over the local filesystem.
type Discovery struct {
	extensions     map[string]bool
	ignorePatterns map[string]bool
	maxFileSize    int64
}

// NewDiscovery creates a Discovery with the given rules, falling back to
// defaults for unset fields.
func NewDiscovery(config Config) *Discovery {
	extensions := config.Extensions
	if len(extensions) == 0 {
		extensions = DefaultExtensions()
	}
	ignorePatterns := config.IgnorePatterns
	if len(ignorePatterns) == 0 {
		ignorePatterns = DefaultIgnorePatterns()
	}
	maxFileSize := config.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}

	extMap := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		extMap[strings.ToLower(ext)] = true
	}
	ignoreMap := make(map[string]bool, len(ignorePatterns))
	for _, pattern := range ignorePatterns {
		ignoreMap[pattern] = true
	}

	return &Discovery{
		extensions:     extMap,
		ignorePatterns: ignoreMap,
		maxFileSize:    maxFileSize,
	}
}

// Discover walks the working copy and returns eligible files in lexical
// path order. Oversized and binary files are skipped with a warning;
// unreadable files are skipped rather than failing the walk.
func (d *Discovery) Discover(ctx context.Context, localPath string) ([]outbound.FileInfo, error) {
	var files []outbound.FileInfo

	err := filepath.WalkDir(localPath, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			slogger.Warn(ctx, "Skipping unreadable path", slogger.Fields{
				"path":  path,
				"error": walkErr.Error(),
			})
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if entry.IsDir() {
			if d.ignorePatterns[entry.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		relativePath, relErr := filepath.Rel(localPath, path)
		if relErr != nil {
			return relErr
		}
		relativePath = filepath.ToSlash(relativePath)

		if d.shouldIgnore(relativePath) {
			return nil
		}

		info, infoErr := entry.Info()
		if infoErr != nil {
			return nil
		}

		if info.Size() > d.maxFileSize {
			slogger.Warn(ctx, "Skipping oversized file", slogger.Fields{
				"path": relativePath,
				"size": info.Size(),
			})
			return nil
		}

		isBinary, binErr := d.isBinaryFile(path)
		if binErr != nil || isBinary {
			if isBinary {
				slogger.Warn(ctx, "Skipping binary file", slogger.Fields{
					"path": relativePath,
				})
			}
			return nil
		}

		files = append(files, outbound.FileInfo{
			RelativePath: relativePath,
			Name:         entry.Name(),
			Extension:    strings.ToLower(filepath.Ext(entry.Name())),
			Size:         info.Size(),
			AbsolutePath: path,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slogger.Info(ctx, "File discovery completed", slogger.Fields{
		"path":  localPath,
		"files": len(files),
	})
	return files, nil
}

func (d *Discovery) shouldIgnore(relativePath string) bool {
	for _, part := range strings.Split(relativePath, "/") {
		if d.ignorePatterns[part] {
			return true
		}
	}
	return !d.extensions[strings.ToLower(filepath.Ext(relativePath))]
}

// isBinaryFile sniffs the first kilobyte for null bytes.
func (d *Discovery) isBinaryFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return true, err
	}
	defer f.Close()

	buf := make([]byte, binarySniffSize)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return true, err
	}
	return bytes.ContainsRune(buf[:n], 0), nil
}
