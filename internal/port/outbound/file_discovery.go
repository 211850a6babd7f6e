package outbound

import "context"

// FileInfo describes one discovered file eligible for processing.
type FileInfo struct {
	RelativePath string
	Name         string
	Extension    string
	Size         int64
	AbsolutePath string
}

// FileDiscovery enumerates the processable files of a local working copy.
// Implementations apply the extension allow-list, ignore patterns, size
// ceiling, and binary detection before returning results.
type FileDiscovery interface {
	Discover(ctx context.Context, localPath string) ([]FileInfo, error)
}
