package outbound

import "context"

// SourceProvider retrieves and releases local working copies of remote
// repositories and fingerprints their files.
type SourceProvider interface {
	// Clone obtains a local working copy for the given URL. The
	// destination hint names the repository-scoped directory under the
	// provider's workspace. Returns the local path of the working copy.
	Clone(ctx context.Context, url, destinationHint string) (string, error)

	// FileContentHash computes the stable content fingerprint of the
	// file at the given absolute path.
	FileContentHash(path string) (string, error)

	// Remove releases a working copy previously returned by Clone.
	Remove(localPath string) error
}
