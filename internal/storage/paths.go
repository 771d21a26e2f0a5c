package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNotResolvable means no canonical object key could be recovered from the
// stored location fields.
var ErrNotResolvable = errors.New("storage key not resolvable")

// Segment counts for ResolveKey when only a public URL was recorded.
// Originals live at albums/{albumId}/{file}, derived artifacts at
// {kind}/{albumId}/{file}.
const (
	OriginalKeySegments = 2
	DerivedKeySegments  = 3
)

func OriginalKey(albumID, assetID, ext string) string {
	return fmt.Sprintf("albums/%s/%s%s", albumID, assetID, ext)
}

func ThumbnailKey(albumID, assetID string) string {
	return fmt.Sprintf("thumbnails/%s/thumb_%s.jpg", albumID, assetID)
}

func PreviewKey(albumID, assetID, ext string) string {
	return fmt.Sprintf("previews/%s/preview_%s%s", albumID, assetID, ext)
}

// ResolveKey recovers the canonical object key from a media record's stored
// location fields. Older records are inconsistent: some have the relative key
// in storedPath, some have a full URL there instead, and some only recorded a
// public URL. Resolution order:
//
//  1. storedPath without a URL scheme is already canonical.
//  2. storedPath containing a URL scheme: the key is everything after the host.
//  3. only storedURL present: the key is the trailing `segments` path segments
//     (2 for originals, 3 for thumbnails/previews).
//
// Pure and deterministic; called once per blob during cascade deletion.
func ResolveKey(storedPath, storedURL string, segments int) (string, error) {
	if storedPath != "" {
		if !strings.Contains(storedPath, "://") {
			return storedPath, nil
		}
		u, err := url.Parse(storedPath)
		if err != nil || u.Path == "" || u.Path == "/" {
			return "", ErrNotResolvable
		}
		return strings.TrimPrefix(u.Path, "/"), nil
	}
	if storedURL != "" {
		u, err := url.Parse(storedURL)
		if err != nil {
			return "", ErrNotResolvable
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) < segments || parts[0] == "" {
			return "", ErrNotResolvable
		}
		return strings.Join(parts[len(parts)-segments:], "/"), nil
	}
	return "", ErrNotResolvable
}
