package mirror

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// DefaultMarker is the name of the zero-byte object that stands in for a
// directory in the object store.
const DefaultMarker = ".keep"

// Settings is the immutable, process-wide configuration of the pipeline.
// It is built once at startup and passed by value into the mapper and executor.
type Settings struct {
	// Root is the absolute, cleaned path of the watched directory.
	Root string
	// Bucket and Region identify the remote object store.
	Bucket string
	Region string
	// Endpoint is set for S3-compatible stores. When empty, locators use the
	// AWS virtual-hosted style.
	Endpoint string
	// Marker overrides DefaultMarker.
	Marker string
}

// NewSettings validates and normalizes the pipeline settings.
func NewSettings(root, bucket, region, endpoint string) (Settings, error) {
	if root == "" {
		return Settings{}, fmt.Errorf("root directory is required")
	}
	if bucket == "" {
		return Settings{}, fmt.Errorf("bucket is required")
	}
	if region == "" {
		return Settings{}, fmt.Errorf("region is required")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Settings{}, fmt.Errorf("resolving root directory: %w", err)
	}

	return Settings{
		Root:     filepath.Clean(absRoot),
		Bucket:   bucket,
		Region:   region,
		Endpoint: strings.TrimRight(endpoint, "/"),
		Marker:   DefaultMarker,
	}, nil
}

// Mapper returns the KeyMapper for these settings.
func (s Settings) Mapper() KeyMapper {
	return KeyMapper{Root: s.Root, Marker: s.Marker}
}

// Locator returns the public URL of the object stored under key.
// Each path segment is escaped; for plain names the result is the familiar
// https://<bucket>.s3.<region>.amazonaws.com/<key>.
func (s Settings) Locator(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	escaped := strings.Join(segments, "/")

	if s.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.Endpoint, s.Bucket, escaped)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.Bucket, s.Region, escaped)
}
