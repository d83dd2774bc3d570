package mirror_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s3mirror/internal/mirror"
)

func TestNewSettings(t *testing.T) {
	t.Run("normalizes root", func(t *testing.T) {
		s, err := mirror.NewSettings("/data/root/../root/", "bkt", "us-east-1", "")
		require.NoError(t, err)
		assert.Equal(t, "/data/root", s.Root)
		assert.Equal(t, mirror.DefaultMarker, s.Marker)
	})

	t.Run("relative root is made absolute", func(t *testing.T) {
		wd, err := os.Getwd()
		require.NoError(t, err)

		s, err := mirror.NewSettings("sub", "bkt", "us-east-1", "")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(wd, "sub"), s.Root)
	})

	t.Run("endpoint trailing slash trimmed", func(t *testing.T) {
		s, err := mirror.NewSettings("/r", "bkt", "us-east-1", "http://localhost:9000/")
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:9000", s.Endpoint)
	})

	missing := []struct {
		name                 string
		root, bucket, region string
	}{
		{"root", "", "bkt", "us-east-1"},
		{"bucket", "/r", "", "us-east-1"},
		{"region", "/r", "bkt", ""},
	}
	for _, tt := range missing {
		t.Run("missing "+tt.name, func(t *testing.T) {
			_, err := mirror.NewSettings(tt.root, tt.bucket, tt.region, "")
			assert.ErrorContains(t, err, tt.name)
		})
	}
}

func TestSettings_Locator(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		key      string
		want     string
	}{
		{name: "aws virtual-hosted", key: "a/b.txt", want: "https://bkt.s3.us-east-1.amazonaws.com/a/b.txt"},
		{name: "segments escaped", key: "dir x/a#1.txt", want: "https://bkt.s3.us-east-1.amazonaws.com/dir%20x/a%231.txt"},
		{name: "custom endpoint", endpoint: "http://localhost:9000", key: "a/b.txt", want: "http://localhost:9000/bkt/a/b.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := mirror.NewSettings("/data/root", "bkt", "us-east-1", tt.endpoint)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Locator(tt.key))
		})
	}
}
