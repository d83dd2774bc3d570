package mirror_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s3mirror/internal/mirror"
)

func TestKeyMapper_Key(t *testing.T) {
	m := mirror.KeyMapper{Root: "/data/root", Marker: mirror.DefaultMarker}

	tests := []struct {
		name    string
		path    string
		isDir   bool
		want    string
		wantErr error
	}{
		{name: "top-level file", path: "/data/root/a.txt", want: "a.txt"},
		{name: "nested file", path: "/data/root/a/b.txt", want: "a/b.txt"},
		{name: "directory gets marker", path: "/data/root/a", isDir: true, want: "a/.keep"},
		{name: "nested directory", path: "/data/root/a/b/c", isDir: true, want: "a/b/c/.keep"},
		{name: "trailing slash on directory", path: "/data/root/a/", isDir: true, want: "a/.keep"},
		{name: "unclean path", path: "/data/root/a/../b/./c.txt", want: "b/c.txt"},
		{name: "root as directory", path: "/data/root", isDir: true, want: ".keep"},
		{name: "spaces and unicode kept verbatim", path: "/data/root/dir x/ü.txt", want: "dir x/ü.txt"},
		{name: "outside root", path: "/data/other/a.txt", wantErr: mirror.ErrOutsideRoot},
		{name: "sibling with shared prefix", path: "/data/rootless/a.txt", wantErr: mirror.ErrOutsideRoot},
		{name: "escapes via dot-dot", path: "/data/root/../x.txt", wantErr: mirror.ErrOutsideRoot},
		{name: "relative path", path: "a.txt", wantErr: mirror.ErrOutsideRoot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Key(tt.path, tt.isDir)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeyMapper_RootAsFile(t *testing.T) {
	m := mirror.KeyMapper{Root: "/data/root"}
	_, err := m.Key("/data/root", false)
	assert.Error(t, err)
}

func TestKeyMapper_DefaultMarker(t *testing.T) {
	m := mirror.KeyMapper{Root: "/data/root"}
	got, err := m.Key("/data/root/a", true)
	require.NoError(t, err)
	assert.Equal(t, "a/.keep", got)
}

func TestKeyMapper_Deterministic(t *testing.T) {
	m := mirror.KeyMapper{Root: "/data/root", Marker: mirror.DefaultMarker}
	for i := 0; i < 3; i++ {
		got, err := m.Key("/data/root/x/y.txt", false)
		require.NoError(t, err)
		assert.Equal(t, "x/y.txt", got)
	}
}

func TestKeyMapper_Injective(t *testing.T) {
	m := mirror.KeyMapper{Root: "/data/root", Marker: mirror.DefaultMarker}

	inputs := []struct {
		path  string
		isDir bool
	}{
		{"/data/root/a", false},
		{"/data/root/a", true},
		{"/data/root/a/b", false},
		{"/data/root/a/b", true},
		{"/data/root/ab", false},
		{"/data/root/a b", false},
		{"/data/root/b/a", false},
	}

	seen := make(map[string]string)
	for _, in := range inputs {
		key, err := m.Key(in.path, in.isDir)
		require.NoError(t, err)
		id := in.path
		if in.isDir {
			id += " (dir)"
		}
		if prev, ok := seen[key]; ok {
			t.Fatalf("key %q produced by both %s and %s", key, prev, id)
		}
		seen[key] = id
	}
}

func TestKeyMapper_SharedPrefixIsOutsideRoot(t *testing.T) {
	m := mirror.KeyMapper{Root: "/data/root"}

	_, err := m.Key("/data/rootx/a.txt", false)
	assert.ErrorIs(t, err, mirror.ErrOutsideRoot)

	_, err = m.Key("/data", true)
	assert.ErrorIs(t, err, mirror.ErrOutsideRoot)
}
