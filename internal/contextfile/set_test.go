package contextfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAddGlob(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "a.go"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "b.go"), []byte("b"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "c.txt"), []byte("c"), 0644))

	s, err := LoadSet(filepath.Join(root, "context.json"))
	require.NoError(t, err)

	added, err := s.Add(root, "src/**/*.go")
	require.NoError(t, err)
	assert.Len(t, added, 2)
	assert.True(t, s.Contains(filepath.Join(root, "src", "a.go")))
	assert.False(t, s.Contains(filepath.Join(root, "src", "c.txt")))

	// Re-adding the same pattern adds nothing.
	added, err = s.Add(root, "src/**/*.go")
	require.NoError(t, err)
	assert.Empty(t, added)
}

func TestSetRoundTrip(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "nested", "context.json")
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("a"), 0644))

	s, err := LoadSet(file)
	require.NoError(t, err)
	_, err = s.Add(root, filepath.Join(root, "a.go"))
	require.NoError(t, err)
	require.NoError(t, s.Save())

	loaded, err := LoadSet(file)
	require.NoError(t, err)
	assert.Equal(t, s.Paths, loaded.Paths)
}

func TestSetRemove(t *testing.T) {
	s := &Set{Paths: []string{"/a", "/b"}}
	assert.True(t, s.Remove("/a"))
	assert.False(t, s.Remove("/a"))
	assert.Equal(t, []string{"/b"}, s.Paths)
}
