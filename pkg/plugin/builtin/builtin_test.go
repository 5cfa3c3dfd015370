package builtin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/hump-yard/pkg/logger"
	"github.com/0xmhha/hump-yard/pkg/plugin"
)

func createFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFactoriesRegisterAll(t *testing.T) {
	reg := plugin.NewRegistry(logger.Noop())
	assert.Equal(t, 3, reg.DiscoverBuiltin(Factories(logger.Noop())))
	assert.ElementsMatch(t, []string{NoopName, RenameName, MetadataName}, reg.Names())

	// A second builtin pass conflicts on every name and changes nothing.
	assert.Equal(t, 0, reg.DiscoverBuiltin(Factories(logger.Noop())))
	assert.Len(t, reg.Names(), 3)
}

func TestNoop(t *testing.T) {
	dir := t.TempDir()
	file := createFile(t, dir, "a.jpg", "x")

	p := Noop{}
	assert.True(t, p.CanHandle(file))
	assert.False(t, p.CanHandle(dir))
	assert.False(t, p.CanHandle(filepath.Join(dir, "missing")))

	ok, err := p.Process(context.Background(), file, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRenameProcess(t *testing.T) {
	dir := t.TempDir()
	file := createFile(t, dir, "photo.jpg", "x")

	r := NewRename(logger.Noop())
	r.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }

	require.True(t, r.CanHandle(file))
	ok, err := r.Process(context.Background(), file, map[string]interface{}{"prefix": "cam_"})
	require.NoError(t, err)
	require.True(t, ok)

	renamed := filepath.Join(dir, "cam_20240309_140507_photo.jpg")
	assert.FileExists(t, renamed)
	assert.NoFileExists(t, file)

	assert.False(t, r.CanHandle(renamed), "freshly renamed files are not renamed again")

	later := r.now().Add(2 * producedTTL)
	r.now = func() time.Time { return later }
	assert.True(t, r.CanHandle(renamed))
}

func TestRenameStrftimeFormat(t *testing.T) {
	dir := t.TempDir()
	file := createFile(t, dir, "scan.tif", "x")

	r := NewRename(logger.Noop())
	r.now = func() time.Time { return time.Date(2023, 12, 1, 8, 0, 0, 0, time.UTC) }

	ok, err := r.Process(context.Background(), file, map[string]interface{}{"timestamp_format": "%Y-%m-%d"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.FileExists(t, filepath.Join(dir, "2023-12-01_scan.tif"))
}

func TestRenameRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	file := createFile(t, dir, "a.jpg", "new")
	existing := createFile(t, dir, "20240101_000000_a.jpg", "old")

	r := NewRename(logger.Noop())
	r.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	ok, err := r.Process(context.Background(), file, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	data, readErr := os.ReadFile(existing)
	require.NoError(t, readErr)
	assert.Equal(t, "old", string(data))
	assert.FileExists(t, file)
}

func TestRenameVanishedFile(t *testing.T) {
	r := NewRename(logger.Noop())
	ok, err := r.Process(context.Background(), filepath.Join(t.TempDir(), "gone.jpg"), nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestToGoLayout(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"%Y%m%d_%H%M%S", "20060102_150405"},
		{"%y-%b-%d", "06-Jan-02"},
		{"20060102", "20060102"},
		{"100%%", "100%"},
		{"%Q", "%Q"},
		{"trailing%", "trailing%"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ToGoLayout(tt.in))
		})
	}
}

func TestMetadataSidecar(t *testing.T) {
	dir := t.TempDir()
	file := createFile(t, dir, "IMG_0001.JPG", "pixels")

	m := NewMetadata(logger.Noop())
	require.True(t, m.CanHandle(file))
	assert.False(t, m.CanHandle(createFile(t, dir, "notes.txt", "x")))

	ok, err := m.Process(context.Background(), file, nil)
	require.NoError(t, err)
	require.True(t, ok)

	data, err := os.ReadFile(filepath.Join(dir, "IMG_0001.meta.json"))
	require.NoError(t, err)

	var meta FileMetadata
	require.NoError(t, json.Unmarshal(data, &meta))
	sum := sha256.Sum256([]byte("pixels"))
	assert.Equal(t, "IMG_0001.JPG", meta.File)
	assert.Equal(t, int64(6), meta.Size)
	assert.Equal(t, hex.EncodeToString(sum[:]), meta.SHA256)
}

func TestMetadataOutputDir(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()
	file := createFile(t, dir, "a.png", "x")

	ok, err := NewMetadata(logger.Noop()).Process(context.Background(), file, map[string]interface{}{"output_dir": out})
	require.NoError(t, err)
	require.True(t, ok)
	assert.FileExists(t, filepath.Join(out, "a_meta.json"))
}

func TestMetadataCancelled(t *testing.T) {
	file := createFile(t, t.TempDir(), "a.png", "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := NewMetadata(logger.Noop()).Process(ctx, file, nil)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}
