package builtin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/0xmhha/hump-yard/pkg/logger"
)

// MetadataName is the registry name of Metadata.
const MetadataName = "metadata"

// SidecarSuffix is appended to the file stem when writing next to the image.
const SidecarSuffix = ".meta.json"

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".tiff": true,
	".tif":  true,
	".png":  true,
}

// FileMetadata is the sidecar document written for each image.
type FileMetadata struct {
	File     string    `json:"file"`
	Size     int64     `json:"size"`
	Mode     string    `json:"mode"`
	Modified time.Time `json:"modified"`
	SHA256   string    `json:"sha256"`
}

// Metadata writes a JSON sidecar describing each image file.
//
// Config keys:
//   - output_dir: write <stem>_meta.json there instead of <stem>.meta.json
//     next to the image
type Metadata struct {
	logger logger.Logger
}

// NewMetadata creates the metadata plugin.
func NewMetadata(log logger.Logger) *Metadata {
	return &Metadata{logger: log.With("plugin", MetadataName)}
}

func (m *Metadata) Name() string    { return MetadataName }
func (m *Metadata) Version() string { return "1.0.0" }

func (m *Metadata) CanHandle(filePath string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(filePath))] && isRegularFile(filePath)
}

func (m *Metadata) Process(ctx context.Context, filePath string, config map[string]interface{}) (bool, error) {
	meta, err := describe(ctx, filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			m.logger.Error("file vanished before processing", "file", filePath)
			return false, nil
		}
		return false, err
	}

	out := SidecarPath(filePath, stringOption(config, "output_dir", ""))
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return false, fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(out, append(data, '\n'), 0o644); err != nil { // nolint:gosec
		m.logger.Error("failed to write metadata", "file", filePath, "output", out, "error", err)
		return false, nil
	}

	m.logger.Info("metadata saved", "file", filePath, "output", out)
	return true, nil
}

// SidecarPath returns where the metadata document for filePath is written.
func SidecarPath(filePath, outputDir string) string {
	stem := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	if outputDir != "" {
		return filepath.Join(outputDir, stem+"_meta.json")
	}
	return filepath.Join(filepath.Dir(filePath), stem+SidecarSuffix)
}

func describe(ctx context.Context, filePath string) (*FileMetadata, error) {
	f, err := os.Open(filePath) // nolint:gosec
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", filePath, err)
	}

	h := sha256.New()
	if _, err := io.Copy(h, &ctxReader{ctx: ctx, r: f}); err != nil {
		return nil, fmt.Errorf("hash %s: %w", filePath, err)
	}

	return &FileMetadata{
		File:     filepath.Base(filePath),
		Size:     info.Size(),
		Mode:     info.Mode().String(),
		Modified: info.ModTime().UTC(),
		SHA256:   hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// ctxReader stops a long hash when the daemon shuts down.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
