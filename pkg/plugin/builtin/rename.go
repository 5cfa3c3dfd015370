package builtin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/0xmhha/hump-yard/pkg/logger"
)

// RenameName is the registry name of Rename.
const RenameName = "rename"

// DefaultTimestampLayout matches the strftime default %Y%m%d_%H%M%S.
const DefaultTimestampLayout = "20060102_150405"

// producedTTL is how long a renamed path is remembered. The rename itself
// shows up as a new file in the watched folder and must not be renamed again.
const producedTTL = time.Minute

// Rename prefixes files with a timestamp: <prefix><timestamp>_<name>.
//
// Config keys:
//   - prefix: prepended before the timestamp (default "")
//   - timestamp_format: Go layout or strftime pattern (default %Y%m%d_%H%M%S)
type Rename struct {
	logger logger.Logger
	now    func() time.Time

	mu       sync.Mutex
	produced map[string]time.Time
}

// NewRename creates the rename plugin.
func NewRename(log logger.Logger) *Rename {
	return &Rename{
		logger:   log.With("plugin", RenameName),
		now:      time.Now,
		produced: make(map[string]time.Time),
	}
}

func (r *Rename) Name() string    { return RenameName }
func (r *Rename) Version() string { return "1.0.0" }

// CanHandle accepts existing files that this plugin did not just produce.
func (r *Rename) CanHandle(filePath string) bool {
	if !isRegularFile(filePath) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	at, ok := r.produced[filePath]
	return !ok || r.now().Sub(at) > producedTTL
}

// Process renames the file in place. An existing target is never overwritten.
func (r *Rename) Process(_ context.Context, filePath string, config map[string]interface{}) (bool, error) {
	prefix := stringOption(config, "prefix", "")
	layout := ToGoLayout(stringOption(config, "timestamp_format", DefaultTimestampLayout))

	now := r.now()
	newName := fmt.Sprintf("%s%s_%s", prefix, now.Format(layout), filepath.Base(filePath))
	newPath := filepath.Join(filepath.Dir(filePath), newName)

	if _, err := os.Lstat(newPath); err == nil {
		r.logger.Error("rename target already exists", "file", filePath, "target", newPath)
		return false, nil
	}

	r.remember(newPath, now)
	r.logger.Info("renaming file", "from", filepath.Base(filePath), "to", newName)
	if err := os.Rename(filePath, newPath); err != nil {
		r.forget(newPath)
		if errors.Is(err, os.ErrNotExist) {
			r.logger.Error("file vanished before rename", "file", filePath)
			return false, nil
		}
		return false, fmt.Errorf("rename %s: %w", filePath, err)
	}
	return true, nil
}

func (r *Rename) remember(path string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for p, t := range r.produced {
		if at.Sub(t) > producedTTL {
			delete(r.produced, p)
		}
	}
	r.produced[path] = at
}

func (r *Rename) forget(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.produced, path)
}

var strftimeDirectives = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'p': "PM",
	'b': "Jan",
	'B': "January",
	'a': "Mon",
	'A': "Monday",
	'j': "002",
	'f': "000000",
	'z': "-0700",
	'Z': "MST",
	'%': "%",
}

// ToGoLayout converts a strftime pattern to a Go time layout. Strings
// without a % directive are returned unchanged; unknown directives are
// kept literally.
func ToGoLayout(format string) string {
	if !strings.Contains(format, "%") {
		return format
	}

	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 == len(format) {
			b.WriteByte(c)
			continue
		}
		i++
		if layout, ok := strftimeDirectives[format[i]]; ok {
			b.WriteString(layout)
		} else {
			b.WriteByte('%')
			b.WriteByte(format[i])
		}
	}
	return b.String()
}
