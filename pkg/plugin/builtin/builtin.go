// Package builtin contains the processors bundled with hump-yard.
package builtin

import (
	"os"

	"github.com/0xmhha/hump-yard/pkg/logger"
	"github.com/0xmhha/hump-yard/pkg/plugin"
)

// Factories returns the bundled plugins keyed by name.
func Factories(log logger.Logger) plugin.Factories {
	return plugin.Factories{
		NoopName: func() (plugin.Plugin, error) {
			return Noop{}, nil
		},
		RenameName: func() (plugin.Plugin, error) {
			return NewRename(log), nil
		},
		MetadataName: func() (plugin.Plugin, error) {
			return NewMetadata(log), nil
		},
	}
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func stringOption(config map[string]interface{}, key, def string) string {
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}
	return def
}
