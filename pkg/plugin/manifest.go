package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/0xmhha/hump-yard/pkg/logger"
)

// Manifest describes an external, command-backed plugin.
//
//	name: thumbnail
//	version: 1.2.0
//	command: ./thumbnail.sh
//	args: [--size, "256"]
//	extensions: [.jpg, .png]
//	timeout: 30s
type Manifest struct {
	Name       string        `yaml:"name" validate:"required,excludesall=/\\"`
	Version    string        `yaml:"version"`
	Command    string        `yaml:"command" validate:"required"`
	Args       []string      `yaml:"args"`
	Extensions []string      `yaml:"extensions" validate:"dive,required"`
	Timeout    time.Duration `yaml:"timeout" validate:"gte=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ManifestSource discovers external plugins from *.yaml / *.yml manifests.
type ManifestSource struct {
	dirs   []string
	logger logger.Logger
}

// NewManifestSource creates a source scanning dirs (non-recursively).
// Missing directories are skipped.
func NewManifestSource(dirs []string, log logger.Logger) *ManifestSource {
	return &ManifestSource{dirs: dirs, logger: log}
}

// Candidates returns one candidate per manifest file. Parsing happens in the
// candidate factory so a broken manifest only affects itself.
func (s *ManifestSource) Candidates() ([]Candidate, error) {
	var (
		out  []Candidate
		errs []error
	)

	for _, dir := range s.dirs {
		dir = expandHome(dir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				s.logger.Debug("plugin directory not found, skipping", "path", dir)
				continue
			}
			errs = append(errs, fmt.Errorf("read plugin directory %s: %w", dir, err))
			continue
		}

		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".yaml", ".yml":
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			path := filepath.Join(dir, name)
			out = append(out, Candidate{
				Origin: path,
				New: func() (Plugin, error) {
					m, err := LoadManifest(path)
					if err != nil {
						return nil, err
					}
					return NewExecPlugin(m, filepath.Dir(path), s.logger)
				},
			})
		}
	}

	return out, errors.Join(errs...)
}

// LoadManifest reads and validates one manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, path, err)
	}
	m.Name = strings.TrimSpace(m.Name)
	m.Command = strings.TrimSpace(m.Command)
	if err := validateManifest(&m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, path, err)
	}
	if m.Version == "" {
		m.Version = "0.0.0"
	}
	return &m, nil
}

func validateManifest(m *Manifest) error {
	err := validate.Struct(m)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	messages := make([]string, 0, len(verrs))
	for _, e := range verrs {
		messages = append(messages, validationMessage(e))
	}
	return errors.New(strings.Join(messages, "; "))
}

func validationMessage(e validator.FieldError) string {
	field := e.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "excludesall":
		return fmt.Sprintf("%s must not contain any of %q", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, e.Tag())
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}
