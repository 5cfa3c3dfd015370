package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/0xmhha/hump-yard/pkg/logger"
)

// Load builds a RuleSet from raw folder entries.
//
// Entries missing path or plugin, or carrying a field of the wrong type, are
// skipped with a warning and returned in skipped; the remaining entries are
// still loaded. Template entries (a _comment entry with at most three keys,
// or a path under PlaceholderPrefix) are skipped silently.
func Load(entries []map[string]interface{}, log logger.Logger) (*RuleSet, []*ConfigError) {
	rs := &RuleSet{rules: make([]FolderRule, 0, len(entries))}
	var skipped []*ConfigError

	for i, entry := range entries {
		if isTemplateEntry(entry) {
			log.Debug("skipping template folder entry", "index", i)
			continue
		}

		rule, cfgErr := parseEntry(i, entry)
		if cfgErr != nil {
			log.Warn("skipping folder entry", "index", i, "error", cfgErr)
			skipped = append(skipped, cfgErr)
			continue
		}

		rs.rules = append(rs.rules, rule)
		log.Debug("added folder rule",
			"path", rule.Path,
			"recursive", rule.Recursive,
			"plugin", rule.Plugin)
	}

	log.Info("loaded folder rules", "rules", len(rs.rules), "skipped", len(skipped))
	return rs, skipped
}

// New builds a RuleSet from already-validated rules, canonicalising paths
// and extensions. Rules without a path or plugin are dropped.
func New(rules ...FolderRule) *RuleSet {
	rs := &RuleSet{rules: make([]FolderRule, 0, len(rules))}
	for _, r := range rules {
		if strings.TrimSpace(r.Path) == "" || strings.TrimSpace(r.Plugin) == "" {
			continue
		}
		r.Path = canonicalPath(r.Path)
		r.Extensions = normalizeExtensions(r.Extensions)
		if r.PluginConfig == nil {
			r.PluginConfig = map[string]interface{}{}
		}
		rs.rules = append(rs.rules, r)
	}
	return rs
}

// Match returns the first rule whose folder contains filePath and whose
// extension filter accepts it.
func (rs *RuleSet) Match(filePath string) (*FolderRule, bool) {
	if rs == nil || filePath == "" {
		return nil, false
	}

	resolved := canonicalPath(filePath)
	ext := suffix(resolved)

	for i := range rs.rules {
		rule := &rs.rules[i]
		if !rule.contains(resolved) {
			continue
		}
		if rule.accepts(ext) {
			return rule, true
		}
	}
	return nil, false
}

// Rules returns a copy of the rules in declared order.
func (rs *RuleSet) Rules() []FolderRule {
	if rs == nil {
		return nil
	}
	return slices.Clone(rs.rules)
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

func (r *FolderRule) contains(resolved string) bool {
	if resolved == r.Path {
		return true
	}
	if !r.Recursive {
		return filepath.Dir(resolved) == r.Path
	}
	rel, err := filepath.Rel(r.Path, resolved)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (r *FolderRule) accepts(ext string) bool {
	if len(r.Extensions) == 0 {
		return true
	}
	return ext != "" && slices.Contains(r.Extensions, ext)
}

func isTemplateEntry(entry map[string]interface{}) bool {
	if _, ok := entry[KeyComment]; ok && len(entry) <= 3 {
		return true
	}
	if p, ok := entry[KeyPath].(string); ok && strings.HasPrefix(p, PlaceholderPrefix) {
		return true
	}
	return false
}

func parseEntry(index int, entry map[string]interface{}) (FolderRule, *ConfigError) {
	var rule FolderRule

	path, cfgErr := requiredString(index, entry, KeyPath)
	if cfgErr != nil {
		return rule, cfgErr
	}
	plugin, cfgErr := requiredString(index, entry, KeyPlugin)
	if cfgErr != nil {
		return rule, cfgErr
	}

	if v, ok := entry[KeyRecursive]; ok && v != nil {
		b, isBool := v.(bool)
		if !isBool {
			return rule, &ConfigError{Index: index, Field: KeyRecursive,
				Err: fmt.Errorf("%w: want bool, got %T", ErrInvalidField, v)}
		}
		rule.Recursive = b
	}

	rule.Extensions = DefaultExtensions
	if v, ok := entry[KeyExtensions]; ok {
		exts, err := stringList(v)
		if err != nil {
			return rule, &ConfigError{Index: index, Field: KeyExtensions, Err: err}
		}
		rule.Extensions = exts
	}

	rule.Path = canonicalPath(path)
	rule.Plugin = plugin
	rule.Extensions = normalizeExtensions(rule.Extensions)
	rule.PluginConfig = make(map[string]interface{}, len(entry))
	for k, v := range entry {
		switch k {
		case KeyPath, KeyRecursive, KeyExtensions, KeyPlugin:
			continue
		}
		rule.PluginConfig[k] = v
	}

	return rule, nil
}

func requiredString(index int, entry map[string]interface{}, key string) (string, *ConfigError) {
	v, ok := entry[key]
	if !ok || v == nil {
		return "", &ConfigError{Index: index, Field: key, Err: ErrMissingField}
	}
	s, isString := v.(string)
	if !isString {
		return "", &ConfigError{Index: index, Field: key,
			Err: fmt.Errorf("%w: want string, got %T", ErrInvalidField, v)}
	}
	if strings.TrimSpace(s) == "" {
		return "", &ConfigError{Index: index, Field: key, Err: ErrMissingField}
	}
	return s, nil
}

func stringList(v interface{}) ([]string, error) {
	switch list := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return list, nil
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: want string item, got %T", ErrInvalidField, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: want list, got %T", ErrInvalidField, v)
	}
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if !slices.Contains(out, e) {
			out = append(out, e)
		}
	}
	return out
}

// suffix returns the lower-cased extension of path. Dot files without a
// further dot have no extension.
func suffix(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext == base {
		return ""
	}
	return strings.ToLower(ext)
}

// canonicalPath makes path absolute and resolves symlinks. When the path
// itself no longer exists, the parent directory is resolved instead.
func canonicalPath(path string) string {
	path = ExpandHome(path)
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}

	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(dir, filepath.Base(abs))
	}
	return abs
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
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
