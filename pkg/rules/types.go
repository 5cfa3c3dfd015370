// Package rules holds the folder-monitoring rules and answers which rule,
// if any, applies to a file path.
//
// A RuleSet is built once from the raw folder entries of the configuration
// document and is never mutated afterwards, so dispatch workers may share it
// without locking.
//
// Example usage:
//
//	rs, skipped := rules.Load(cfg.Folders, log)
//	for _, e := range skipped {
//	    fmt.Println("ignored:", e)
//	}
//	if rule, ok := rs.Match("/watch/a.jpg"); ok {
//	    fmt.Println("plugin:", rule.Plugin)
//	}
package rules

// Reserved keys of a folder entry. Every other key is plugin configuration.
const (
	KeyPath       = "path"
	KeyRecursive  = "recursive"
	KeyExtensions = "extensions"
	KeyPlugin     = "plugin"

	// KeyComment marks documentation entries in config templates.
	KeyComment = "_comment"
)

// PlaceholderPrefix is the path prefix used by template entries.
const PlaceholderPrefix = "/absolute/path/"

// DefaultExtensions applies when an entry has no extensions key at all.
var DefaultExtensions = []string{".tiff", ".tif", ".jpg"}

// FolderRule is one monitored-folder configuration.
type FolderRule struct {
	// Path is the canonical absolute folder path.
	Path string

	// Recursive includes files in subdirectories of Path.
	Recursive bool

	// Extensions are lower-cased suffixes including the dot.
	// Empty means any file matches.
	Extensions []string

	// Plugin is the registry name of the processor.
	Plugin string

	// PluginConfig is passed verbatim to the plugin.
	PluginConfig map[string]interface{}
}

// RuleSet is an ordered, immutable list of rules. The first match wins.
type RuleSet struct {
	rules []FolderRule
}
