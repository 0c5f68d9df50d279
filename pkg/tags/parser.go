// Package tags extracts #key:value configuration tags from function
// documentation text. Parsing happens once per function registration; the
// resulting overrides are reapplied to every invocation's configuration
// snapshot.
package tags

import (
	"regexp"
	"strings"

	"github.com/calltrack/calltrack/pkg/fields"
)

// tagPattern matches one #key:value token. Keys and values are
// whitespace-delimited and may not contain spaces.
var tagPattern = regexp.MustCompile(`#\S+:\S+`)

// Tag is a single key:value annotation extracted from documentation text.
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Parse extracts all recognized tags from a documentation string. Each
// matched token is stripped of its leading marker and split on the first
// colon, so values may themselves contain colons. Tokens with an empty key
// and tokens whose key is not a recognized mark or toggle key are skipped,
// never fatal.
func Parse(doc string) []Tag {
	if doc == "" {
		return nil
	}

	var out []Tag
	for _, token := range tagPattern.FindAllString(doc, -1) {
		token = strings.TrimPrefix(token, "#")
		key, value, ok := strings.Cut(token, ":")
		if !ok || key == "" || value == "" {
			continue
		}
		if !fields.IsMarkKey(key) && !fields.IsToggleKey(key) {
			continue
		}
		out = append(out, Tag{Key: key, Value: value})
	}
	return out
}

// Overrides flattens parsed tags into an override map for
// fields.NewRunConfig. Later occurrences of the same key win.
func Overrides(parsed []Tag) map[string]string {
	if len(parsed) == 0 {
		return nil
	}
	out := make(map[string]string, len(parsed))
	for _, t := range parsed {
		out[t.Key] = t.Value
	}
	return out
}

// ParseOverrides parses a documentation string straight into an override
// map.
func ParseOverrides(doc string) map[string]string {
	return Overrides(Parse(doc))
}

// IsFalse reports whether a toggle value disables capture. Any value other
// than the literal, case-insensitive "false" leaves the toggle enabled.
func IsFalse(value string) bool {
	return strings.EqualFold(value, "false")
}
