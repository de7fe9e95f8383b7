package textutil

import "strings"

// segmentReplacer maps characters that are unsafe inside a single path
// segment to safe alternatives. Separators become dashes so batch and story
// names can never span directories.
var segmentReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName makes a batch or story name safe to use as one path
// segment under the configured directories. Separators and other unsafe
// characters become dashes or are dropped, leading dots are stripped so the
// result is never hidden and never a relative traversal, and surrounding
// whitespace is trimmed.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = segmentReplacer.Replace(name)
	name = strings.TrimLeft(name, ".")
	return strings.TrimSpace(name)
}
