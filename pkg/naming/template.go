package naming

import (
	"fmt"
	"regexp"
	"strings"

	"sukureipu/pkg/fourchan"
)

// Placeholders take the form %(key). Matching is case-insensitive;
// keys are looked up lowercased.
var placeholderPattern = regexp.MustCompile(`%\(([A-Za-z]+)\)`)

// Render substitutes %(key) placeholders in tmpl from values.
// Placeholders with no matching value are left verbatim: templates are
// user-authored, so an unknown key is not an error.
func Render(tmpl string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		key := strings.ToLower(match[2 : len(match)-1])
		if value, ok := values[key]; ok {
			return value
		}
		return match
	})
}

// RenderFilePath renders a per-post path and appends the post's
// extension. The extension is appended unconditionally, even when the
// template already used %(ext), so the result always carries a valid
// file suffix.
func RenderFilePath(tmpl string, values map[string]string, ext string) string {
	return Render(tmpl, values) + ext
}

// StructureValues builds the directory-level placeholder set:
// %(board), %(thread) and %(title).
func StructureValues(ref fourchan.ThreadRef, title string) map[string]string {
	return map[string]string{
		"board":  ref.Board,
		"thread": ref.ID,
		"title":  title,
	}
}

// PostValues builds the per-post placeholder set: %(id), %(post),
// %(file) and %(ext).
func PostValues(p *fourchan.Post) map[string]string {
	return map[string]string{
		"id":   fmt.Sprintf("%d", p.Tim),
		"post": fmt.Sprintf("%d", p.No),
		"file": p.Filename,
		"ext":  p.Ext,
	}
}
