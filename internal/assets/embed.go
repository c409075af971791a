// ABOUTME: Stylesheets embedded via go:embed for HTML transcripts
// ABOUTME: Each theme is a single CSS file inlined into the exported page

// Package assets holds static files compiled into the binary.
package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed styles/*.css
var stylesFS embed.FS

// DefaultTheme is used when no theme is requested.
const DefaultTheme = "light"

// Stylesheet returns the CSS for theme. An empty theme means DefaultTheme.
func Stylesheet(theme string) (string, error) {
	if theme == "" {
		theme = DefaultTheme
	}
	theme = strings.ToLower(theme)
	if strings.ContainsAny(theme, `/\.`) {
		return "", fmt.Errorf("unknown theme %q", theme)
	}

	data, err := fs.ReadFile(stylesFS, path.Join("styles", theme+".css"))
	if err != nil {
		return "", fmt.Errorf("unknown theme %q (available: %s)", theme, strings.Join(Themes(), ", "))
	}
	return string(data), nil
}

// Themes lists the embedded theme names in sorted order.
func Themes() []string {
	entries, err := fs.ReadDir(stylesFS, "styles")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".css"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
