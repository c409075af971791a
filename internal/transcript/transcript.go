// ABOUTME: Renders a chat history as a Markdown or HTML transcript
// ABOUTME: HTML is produced by converting the Markdown with goldmark

package transcript

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/2389/coven-chat/internal/assets"
	"github.com/2389/coven-chat/internal/store"
)

// Format selects the transcript output.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

const timeLayout = "2006-01-02 15:04"

// ParseFormat accepts md, markdown, or html (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown transcript format %q (want md or html)", s)
	}
}

// Options adjusts rendering.
type Options struct {
	// Location for timestamps; nil means UTC.
	Location *time.Location
	// Theme names an embedded stylesheet for HTML output; empty means the default.
	Theme string
}

// Render writes msgs under title in the given format.
func Render(w io.Writer, title string, msgs []*store.Message, format Format, opts Options) error {
	md := Markdown(title, msgs, opts.Location)

	switch format {
	case FormatMarkdown:
		_, err := io.WriteString(w, md)
		return err
	case FormatHTML:
		css, err := assets.Stylesheet(opts.Theme)
		if err != nil {
			return err
		}
		var body bytes.Buffer
		if err := goldmark.Convert([]byte(md), &body); err != nil {
			return fmt.Errorf("converting transcript to HTML: %w", err)
		}
		_, err = fmt.Fprintf(w,
			"<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n<style>\n%s</style>\n</head>\n<body>\n%s</body>\n</html>\n",
			html.EscapeString(title), css, body.String())
		return err
	default:
		return fmt.Errorf("unknown transcript format %q", format)
	}
}

// Markdown renders msgs as a Markdown document. System notices are italic;
// ordinary messages are "**sender** (time): content".
func Markdown(title string, msgs []*store.Message, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escape(title))
	if len(msgs) == 0 {
		b.WriteString("_No messages._\n")
		return b.String()
	}

	for _, m := range msgs {
		when := m.Timestamp.In(loc).Format(timeLayout)
		if m.IsSystem() {
			fmt.Fprintf(&b, "- _%s_ (%s)\n", escape(m.Content), when)
			continue
		}
		fmt.Fprintf(&b, "- **%s** (%s): %s\n", escape(m.SenderName), when, escape(m.Content))
	}
	return b.String()
}

var markdownSpecial = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	`*`, `\*`,
	`_`, `\_`,
	`[`, `\[`,
	`]`, `\]`,
	`<`, `\<`,
	`>`, `\>`,
	`#`, `\#`,
	"\n", " ",
	"\r", "",
)

// escape keeps user text from being read as Markdown or raw HTML.
func escape(s string) string {
	return markdownSpecial.Replace(s)
}
