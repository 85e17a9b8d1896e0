package render

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// HTML renders GitHub-flavored Markdown with single newlines as <br> and
// passes the result through a UGC sanitizer.
type HTML struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	logger Logger
}

func NewHTML(logger Logger) *HTML {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, emoji.Emoji),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	return &HTML{md: md, policy: sanitizePolicy(), logger: logger}
}

func sanitizePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	// task list items
	p.AllowAttrs("type").Matching(regexp.MustCompile(`^checkbox$`)).OnElements("input")
	p.AllowAttrs("checked", "disabled").Matching(regexp.MustCompile(`^(|checked|disabled)$`)).OnElements("input")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[A-Za-z0-9_+#.-]+$`)).OnElements("code")
	return p
}

func (r *HTML) Render(markdown string) (out string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logError(fmt.Errorf("panic: %v", rec))
			out = ""
		}
	}()
	if markdown == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		r.logError(err)
		return ""
	}
	return r.policy.Sanitize(buf.String())
}

func (r *HTML) logError(err error) {
	if r.logger == nil {
		return
	}
	r.logger.Error("render.html_failed", map[string]any{"error": err.Error()})
}
