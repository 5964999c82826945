package mail

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/airadev/newsroom/internal/newsletter"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(goldmarkhtml.WithHardWraps()),
)

var htmlPolicy = bluemonday.UGCPolicy()

// RenderHTML converts draft markdown into a sanitized, inline-styled email
// body with citation and unsubscribe footers. unsubscribeURL may be a mailto:
// fallback when no token-based link is available.
func RenderHTML(d *newsletter.Draft, companyName, companyAddress, unsubscribeURL string) (string, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(d.Content), &body); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	content := htmlPolicy.Sanitize(body.String())

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8">`)
	b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1.0"></head>`)
	b.WriteString(`<body style="margin:0;padding:0;background-color:#f4f4f4;">`)
	if d.Metadata.PreviewText != "" {
		// Hidden preheader shown by mail clients next to the subject line.
		fmt.Fprintf(&b, `<div style="display:none;max-height:0;overflow:hidden;">%s</div>`,
			html.EscapeString(d.Metadata.PreviewText))
	}
	b.WriteString(`<div style="max-width:600px;margin:0 auto;padding:24px;background-color:#ffffff;`)
	b.WriteString(`font-family:Georgia,serif;font-size:16px;line-height:1.6;color:#1a1a1a;">`)
	b.WriteString(content)

	if len(d.Citations) > 0 {
		b.WriteString(`<hr style="border:none;border-top:1px solid #dddddd;margin:24px 0;">`)
		b.WriteString(`<div style="font-size:13px;color:#666666;"><p><strong>Sources</strong></p><ol>`)
		for _, c := range d.Citations {
			fmt.Fprintf(&b, `<li><a href="%s" style="color:#666666;">%s</a></li>`,
				html.EscapeString(c.URL), html.EscapeString(c.Title))
		}
		b.WriteString(`</ol></div>`)
	}

	b.WriteString(`<hr style="border:none;border-top:1px solid #dddddd;margin:24px 0;">`)
	b.WriteString(`<div style="font-size:12px;color:#999999;text-align:center;">`)
	if companyName != "" {
		fmt.Fprintf(&b, `<p>%s`, html.EscapeString(companyName))
		if companyAddress != "" {
			fmt.Fprintf(&b, `<br>%s`, html.EscapeString(companyAddress))
		}
		b.WriteString(`</p>`)
	}
	if unsubscribeURL != "" {
		fmt.Fprintf(&b, `<p><a href="%s" style="color:#999999;">Unsubscribe</a></p>`, html.EscapeString(unsubscribeURL))
	}
	b.WriteString(`</div></div></body></html>`)
	return b.String(), nil
}

var (
	mdHeaderRe = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdBoldRe   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	mdItalicRe = regexp.MustCompile(`\*([^*]+)\*`)
	mdLinkRe   = regexp.MustCompile(`\[([^\]]*)\]\(([^)]*)\)`)
)

// RenderText produces the plaintext alternative: markdown markers stripped,
// citations and unsubscribe appended as plain lines.
func RenderText(d *newsletter.Draft, unsubscribeURL string) string {
	text := d.Content
	text = mdHeaderRe.ReplaceAllString(text, "")
	text = mdBoldRe.ReplaceAllString(text, "$1")
	text = mdItalicRe.ReplaceAllString(text, "$1")
	text = mdLinkRe.ReplaceAllString(text, "$1 ($2)")

	var b strings.Builder
	b.WriteString(strings.TrimSpace(text))
	if len(d.Citations) > 0 {
		b.WriteString("\n\nSources:\n")
		for _, c := range d.Citations {
			fmt.Fprintf(&b, "[%d] %s - %s\n", c.Number, c.Title, c.URL)
		}
	}
	if unsubscribeURL != "" {
		fmt.Fprintf(&b, "\nUnsubscribe: %s\n", unsubscribeURL)
	}
	return b.String()
}
