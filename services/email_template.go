package services

import (
	"fmt"
	"html/template"
	"strings"
)

type EmailMetaItem struct {
	Label string
	Value string
}

// EmailContent is the input of the shared HTML email layout.
type EmailContent struct {
	Subject    string
	Paragraphs []string
	Meta       []EmailMetaItem
	ButtonText string
	ButtonURL  string
	FooterHTML string
	LogoURL    string
}

var basicHTMLReplacer = strings.NewReplacer(
	"&lt;strong&gt;", "<strong>",
	"&lt;/strong&gt;", "</strong>",
)

var plainTextReplacer = strings.NewReplacer("<strong>", "", "</strong>", "")

// SplitParagraphs breaks free text on blank lines.
func SplitParagraphs(body string) []string {
	body = strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\r", "\n")
	parts := strings.Split(body, "\n\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RenderEmailHTML renders content into the coalition email layout. All
// caller text is escaped; only <strong> survives.
func RenderEmailHTML(c EmailContent) string {
	var contentBuilder strings.Builder
	for _, paragraph := range c.Paragraphs {
		trimmed := strings.TrimSpace(paragraph)
		if trimmed == "" {
			continue
		}
		escaped := template.HTMLEscapeString(trimmed)
		escaped = strings.ReplaceAll(strings.ReplaceAll(escaped, "\r\n", "\n"), "\r", "\n")
		escaped = strings.ReplaceAll(escaped, "\n", "<br />")
		escaped = basicHTMLReplacer.Replace(escaped)
		contentBuilder.WriteString(`<p style="margin:0 0 18px 0;line-height:1.7;word-break:break-word;">`)
		contentBuilder.WriteString(escaped)
		contentBuilder.WriteString(`</p>`)
	}

	metaSection := ""
	rows := make([]EmailMetaItem, 0, len(c.Meta))
	for _, item := range c.Meta {
		label := strings.TrimSpace(item.Label)
		value := strings.TrimSpace(item.Value)
		if label == "" || value == "" {
			continue
		}
		rows = append(rows, EmailMetaItem{Label: label, Value: value})
	}
	if len(rows) > 0 {
		var metaBuilder strings.Builder
		metaBuilder.WriteString(`<div style="margin:0 0 24px 0;">
<table role="presentation" cellpadding="0" cellspacing="0" width="100%" style="border:1px solid #e5e7eb;border-radius:12px;background-color:#f9fafb;">
<tbody>`)
		for i, row := range rows {
			border := "border-bottom:1px solid #e5e7eb;"
			if i == len(rows)-1 {
				border = ""
			}
			metaBuilder.WriteString(fmt.Sprintf(`<tr>
<td style="padding:12px 16px;font-size:13px;color:#6b7280;width:38%%;%s;word-break:break-word;">%s</td>
<td style="padding:12px 16px;font-size:15px;color:#111827;font-weight:600;%s;word-break:break-word;white-space:pre-wrap;">%s</td>
</tr>
`, border, template.HTMLEscapeString(row.Label), border, template.HTMLEscapeString(row.Value)))
		}
		metaBuilder.WriteString(`</tbody>
</table>
</div>`)
		metaSection = metaBuilder.String()
	}

	buttonSection := ""
	if strings.TrimSpace(c.ButtonText) != "" && strings.TrimSpace(c.ButtonURL) != "" {
		buttonSection = fmt.Sprintf(`<div style="text-align:center;margin:12px 0 24px 0;">
<a href="%s" style="display:inline-block;padding:12px 28px;background-color:#2563eb;color:#ffffff;text-decoration:none;border-radius:999px;font-weight:600;word-break:break-word;">%s</a>
</div>`, template.HTMLEscapeString(c.ButtonURL), template.HTMLEscapeString(c.ButtonText))
	}

	footerSection := ""
	if strings.TrimSpace(c.FooterHTML) != "" {
		footerSection = fmt.Sprintf(`<div style="color:#6b7280;font-size:13px;line-height:1.7;">%s</div>`, c.FooterHTML)
	}

	logoSection := ""
	if logo := strings.TrimSpace(c.LogoURL); logo != "" {
		logoSection = fmt.Sprintf(`<div style="text-align:center;margin:0 auto 18px auto;"><img src="%s" alt="" style="display:block;margin:0 auto;height:64px;width:auto;max-width:100%%;" /></div>`,
			template.HTMLEscapeString(logo))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
</head>
<body style="margin:0;padding:0;background-color:#f9fafb;font-family:'Segoe UI',Tahoma,Arial,sans-serif;">
<div style="max-width:640px;margin:0 auto;padding:24px 20px;">
<div style="background-color:#ffffff;border:1px solid #e5e7eb;border-radius:12px;padding:24px 24px 28px 24px;">
<div style="text-align:center;">
%s
<h1 style="margin:18px 0 0 0;font-size:22px;font-weight:700;color:#111827;line-height:1.35;word-break:break-word;">%s</h1>
</div>
<div style="margin-top:20px;color:#1f2937;font-size:16px;line-height:1.75;word-break:break-word;">
%s
</div>
%s
%s
%s
</div>
</div>
</body>
</html>`, template.HTMLEscapeString(c.Subject), logoSection, template.HTMLEscapeString(c.Subject), contentBuilder.String(), metaSection, buttonSection, footerSection)
}

// RenderEmailText is the plain-text alternative of RenderEmailHTML.
func RenderEmailText(c EmailContent) string {
	var b strings.Builder
	b.WriteString(c.Subject)
	b.WriteString("\n\n")
	for _, p := range c.Paragraphs {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteString(plainTextReplacer.Replace(p))
			b.WriteString("\n\n")
		}
	}
	for _, m := range c.Meta {
		if strings.TrimSpace(m.Value) == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", m.Label, m.Value)
	}
	if c.ButtonURL != "" {
		fmt.Fprintf(&b, "\n%s: %s\n", c.ButtonText, c.ButtonURL)
	}
	return strings.TrimSpace(b.String())
}
