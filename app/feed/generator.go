package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"time"

	"github.com/lysyi3m/regwatch/app/database"
)

type Generator struct {
	baseURL string
	port    string
	version string
}

func NewGenerator(baseURL, port, version string) *Generator {
	return &Generator{
		baseURL: baseURL,
		port:    port,
		version: version,
	}
}

// Run renders persisted notifications as an RSS 2.0 document.
func (g *Generator) Run(title string, items []database.Notification) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", title, 4)
	g.writeElement(&buf, "link", g.selfBase(), 4)
	g.writeElement(&buf, "description", "Regulatory announcements aggregated from Indian government and market regulator sites", 4)

	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(g.selfBase()+"/notifications.rss")))

	lastBuildDate := time.Now().UTC()
	if len(items) > 0 && !items[0].CreatedAt.IsZero() {
		lastBuildDate = items[0].CreatedAt
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("RegWatch/%s", g.version), 4)
	g.writeElement(&buf, "language", "en-in", 4)

	for _, item := range items {
		g.writeItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) selfBase() string {
	if g.baseURL != "" {
		return g.baseURL
	}
	return fmt.Sprintf("http://localhost:%s", g.port)
}

func (g *Generator) writeItem(buf *bytes.Buffer, item database.Notification) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(item.ID))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", item.Title, 6)
	g.writeElement(buf, "link", item.Link, 6)
	g.writeElement(buf, "description", item.ContentSnippet, 6)
	g.writeElement(buf, "category", item.Source, 6)
	g.writeElement(buf, "pubDate", item.PubDateUTC.Format(time.RFC1123Z), 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
