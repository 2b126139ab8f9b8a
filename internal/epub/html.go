package epub

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// Text extracts the visible text of a document fragment, skipping script
// and style subtrees, with runs of whitespace collapsed to single spaces.
// Malformed markup is tolerated; the parser never fails on byte input.
func Text(fragment []byte) string {
	node, err := html.Parse(bytes.NewReader(fragment))
	if err != nil {
		return ""
	}
	var builder strings.Builder
	collectText(node, &builder)
	return strings.Join(strings.Fields(builder.String()), " ")
}

func collectText(node *html.Node, builder *strings.Builder) {
	if node.Type == html.ElementNode {
		switch node.Data {
		case "script", "style":
			return
		}
	}
	if node.Type == html.TextNode {
		builder.WriteString(node.Data)
		builder.WriteByte(' ')
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, builder)
	}
}

// ImageSources returns the src attribute of every img element in document
// order, fragment and query suffixes stripped.
func ImageSources(fragment []byte) []string {
	node, err := html.Parse(bytes.NewReader(fragment))
	if err != nil {
		return nil
	}
	var sources []string
	collectImageSources(node, &sources)
	return sources
}

func collectImageSources(node *html.Node, sources *[]string) {
	if node.Type == html.ElementNode && node.Data == "img" {
		for _, attr := range node.Attr {
			if attr.Key != "src" {
				continue
			}
			cleaned := attr.Val
			if idx := strings.IndexAny(cleaned, "#?"); idx >= 0 {
				cleaned = cleaned[:idx]
			}
			if cleaned = strings.TrimSpace(cleaned); cleaned != "" {
				*sources = append(*sources, cleaned)
			}
			break
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectImageSources(child, sources)
	}
}
