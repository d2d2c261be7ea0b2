package conv

import (
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/inbucket/html2text"
	"github.com/microcosm-cc/bluemonday"
)

var (
	extensions = parser.CommonExtensions | parser.NoEmptyLineBeforeBlock
	htmlFlags  = html.CommonFlags
	// structurePolicy keeps block structure only; emphasis, headings, links
	// and anything executable collapse to their text.
	structurePolicy = bluemonday.NewPolicy()
)

const markupChars = "*_#<>[]`~|&"

func init() {
	structurePolicy.AllowElements("p", "br", "ul", "ol", "li", "blockquote", "pre", "code", "table", "thead", "tbody", "tr", "th", "td")
}

// MarkdownToPlainText renders chat markup (markdown with embedded HTML) to
// plain text suitable for token estimation and oracle prompts.
func MarkdownToPlainText(md []byte) (string, error) {
	p := parser.NewWithExtensions(extensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: htmlFlags})
	unsafeHTML := markdown.Render(p.Parse(md), renderer)

	sanitized := structurePolicy.SanitizeBytes(unsafeHTML)

	text, err := html2text.FromString(string(sanitized), html2text.Options{
		OmitLinks:    true,
		PrettyTables: false,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// NormalizeMessage returns content as plain text. Content without markup
// characters, or content that fails to convert, is returned unchanged.
func NormalizeMessage(content string) string {
	if !strings.ContainsAny(content, markupChars) {
		return content
	}
	text, err := MarkdownToPlainText([]byte(content))
	if err != nil || strings.TrimSpace(text) == "" {
		return content
	}
	return text
}
