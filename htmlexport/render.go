package htmlexport

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/niklasfasching/go-org/org"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/parser"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/pkg/errors"

	"github.com/nexusfs/engine/mimetype"
)

// Theme is the Chroma style name used for fenced/source code blocks inside
// rendered documents.
var Theme = "catppuccin-mocha"

// RenderDocument renders content according to mimeType (text/markdown,
// text/x-org, or text/html) and sanitizes the result. previewImages
// controls whether <img> elements survive sanitization.
func RenderDocument(content, mimeType string, previewImages bool) (template.HTML, error) {
	switch baseMIME(mimeType) {
	case "text/markdown":
		return renderMarkdown(content, previewImages)
	case "text/x-org":
		return renderOrg(content, previewImages)
	case "text/html":
		return renderHTML(content)
	default:
		return "", errors.Errorf("no renderer for %q", mimeType)
	}
}

func renderMarkdown(content string, previewImages bool) (template.HTML, error) {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			extension.DefinitionList,
			extension.Typographer,
			highlighting.NewHighlighting(
				highlighting.WithStyle(Theme),
				highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
			),
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
	)
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return "", errors.Wrap(err, "markdown render")
	}
	return template.HTML(sanitize(buf.String(), previewImages)), nil
}

func renderOrg(content string, previewImages bool) (template.HTML, error) {
	doc := org.New().Parse(strings.NewReader(content), "")
	w := org.NewHTMLWriter()
	w.HighlightCodeBlock = func(source, lang string, inline bool, _ map[string]string) string {
		return chromaHighlightBlock(source, lang)
	}
	out, err := doc.Write(w)
	if err != nil {
		return "", errors.Wrap(err, "org render")
	}
	return template.HTML(sanitize(out, previewImages)), nil
}

func renderHTML(content string) (template.HTML, error) {
	escaped := template.HTMLEscapeString(content)
	iframe := `<iframe class="html-preview-frame" srcdoc="` + escaped + `" sandbox="" referrerpolicy="no-referrer"></iframe>`
	return template.HTML(iframe), nil
}

// chromaHighlightBlock highlights a fenced source block with Chroma,
// returning an empty string (so the caller falls back to plain text) on any
// lexing or formatting failure.
func chromaHighlightBlock(source, lang string) string {
	l := lexers.Get(lang)
	if l == nil {
		l = lexers.Fallback
	}
	l = chroma.Coalesce(l)

	style := styles.Get(Theme)
	if style == nil {
		style = styles.Fallback
	}

	it, err := l.Tokenise(nil, source)
	if err != nil {
		return ""
	}

	f := chromahtml.New(chromahtml.WithClasses(true))
	var buf bytes.Buffer
	if err := f.Format(&buf, style, it); err != nil {
		return ""
	}
	return buf.String()
}

// HighlightSource renders a whole file as a standalone syntax-highlighted
// fragment, used for the plain-code fallback path when content isn't one of
// the rich document formats.
func HighlightSource(source, lang string) string {
	if h := chromaHighlightBlock(source, lang); h != "" {
		return h
	}
	return fmt.Sprintf("<pre>%s</pre>", template.HTMLEscapeString(source))
}

// HighlightFile is HighlightSource with the chroma language derived from
// filename's extension, for callers that only have a path and source bytes
// rather than an already-known fence-block language tag.
func HighlightFile(filename, source string) string {
	return HighlightSource(source, mimetype.LanguageHint(filename))
}

func sanitize(input string, previewImages bool) string {
	return buildDocPolicy(previewImages).Sanitize(input)
}

func baseMIME(mimeType string) string {
	return strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
}
