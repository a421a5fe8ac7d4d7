// Package htmlexport turns a loaded directory (or a single previewed
// document inside it) into a standalone, sandboxed HTML page — the offline
// counterpart of the GileBrowser teacher's in-browser document preview
// pipeline (handlers/render.go), reused here as an export feature of the
// demo CLI rather than an HTTP response.
package htmlexport

import "github.com/microcosm-cc/bluemonday"

// buildDocPolicy constructs the bluemonday allowlist applied to every
// rendered document, adapted from the teacher's buildDocPolicy: the same
// element/attribute allowlist, minus the web-server-specific image-source
// rewriting (an export has no /view/ route to rewrite relative paths
// through).
func buildDocPolicy(allowDataImages bool) *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"address", "article", "aside",
		"blockquote", "br",
		"caption", "col", "colgroup",
		"details", "div", "dl", "dt", "dd",
		"figure", "figcaption", "footer",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"header", "hr",
		"li",
		"main",
		"nav",
		"ol",
		"p", "pre",
		"section", "summary",
		"table", "tbody", "td", "tfoot", "th", "thead", "tr",
		"ul",
	)

	p.AllowElements(
		"abbr", "acronym",
		"b", "cite", "code",
		"del", "dfn",
		"em",
		"i",
		"kbd",
		"mark",
		"q",
		"s", "samp", "small", "span", "strong", "sub", "sup",
		"tt",
		"u",
		"var", "wbr",
	)

	p.AllowAttrs("href", "title").OnElements("a")
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowRelativeURLs(true)

	p.AllowAttrs("src", "alt", "title", "width", "height").OnElements("img")
	if allowDataImages {
		p.AllowDataURIImages()
	}

	p.AllowAttrs("id", "class", "lang", "title", "align").Globally()
	p.AllowAttrs("align", "valign", "colspan", "rowspan", "scope", "abbr", "headers").OnElements("td", "th")
	p.AllowAttrs("align", "valign", "span", "width").OnElements("col", "colgroup")
	p.AllowAttrs("align").OnElements("table", "tr", "tbody", "thead", "tfoot")
	p.AllowAttrs("border", "cellpadding", "cellspacing", "summary", "width").OnElements("table")
	p.AllowAttrs("start", "type").OnElements("ol")
	p.AllowAttrs("type").OnElements("ul", "li")
	p.AllowAttrs("cite").OnElements("blockquote", "del", "q")

	return p
}
