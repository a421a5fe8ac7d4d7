// Package mimetype resolves a MIME type for a file entry, for use anywhere
// the engine needs to go beyond traversal's name-only classification
// (traversal.Classify) into actual content-aware dispatch: document
// rendering (htmlexport), chroma language selection, and icon_key variants
// keyed by MIME rather than extension.
//
// Resolution deliberately never runs during traversal itself — traversal's
// per-frame budget forbids opening file content — so every function here is
// called lazily, once a document is actually opened for preview or export.
package mimetype

import (
	"bytes"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// byExtension is checked before the OS MIME registry to avoid
// misclassifications the OS registry is prone to (e.g. mapping ".mod" to an
// audio format instead of a Go module file).
var byExtension = map[string]string{
	".md": "text/markdown", ".markdown": "text/markdown",
	".rst": "text/x-rst", ".adoc": "text/x-asciidoc", ".asciidoc": "text/x-asciidoc",
	".tex": "text/x-tex", ".latex": "text/x-tex",
	".org":  "text/x-org",
	".html": "text/html", ".htm": "text/html",
	".css": "text/css",
	".xml": "text/xml", ".xsl": "text/xml", ".xslt": "text/xml",
	".svg": "image/svg+xml",

	".json": "application/json", ".jsonc": "application/json", ".json5": "application/json",
	".yaml": "text/yaml", ".yml": "text/yaml",
	".toml": "text/x-toml",
	".ini":  "text/x-ini", ".cfg": "text/x-ini", ".conf": "text/x-ini",
	".csv": "text/csv", ".tsv": "text/tab-separated-values",
	".sql":     "text/x-sql",
	".graphql": "text/x-graphql", ".gql": "text/x-graphql",
	".proto": "text/x-protobuf",
	".hcl":   "text/x-hcl", ".tf": "text/x-hcl", ".tfvars": "text/x-hcl",

	".go": "text/x-go", ".mod": "text/plain", ".sum": "text/plain",

	".c": "text/x-csrc", ".h": "text/x-csrc",
	".cpp": "text/x-c++src", ".cxx": "text/x-c++src", ".cc": "text/x-c++src",
	".hpp": "text/x-c++src", ".hxx": "text/x-c++src",
	".rs": "text/x-rust", ".zig": "text/x-zig",

	".java": "text/x-java", ".kt": "text/x-kotlin", ".kts": "text/x-kotlin",
	".scala": "text/x-scala",
	".cs":    "text/x-csharp", ".fs": "text/x-fsharp", ".vb": "text/x-vbnet",

	".py": "text/x-python", ".rb": "text/x-ruby", ".php": "text/x-php",
	".lua": "text/x-lua", ".pl": "text/x-perl", ".pm": "text/x-perl",
	".sh": "text/x-sh", ".bash": "text/x-sh", ".zsh": "text/x-sh", ".fish": "text/x-fish",

	".js": "text/javascript", ".mjs": "text/javascript", ".cjs": "text/javascript",
	".ts": "text/typescript", ".tsx": "text/typescript", ".jsx": "text/javascript",

	".txt": "text/plain", ".text": "text/plain", ".log": "text/plain",
	".diff": "text/x-diff", ".patch": "text/x-diff",
}

// byBaseName matches well-known extensionless filenames, compared
// case-insensitively.
var byBaseName = map[string]string{
	"makefile": "text/x-makefile", "gnumakefile": "text/x-makefile",
	"dockerfile": "text/x-dockerfile", "containerfile": "text/x-dockerfile",
	"go.mod": "text/plain", "go.sum": "text/plain",
	"license": "text/plain", "licence": "text/plain", "readme": "text/plain",
	"changelog": "text/plain", "authors": "text/plain", "notice": "text/plain",
}

// ForPath returns the MIME type for a file on disk. It checks the extension
// and base-name tables first, falls back to the OS registry, and as a last
// resort sniffs the first 512 bytes of content.
func ForPath(path string) string {
	if t, ok := lookupByName(path); ok {
		return t
	}
	return sniff(path)
}

// ForName returns the MIME type implied by a filename alone, without
// touching the filesystem. Unknown names resolve to
// "application/octet-stream" rather than sniffing.
func ForName(name string) string {
	if t, ok := lookupByName(name); ok {
		return t
	}
	return "application/octet-stream"
}

func lookupByName(path string) (string, bool) {
	name := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(name))
	if ext != "" {
		if t, ok := byExtension[ext]; ok {
			return t, true
		}
		if t := mime.TypeByExtension(ext); t != "" {
			return t, true
		}
	}
	if t, ok := byBaseName[strings.ToLower(name)]; ok {
		return t, true
	}
	return "", false
}

func sniff(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return "application/octet-stream"
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	if n == 0 {
		return "text/plain"
	}
	buf = buf[:n]

	if bytes.IndexByte(buf, 0) != -1 {
		return "application/octet-stream"
	}
	if detected := http.DetectContentType(buf); !strings.HasPrefix(detected, "text/") &&
		detected != "application/octet-stream" {
		return detected
	}
	if utf8.Valid(buf) {
		return "text/plain"
	}
	return "application/octet-stream"
}

// IsImage reports whether mimeType names an image format.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// IsText reports whether mimeType names a textual format, including the
// handful of application/* types that are text underneath (JSON, XML,
// JavaScript).
func IsText(mimeType string) bool {
	base := strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	if strings.HasPrefix(base, "text/") {
		return true
	}
	switch base {
	case "application/json", "application/xml", "application/javascript":
		return true
	}
	return false
}

// languageByExtension maps a lowercase extension to the chroma lexer name
// used for syntax highlighting, wherever a caller only has a filename and
// not an already-known fence-block language tag.
var languageByExtension = map[string]string{
	".md": "markdown", ".markdown": "markdown",
	".rst": "rst", ".adoc": "asciidoc", ".asciidoc": "asciidoc",
	".tex": "latex", ".latex": "latex",
	".org":  "common-lisp",
	".html": "html", ".htm": "html",
	".xml": "xml", ".xsl": "xml", ".xslt": "xml", ".svg": "xml",
	".css": "css",

	".json": "json", ".jsonc": "json", ".json5": "json",
	".yaml": "yaml", ".yml": "yaml", ".toml": "toml",
	".ini": "ini", ".cfg": "ini", ".conf": "ini",
	".sql": "sql", ".graphql": "graphql", ".gql": "graphql",
	".proto": "protobuf", ".hcl": "hcl", ".tf": "hcl", ".tfvars": "hcl",

	".go": "go", ".mod": "plaintext", ".sum": "plaintext",

	".c": "c", ".h": "c",
	".cpp": "cpp", ".cxx": "cpp", ".cc": "cpp", ".hpp": "cpp", ".hxx": "cpp",
	".rs": "rust", ".zig": "zig",

	".java": "java", ".kt": "kotlin", ".kts": "kotlin", ".scala": "scala",
	".cs": "csharp", ".fs": "fsharp", ".vb": "vb.net",

	".py": "python", ".rb": "ruby", ".php": "php", ".lua": "lua",
	".pl": "perl", ".pm": "perl",
	".sh": "bash", ".bash": "bash", ".zsh": "bash", ".fish": "fish",

	".js": "javascript", ".mjs": "javascript", ".cjs": "javascript",
	".ts": "typescript", ".tsx": "tsx", ".jsx": "jsx",

	".txt": "plaintext", ".text": "plaintext", ".log": "plaintext",
	".csv": "plaintext", ".tsv": "plaintext",
	".diff": "diff", ".patch": "diff",
}

var languageByBaseName = map[string]string{
	"makefile": "makefile", "gnumakefile": "makefile",
	"dockerfile": "docker", "containerfile": "docker",
	"go.mod": "plaintext", "go.sum": "plaintext",
}

// LanguageHint returns the chroma lexer name for filename, falling back to
// "plaintext" for anything unrecognized.
func LanguageHint(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if lang, ok := languageByExtension[ext]; ok {
		return lang
	}
	if lang, ok := languageByBaseName[strings.ToLower(filepath.Base(filename))]; ok {
		return lang
	}
	return "plaintext"
}
