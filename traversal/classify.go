package traversal

import (
	"path/filepath"
	"strings"

	"github.com/nexusfs/engine/types"
)

// knownExtensions maps a lowercase, dot-stripped extension to nothing more
// than "this extension is common enough to deserve its own icon slot"; the
// value is unused but kept as a set literal so the table doubles as
// documentation of what the bundled icon atlas should contain.
//
// The table intentionally mirrors a file browser's classification needs
// rather than a MIME registry: traversal runs on the per-frame budget, so
// classification here must never touch file content, only the name.
var knownExtensions = map[string]struct{}{
	"md": {}, "markdown": {}, "rst": {}, "adoc": {}, "txt": {}, "log": {},
	"html": {}, "htm": {}, "css": {}, "xml": {}, "svg": {},
	"json": {}, "yaml": {}, "yml": {}, "toml": {}, "ini": {}, "cfg": {}, "conf": {},
	"csv": {}, "tsv": {}, "sql": {},
	"go": {}, "mod": {}, "sum": {},
	"c": {}, "h": {}, "cpp": {}, "cc": {}, "hpp": {}, "rs": {}, "zig": {},
	"java": {}, "kt": {}, "scala": {},
	"cs": {}, "fs": {}, "vb": {},
	"py": {}, "rb": {}, "php": {}, "lua": {}, "pl": {},
	"sh": {}, "bash": {}, "zsh": {}, "fish": {},
	"js": {}, "mjs": {}, "cjs": {}, "ts": {}, "tsx": {}, "jsx": {},
	"png": {}, "jpg": {}, "jpeg": {}, "gif": {}, "bmp": {}, "webp": {}, "ico": {},
	"pdf": {}, "zip": {}, "tar": {}, "gz": {}, "7z": {}, "rar": {},
	"mp3": {}, "wav": {}, "flac": {}, "mp4": {}, "mkv": {}, "mov": {},
}

// knownBaseNames matches well-known extensionless filenames, case-folded.
var knownBaseNames = map[string]struct{}{
	"makefile": {}, "dockerfile": {}, "containerfile": {},
	"license": {}, "licence": {}, "readme": {}, "changelog": {},
	"go.mod": {}, "go.sum": {},
}

// Classify derives the FileType and IconKey for a non-directory entry from
// its name alone. Directories are classified by the caller before this is
// reached (TypeDirectory / DirectoryIconKey never originate here).
func Classify(name string) (types.FileType, types.IconKey) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext != "" {
		if _, ok := knownExtensions[ext]; ok {
			return types.TypeExtension, types.ExtensionIconKey(ext)
		}
		return types.TypeGeneric, types.GenericFileIconKey()
	}
	if _, ok := knownBaseNames[strings.ToLower(name)]; ok {
		return types.TypeExtension, types.ExtensionIconKey(strings.ToLower(name))
	}
	return types.TypeGeneric, types.GenericFileIconKey()
}
