package host

import (
	"path/filepath"
	"strings"
)

// languageByExt maps file extensions to editor language identifiers.
var languageByExt = map[string]string{
	".html":       "html",
	".htm":        "html",
	".css":        "css",
	".scss":       "scss",
	".js":         "javascript",
	".mjs":        "javascript",
	".cjs":        "javascript",
	".jsx":        "javascriptreact",
	".ts":         "typescript",
	".mts":        "typescript",
	".tsx":        "typescriptreact",
	".vue":        "vue",
	".svelte":     "svelte",
	".astro":      "astro",
	".php":        "php",
	".erb":        "erb",
	".hbs":        "handlebars",
	".handlebars": "handlebars",
	".md":         "markdown",
	".mdx":        "mdx",
}

// LanguageForPath guesses a language identifier from the file name.
// Unknown extensions map to "plaintext".
func LanguageForPath(path string) string {
	base := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(base, ".blade.php") {
		return "blade"
	}
	if lang, ok := languageByExt[filepath.Ext(base)]; ok {
		return lang
	}
	return "plaintext"
}
