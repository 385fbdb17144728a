package matcher

// Class characters accepted inside built-in patterns: word characters,
// variant colons, fractions, arbitrary values, important markers and opacity
// modifiers.
const classChars = `\w\s\-:/.\[\]!#%`

var (
	htmlPattern = `\bclass\s*=\s*["']([` + classChars + `]+)["']`
	cssPattern  = `\B@apply\s+([` + classChars + `]+?)\s*;`

	jsxPatterns = []string{
		`(?:\bclass(?:Name)?\s*=\s*(?:\{([` + classChars + `${}()"'` + "`" + `,&|?=+*]+)\}|(["'` + "`" + `][` + classChars + `]+["'` + "`" + `])))|(?:\btw\s*(` + "`" + `[` + classChars + `]+` + "`" + `))`,
		`["'` + "`" + `]([` + classChars + `]+)["'` + "`" + `]`,
	}
)

// DefaultRaw returns the built-in rule definitions in configuration shape.
func DefaultRaw() map[string]any {
	jsx := make([]any, len(jsxPatterns))
	for i, p := range jsxPatterns {
		jsx[i] = p
	}
	return map[string]any{
		"html":            htmlPattern,
		"css":             cssPattern,
		"scss":            cssPattern,
		"javascript":      jsx,
		"javascriptreact": jsx,
		"typescript":      jsx,
		"typescriptreact": jsx,
		"vue":             htmlPattern,
		"svelte":          htmlPattern,
		"astro":           htmlPattern,
		"php":             htmlPattern,
		"blade":           htmlPattern,
		"erb":             htmlPattern,
		"handlebars":      htmlPattern,
	}
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() Catalog {
	catalog, err := ParseCatalog(DefaultRaw())
	if err != nil {
		panic(err)
	}
	return catalog
}
