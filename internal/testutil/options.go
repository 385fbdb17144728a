package testutil

type docData struct {
	uri      string
	path     string
	language string
	text     string
}

func defaultDoc(text string) docData {
	return docData{
		uri:      "file:///workspace/index.html",
		path:     "/workspace/index.html",
		language: "html",
		text:     text,
	}
}

// DocOption configures a test document.
type DocOption func(*docData)

// URI sets the document URI.
func URI(uri string) DocOption {
	return func(d *docData) { d.uri = uri }
}

// Path sets the file path; the language is derived from it unless set.
func Path(path string) DocOption {
	return func(d *docData) {
		d.path = path
		d.language = ""
	}
}

// Language sets the language id.
func Language(lang string) DocOption {
	return func(d *docData) { d.language = lang }
}
