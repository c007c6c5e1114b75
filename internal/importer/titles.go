package importer

// specialTitles maps the relative paths of generator-produced pages that
// carry no usable title field to their conventional display titles.
var specialTitles = map[string]string{
	"genindex":       "General Index",
	"py-modindex":    "Module Index",
	"np-modindex":    "Module Index",
	"search":         "Search",
	"_modules/index": "Module code",
}

// oddTitles are title values some generators emit for effectively untitled
// pages. They are useless for navigation, so the page falls back to its path.
var oddTitles = map[string]bool{
	"&lt;no title&gt;": true,
	"<no title>":       true,
}

// pageTitle derives the display title for a page document: the title field,
// then the indextitle field, then the conventional title for special pages,
// then the relative path itself.
func pageTitle(relativePath, title, indextitle string) string {
	if title == "" {
		title = indextitle
	}
	if title == "" {
		title = specialTitles[relativePath]
	}
	if title == "" || oddTitles[title] {
		title = relativePath
	}
	return title
}
