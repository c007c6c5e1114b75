package importer

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/dochost/internal/models"
)

// RewriteImageRefs replaces image references in an HTML body with the stored
// URLs from the import run's image map. References with no match in the map
// are left untouched. The body is parsed as an HTML fragment, so malformed or
// partial markup never raises; it reports whether anything changed.
func RewriteImageRefs(body string, images models.ImageMap) (string, bool) {
	if body == "" || len(images) == 0 {
		return body, false
	}

	nodes, err := parseFragment(body)
	if err != nil {
		return body, false
	}

	changed := false
	for _, n := range nodes {
		walk(n, func(node *html.Node) {
			if node.Type != html.ElementNode || node.DataAtom != atom.Img {
				return
			}
			for i, attr := range node.Attr {
				if attr.Key != "src" {
					continue
				}
				img, ok := images[normalizeRef(attr.Val)]
				if ok && node.Attr[i].Val != img.URL {
					node.Attr[i].Val = img.URL
					changed = true
				}
			}
		})
	}
	if !changed {
		return body, false
	}
	return renderFragment(nodes), true
}

// RewriteInternalLinks rewrites page cross-references in a body to the
// deferred-resolution form doc://{project}/{version}/{path}#anchor, so links
// survive later reorganizations without eager target lookup. Only anchors
// classed "reference internal" (the generator's marker for page
// cross-references) are candidates; unclassed relative links, such as raw
// source links under _sources/, point at non-page assets and are left alone.
// Absolute URLs, in-page anchors and already-rewritten links are also left
// alone; the operation is idempotent.
func RewriteInternalLinks(body, projectSlug, versionLabel string) (string, bool) {
	if body == "" {
		return body, false
	}

	nodes, err := parseFragment(body)
	if err != nil {
		return body, false
	}

	changed := false
	for _, n := range nodes {
		walk(n, func(node *html.Node) {
			if node.Type != html.ElementNode || node.DataAtom != atom.A {
				return
			}
			if !isReferenceInternal(node) {
				return
			}
			for i, attr := range node.Attr {
				if attr.Key != "href" || !isInternalRef(attr.Val) {
					continue
				}
				node.Attr[i].Val = deferredRef(attr.Val, projectSlug, versionLabel)
				changed = true
			}
		})
	}
	if !changed {
		return body, false
	}
	return renderFragment(nodes), true
}

// parseFragment parses body as the content of a div, the context the JSON
// builder's bodies are written for.
func parseFragment(body string) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	return html.ParseFragment(strings.NewReader(body), ctx)
}

func renderFragment(nodes []*html.Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		// Render only fails on writer errors, which strings.Builder
		// never produces.
		_ = html.Render(&sb, n)
	}
	return sb.String()
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// normalizeRef maps a body-relative image reference onto an image-map key:
// references climb out of the page's directory with ../ sequences before
// entering the images directory, while map keys are rooted at the archive
// container.
func normalizeRef(ref string) string {
	for strings.HasPrefix(ref, "../") {
		ref = ref[len("../"):]
	}
	return strings.TrimPrefix(ref, "./")
}

// isReferenceInternal reports whether an anchor carries both the "reference"
// and "internal" class tokens.
func isReferenceInternal(node *html.Node) bool {
	for _, attr := range node.Attr {
		if attr.Key != "class" {
			continue
		}
		reference, internal := false, false
		for _, token := range strings.Fields(attr.Val) {
			switch token {
			case "reference":
				reference = true
			case "internal":
				internal = true
			}
		}
		return reference && internal
	}
	return false
}

// isInternalRef reports whether href points at another page of the same
// documentation set.
func isInternalRef(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return false
	}
	for _, prefix := range []string{"doc://", "http://", "https://", "mailto:", "ftp://", "//", "/"} {
		if strings.HasPrefix(href, prefix) {
			return false
		}
	}
	return true
}

// deferredRef builds the doc:// form of a relative link: container-relative
// page path plus the original in-page anchor.
func deferredRef(href, projectSlug, versionLabel string) string {
	path, anchor, _ := strings.Cut(href, "#")
	path = normalizeRef(path)
	path = strings.TrimSuffix(path, "/")
	path = strings.TrimSuffix(path, ".html")
	out := "doc://" + projectSlug + "/" + versionLabel + "/" + path
	if anchor != "" {
		out += "#" + anchor
	}
	return out
}
