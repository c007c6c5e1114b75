// Package models declares the persistent records of the documentation host
// (Project, Version, Page, Image) and the transient structures built from
// them during an import run.
package models

import "time"

// Project is what a documentation set describes: an application, a library.
// Projects own versions; versions own pages and images.
type Project struct {
	ID          string
	Title       string
	Slug        string // machine name, unique; must match the archive manifest's project key
	Description string
	// Classifiers are free-form trove-style category strings. They surface
	// as a search facet; the core does not interpret them.
	Classifiers []string
	// LatestVersionID points at the version currently considered
	// authoritative for display and search. Nil when the project has no
	// eligible version. If set, it must reference a version of this project.
	LatestVersionID *string
	CreatedAt       time.Time
	ModifiedAt      time.Time
}

// Version is one release of a project's documentation.
type Version struct {
	ID            string
	ProjectID     string
	Label         string // arbitrary version string from the manifest, not guaranteed semver
	SphinxVersion string
	HeadPageID    *string // topmost page of the set, nil until import links pages
	GlobalTOC     string  // rendered global table of contents, verbatim from the manifest
	CreatedAt     time.Time
	ModifiedAt    time.Time
}

// Page is a single pre-rendered documentation page.
type Page struct {
	ID           string
	VersionID    string
	RelativePath string // unique within the version, archive member path minus extension
	Title        string
	Content      string // full JSON payload as imported
	OrigBody     string // body as found in the archive, kept for reprocessing
	Body         string // body with image references rewritten
	OrigLocalTOC string
	LocalTOC     string
	ParentID     *string
	// NextID is the denormalized "next page" pointer. A page may be the
	// next of at most one other page; the reverse lookup is "previous".
	NextID     *string
	Searchable bool
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// Image is an image file extracted from a documentation archive. Immutable
// after import; destroyed with its owning version.
type Image struct {
	ID         string
	VersionID  string
	OrigPath   string // path inside the archive, unique within the version
	StoredPath string // key in the blob store
	URL        string // retrievable URL pages reference after rewriting
	CreatedAt  time.Time
}

// ImageMap maps an original archive path to its imported Image. It lives
// only for the duration of one import run and is threaded through the
// pipeline as a value, never held as shared state.
type ImageMap map[string]*Image

// TreeNode pairs a page with its ordered children. Presentation-only,
// rebuilt on demand from persisted parent relations.
type TreeNode struct {
	Page     *Page
	Children []*TreeNode
}
