// Package importer runs the archive import pipeline: manifest extraction,
// image import, page import with reference rewriting, and page tree
// construction, in that order. One run populates exactly one version.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path"
	"strings"
	"time"

	"git.home.luguber.info/inful/dochost/internal/archive"
	"git.home.luguber.info/inful/dochost/internal/blobstore"
	"git.home.luguber.info/inful/dochost/internal/derrors"
	"git.home.luguber.info/inful/dochost/internal/events"
	"git.home.luguber.info/inful/dochost/internal/manifest"
	"git.home.luguber.info/inful/dochost/internal/metrics"
	"git.home.luguber.info/inful/dochost/internal/models"
	"git.home.luguber.info/inful/dochost/internal/observability"
	"git.home.luguber.info/inful/dochost/internal/pagetree"
	"git.home.luguber.info/inful/dochost/internal/slug"
	"git.home.luguber.info/inful/dochost/internal/store"
)

// PageExtension marks archive members that are page documents.
const PageExtension = ".fjson"

// imagesDir is the path segment under which archives keep image members.
const imagesDir = "_images"

// Importer imports documentation archives into the store. Safe for
// concurrent use across different versions; two imports targeting the same
// version must be serialized by the caller.
type Importer struct {
	store   *store.Store
	blobs   blobstore.Store
	metrics metrics.Recorder
	events  *events.Publisher
}

// New assembles an importer. events may be nil when no broker is configured.
func New(st *store.Store, blobs blobstore.Store, rec metrics.Recorder, pub *events.Publisher) *Importer {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Importer{store: st, blobs: blobs, metrics: rec, events: pub}
}

// pageDocument is the subset of a page member's JSON payload the importer
// reads. Absent or null fields decode to empty strings.
type pageDocument struct {
	Title      string `json:"title"`
	IndexTitle string `json:"indextitle"`
	Body       string `json:"body"`
	TOC        string `json:"toc"`
}

// Import reads the archive at archivePath and populates one version of the
// project its manifest names. The project must already exist. If the version
// label already exists the import fails with VersionAlreadyExists unless
// force is set, in which case the version's pages and images are purged and
// repopulated. The purge and repopulation are not one atomic unit; a failure
// mid-import can leave the version empty.
func (imp *Importer) Import(ctx context.Context, archivePath string, force bool) (v *models.Version, err error) {
	start := time.Now()
	projectSlug := ""
	defer func() {
		if projectSlug != "" && err != nil {
			imp.metrics.ImportCompleted(projectSlug, 0, 0, time.Since(start), false)
		}
	}()

	rd, err := archive.Open(archivePath)
	if err != nil {
		return nil, err
	}
	m, err := manifest.Extract(rd)
	if err != nil {
		return nil, annotate(err, archivePath)
	}

	projectSlug = slug.Make(m.Project)
	ctx = observability.WithVersion(observability.WithProject(ctx, projectSlug), m.Release)

	project, err := imp.store.GetProjectBySlug(ctx, projectSlug)
	if err != nil {
		return nil, annotate(err, archivePath)
	}

	version, err := imp.prepareVersion(ctx, project, m, force)
	if err != nil {
		return nil, annotate(err, archivePath)
	}

	images, err := imp.importImages(observability.WithStage(ctx, "images"), rd, project.Slug, version)
	if err != nil {
		return nil, annotate(err, archivePath)
	}
	pages, err := imp.importPages(observability.WithStage(ctx, "pages"), rd, project.Slug, version, images)
	if err != nil {
		return nil, annotate(err, archivePath)
	}
	if err := imp.linkPages(observability.WithStage(ctx, "tree"), version, m, pages); err != nil {
		return nil, annotate(err, archivePath)
	}

	excluded := specialPagePaths(pages)
	if err := imp.store.MarkSearchablePages(ctx, version.ID, excluded); err != nil {
		return nil, annotate(err, archivePath)
	}

	imp.metrics.ImportCompleted(projectSlug, len(pages), len(images), time.Since(start), true)
	imp.events.PublishImported(events.VersionImported{
		Project: projectSlug,
		Version: version.Label,
		Pages:   len(pages),
		Images:  len(images),
		At:      time.Now().UTC(),
	})
	observability.InfoContext(ctx, "import complete",
		slog.Int("pages", len(pages)),
		slog.Int("images", len(images)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return version, nil
}

// prepareVersion finds or creates the version record for the manifest's
// release label, purging a pre-existing version when force is set.
func (imp *Importer) prepareVersion(ctx context.Context, project *models.Project, m *manifest.Manifest, force bool) (*models.Version, error) {
	version, err := imp.store.GetVersionByLabel(ctx, project.ID, m.Release)
	switch {
	case err == nil && !force:
		return nil, derrors.New(derrors.CategoryDatabase, derrors.CodeVersionExists,
			"version already imported, re-run with force to replace it").
			WithContext("project", project.Slug).
			WithContext("version", m.Release)
	case err == nil:
		observability.WarnContext(ctx, "forced re-import, purging existing pages and images")
		if err := imp.store.PurgeVersion(ctx, version.ID); err != nil {
			return nil, err
		}
		if err := imp.blobs.DeletePrefix(ctx, project.Slug+"/"+version.Label+"/"); err != nil {
			return nil, derrors.Wrap(err, derrors.CategoryStorage, derrors.CodeInternal, "purge stored images")
		}
		return version, nil
	case derrors.IsCode(err, derrors.CodeNotFound):
		version = &models.Version{ProjectID: project.ID, Label: m.Release, SphinxVersion: m.SphinxVersion}
		if err := imp.store.CreateVersion(ctx, version); err != nil {
			return nil, err
		}
		return version, nil
	default:
		return nil, err
	}
}

// importImages stores every image member and returns the run's image map,
// keyed by container-stripped member path.
func (imp *Importer) importImages(ctx context.Context, rd *archive.Reader, projectSlug string, version *models.Version) (models.ImageMap, error) {
	images := make(models.ImageMap)
	for _, member := range rd.Paths() {
		if !isImageMember(member) {
			continue
		}
		data, err := rd.Member(member)
		if err != nil {
			return nil, err
		}

		key := projectSlug + "/" + version.Label + "/images/" + path.Base(member)
		url, err := imp.blobs.Put(ctx, key, data)
		if err != nil {
			return nil, derrors.Wrap(err, derrors.CategoryStorage, derrors.CodeInternal, "store image blob").
				WithContext("member", member)
		}

		img := &models.Image{
			VersionID:  version.ID,
			OrigPath:   member,
			StoredPath: key,
			URL:        url,
		}
		if err := imp.store.CreateImage(ctx, img); err != nil {
			return nil, err
		}
		images[member] = img
		observability.InfoContext(ctx, "imported image",
			slog.String("orig_path", member),
			slog.String("url", url),
			slog.String("id", img.ID),
		)
	}
	return images, nil
}

// importPages parses every page document, rewrites its image references
// against the run's image map, and persists the page records.
func (imp *Importer) importPages(ctx context.Context, rd *archive.Reader, projectSlug string, version *models.Version, images models.ImageMap) ([]*models.Page, error) {
	var pages []*models.Page
	for _, member := range rd.Paths() {
		if !strings.HasSuffix(member, PageExtension) {
			continue
		}
		data, err := rd.Member(member)
		if err != nil {
			return nil, err
		}

		var doc pageDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, derrors.Wrap(err, derrors.CategoryArchive, derrors.CodeArchiveCorrupt,
				"page document is not valid JSON").
				WithContext("member", member)
		}

		relativePath := strings.TrimSuffix(member, PageExtension)
		body, _ := RewriteImageRefs(doc.Body, images)
		body, _ = RewriteInternalLinks(body, projectSlug, version.Label)

		page := &models.Page{
			VersionID:    version.ID,
			RelativePath: relativePath,
			Title:        pageTitle(relativePath, doc.Title, doc.IndexTitle),
			Content:      string(data),
			OrigBody:     doc.Body,
			Body:         body,
			OrigLocalTOC: doc.TOC,
			LocalTOC:     doc.TOC,
		}
		if err := imp.store.CreatePage(ctx, page); err != nil {
			return nil, err
		}
		pages = append(pages, page)
		observability.InfoContext(ctx, "imported page",
			slog.String("relative_path", relativePath),
			slog.String("title", page.Title),
			slog.String("id", page.ID),
		)
	}
	return pages, nil
}

// linkPages runs the tree builder and persists the computed relations plus
// the version's head pointer and metadata.
func (imp *Importer) linkPages(ctx context.Context, version *models.Version, m *manifest.Manifest, pages []*models.Page) error {
	headPath := m.RootDoc
	if headPath == "" {
		headPath = "index"
	}

	tree, err := pagetree.Build(pages, m.Pages, headPath)
	if err != nil {
		return err
	}
	for _, p := range pages {
		if err := imp.store.UpdatePageLinks(ctx, p.ID, p.ParentID, p.NextID); err != nil {
			return err
		}
	}

	version.SphinxVersion = m.SphinxVersion
	version.GlobalTOC = m.GlobalTOC
	version.HeadPageID = nil
	if tree.Head != nil {
		id := tree.Head.Page.ID
		version.HeadPageID = &id
		observability.InfoContext(ctx, "version head set",
			slog.String("relative_path", tree.Head.Page.RelativePath))
	}
	return imp.store.UpdateVersionMeta(ctx, version)
}

// RewriteLinks is the link maintenance pass: it rewrites relative hyperlinks
// in every page body of a version to the deferred doc:// form. Idempotent;
// returns the number of pages whose body changed.
func (imp *Importer) RewriteLinks(ctx context.Context, projectSlug, versionLabel string) (int, error) {
	ctx = observability.WithVersion(observability.WithProject(ctx, projectSlug), versionLabel)

	project, err := imp.store.GetProjectBySlug(ctx, projectSlug)
	if err != nil {
		return 0, err
	}
	version, err := imp.store.GetVersionByLabel(ctx, project.ID, versionLabel)
	if err != nil {
		return 0, err
	}
	pages, err := imp.store.ListPages(ctx, version.ID)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, p := range pages {
		body, ok := RewriteInternalLinks(p.Body, projectSlug, versionLabel)
		if !ok {
			continue
		}
		if err := imp.store.UpdatePageBody(ctx, p.ID, body); err != nil {
			return changed, err
		}
		changed++
	}
	observability.InfoContext(ctx, "rewrote internal links", slog.Int("pages_changed", changed))
	return changed, nil
}

// isImageMember reports whether a member path sits under the images
// directory convention.
func isImageMember(member string) bool {
	for _, seg := range strings.Split(path.Dir(member), "/") {
		if seg == imagesDir {
			return true
		}
	}
	return false
}

// specialPagePaths returns the relative paths among pages that belong to
// generator-produced special pages, which stay out of the search index.
func specialPagePaths(pages []*models.Page) []string {
	var out []string
	for _, p := range pages {
		if _, ok := specialTitles[p.RelativePath]; ok {
			out = append(out, p.RelativePath)
		}
	}
	return out
}

// annotate attaches the archive path to structured errors surfacing from an
// import run.
func annotate(err error, archivePath string) error {
	var de *derrors.Error
	if errors.As(err, &de) {
		de.WithContext("archive", archivePath)
	}
	return err
}
