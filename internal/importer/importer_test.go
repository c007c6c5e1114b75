package importer

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/dochost/internal/blobstore"
	"git.home.luguber.info/inful/dochost/internal/derrors"
	"git.home.luguber.info/inful/dochost/internal/metrics"
	"git.home.luguber.info/inful/dochost/internal/models"
	"git.home.luguber.info/inful/dochost/internal/store"
)

// writeDocsArchive packs members into a tar.gz under a "json/" container
// directory, the way documentation build archives are produced.
func writeDocsArchive(t *testing.T, members map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, data := range members {
		hdr := &tar.Header{Name: "json/" + name, Mode: 0o644, Size: int64(len(data))}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write([]byte(data))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	path := filepath.Join(t.TempDir(), "docs.tar.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func defaultMembers() map[string]string {
	return map[string]string{
		"globalcontext.json": `{
			"project": "My Project",
			"release": "1.0.0",
			"sphinx_version": "7.2.6",
			"root_doc": "index",
			"globaltoc": "<ul><li>toc</li></ul>",
			"pages": ["index", "usage", "api/index", "api/client"]
		}`,
		"index.fjson":      `{"title": "Welcome", "body": "<p><img src=\"_images/logo.png\"></p>", "toc": "<ul></ul>"}`,
		"usage.fjson":      `{"title": "Usage", "body": "<p>see <a class=\"reference internal\" href=\"api/client.html#connect\">the client</a></p>"}`,
		"api/index.fjson":  `{"title": "API"}`,
		"api/client.fjson": `{"title": "Client", "body": "<img src=\"../_images/diagram.png\">"}`,
		"genindex.fjson":   `{"title": "", "body": null}`,
		"_images/logo.png":    "\x89PNG-logo",
		"_images/diagram.png": "\x89PNG-diagram",
	}
}

func newTestImporter(t *testing.T) (*Importer, *store.Store, *blobstore.MemStore) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	blobs := blobstore.NewMemStore("http://blobs")
	imp := New(st, blobs, metrics.Nop{}, nil)

	require.NoError(t, st.CreateProject(context.Background(), &models.Project{
		Title: "My Project",
		Slug:  "my-project",
	}))
	return imp, st, blobs
}

func TestImportPopulatesVersion(t *testing.T) {
	imp, st, blobs := newTestImporter(t)
	ctx := context.Background()

	version, err := imp.Import(ctx, writeDocsArchive(t, defaultMembers()), false)
	require.NoError(t, err)
	require.Equal(t, "1.0.0", version.Label)
	require.Equal(t, "7.2.6", version.SphinxVersion)
	require.Equal(t, "<ul><li>toc</li></ul>", version.GlobalTOC)

	pages, err := st.ListPages(ctx, version.ID)
	require.NoError(t, err)
	require.Len(t, pages, 5)

	images, err := st.ListImages(ctx, version.ID)
	require.NoError(t, err)
	require.Len(t, images, 2)
	require.Equal(t, 2, blobs.Len())

	// Head points at the manifest's root document.
	require.NotNil(t, version.HeadPageID)
	head, err := st.GetPage(ctx, *version.HeadPageID)
	require.NoError(t, err)
	require.Equal(t, "index", head.RelativePath)

	// Image references in bodies resolve to stored URLs.
	require.Contains(t, head.Body, "http://blobs/my-project/1.0.0/images/logo.png")
	client, err := st.GetPageByPath(ctx, version.ID, "api/client")
	require.NoError(t, err)
	require.Contains(t, client.Body, "http://blobs/my-project/1.0.0/images/diagram.png")

	// Parent from path structure, next from the manifest sequence.
	apiIndex, err := st.GetPageByPath(ctx, version.ID, "api/index")
	require.NoError(t, err)
	require.NotNil(t, client.ParentID)
	require.Equal(t, apiIndex.ID, *client.ParentID)

	usage, err := st.GetPageByPath(ctx, version.ID, "usage")
	require.NoError(t, err)
	require.NotNil(t, head.NextID)
	require.Equal(t, usage.ID, *head.NextID)

	// Page cross-references come out of the import already deferred.
	require.Contains(t, usage.Body, `doc://my-project/1.0.0/api/client#connect`)
}

func TestImportMarksSearchablePages(t *testing.T) {
	imp, st, _ := newTestImporter(t)
	ctx := context.Background()

	version, err := imp.Import(ctx, writeDocsArchive(t, defaultMembers()), false)
	require.NoError(t, err)

	genindex, err := st.GetPageByPath(ctx, version.ID, "genindex")
	require.NoError(t, err)
	require.Equal(t, "General Index", genindex.Title)
	require.False(t, genindex.Searchable)

	searchable, err := st.ListSearchablePages(ctx, version.ID)
	require.NoError(t, err)
	require.Len(t, searchable, 4)
	for _, p := range searchable {
		require.NotEqual(t, "genindex", p.RelativePath)
	}
}

func TestImportDuplicateLabel(t *testing.T) {
	imp, _, _ := newTestImporter(t)
	ctx := context.Background()
	path := writeDocsArchive(t, defaultMembers())

	_, err := imp.Import(ctx, path, false)
	require.NoError(t, err)

	_, err = imp.Import(ctx, path, false)
	require.True(t, derrors.IsCode(err, derrors.CodeVersionExists), "got %v", err)
}

func TestForcedReimportIsIdempotent(t *testing.T) {
	imp, st, blobs := newTestImporter(t)
	ctx := context.Background()
	path := writeDocsArchive(t, defaultMembers())

	first, err := imp.Import(ctx, path, false)
	require.NoError(t, err)
	firstPages, err := st.ListPages(ctx, first.ID)
	require.NoError(t, err)

	second, err := imp.Import(ctx, path, true)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID, "forced re-import reuses the version record")

	secondPages, err := st.ListPages(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, secondPages, len(firstPages))
	for i := range firstPages {
		require.Equal(t, firstPages[i].RelativePath, secondPages[i].RelativePath)
		require.Equal(t, firstPages[i].Body, secondPages[i].Body)
	}

	images, err := st.ListImages(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, images, 2)
	require.Equal(t, 2, blobs.Len())
}

func TestImportUnknownProject(t *testing.T) {
	imp, _, _ := newTestImporter(t)
	members := defaultMembers()
	members["globalcontext.json"] = `{"project": "Ghost Project", "release": "1.0.0"}`

	_, err := imp.Import(context.Background(), writeDocsArchive(t, members), false)
	require.True(t, derrors.IsCode(err, derrors.CodeProjectNotFound), "got %v", err)
}

func TestImportMissingManifest(t *testing.T) {
	imp, _, _ := newTestImporter(t)
	members := defaultMembers()
	delete(members, "globalcontext.json")

	_, err := imp.Import(context.Background(), writeDocsArchive(t, members), false)
	require.True(t, derrors.IsCode(err, derrors.CodeMissingManifest), "got %v", err)
}

func TestRewriteLinksMaintenancePass(t *testing.T) {
	imp, st, _ := newTestImporter(t)
	ctx := context.Background()

	version, err := imp.Import(ctx, writeDocsArchive(t, defaultMembers()), false)
	require.NoError(t, err)

	// Imports rewrite at ingest time; put a body back into the pre-rewrite
	// state to stand in for a version imported before that.
	usage, err := st.GetPageByPath(ctx, version.ID, "usage")
	require.NoError(t, err)
	require.NoError(t, st.UpdatePageBody(ctx, usage.ID, usage.OrigBody))

	changed, err := imp.RewriteLinks(ctx, "my-project", "1.0.0")
	require.NoError(t, err)
	require.Equal(t, 1, changed)

	usage, err = st.GetPageByPath(ctx, version.ID, "usage")
	require.NoError(t, err)
	require.True(t, strings.Contains(usage.Body, `doc://my-project/1.0.0/api/client#connect`), usage.Body)

	// Re-running finds nothing left to rewrite.
	changed, err = imp.RewriteLinks(ctx, "my-project", "1.0.0")
	require.NoError(t, err)
	require.Zero(t, changed)
}

// Unclassed relative anchors survive both the import-time rewrite and the
// maintenance pass untouched.
func TestRewriteLinksLeavesUnclassedAnchors(t *testing.T) {
	imp, st, _ := newTestImporter(t)
	ctx := context.Background()

	members := defaultMembers()
	members["usage.fjson"] = `{"title": "Usage", "body": "<p><a href=\"_sources/usage.rst.txt\">show source</a></p>"}`

	version, err := imp.Import(ctx, writeDocsArchive(t, members), false)
	require.NoError(t, err)

	changed, err := imp.RewriteLinks(ctx, "my-project", "1.0.0")
	require.NoError(t, err)
	require.Zero(t, changed)

	usage, err := st.GetPageByPath(ctx, version.ID, "usage")
	require.NoError(t, err)
	require.Contains(t, usage.Body, `href="_sources/usage.rst.txt"`)
	require.NotContains(t, usage.Body, "doc://")
}
