package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/dochost/internal/archive"
	"git.home.luguber.info/inful/dochost/internal/derrors"
	"git.home.luguber.info/inful/dochost/internal/manifest"
	"git.home.luguber.info/inful/dochost/internal/models"
	"git.home.luguber.info/inful/dochost/internal/slug"
)

// ImportCmd implements the 'import' command.
type ImportCmd struct {
	Archive       string `arg:"" help:"Path to the documentation archive (tar.gz)"`
	Force         bool   `help:"Replace the version if it was already imported"`
	CreateProject bool   `help:"Create the project from the manifest if it does not exist"`
}

func (i *ImportCmd) Run(_ *Global, root *CLI) error {
	app, err := openApp(root, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()
	if i.CreateProject {
		if err := ensureProject(ctx, app, i.Archive); err != nil {
			return err
		}
	}

	version, err := app.importer.Import(ctx, i.Archive, i.Force)
	if err != nil {
		return err
	}
	fmt.Printf("imported version %s (id %s)\n", version.Label, version.ID)
	return nil
}

// ensureProject creates the project named by the archive's manifest when it
// is missing, so a first import needs no separate 'project add' step.
func ensureProject(ctx context.Context, app *app, archivePath string) error {
	rd, err := archive.Open(archivePath)
	if err != nil {
		return err
	}
	m, err := manifest.Extract(rd)
	if err != nil {
		return err
	}

	projectSlug := slug.Make(m.Project)
	_, err = app.store.GetProjectBySlug(ctx, projectSlug)
	switch {
	case err == nil:
		return nil
	case derrors.IsCode(err, derrors.CodeProjectNotFound):
		project := &models.Project{Title: m.Project, Slug: projectSlug}
		if err := app.store.CreateProject(ctx, project); err != nil {
			return err
		}
		fmt.Printf("created project %s (%s)\n", project.Title, project.Slug)
		return nil
	default:
		return err
	}
}
