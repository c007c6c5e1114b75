package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/dochost/internal/models"
)

// ProjectCmd groups project management subcommands.
type ProjectCmd struct {
	Add  ProjectAddCmd  `cmd:"" help:"Create a project"`
	List ProjectListCmd `cmd:"" help:"List projects"`
}

// ProjectAddCmd creates a project. Projects must exist before an archive can
// be imported for them (unless 'import --create-project' is used).
type ProjectAddCmd struct {
	Slug        string   `arg:"" help:"Machine name, must match the archive manifest's project key"`
	Title       string   `required:"" help:"Human-readable title"`
	Description string   `help:"Free-text description"`
	Classifier  []string `help:"Category classifier (repeatable), surfaced as a search facet"`
}

func (p *ProjectAddCmd) Run(_ *Global, root *CLI) error {
	app, err := openApp(root, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	project := &models.Project{
		Title:       p.Title,
		Slug:        p.Slug,
		Description: p.Description,
		Classifiers: p.Classifier,
	}
	if err := app.store.CreateProject(context.Background(), project); err != nil {
		return err
	}
	fmt.Printf("created project %s (id %s)\n", project.Slug, project.ID)
	return nil
}

// ProjectListCmd lists projects with their latest version.
type ProjectListCmd struct{}

func (p *ProjectListCmd) Run(_ *Global, root *CLI) error {
	app, err := openApp(root, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()
	projects, err := app.store.ListProjects(ctx)
	if err != nil {
		return err
	}
	for _, project := range projects {
		latest := "-"
		if project.LatestVersionID != nil {
			v, err := app.store.GetVersion(ctx, *project.LatestVersionID)
			if err != nil {
				return err
			}
			latest = v.Label
		}
		fmt.Printf("%-24s %-32s latest: %s\n", project.Slug, project.Title, latest)
	}
	return nil
}
