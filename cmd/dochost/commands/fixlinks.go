package commands

import (
	"context"
	"fmt"
)

// FixlinksCmd implements the 'fixlinks' maintenance command: it rewrites
// internal hyperlinks in stored page bodies to the deferred doc:// form.
// Safe to re-run.
type FixlinksCmd struct {
	Project string `arg:"" help:"Project slug"`
	Label   string `arg:"" help:"Version label"`
}

func (f *FixlinksCmd) Run(_ *Global, root *CLI) error {
	app, err := openApp(root, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	changed, err := app.importer.RewriteLinks(context.Background(), f.Project, f.Label)
	if err != nil {
		return err
	}
	fmt.Printf("rewrote links in %d pages\n", changed)
	return nil
}
