package commands

import (
	"context"
	"fmt"
)

// DeleteCmd implements the 'delete' command. Deletion blocks until the new
// latest pointer is persisted and the search index updated.
type DeleteCmd struct {
	Project string `arg:"" help:"Project slug"`
	Label   string `arg:"" help:"Version label to delete"`
}

func (d *DeleteCmd) Run(_ *Global, root *CLI) error {
	app, err := openApp(root, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.lifecycle.DeleteVersion(context.Background(), d.Project, d.Label); err != nil {
		return err
	}
	fmt.Printf("deleted %s %s\n", d.Project, d.Label)
	return nil
}
