package commands

import (
	"context"
	"fmt"
)

// ReindexCmd implements the 'reindex' command.
type ReindexCmd struct {
	Project string `arg:"" optional:"" help:"Project slug (all projects when omitted)"`
}

func (r *ReindexCmd) Run(_ *Global, root *CLI) error {
	app, err := openApp(root, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()
	if r.Project == "" {
		if err := app.lifecycle.ReindexAll(ctx); err != nil {
			return err
		}
		fmt.Println("reindexed all projects")
		return nil
	}
	if err := app.lifecycle.Reindex(ctx, r.Project); err != nil {
		return err
	}
	fmt.Printf("reindexed %s\n", r.Project)
	return nil
}
