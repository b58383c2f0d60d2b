package cli

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/waterpistol/waterpistol/history"
	"github.com/waterpistol/waterpistol/model"
	"github.com/waterpistol/waterpistol/registry"
)

func (a *App) hide(ctx *cli.Context) error {
	return a.setVisibility(ctx, model.VisibilityHidden)
}

func (a *App) show(ctx *cli.Context) error {
	return a.setVisibility(ctx, model.VisibilityVisible)
}

func (a *App) setVisibility(ctx *cli.Context, visibility model.Visibility) error {
	token := ctx.Args().First()
	if !history.ValidToken(token) {
		return fmt.Errorf("invalid run ID: %q", token)
	}

	repo, err := a.repository()
	if err != nil {
		return err
	}

	err = registry.New(a.logger, repo, nil).SetVisibility(token, visibility)
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("no run found with ID: %s", token)
	}
	return err
}
