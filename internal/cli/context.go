// Package cli provides the command-line interface for ammocrawl.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/law-makers/ammocrawl/internal/app"
)

type ctxKey struct{}

// SetApp stores the Application in the command's context. A nil app
// clears it.
func SetApp(cmd *cobra.Command, a *app.Application) {
	if cmd == nil {
		return
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, ctxKey{}, a))
}

// GetAppFromCmd returns the Application stored on cmd or its nearest
// ancestor.
func GetAppFromCmd(cmd *cobra.Command) *app.Application {
	for c := cmd; c != nil; c = c.Parent() {
		ctx := c.Context()
		if ctx == nil {
			continue
		}
		if a, ok := ctx.Value(ctxKey{}).(*app.Application); ok && a != nil {
			return a
		}
	}
	return nil
}
