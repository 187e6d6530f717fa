// Package appctx carries shared managers on a context for CLI commands.
package appctx

import (
	"context"

	"github.com/vulntor/eventstack/pkg/config"
	"github.com/vulntor/eventstack/pkg/core"
)

type key string

const (
	configKey key = "eventstack.config.manager"
	appKey    key = "eventstack.app.manager"
)

// WithConfig stores the shared config manager on context.
func WithConfig(ctx context.Context, manager *config.Manager) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, configKey, manager)
}

// Config retrieves the shared config manager from context.
func Config(ctx context.Context) (*config.Manager, bool) {
	if ctx == nil {
		return nil, false
	}
	mgr, ok := ctx.Value(configKey).(*config.Manager)
	return mgr, ok && mgr != nil
}

// WithApp stores the application manager on context.
func WithApp(ctx context.Context, app *core.AppManager) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, appKey, app)
}

// App retrieves the application manager from context.
func App(ctx context.Context) (*core.AppManager, bool) {
	if ctx == nil {
		return nil, false
	}
	app, ok := ctx.Value(appKey).(*core.AppManager)
	return app, ok && app != nil
}
