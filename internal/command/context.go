package command

import (
	"context"
	"errors"
	"log/slog"

	"github.com/goliatone/go-formdesigner/pkg/catalog"
)

// Env carries what PersistentPreRunE resolved from the global flags.
type Env struct {
	Logger  *slog.Logger
	Catalog *catalog.Catalog
}

type envKey struct{}

// WithEnv returns a context carrying env.
func WithEnv(ctx context.Context, env *Env) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}

// GetEnv retrieves the env stored by WithEnv.
func GetEnv(ctx context.Context) *Env {
	if ctx == nil {
		return nil
	}
	if env, ok := ctx.Value(envKey{}).(*Env); ok {
		return env
	}
	return nil
}

// RequireEnv is GetEnv that fails when the root command did not run.
func RequireEnv(ctx context.Context) (*Env, error) {
	env := GetEnv(ctx)
	if env == nil {
		return nil, errors.New("command: environment not initialised")
	}
	return env, nil
}
