package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	props "github.com/goliatone/go-props"
	"github.com/goliatone/go-props/internal/config"
	"github.com/goliatone/go-props/internal/scene"
	"github.com/goliatone/go-props/pkg/activity"
	"github.com/goliatone/go-props/pkg/state"
	"github.com/goliatone/go-props/pkg/state/sqlitestore"
)

// app carries what PersistentPreRunE resolves for the subcommands.
type app struct {
	configFile string
	cfg        config.Config
	logger     *slog.Logger
	stderr     io.Writer
}

// flagKeys maps persistent flags onto configuration keys.
var flagKeys = map[string]string{
	"log-level":  "log_level",
	"log-format": "log_format",
	"evaluator":  "evaluator",
	"db":         "state.path",
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stderr: stderr, logger: slog.New(slog.DiscardHandler)}
	cmd := &cobra.Command{
		Use:   "propctl",
		Short: "Inspect layered property scenes",
		Long: `propctl loads a YAML scene of properties, frames, expression bindings and
timed sequences into a property store, then reports effective values, where
they come from and how they change.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		SilenceUsage: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (YAML)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")
	flags.String("evaluator", "", "default expression engine: expr, cel or js")
	flags.String("db", "", "SQLite database holding persisted local values")

	cmd.AddCommand(
		newResolveCmd(a),
		newTraceCmd(a),
		newSchemaCmd(a),
		newWatchCmd(a),
		newPersistCmd(a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	v, err := config.New(a.configFile)
	if err != nil {
		return err
	}
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.Logger(a.stderr)
	if used := v.ConfigFileUsed(); used != "" {
		a.logger.Debug("using config file", "file", used)
	}
	return nil
}

// loadScene builds the scene at path and, when a database is configured,
// restores the persisted local frame on top of it.
func (a *app) loadScene(ctx context.Context, path string) (*scene.Scene, error) {
	doc, err := scene.Load(path)
	if err != nil {
		return nil, err
	}
	opts := []scene.Option{
		scene.WithLogger(a.logger),
		scene.WithEvaluator(a.cfg.Evaluator),
	}
	if a.cfg.Activity.Enabled {
		hooks := activity.Hooks{activityLogHook(a.logger)}
		opts = append(opts, scene.WithActivityEmitter(activity.NewEmitter(hooks, a.cfg.Activity)))
	}
	s, err := scene.Build(doc, opts...)
	if err != nil {
		return nil, err
	}
	if a.cfg.State.Path == "" {
		return s, nil
	}

	store, err := sqlitestore.Open(a.cfg.State.Path)
	if err != nil {
		s.Close()
		return nil, err
	}
	defer store.Close()
	resolver := a.resolver(store, s)
	if _, _, err := resolver.Restore(ctx, localRef(s), s.Store); err != nil && !errors.Is(err, state.ErrNotFound) {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (a *app) resolver(store state.Store, s *scene.Scene) state.Resolver {
	return state.Resolver{Store: store, Registry: s.Registry, Logger: a.logger}
}

func localRef(s *scene.Scene) state.Ref {
	return state.Ref{ObjectID: s.Object, Scope: props.NewScope("", props.PriorityLocal)}
}

func activityLogHook(logger *slog.Logger) activity.Hook {
	return activity.HookFunc(func(_ context.Context, event activity.Event) error {
		logger.Info("propctl: activity",
			"verb", event.Verb,
			"object_type", event.ObjectType,
			"object_id", event.ObjectID,
			"channel", event.Channel,
			"metadata", event.Metadata,
		)
		return nil
	})
}

func lookupProperty(s *scene.Scene, name string) (props.AnyProperty, error) {
	property, ok := s.Property(name)
	if !ok {
		return nil, fmt.Errorf("unknown property %q", name)
	}
	return property, nil
}
