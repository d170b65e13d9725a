package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-props/pkg/state"
	"github.com/goliatone/go-props/pkg/state/sqlitestore"
)

func newPersistCmd(a *app) *cobra.Command {
	var (
		assignments []string
		etag        string
	)
	cmd := &cobra.Command{
		Use:   "persist <scene.yaml>",
		Short: "Set local values and save them to the database",
		Long: `Persist applies --set assignments as local values, then saves the local
frame to the SQLite database given by --db (or state.path). Values are
converted to each property's type. --etag rejects the save when the stored
snapshot changed since it was read.`,
		Example: `  propctl persist button.yaml --db props.db --set width=30 --set title=Save`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.State.Path == "" {
				return fmt.Errorf("persist requires --db or state.path")
			}
			s, err := a.loadScene(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			for _, assignment := range assignments {
				name, value, ok := strings.Cut(assignment, "=")
				if !ok {
					return fmt.Errorf("invalid assignment %q (want name=value)", assignment)
				}
				property, err := lookupProperty(s, strings.TrimSpace(name))
				if err != nil {
					return err
				}
				if err := s.Store.SetAny(property, value); err != nil {
					return err
				}
			}

			store, err := sqlitestore.Open(a.cfg.State.Path)
			if err != nil {
				return err
			}
			defer store.Close()
			frame, err := s.Store.LocalFrame()
			if err != nil {
				return err
			}
			meta, err := a.resolver(store, s).Persist(cmd.Context(), localRef(s), frame, state.Meta{ETag: etag})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "saved %s/local snapshot=%s etag=%s\n", s.Object, meta.SnapshotID, meta.ETag)
			return err
		},
	}
	cmd.Flags().StringArrayVar(&assignments, "set", nil, "local value as name=value (repeatable)")
	cmd.Flags().StringVar(&etag, "etag", "", "expected etag of the stored snapshot")
	return cmd
}
