package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	props "github.com/goliatone/go-props"
	"github.com/goliatone/go-props/pkg/dispatch"
)

func newWatchCmd(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "watch <scene.yaml>",
		Short: "Play the scene's sequences and print every change",
		Long: `Watch prints the initial value of every property, then plays the scene's
sequences and prints each effective value change as it happens. Sequence
values are produced on their own goroutines and delivered to the store
through a dispatcher, so the store is only touched by one goroutine.`,
		Example: `  propctl watch button.yaml --timeout 5s`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.loadScene(ctx, args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			for _, property := range s.Properties() {
				fmt.Fprintf(out, "%s = %v\n", property.Name(), s.Store.GetAny(property))
			}
			s.Store.AddListener(func(change props.PropertyChanged) {
				source := change.Scope.Name
				if !change.IsSet {
					source = "(default)"
				}
				fmt.Fprintf(out, "%s: %v -> %v [%s]\n", change.Property.Name(), change.OldValue, change.NewValue, source)
			})

			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			d := dispatch.New(dispatch.WithPanicHandler(func(r any) {
				a.logger.Error("propctl: store callback panicked", "panic", r)
			}))

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if err := d.Run(gctx); !errors.Is(err, dispatch.ErrClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				defer d.Close()
				producers, pctx := errgroup.WithContext(gctx)
				for _, sequence := range s.Sequences {
					producers.Go(func() error {
						return sequence.Play(pctx, d.Post)
					})
				}
				return producers.Wait()
			})

			err = g.Wait()
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				a.logger.Debug("propctl: watch stopped", "reason", err)
				return nil
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "stop after this long (0 waits for every sequence)")
	return cmd
}
