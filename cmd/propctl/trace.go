package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	props "github.com/goliatone/go-props"
)

func newTraceCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "trace <scene.yaml> [property...]",
		Short: "Show how each frame contributes to properties",
		Long: `Trace lists, strongest first, every frame holding an entry for a property,
whether that entry has started and which one supplies the effective value.
Without property names every declared property is traced.`,
		Example: `  propctl trace button.yaml width height`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format, formatText, formatJSON); err != nil {
				return err
			}
			s, err := a.loadScene(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			targets := s.Properties()
			if len(args) > 1 {
				targets = targets[:0]
				for _, name := range args[1:] {
					property, err := lookupProperty(s, name)
					if err != nil {
						return err
					}
					targets = append(targets, property)
				}
			}
			traces := make([]props.Trace, 0, len(targets))
			for _, property := range targets {
				traces = append(traces, s.Store.Trace(property))
			}

			out := cmd.OutOrStdout()
			if format == formatJSON {
				return writeJSON(out, traces)
			}
			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			for _, trace := range traces {
				if _, err := fmt.Fprintf(w, "%s (%s) = %v\n", trace.Property, trace.Type, trace.Effective); err != nil {
					return err
				}
				for _, frame := range trace.Frames {
					marker := " "
					if frame.Effective {
						marker = "*"
					}
					value := "-"
					switch {
					case frame.Found:
						value = fmt.Sprint(frame.Value)
					case !frame.Started:
						value = "(not started)"
					}
					if _, err := fmt.Fprintf(w, "  %s\t%s\t%d\t%s\n", marker, frame.Scope.Name, frame.Scope.Priority, value); err != nil {
						return err
					}
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", formatText, "output format: text or json")
	return cmd
}
