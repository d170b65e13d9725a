package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type resolvedValue struct {
	Property string `json:"property" yaml:"property"`
	Value    any    `json:"value" yaml:"value"`
	Frame    string `json:"frame,omitempty" yaml:"frame,omitempty"`
	IsSet    bool   `json:"is_set" yaml:"is_set"`
}

func newResolveCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:     "resolve <scene.yaml>",
		Short:   "Print the effective value of every property",
		Example: `  propctl resolve button.yaml --output json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format, formatText, formatJSON, formatYAML); err != nil {
				return err
			}
			s, err := a.loadScene(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			values := make([]resolvedValue, 0, len(s.Properties()))
			for _, property := range s.Properties() {
				value := resolvedValue{
					Property: property.Name(),
					Value:    s.Store.GetAny(property),
					IsSet:    s.Store.IsSet(property),
				}
				if frame := s.Store.ValueFrame(property); frame != nil {
					value.Frame = frame.Name()
				}
				values = append(values, value)
			}

			out := cmd.OutOrStdout()
			switch format {
			case formatJSON:
				return writeJSON(out, values)
			case formatYAML:
				return writeYAML(out, values)
			}
			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			if _, err := fmt.Fprintln(w, "PROPERTY\tVALUE\tFRAME"); err != nil {
				return fmt.Errorf("failed to write header: %w", err)
			}
			for _, value := range values {
				frame := value.Frame
				if !value.IsSet {
					frame = "(default)"
				}
				if _, err := fmt.Fprintf(w, "%s\t%v\t%s\n", value.Property, value.Value, frame); err != nil {
					return fmt.Errorf("failed to write value: %w", err)
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", formatText, "output format: text, json or yaml")
	return cmd
}
