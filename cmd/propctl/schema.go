package main

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-props/internal/scene"
	"github.com/goliatone/go-props/schema/openapi"
)

const formatOpenAPI = "openapi"

func newSchemaCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:     "schema <scene.yaml>",
		Short:   "Describe the properties a scene declares",
		Long: `Schema lists the declared properties with their types, defaults and
validation rules. With -o openapi it prints an OpenAPI document for the
object that sets them as local values.`,
		Example: `  propctl schema button.yaml -o json
  propctl schema button.yaml -o openapi`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format, formatJSON, formatYAML, formatOpenAPI); err != nil {
				return err
			}
			doc, err := scene.Load(args[0])
			if err != nil {
				return err
			}
			s, err := scene.Build(doc, scene.WithLogger(a.logger), scene.WithEvaluator(a.cfg.Evaluator))
			if err != nil {
				return err
			}
			defer s.Close()

			descriptors := s.Registry.Describe()
			switch format {
			case formatJSON:
				return writeJSON(cmd.OutOrStdout(), descriptors)
			case formatOpenAPI:
				doc, err := openapi.NewGenerator(
					openapi.WithInfo(s.Object+" properties", ""),
					openapi.WithOperation("/objects/"+s.Object+"/properties", "", "set"+s.Object+"Properties"),
				).Generate(descriptors)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), doc)
			}
			return writeYAML(cmd.OutOrStdout(), descriptors)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", formatYAML, "output format: yaml, json or openapi")
	return cmd
}
