package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-fieldtree/pkg/openapi"
)

func newSchemaCmd(flags *rootFlags) *cobra.Command {
	var server string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the OpenAPI document for the registered field groups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			rt, err := openRuntime(cmd.Context(), cfg, logger, "")
			if err != nil {
				return err
			}
			defer rt.Close()

			payload, err := openapi.JSON(cmd.Context(), rt.registry, openapi.WithServer(server))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(payload))
			return err
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "Server URL to list in the document")
	return cmd
}
