package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-fieldtree/pkg/decoder"
)

func newFlattenCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "flatten [file]",
		Short: "Flatten a posted field tree into field updates",
		Long:  `Reads a posted payload ({"advanced": [...]} or a bare list of groups) from the file or stdin and prints the updates a write would persist.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 0 || args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}
			updates, err := decoder.FlattenJSON(data)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), format, updates)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "json", "Output format: json or yaml")
	return cmd
}
