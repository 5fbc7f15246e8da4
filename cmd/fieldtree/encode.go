package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newEncodeCmd(flags *rootFlags) *cobra.Command {
	var (
		itemID int64
		format string
	)
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Print the field tree of a content item",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if itemID <= 0 {
				return fmt.Errorf("--item is required")
			}
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			rt, err := openRuntime(cmd.Context(), cfg, logger, flags.seedPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			resp, err := rt.service.Read(cmd.Context(), itemID)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), format, resp)
		},
	}
	cmd.Flags().Int64Var(&itemID, "item", 0, "Content item id")
	cmd.Flags().StringVarP(&format, "format", "o", "json", "Output format: json or yaml")
	return cmd
}

// writeOutput prints value as indented JSON or, via its JSON form, as YAML so
// custom JSON key ordering and naming carry over.
func writeOutput(w io.Writer, format string, value any) error {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	switch strings.ToLower(format) {
	case "", "json":
		_, err = fmt.Fprintln(w, string(payload))
		return err
	case "yaml", "yml":
		var generic any
		if err := json.Unmarshal(payload, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
