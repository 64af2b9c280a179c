package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

var askK int

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the indexed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, raw, err := newClient().Ask(cmd.Context(), strings.Join(args, " "), askK)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd, raw)
		}
		cmd.Println(res.Answer)
		if len(res.Sources) > 0 {
			cmd.Println()
			cmd.Println("Sources:")
			for _, s := range res.Sources {
				cmd.Printf("  - %s, page %d\n", s.Filename, s.Page)
			}
		}
		if res.Confidence != nil {
			cmd.Printf("Confidence: %s\n", *res.Confidence)
		}
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show the service health report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := newClient().Health(cmd.Context())
		var apiErr *APIError
		if err != nil && !(errors.As(err, &apiErr) && len(raw) > 0) {
			return err
		}
		if perr := printJSON(cmd, raw); perr != nil {
			return perr
		}
		return err
	},
}

func init() {
	askCmd.Flags().IntVarP(&askK, "k", "k", 0, "number of chunks to retrieve (1-20, default from server)")
	rootCmd.AddCommand(askCmd, healthCmd)
}
