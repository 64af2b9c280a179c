package cmd

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"
)

var deleteFilename string

var uploadCmd = &cobra.Command{
	Use:   "upload [file...]",
	Short: "Upload one or more PDFs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, raw, err := newClient().Upload(cmd.Context(), args)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd, raw)
		}
		cmd.Printf("%s\n%d file(s), %d chunk(s)\n", res.Message, res.TotalFiles, res.TotalChunks)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		recs, raw, err := newClient().List(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd, raw)
		}
		if len(recs) == 0 {
			cmd.Println("No documents.")
			return nil
		}
		for _, r := range recs {
			cmd.Printf("%s  %-40s %6.2f MB  %4d chunks  %s\n", r.ID, r.Filename, r.SizeMB, len(r.ChunkIDs), r.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a document by record id, or every upload of --filename",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		var (
			res *DeletionResult
			raw json.RawMessage
			err error
		)
		switch {
		case len(args) == 1 && deleteFilename == "":
			res, raw, err = c.Delete(cmd.Context(), args[0])
		case len(args) == 0 && deleteFilename != "":
			res, raw, err = c.DeleteByFilename(cmd.Context(), deleteFilename)
		default:
			return errors.New("pass either a record id or --filename")
		}
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd, raw)
		}
		cmd.Println(res.Message)
		return nil
	},
}

func init() {
	deleteCmd.Flags().StringVar(&deleteFilename, "filename", "", "delete every upload with this filename")
	rootCmd.AddCommand(uploadCmd, listCmd, deleteCmd)
}

func printJSON(cmd *cobra.Command, raw json.RawMessage) error {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(b))
	return nil
}
