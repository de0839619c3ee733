package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/apmoronez/dogbot/internal/model"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewMetadataCmd exposes one metadata collection as get, save and list
func NewMetadataCmd(deps *Deps, use, collection string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("manage %s metadata documents", collection),
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get ID",
			Short: "show one document",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				col, err := deps.Collections.Get(collection)
				if err != nil {
					return err
				}
				doc, err := col.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), deps.Output, doc)
			},
		},
		&cobra.Command{
			Use:   "save [JSON]",
			Short: "upsert a JSON document carrying an id (stdin when omitted)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				col, err := deps.Collections.Get(collection)
				if err != nil {
					return err
				}

				var raw []byte
				if len(args) == 1 {
					raw = []byte(args[0])
				} else if raw, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return err
				}

				var doc model.Document
				if err := json.Unmarshal(raw, &doc); err != nil {
					return fmt.Errorf("invalid document: %w", err)
				}
				if err := col.Save(cmd.Context(), doc); err != nil {
					return err
				}
				deps.Logger.Info("Metadata document saved",
					zap.String("collection", collection),
					zap.String("id", doc.ID()))
				return render(cmd.OutOrStdout(), deps.Output, doc)
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "list every document",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				col, err := deps.Collections.Get(collection)
				if err != nil {
					return err
				}
				docs, err := col.All(cmd.Context())
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), deps.Output, docs)
			},
		},
	)
	return cmd
}
