package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// NewImportCmd bulk-creates dogs from a multi-document YAML file
func NewImportCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "create one dog per YAML document of FILE (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := deps.tenant()
			if err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			results, err := deps.Importer.Import(cmd.Context(), tenant, in)
			if err != nil && results == nil {
				return err
			}
			if rerr := render(cmd.OutOrStdout(), deps.Output, results); rerr != nil {
				return rerr
			}
			if err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed to import", failed, len(results))
			}
			return nil
		},
	}
}
