package cli

import (
	"github.com/spf13/cobra"
)

// NewPhotoCmd groups the photo commands
func NewPhotoCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photo",
		Short: "manage dog photos",
	}
	cmd.AddCommand(
		newPhotoCmd(deps, "add", "attach a photo URL to a dog", func(cmd *cobra.Command, tenant string, id int64, url string) error {
			return deps.Dogs.AddPhoto(cmd.Context(), tenant, id, url)
		}),
		newPhotoCmd(deps, "rm", "detach a photo URL from a dog", func(cmd *cobra.Command, tenant string, id int64, url string) error {
			return deps.Dogs.RemovePhoto(cmd.Context(), tenant, id, url)
		}),
		newPhotoCmd(deps, "has", "report whether a dog has a photo URL", func(cmd *cobra.Command, tenant string, id int64, url string) error {
			ok, err := deps.Dogs.HasPhoto(cmd.Context(), tenant, id, url)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), deps.Output, ok)
		}),
		newPhotoListCmd(deps),
	)
	return cmd
}

func newPhotoCmd(deps *Deps, use, short string, run func(cmd *cobra.Command, tenant string, id int64, url string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID URL",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := deps.tenant()
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, tenant, id, args[1])
		},
	}
}

func newPhotoListCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "ls ID",
		Short: "list a dog's photo URLs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := deps.tenant()
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			urls, err := deps.Dogs.Photos(cmd.Context(), tenant, id)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), deps.Output, urls)
		},
	}
}
