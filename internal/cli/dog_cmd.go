package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/apmoronez/dogbot/internal/validation"
	"github.com/spf13/cobra"
)

// NewDogCmd groups the dog commands
func NewDogCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dog",
		Short: "create, query and change dogs",
	}
	cmd.AddCommand(
		newDogCreateCmd(deps),
		newDogGetCmd(deps),
		newDogUpdateCmd(deps),
		newDogDeleteCmd(deps),
		newDogListCmd(deps),
		newDogFindCmd(deps),
		newDogRandomCmd(deps),
		newDogHereCmd(deps),
		newDogNamesCmd(deps),
	)
	return cmd
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid dog id %q", arg)
	}
	return id, nil
}

func newDogCreateCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "create FIELD=VALUE...",
		Short: "create a dog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := deps.tenant()
			if err != nil {
				return err
			}
			patch, err := parseAssignments(args)
			if err != nil {
				return err
			}
			dog, err := deps.Dogs.Create(cmd.Context(), tenant, patch)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), deps.Output, dog)
		},
	}
}

func newDogGetCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "show one dog",
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
			dog, err := deps.Dogs.Get(cmd.Context(), tenant, id)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), deps.Output, dog)
		},
	}
}

func newDogUpdateCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "update ID FIELD=VALUE...",
		Short: "change fields of a dog; FIELD=null clears a field",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := deps.tenant()
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			patch, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			dog, err := deps.Dogs.Update(cmd.Context(), tenant, id, patch)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), deps.Output, dog)
		},
	}
}

func newDogDeleteCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Short:   "delete a dog and its photos",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := deps.tenant()
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return deps.Dogs.Delete(cmd.Context(), tenant, id)
		},
	}
}

func newDogListCmd(deps *Deps) *cobra.Command {
	var where []string
	var anyOf string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "list dogs, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := deps.tenant()
			if err != nil {
				return err
			}
			if len(where) > 0 && anyOf != "" {
				return fmt.Errorf("--where and --any cannot be combined")
			}

			ctx := cmd.Context()
			switch {
			case len(where) > 0:
				filters, err := parseFilters(where)
				if err != nil {
					return err
				}
				dogs, err := deps.Dogs.Search(ctx, tenant, filters)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), deps.Output, dogs)
			case anyOf != "":
				field, values, ok := strings.Cut(anyOf, "=")
				if !ok {
					return fmt.Errorf("expected field=v1,v2, got %q", anyOf)
				}
				dogs, err := deps.Dogs.AnyOf(ctx, tenant, field, strings.Split(values, ","))
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), deps.Output, dogs)
			default:
				dogs, err := deps.Dogs.List(ctx, tenant)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), deps.Output, dogs)
			}
		},
	}

	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, "FIELD=VALUE every dog must match (repeatable)")
	cmd.Flags().StringVar(&anyOf, "any", "", "FIELD=V1,V2 where the dog matches any value")
	return cmd
}

func newDogFindCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "find NAME",
		Short: "find dogs by name, ignoring case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := deps.tenant()
			if err != nil {
				return err
			}
			dogs, err := deps.Dogs.FindByName(cmd.Context(), tenant, args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), deps.Output, dogs)
		},
	}
}

func newDogRandomCmd(deps *Deps) *cobra.Command {
	var where []string

	cmd := &cobra.Command{
		Use:   "random",
		Short: "pick a random dog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := deps.tenant()
			if err != nil {
				return err
			}
			filters, err := parseFilters(where)
			if err != nil {
				return err
			}
			dog, err := deps.Dogs.Random(cmd.Context(), tenant, filters)
			if err != nil {
				return err
			}
			if dog == nil {
				return fmt.Errorf("no dog matches")
			}
			return render(cmd.OutOrStdout(), deps.Output, dog)
		},
	}

	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, "FIELD=VALUE the dog must match (repeatable)")
	return cmd
}

func newDogHereCmd(deps *Deps) *cobra.Command {
	var date string
	var excludeDeparted bool

	cmd := &cobra.Command{
		Use:   "here",
		Short: "list dogs expected on a day (default today)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := deps.tenant()
			if err != nil {
				return err
			}
			day := time.Now()
			if date != "" {
				parsed, ok := validation.ParseDate(date)
				if !ok {
					return fmt.Errorf("invalid date %q", date)
				}
				day = parsed
			}
			dogs, err := deps.Dogs.Here(cmd.Context(), tenant, day, excludeDeparted)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), deps.Output, dogs)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to check, e.g. 2024-05-06")
	cmd.Flags().BoolVar(&excludeDeparted, "exclude-departed", false, "drop dogs whose goneDate is that day")
	return cmd
}

func newDogNamesCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "names",
		Short: "list the dog names in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := deps.tenant()
			if err != nil {
				return err
			}
			names, err := deps.Dogs.Names(cmd.Context(), tenant)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), deps.Output, names)
		},
	}
}
