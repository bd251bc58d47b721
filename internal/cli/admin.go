package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/target/kb-assistant-web/internal/domain/model"
)

func newRolesCommand(flags *globalFlags) *cobra.Command {
	roles := &cobra.Command{
		Use:   "roles",
		Short: "List and edit roles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List roles",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, a *app, _ []string) error {
			if err := a.requireSession(ctx); err != nil {
				return err
			}
			res, err := a.session.Admin.ListRoles(ctx)
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(res.Roles)
			}
			rows := make([][]string, 0, len(res.Roles))
			for _, r := range res.Roles {
				rows = append(rows, []string{r.Code, r.Name, strconv.FormatBool(bool(r.IsSystem)), r.Description})
			}
			return writeTable(a.out, []string{"CODE", "NAME", "SYSTEM", "DESCRIPTION"}, rows)
		}),
	}

	var in model.RoleInput
	set := &cobra.Command{
		Use:   "set",
		Short: "Create or update a role",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, a *app, _ []string) error {
			if err := a.requireSession(ctx); err != nil {
				return err
			}
			in.Code = strings.TrimSpace(in.Code)
			in.Name = strings.TrimSpace(in.Name)
			if in.Code == "" || in.Name == "" {
				return fmt.Errorf("--code and --name are required")
			}
			if _, err := a.session.Admin.SetRoles(ctx, in); err != nil {
				return err
			}
			_, err := fmt.Fprintln(a.out, successStyle.Render("Role "+in.Code+" saved."))
			return err
		}),
	}
	set.Flags().StringVar(&in.Code, "code", "", "role code")
	set.Flags().StringVar(&in.Name, "name", "", "role name")
	set.Flags().StringVar(&in.Description, "description", "", "role description")

	roles.AddCommand(list, set)
	return roles
}

func newUsersCommand(flags *globalFlags) *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Inspect and assign user roles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	get := &cobra.Command{
		Use:   "roles <username>",
		Short: "Show a user's roles",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(ctx context.Context, a *app, args []string) error {
			if err := a.requireSession(ctx); err != nil {
				return err
			}
			res, err := a.session.Admin.GetUserRoles(ctx, args[0])
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(res)
			}
			_, err = fmt.Fprintf(a.out, "%s %s\n", titleStyle.Render(args[0]+":"), strings.Join(res.Roles, ", "))
			return err
		}),
	}

	var codes []string
	assign := &cobra.Command{
		Use:   "assign <username>",
		Short: "Replace a user's roles",
		Long: `Replace a user's roles with the given codes. Passing no --role
removes every role.

Examples:
  kbctl users assign alice --role admin --role kb_editor`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(flags, func(ctx context.Context, a *app, args []string) error {
			if err := a.requireSession(ctx); err != nil {
				return err
			}
			if _, err := a.session.Admin.SetUserRoles(ctx, args[0], codes); err != nil {
				return err
			}
			_, err := fmt.Fprintln(a.out, successStyle.Render("Roles updated for "+args[0]+"."))
			return err
		}),
	}
	assign.Flags().StringSliceVar(&codes, "role", nil, "role code (repeatable)")

	users.AddCommand(get, assign)
	return users
}

func newStatsCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard counters",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, a *app, _ []string) error {
			if err := a.requireSession(ctx); err != nil {
				return err
			}
			st, err := a.session.Admin.AdminStats(ctx)
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(st)
			}
			return writeTable(a.out, []string{"USERS", "ROLES", "DOCUMENTS", "PERMISSIONS"}, [][]string{{
				strconv.Itoa(st.TotalUsers), strconv.Itoa(st.TotalRoles),
				strconv.Itoa(st.TotalKBs), strconv.Itoa(st.TotalPermissions),
			}})
		}),
	}
}
