package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	domainauth "github.com/target/kb-assistant-web/internal/domain/auth"
)

func newLoginCommand(flags *globalFlags) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the token",
		Long: `Sign in with a username and password. Missing values are prompted
for when running in a terminal.

Examples:
  kbctl login
  kbctl login --username admin --password "$KB_PASSWORD"`,
		Args: cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, a *app, _ []string) error {
			if (username == "" || password == "") && a.interactive() {
				if err := promptCredentials(&username, &password); err != nil {
					return err
				}
			}
			res := a.session.Auth.Login(ctx, username, password)
			if !res.Success {
				return errors.New(res.Error)
			}
			if a.json {
				return a.printJSON(a.session.Auth.Snapshot())
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	return cmd
}

func newLogoutCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, a *app, _ []string) error {
			a.session.Auth.Init(ctx)
			a.session.Auth.Logout(ctx)
			return nil
		}),
	}
}

func newStatusCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show who is signed in",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, a *app, _ []string) error {
			a.session.Auth.Init(ctx)
			snap := a.session.Auth.Snapshot()
			if a.json {
				return a.printJSON(snap)
			}
			if !snap.Authenticated() {
				_, err := fmt.Fprintln(a.out, infoStyle.Render("Not signed in."))
				return err
			}
			_, err := fmt.Fprintf(a.out, "%s %s (%s)\n",
				titleStyle.Render("Signed in as"), snap.User.DisplayName(), snap.User.Username)
			return err
		}),
	}
}

func newRegisterCommand(flags *globalFlags) *cobra.Command {
	var form domainauth.RegistrationForm
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long: `Create an account. The password is confirmed by repeating it with
--confirm-password. Missing values are prompted for when running in a terminal.

Examples:
  kbctl register
  kbctl register --username bob --password secret1 --confirm-password secret1 --email bob@example.com`,
		Args: cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, a *app, _ []string) error {
			if a.interactive() {
				if err := promptRegistration(&form); err != nil {
					return err
				}
			}
			res := a.session.Auth.Register(ctx, form)
			if !res.Success {
				return errors.New(res.Error)
			}
			_, err := fmt.Fprintln(a.out, successStyle.Render("Account "+form.Username+" created. Run `kbctl login` to sign in."))
			return err
		}),
	}
	f := cmd.Flags()
	f.StringVar(&form.Username, "username", "", "account username")
	f.StringVar(&form.Password, "password", "", "account password")
	f.StringVar(&form.ConfirmPassword, "confirm-password", "", "repeat the password")
	f.StringVar(&form.Email, "email", "", "email address")
	f.StringVar(&form.Phone, "phone", "", "phone number")
	f.StringVar(&form.FullName, "full-name", "", "display name")
	return cmd
}
