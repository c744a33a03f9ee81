package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/preppal/internal/auth"
	"github.com/at-ishikawa/preppal/internal/notify"
)

func newAuthCommand() *cobra.Command {
	authCommand := &cobra.Command{
		Use:   "auth",
		Short: "Sign in to sync transcriptions",
	}

	var email, password, displayName string
	emailFlag := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&email, "email", "", "Email address")
		_ = cmd.MarkFlagRequired("email")
	}
	passwordFlag := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&password, "password", "", "Password")
		_ = cmd.MarkFlagRequired("password")
	}

	signUpCommand := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuth(func(client *auth.Client) error {
				user, err := client.SignUp(cmd.Context(), email, password, displayName)
				if err != nil {
					return err
				}
				notify.NewPrinter(cmd.OutOrStdout()).Print(notify.Info("Account created", userLabel(user)))
				return nil
			})
		},
	}
	emailFlag(signUpCommand)
	passwordFlag(signUpCommand)
	signUpCommand.Flags().StringVar(&displayName, "name", "", "Display name")

	signInCommand := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuth(func(client *auth.Client) error {
				user, err := client.SignIn(cmd.Context(), email, password)
				if err != nil {
					return err
				}
				notify.NewPrinter(cmd.OutOrStdout()).Print(notify.Info("Signed in", userLabel(user)))
				return nil
			})
		},
	}
	emailFlag(signInCommand)
	passwordFlag(signInCommand)

	resetCommand := &cobra.Command{
		Use:   "reset-password",
		Short: "Send a password reset email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuth(func(client *auth.Client) error {
				if err := client.ResetPassword(cmd.Context(), email); err != nil {
					return err
				}
				notify.NewPrinter(cmd.OutOrStdout()).Print(notify.Info("Password reset email sent", email))
				return nil
			})
		},
	}
	emailFlag(resetCommand)

	authCommand.AddCommand(
		signUpCommand,
		signInCommand,
		&cobra.Command{
			Use:   "signout",
			Short: "Sign out",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withAuth(func(client *auth.Client) error {
					if err := client.SignOut(cmd.Context()); err != nil {
						return err
					}
					notify.NewPrinter(cmd.OutOrStdout()).Print(notify.Info("Signed out", ""))
					return nil
				})
			},
		},
		resetCommand,
		&cobra.Command{
			Use:   "whoami",
			Short: "Show the signed-in user",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withAuth(func(client *auth.Client) error {
					user := client.CurrentUser()
					if user == nil {
						return auth.ErrNotAuthenticated
					}
					fmt.Fprintln(cmd.OutOrStdout(), userLabel(user))
					return nil
				})
			},
		},
	)
	return authCommand
}

func withAuth(fn func(client *auth.Client) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newAuthClient(cfg)
	if err != nil {
		return err
	}
	return fn(client)
}

func userLabel(user *auth.User) string {
	if user.DisplayName == "" {
		return user.Email
	}
	return fmt.Sprintf("%s <%s>", user.DisplayName, user.Email)
}
