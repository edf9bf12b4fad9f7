package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and store the credential pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("LIFEPLANNER_PASSWORD")
			}
			if email == "" || password == "" {
				return errors.New("email and password are required")
			}
			if err := a.client.Login(cmd.Context(), email, password); err != nil {
				return err
			}
			fmt.Println("logged in")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (or LIFEPLANNER_PASSWORD)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.client.Logout(cmd.Context())
			fmt.Println("logged out")
			return nil
		},
	}
}
