package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func (c *cli) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("AERO_PASSWORD")
			}
			if email == "" || password == "" {
				if err := c.promptCredentials(cmd, &email, &password); err != nil {
					return err
				}
			}
			app, closeFn, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			user, err := app.Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s) via %s\n", user.Email, user.Role, app.Backend.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (default from AERO_PASSWORD)")
	return cmd
}

func (c *cli) promptCredentials(cmd *cobra.Command, email, password *string) error {
	if c.in == nil {
		return errors.New("email and password are required")
	}
	r := bufio.NewReader(c.in)
	read := func(label string, dst *string) {
		if *dst != "" {
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ", label)
		line, _ := r.ReadString('\n')
		*dst = strings.TrimSpace(line)
	}
	read("Email", email)
	read("Password", password)
	if *email == "" || *password == "" {
		return errors.New("email and password are required")
	}
	return nil
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, closeFn, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			app.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func (c *cli) mockModeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "mock-mode on|off",
		Short:     "Switch later runs to the in-memory demo backend",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := strconv.ParseBool(map[string]string{"on": "true", "off": "false"}[args[0]])
			if err != nil {
				return fmt.Errorf("expected on or off, got %q", args[0])
			}
			app, closeFn, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			if err := app.SetMockMode(cmd.Context(), on); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Mock mode %s\n", args[0])
			return nil
		},
	}
}
