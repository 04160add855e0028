package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ukydev/aero-console/internal/actions"
	"github.com/ukydev/aero-console/internal/models"
)

func (c *cli) actionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "Inspect the action registry",
	}
	cmd.AddCommand(c.actionsListCmd())
	return cmd
}

func (c *cli) actionsListCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the actions available to the signed-in role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, closeFn, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			role := app.Session.Role()
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ACTION\tRISK\tCONFIRM\tROLES\tVISIBLE")
			for _, m := range app.Registry.All() {
				visible := app.Pipeline.Visible(m.ActionID)
				if !visible && !all {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", m.ActionID, m.RiskLevel, confirmation(m), roles(m.PermissionsRequired), visible)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if role == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "(signed out: sign in to see role-gated actions)")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include actions the current role cannot see")
	return cmd
}

func confirmation(m models.ActionMetadata) string {
	if !m.Confirmation.Required {
		return "-"
	}
	if actions.IsDanger(&m) {
		return models.ConfirmDanger
	}
	return m.Confirmation.Style
}

func roles(rs []models.Role) string {
	if len(rs) == 0 {
		return "any"
	}
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return strings.Join(out, ",")
}
