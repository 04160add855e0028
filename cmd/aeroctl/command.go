package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ukydev/aero-console/internal/confirm"
	"github.com/ukydev/aero-console/internal/models"
)

func (c *cli) commandCmd() *cobra.Command {
	var (
		params []string
		yes    bool
	)
	cmd := &cobra.Command{
		Use:   "command <vehicle> <command>",
		Short: "Send a command to a vehicle after confirmation",
		Long: "Send a command to a vehicle. Every command asks for confirmation unless --yes is given.\n" +
			"Commands: " + strings.Join(models.Commands, ", "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vehicleID, command := args[0], args[1]
			if !slices.Contains(models.Commands, command) {
				return fmt.Errorf("unknown command %q", command)
			}
			p, err := parseParams(params)
			if err != nil {
				return err
			}

			app, closeFn, err := c.openSignedIn(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			v, ok := app.Fleet.Vehicle(vehicleID)
			if !ok {
				return fmt.Errorf("unknown vehicle %q", vehicleID)
			}
			res, err := app.Pipeline.RequestCommand(cmd.Context(), v.ID, v.Name, command, p)
			if err != nil {
				return err
			}
			_, err = c.settle(cmd, app, confirm.KindCommand, res, yes)
			printToasts(cmd.OutOrStdout(), app)
			return err
		},
	}
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "command parameter as key=value (repeatable)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// parseParams turns key=value pairs into command parameters. Numbers and
// booleans are decoded; everything else stays a string.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid parameter %q, want key=value", pair)
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			out[k] = f
		} else if b, err := strconv.ParseBool(v); err == nil {
			out[k] = b
		} else {
			out[k] = v
		}
	}
	return out, nil
}
