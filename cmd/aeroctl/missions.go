package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ukydev/aero-console/internal/confirm"
	"github.com/ukydev/aero-console/internal/mission"
)

func (c *cli) missionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "missions",
		Short: "List missions and manage vehicle assignments",
	}
	cmd.AddCommand(c.missionsListCmd(), c.missionsAssignCmd(), c.missionsUnassignCmd())
	return cmd
}

func (c *cli) missionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List missions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, closeFn, err := c.openSignedIn(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tPROGRESS\tWAYPOINTS\tASSIGNED")
			for _, m := range app.Missions.Missions() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f%%\t%d\t%s\n",
					m.ID, m.Name, m.Status, m.Progress, len(m.Waypoints), strings.Join(m.AssignedVehicleIDs, ","))
			}
			return tw.Flush()
		},
	}
}

func (c *cli) missionsAssignCmd() *cobra.Command {
	var keep, yes bool
	cmd := &cobra.Command{
		Use:   "assign <mission> <vehicle>...",
		Short: "Assign vehicles to a mission",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			missionID, vehicles := args[0], args[1:]
			var opts []mission.AssignOption
			if keep {
				opts = append(opts, mission.KeepExisting())
			}
			return c.missionAction(cmd, yes, "mission.assign", missionID, vehicles, func(ctx context.Context, s *mission.Store) error {
				return s.AssignMission(ctx, missionID, vehicles, opts...)
			})
		},
	}
	cmd.Flags().BoolVar(&keep, "keep-existing", false, "leave the vehicles' other active assignments in place")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func (c *cli) missionsUnassignCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "unassign <mission> <vehicle>...",
		Short: "Release vehicles from a mission",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			missionID, vehicles := args[0], args[1:]
			return c.missionAction(cmd, yes, "mission.unassign", missionID, vehicles, func(ctx context.Context, s *mission.Store) error {
				return s.UnassignMission(ctx, missionID, vehicles)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func (c *cli) missionAction(cmd *cobra.Command, yes bool, actionID, missionID string, vehicles []string, run func(context.Context, *mission.Store) error) error {
	app, closeFn, err := c.openSignedIn(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	if _, ok := app.Missions.Mission(missionID); !ok {
		return fmt.Errorf("unknown mission %q", missionID)
	}
	res, err := app.Pipeline.Invoke(cmd.Context(), confirm.Invocation{
		Kind:     confirm.KindAction,
		ActionID: actionID,
		Context:  map[string]any{"mission_id": missionID, "vehicle_ids": vehicles},
		Execute: func(ctx context.Context) error {
			return run(ctx, app.Missions)
		},
	})
	if err != nil {
		return err
	}
	ran, err := c.settle(cmd, app, confirm.KindAction, res, yes)
	if err != nil || !ran {
		return err
	}
	m, _ := app.Missions.Mission(missionID)
	fmt.Fprintf(cmd.OutOrStdout(), "%s assigned vehicles: %s\n", m.Name, strings.Join(m.AssignedVehicleIDs, ", "))
	return nil
}
