package confirm

import (
	"context"
	"fmt"

	"github.com/ukydev/aero-console/internal/actions"
	"github.com/ukydev/aero-console/internal/api"
	"github.com/ukydev/aero-console/internal/models"
)

var dangerCommands = map[string]bool{
	models.CommandArm:           true,
	models.CommandDisarm:        true,
	models.CommandEmergencyStop: true,
	models.CommandReboot:        true,
}

// RequestCommand parks a vehicle command as the pending command
// confirmation. Commands always ask for confirmation. Confirm(ctx,
// KindCommand) dispatches it and reports the outcome as a notification; the
// dispatch error is still returned from Confirm.
func (p *Pipeline) RequestCommand(ctx context.Context, vehicleID, vehicleName, command string, params map[string]any) (Result, error) {
	actionID := actions.CommandActionID(command)
	label := command
	if meta, ok := p.registry.Get(actionID); ok && meta.Name != "" {
		label = meta.Name
	}
	if vehicleName == "" {
		vehicleName = vehicleID
	}

	payload := map[string]any{"vehicle_id": vehicleID, "command": command}
	if len(params) > 0 {
		payload["params"] = params
	}

	return p.Invoke(ctx, Invocation{
		Kind:     KindCommand,
		ActionID: actionID,
		Confirm:  true,
		Danger:   dangerCommands[command],
		Context:  payload,
		Execute: func(ctx context.Context) error {
			return p.dispatch(ctx, vehicleID, vehicleName, command, label, params)
		},
	})
}

func (p *Pipeline) dispatch(ctx context.Context, vehicleID, vehicleName, command, label string, params map[string]any) error {
	if p.commands == nil {
		return fmt.Errorf("dispatch %s: no command sink configured", command)
	}
	_, err := p.commands.SendCommand(ctx, vehicleID, command, params)
	if p.notify == nil {
		return err
	}
	if err != nil {
		p.notify.Error("Command Failed", api.ErrorMessage(err, fmt.Sprintf("Failed to send %s to %s", label, vehicleName)))
		return err
	}
	p.notify.Success("Command Sent", fmt.Sprintf("%s sent to %s", label, vehicleName))
	return nil
}
