package actions

import "github.com/ukydev/aero-console/internal/models"

// Button variants.
const (
	VariantPrimary   = "primary"
	VariantSecondary = "secondary"
	VariantDanger    = "danger"
	VariantWarning   = "warning"
	VariantSuccess   = "success"
	VariantGhost     = "ghost"
)

// IsRoleAllowed reports whether role may use an action restricted to allowed.
// An empty list allows everyone. Otherwise the most senior listed role sets
// the bar and any role ranked at or above it passes.
func IsRoleAllowed(role models.Role, allowed []models.Role) bool {
	if len(allowed) == 0 {
		return true
	}
	if role == "" {
		return false
	}
	bar := 0
	for _, r := range allowed {
		if rank := r.Rank(); rank > bar {
			bar = rank
		}
	}
	return role.Rank() >= bar
}

// BuildTooltip returns the action's tooltip, description or name (first
// non-empty) with a disabled suffix when disabledReason is set.
func BuildTooltip(meta *models.ActionMetadata, disabledReason string) string {
	if meta == nil {
		return disabledReason
	}
	base := meta.Tooltip
	if base == "" {
		base = meta.Description
	}
	if base == "" {
		base = meta.Name
	}
	if disabledReason != "" {
		return base + " - Disabled: " + disabledReason
	}
	return base
}

// MapColorToButtonVariant maps color semantics onto a button variant.
func MapColorToButtonVariant(color string) string {
	switch color {
	case VariantDanger, VariantWarning, VariantSuccess, VariantSecondary, VariantGhost:
		return color
	default:
		return VariantPrimary
	}
}

// IsDanger reports whether confirming the action needs danger styling.
func IsDanger(meta *models.ActionMetadata) bool {
	if meta == nil {
		return false
	}
	return meta.RiskLevel == models.RiskHigh ||
		meta.RiskLevel == models.RiskCritical ||
		meta.Confirmation.Style == models.ConfirmDanger
}

// CommandActionID is the registry id for a vehicle command.
func CommandActionID(command string) string {
	return "control.command." + command
}
