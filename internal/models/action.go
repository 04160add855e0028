package models

import "time"

// RiskLevel of an action.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Confirmation styles.
const (
	ConfirmStandard = "standard"
	ConfirmDanger   = "danger"
	ConfirmTyped    = "typed"
)

// ActionConfirmation describes whether and how an action must be confirmed.
type ActionConfirmation struct {
	Required    bool   `json:"required"`
	Style       string `json:"style,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
	TypedPhrase string `json:"typed_phrase,omitempty"`
}

// ActionLogging controls audit emission for an action.
type ActionLogging struct {
	Required       bool   `json:"required"`
	Level          string `json:"level,omitempty"`
	AuditTrail     bool   `json:"audit_trail"`
	IncludePayload bool   `json:"include_payload"`
}

// ActionCondition is a pre- or postcondition shown in the details view.
type ActionCondition struct {
	Description string `json:"description"`
	Key         string `json:"key,omitempty"`
}

// ActionMetadata is a read-only registry entry describing a user-triggerable
// action.
type ActionMetadata struct {
	ActionID    string `json:"action_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Purpose     string `json:"purpose,omitempty"`

	FunctionalImpact string `json:"functional_impact,omitempty"`
	TechnicalImpact  string `json:"technical_impact,omitempty"`
	SafetyImpact     string `json:"safety_impact,omitempty"`

	RiskLevel      RiskLevel `json:"risk_level"`
	SafetyClass    string    `json:"safety_class,omitempty"`
	VisualPriority string    `json:"visual_priority,omitempty"`

	Preconditions     []ActionCondition `json:"preconditions,omitempty"`
	Postconditions    []ActionCondition `json:"postconditions,omitempty"`
	FailureScenarios  []string          `json:"failure_scenarios,omitempty"`
	EmergencyBehavior string            `json:"emergency_behavior,omitempty"`

	Dependencies        []string           `json:"dependencies,omitempty"`
	PermissionsRequired []Role             `json:"permissions_required,omitempty"`
	Reversible          string             `json:"reversible,omitempty"`
	Confirmation        ActionConfirmation `json:"confirmation"`
	Logging             ActionLogging      `json:"logging"`

	OperatorResponsibility string `json:"operator_responsibility,omitempty"`

	Tooltip        string `json:"tooltip,omitempty"`
	SafetyLabel    string `json:"safety_label,omitempty"`
	RiskIndicator  string `json:"risk_indicator,omitempty"`
	ColorSemantics string `json:"color_semantics,omitempty"`
	IconSemantics  string `json:"icon_semantics,omitempty"`
}

// ActionRegistry is the server's registry document.
type ActionRegistry struct {
	Version     int              `json:"version"`
	GeneratedAt time.Time        `json:"generated_at"`
	Actions     []ActionMetadata `json:"actions"`
}
