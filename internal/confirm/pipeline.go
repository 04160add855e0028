package confirm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/aero-console/internal/actions"
	"github.com/ukydev/aero-console/internal/metrics"
	"github.com/ukydev/aero-console/internal/models"
)

// ErrNoPendingConfirmation is returned by Confirm when nothing of that kind
// is waiting.
var ErrNoPendingConfirmation = errors.New("no pending confirmation")

// DefaultAuditTimeout bounds a single audit post.
const DefaultAuditTimeout = 10 * time.Second

// Kind separates independent confirmation slots.
type Kind int

const (
	KindAction Kind = iota
	KindCommand
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	if k == KindCommand {
		return "command"
	}
	return "action"
}

// Auditor receives audit events. Its errors are logged and discarded.
type Auditor interface {
	PostAudit(ctx context.Context, ev models.AuditEvent) error
}

// Notifier surfaces transient messages to the operator.
type Notifier interface {
	Success(title, message string) string
	Error(title, message string) string
}

// Commander dispatches vehicle commands.
type Commander interface {
	SendCommand(ctx context.Context, vehicleID, command string, params map[string]any) (models.CommandResult, error)
}

// RoleSource reports the current operator's role.
type RoleSource interface {
	Role() models.Role
}

// Invocation is one trigger of a registered action.
type Invocation struct {
	Kind     Kind
	ActionID string
	// Details opens the read-only details view instead of running the action.
	Details bool
	// Context is attached to the success audit event.
	Context map[string]any
	// Prompt overrides the metadata's confirmation prompt.
	Prompt string
	// Confirm forces a confirmation step even when the metadata does not ask
	// for one.
	Confirm bool
	// Danger forces danger styling on the confirmation.
	Danger  bool
	Execute func(ctx context.Context) error
}

// Result reports where an invocation came to rest.
type Result struct {
	State  State
	Danger bool
	Prompt string
	Meta   models.ActionMetadata
}

type invocation struct {
	Invocation
	meta    models.ActionMetadata
	machine *fsm.FSM
	err     error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithAuditor sets where audit events are posted.
func WithAuditor(a Auditor) Option { return func(p *Pipeline) { p.audit = a } }

// WithNotifier sets where command toasts are sent.
func WithNotifier(n Notifier) Option { return func(p *Pipeline) { p.notify = n } }

// WithCommander sets the dispatcher used by RequestCommand.
func WithCommander(c Commander) Option { return func(p *Pipeline) { p.commands = c } }

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l log.FieldLogger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithAuditTimeout bounds each audit post. Non-positive values are ignored.
func WithAuditTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.auditTimeout = d
		}
	}
}

// Pipeline gates registered actions behind the role check and an optional
// confirmation step, runs them and audits the outcome.
type Pipeline struct {
	registry     *actions.Registry
	role         RoleSource
	audit        Auditor
	notify       Notifier
	commands     Commander
	log          log.FieldLogger
	auditTimeout time.Duration

	mu      sync.Mutex
	pending map[Kind]*invocation
	details *invocation

	audits sync.WaitGroup
}

// New creates a Pipeline over registry. role is consulted on every
// invocation.
func New(registry *actions.Registry, role RoleSource, opts ...Option) *Pipeline {
	p := &Pipeline{
		registry:     registry,
		role:         role,
		log:          log.StandardLogger(),
		auditTimeout: DefaultAuditTimeout,
		pending:      make(map[Kind]*invocation),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) currentRole() models.Role {
	if p.role == nil {
		return ""
	}
	return p.role.Role()
}

// Visible reports whether the current role may see actionID at all.
func (p *Pipeline) Visible(actionID string) bool {
	return p.registry.Visible(p.currentRole(), actionID)
}

// Invoke starts an invocation. Unregistered or forbidden actions come back
// as StateDenied without running. Gated actions park as the pending
// confirmation of their kind, replacing any earlier one. Everything else runs
// immediately and its error is returned unchanged.
func (p *Pipeline) Invoke(ctx context.Context, inv Invocation) (Result, error) {
	in := &invocation{Invocation: inv, machine: newMachine(p.finish)}
	p.fire(ctx, in, eventInvoke)

	meta, ok := p.registry.Get(inv.ActionID)
	if !ok || !actions.IsRoleAllowed(p.currentRole(), meta.PermissionsRequired) {
		p.fire(ctx, in, eventDeny)
		p.fire(ctx, in, eventReset)
		return Result{State: StateDenied}, nil
	}
	in.meta = meta

	if inv.Details {
		p.fire(ctx, in, eventDetails)
		p.mu.Lock()
		p.details = in
		p.mu.Unlock()
		return Result{State: StateDetails, Meta: meta}, nil
	}

	if meta.Confirmation.Required || inv.Confirm {
		p.fire(ctx, in, eventPrompt)
		p.mu.Lock()
		if prev := p.pending[inv.Kind]; prev != nil {
			p.log.WithFields(log.Fields{
				"kind":      inv.Kind.String(),
				"action_id": prev.ActionID,
			}).Debug("Replacing pending confirmation")
		}
		p.pending[inv.Kind] = in
		p.mu.Unlock()
		return in.result(), nil
	}

	return p.run(ctx, in)
}

// Pending returns the confirmation waiting in kind's slot.
func (p *Pipeline) Pending(kind Kind) (Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	in := p.pending[kind]
	if in == nil {
		return Result{}, false
	}
	return in.result(), true
}

// Confirm runs the pending invocation of kind and returns its error.
func (p *Pipeline) Confirm(ctx context.Context, kind Kind) (Result, error) {
	in := p.take(kind)
	if in == nil {
		return Result{}, ErrNoPendingConfirmation
	}
	return p.run(ctx, in)
}

// Cancel aborts the pending invocation of kind. It reports whether one was
// waiting.
func (p *Pipeline) Cancel(kind Kind) bool {
	in := p.take(kind)
	if in == nil {
		return false
	}
	ctx := context.Background()
	p.fire(ctx, in, eventCancel)
	p.fire(ctx, in, eventReset)
	return true
}

// Details returns the metadata shown in the open details view.
func (p *Pipeline) Details() (models.ActionMetadata, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.details == nil {
		return models.ActionMetadata{}, false
	}
	return p.details.meta, true
}

// CloseDetails closes the details view. Nothing is executed.
func (p *Pipeline) CloseDetails() {
	p.mu.Lock()
	in := p.details
	p.details = nil
	p.mu.Unlock()
	if in != nil {
		p.fire(context.Background(), in, eventReset)
	}
}

// Wait blocks until every in-flight audit post has finished.
func (p *Pipeline) Wait() {
	p.audits.Wait()
}

func (p *Pipeline) take(kind Kind) *invocation {
	p.mu.Lock()
	defer p.mu.Unlock()
	in := p.pending[kind]
	delete(p.pending, kind)
	return in
}

func (p *Pipeline) run(ctx context.Context, in *invocation) (Result, error) {
	p.fire(ctx, in, eventExecute)

	var err error
	if in.Execute != nil {
		err = in.Execute(ctx)
	}
	in.err = err

	res := in.result()
	if err != nil {
		p.fire(ctx, in, eventFail)
		res.State = StateFailed
	} else {
		p.fire(ctx, in, eventSucceed)
		res.State = StateSucceeded
	}
	p.fire(ctx, in, eventReset)
	return res, err
}

func (p *Pipeline) fire(ctx context.Context, in *invocation, event string) {
	if err := in.machine.Event(ctx, event, in); err != nil {
		p.log.WithError(err).WithFields(log.Fields{
			"action_id": in.ActionID,
			"event":     event,
			"state":     in.machine.Current(),
		}).Error("Invalid confirmation transition")
	}
}

// finish records the terminal outcome and, when the action keeps an audit
// trail, posts it in the background.
func (p *Pipeline) finish(ctx context.Context, e *fsm.Event) {
	in := e.Args[0].(*invocation)

	ev := models.AuditEvent{ActionID: in.ActionID}
	switch State(e.Dst) {
	case StateSucceeded:
		ev.Outcome = models.OutcomeSuccess
		ev.Payload = in.Context
	case StateFailed:
		ev.Outcome = models.OutcomeFailure
		ev.Message = in.err.Error()
	case StateAborted:
		ev.Outcome = models.OutcomeAborted
	}
	metrics.CommandsTotal.WithLabelValues(string(ev.Outcome)).Inc()

	if !in.meta.Logging.AuditTrail || p.audit == nil {
		return
	}
	p.audits.Add(1)
	go p.postAudit(context.WithoutCancel(ctx), ev)
}

func (p *Pipeline) postAudit(ctx context.Context, ev models.AuditEvent) {
	defer p.audits.Done()
	defer func() {
		if r := recover(); r != nil {
			metrics.AuditFailuresTotal.Inc()
			p.log.WithField("action_id", ev.ActionID).Errorf("Audit sink panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, p.auditTimeout)
	defer cancel()
	if err := p.audit.PostAudit(ctx, ev); err != nil {
		metrics.AuditFailuresTotal.Inc()
		p.log.WithError(err).WithFields(log.Fields{
			"action_id": ev.ActionID,
			"outcome":   ev.Outcome,
		}).Warn("Failed to record audit event")
	}
}

func (in *invocation) result() Result {
	prompt := in.Prompt
	if prompt == "" {
		prompt = in.meta.Confirmation.Prompt
	}
	if prompt == "" {
		prompt = fmt.Sprintf("%s?", in.meta.Name)
	}
	return Result{
		State:  State(in.machine.Current()),
		Danger: in.Danger || actions.IsDanger(&in.meta),
		Prompt: prompt,
		Meta:   in.meta,
	}
}
