package engine

import (
	"fmt"
	"strconv"
	"time"

	"github.com/edictlabs/edict/internal/catalog"
	"github.com/edictlabs/edict/internal/txn"
	"github.com/edictlabs/edict/pkg/models"
)

// execState is the interpreter's position in a workflow.
type execState string

const (
	stateTrunk           execState = "trunk"
	stateBranching       execState = "branching"
	stateExecutingBranch execState = "executing-branch"
	stateInvokingChild   execState = "invoking-child"
	stateFallback        execState = "fallback"
	stateOnFailure       execState = "on-failure"
	stateDone            execState = "done"
)

// Interpreter executes directive workflow graphs. It is synchronous and
// single-threaded within one top-level invocation; nested invocations run
// strictly sequentially on the shared context.
type Interpreter struct {
	cat        *catalog.Catalog
	reg        *Registry
	coord      *txn.Coordinator
	maxRetries int
	logger     *DebugLogger
}

// NewInterpreter creates an Interpreter. maxRetries bounds the retry loop
// a failing trunk or branch goes through before the on-failure action runs.
func NewInterpreter(cat *catalog.Catalog, reg *Registry, coord *txn.Coordinator, maxRetries int, logger *DebugLogger) *Interpreter {
	return &Interpreter{
		cat:        cat,
		reg:        reg,
		coord:      coord,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Execute runs a directive's workflow on the given context. The directive
// is pushed onto the shared call stack for the duration of the run; a
// depth breach is returned as a call-depth error before anything executes.
//
// A completed workflow returns a result (success or escalated); the error
// return carries only fatal failures. Recoverable outcomes are never
// errors.
func (it *Interpreter) Execute(d *models.Directive, ctx *ExecutionContext) (*models.ExecutionResult, error) {
	if err := ctx.Push(d.Name); err != nil {
		it.logger.Log("EXEC", "depth breach invoking %s: %v", d.Name, err)
		return nil, err
	}
	defer ctx.Pop()

	it.logger.Log("EXEC", "directive %s start (depth %d)", d.Name, ctx.Depth())
	result, err := it.run(d, ctx)
	if err != nil {
		it.logger.Log("EXEC", "directive %s failed: %v", d.Name, err)
		return nil, err
	}
	it.transition(d, stateDone)
	it.logger.Log("EXEC", "directive %s done: %s", d.Name, result.Outcome)
	return result, nil
}

// run drives the workflow state machine: trunk, branching, the selected
// branch (or fallback), with every failure routed through on-failure.
func (it *Interpreter) run(d *models.Directive, ctx *ExecutionContext) (*models.ExecutionResult, error) {
	it.transition(d, stateTrunk)
	trunkOut, attempts, err := it.runWithRetry(d.Workflow.Trunk, ctx, nil)
	if err != nil {
		return it.onFailure(d, ctx, err, attempts)
	}
	ctx.recordResult("trunk", trunkOut.Payload, true)
	if err := it.bufferMutations(ctx, trunkOut); err != nil {
		return nil, err
	}
	if trunkOut.Escalation != nil {
		// An escalating trunk short-circuits the workflow; branches
		// never run against an outcome that already needs a human.
		return it.resultFrom(d, trunkOut), nil
	}

	it.transition(d, stateBranching)
	preds := it.cat.Predicates(d.Name)
	for i, branch := range d.Workflow.Branches {
		if i >= len(preds) || !preds[i].Eval(ctx.Values()) {
			continue
		}
		// First true predicate wins; later branches never run.
		it.transition(d, stateExecutingBranch)
		it.logger.Log("EXEC", "directive %s branch %d (%s)", d.Name, i, branch.Then)
		return it.runBranch(d, ctx, branch)
	}

	it.transition(d, stateFallback)
	fallbackOut, attempts, err := it.runWithRetry(d.Workflow.Fallback, ctx, nil)
	if err != nil {
		return it.onFailure(d, ctx, err, attempts)
	}
	if err := it.bufferMutations(ctx, fallbackOut); err != nil {
		return nil, err
	}
	return it.resultFrom(d, fallbackOut), nil
}

// transition logs the interpreter's state machine steps.
func (it *Interpreter) transition(d *models.Directive, state execState) {
	it.logger.Log("STATE", "directive %s -> %s", d.Name, state)
}

// runBranch executes the selected branch according to its action kind.
func (it *Interpreter) runBranch(d *models.Directive, ctx *ExecutionContext, branch models.Branch) (*models.ExecutionResult, error) {
	action, ok := it.reg.Get(branch.Then)
	if !ok {
		// Unreachable after catalog validation.
		return nil, models.NewError(models.ErrWorkflowStructure, "action %q not registered", branch.Then)
	}

	out, attempts, err := it.runWithRetry(branch.Then, ctx, branch.Detail)
	if err != nil {
		return it.onFailure(d, ctx, err, attempts)
	}
	// Whatever kind the action is, mutations it produced reach the
	// transaction; the kind only decides how the run continues.
	if err := it.bufferMutations(ctx, out); err != nil {
		return nil, err
	}

	switch action.Kind {
	case models.ActionTerminal:
		return it.resultFrom(d, out), nil

	case models.ActionMutation:
		result := it.resultFrom(d, out)
		if result.Payload == nil {
			result.Payload = map[string]string{"status": "buffered"}
		}
		return result, nil

	case models.ActionInvocation:
		return it.invokeChild(d, ctx, out.Invoke)

	default:
		return nil, models.NewError(models.ErrWorkflowStructure, "action %q has unknown kind %q", branch.Then, action.Kind)
	}
}

// invokeChild recursively executes a nested directive on the shared
// context. The child completes before the invoking branch continues; a
// child failure routes through this directive's on-failure, except depth
// and structural errors, which are never retried and propagate as-is.
func (it *Interpreter) invokeChild(d *models.Directive, ctx *ExecutionContext, target string) (*models.ExecutionResult, error) {
	child, err := it.cat.Lookup(target)
	if err != nil {
		return nil, err
	}

	it.transition(d, stateInvokingChild)
	it.logger.Log("EXEC", "directive %s invoking %s", d.Name, target)
	snapshot := ctx.snapshotValues()
	result, err := it.Execute(child, ctx)
	ctx.restoreValues(snapshot)

	if err != nil {
		if models.IsKind(err, models.ErrCallDepthExceeded) || models.IsKind(err, models.ErrWorkflowStructure) {
			return nil, err
		}
		return it.onFailure(d, ctx, err, 1)
	}

	// The child's outcome is the branch's outcome. An escalated child
	// suspends the whole invocation chain.
	if result.Outcome == models.OutcomeEscalated {
		return result, nil
	}
	return &models.ExecutionResult{
		Outcome:     result.Outcome,
		Directive:   d.Name,
		Payload:     result.Payload,
		NextActions: result.NextActions,
	}, nil
}

// runWithRetry runs one action, retrying workflow-local failures up to the
// configured bound. Depth and structural errors are never retried. Returns
// the attempt count alongside the outcome.
func (it *Interpreter) runWithRetry(name string, ctx *ExecutionContext, detail map[string]string) (*ActionOutcome, int, error) {
	var lastErr error
	for attempt := 1; attempt <= it.maxRetries+1; attempt++ {
		out, err := it.runAction(name, ctx, detail)
		if err == nil {
			return out, attempt, nil
		}
		if models.IsKind(err, models.ErrCallDepthExceeded) || models.IsKind(err, models.ErrWorkflowStructure) {
			return nil, attempt, err
		}
		it.logger.Log("RETRY", "action %s attempt %d failed: %v", name, attempt, err)
		lastErr = err
	}
	return nil, it.maxRetries + 1, lastErr
}

// runAction executes a single registered action once.
func (it *Interpreter) runAction(name string, ctx *ExecutionContext, detail map[string]string) (*ActionOutcome, error) {
	action, ok := it.reg.Get(name)
	if !ok {
		return nil, models.NewError(models.ErrWorkflowStructure, "action %q not registered", name)
	}
	out, err := action.Run(ActionInput{Ctx: ctx, Detail: detail})
	if err != nil {
		return nil, models.WrapError(models.ErrActionFailed, err, "action %q", name)
	}
	if out == nil {
		out = &ActionOutcome{}
	}
	return out, nil
}

// onFailure routes a failure through the directive's on-failure action.
// The action sees the cause and attempt count; its outcome (typically an
// escalation) becomes the workflow's result. Failures are never swallowed:
// if the on-failure action itself fails, the original cause surfaces as a
// fatal error.
func (it *Interpreter) onFailure(d *models.Directive, ctx *ExecutionContext, cause error, attempts int) (*models.ExecutionResult, error) {
	it.transition(d, stateOnFailure)
	it.logger.Log("FAIL", "directive %s entering on-failure after %d attempts: %v", d.Name, attempts, cause)

	detail := map[string]string{
		"error":   cause.Error(),
		"attempt": strconv.Itoa(attempts),
	}
	out, err := it.runAction(d.Workflow.OnFailure, ctx, detail)
	if err != nil {
		return nil, models.WrapError(models.ErrActionFailed, cause,
			"directive %s: on-failure action %q also failed (%v); original failure", d.Name, d.Workflow.OnFailure, err)
	}
	if err := it.bufferMutations(ctx, out); err != nil {
		return nil, err
	}

	// An empty reason means the action left it to us to describe the
	// failure; a configured reason is kept verbatim.
	if out.Escalation != nil && out.Escalation.Reason == "" {
		out.Escalation.Reason = fmt.Sprintf("failed after %d attempts: %v", attempts, cause)
	}
	result := it.resultFrom(d, out)
	if result.Outcome == models.OutcomeEscalated {
		result.Escalation.Attempts = attempts
		if kf := d.MatchKnownFailure(cause.Error()); kf != nil {
			result.Escalation.KnownFailure = kf
		}
	}
	return result, nil
}

// bufferMutations hands an outcome's mutations to the shared transaction.
func (it *Interpreter) bufferMutations(ctx *ExecutionContext, out *ActionOutcome) error {
	for _, m := range out.Mutations {
		if err := it.coord.Buffer(ctx.Tx, m); err != nil {
			return err
		}
		it.logger.Log("TXN", "buffered %s %s/%s into %s", m.Op, m.Entity, m.Key, ctx.Tx.ID)
	}
	return nil
}

// resultFrom converts an action outcome into an execution result for the
// given directive.
func (it *Interpreter) resultFrom(d *models.Directive, out *ActionOutcome) *models.ExecutionResult {
	if out.Escalation != nil {
		esc := *out.Escalation
		if esc.Directive == "" {
			esc.Directive = d.Name
		}
		if esc.Reason == "" {
			esc.Reason = "human guidance required"
		}
		if esc.Raised.IsZero() {
			esc.Raised = time.Now()
		}
		return &models.ExecutionResult{
			Outcome:     models.OutcomeEscalated,
			Directive:   d.Name,
			Escalation:  &esc,
			NextActions: out.NextActions,
		}
	}
	return &models.ExecutionResult{
		Outcome:     models.OutcomeSuccess,
		Directive:   d.Name,
		Payload:     out.Payload,
		NextActions: out.NextActions,
	}
}
