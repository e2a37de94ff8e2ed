package engine

import (
	"context"

	"github.com/edictlabs/edict/internal/catalog"
	"github.com/edictlabs/edict/internal/config"
	"github.com/edictlabs/edict/internal/router"
	"github.com/edictlabs/edict/internal/state"
	"github.com/edictlabs/edict/internal/txn"
	"github.com/edictlabs/edict/pkg/models"
)

// Engine is the orchestration entry point. It owns the catalog, router,
// interpreter and transaction coordinator, constructed once and passed by
// reference into every call, with no hidden process-wide state.
type Engine struct {
	cfg    *config.Config
	cat    *catalog.Catalog
	reg    *Registry
	coord  *txn.Coordinator
	store  *state.Store
	rtr    *router.Router
	interp *Interpreter
	logger *DebugLogger
	locks  *projectLocks

	// escalations, when set, suspends escalated invocations until an
	// external decision arrives. Nil means escalations return
	// immediately with the transaction rolled back.
	escalations EscalationHandler
}

// Options configures engine construction.
type Options struct {
	Config      *config.Config
	Catalog     *catalog.Catalog
	Registry    *Registry
	Store       *state.Store
	Logger      *DebugLogger
	Escalations EscalationHandler
}

// New assembles an Engine from loaded parts.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = NopLogger()
	}
	coord := txn.New(opts.Store)
	return &Engine{
		cfg:         opts.Config,
		cat:         opts.Catalog,
		reg:         opts.Registry,
		coord:       coord,
		store:       opts.Store,
		rtr:         router.New(opts.Catalog, opts.Config.Router.Floor),
		interp:      NewInterpreter(opts.Catalog, opts.Registry, coord, opts.Config.Engine.MaxRetries, logger),
		logger:      logger,
		locks:       newProjectLocks(),
		escalations: opts.Escalations,
	}
}

// Catalog returns the engine's directive catalog.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.cat
}

// Coordinator returns the engine's transaction coordinator, for merge
// hosts that apply resolutions through it.
func (e *Engine) Coordinator() *txn.Coordinator {
	return e.coord
}

// Route ranks directives against free-text input. A needs-clarification
// decision is part of the public contract; callers must branch on it.
func (e *Engine) Route(text string) router.Decision {
	decision := e.rtr.Route(text)
	if decision.NeedsClarification {
		e.logger.Log("ROUTE", "needs clarification: %s", decision.Reason)
	} else {
		top := decision.Top()
		e.logger.Log("ROUTE", "top candidate %s (%.2f)", top.Directive.Name, top.Score)
	}
	return decision
}

// ExecuteText routes free text and executes the winning directive. A
// needs-clarification routing decision is returned as a result value with
// the ranked candidates attached; nothing executes on a best guess.
func (e *Engine) ExecuteText(ctx context.Context, project, text string, prefs map[string]string) (*models.ExecutionResult, router.Decision, error) {
	decision := e.Route(text)
	if decision.NeedsClarification {
		return &models.ExecutionResult{Outcome: models.OutcomeNeedsClarification}, decision, nil
	}
	result, err := e.Execute(ctx, project, decision.Top().Directive.Name, prefs)
	return result, decision, err
}

// Execute runs a directive as a top-level invocation: it takes the
// project's advisory lock, opens one transaction spanning the whole run
// including nested invocations, interprets the workflow, and commits on
// success or rolls back otherwise.
//
// The returned result's Outcome is one of success, escalated or
// fatal-error; for fatal outcomes the classified error is also returned.
func (e *Engine) Execute(ctx context.Context, project, directive string, prefs map[string]string) (*models.ExecutionResult, error) {
	if err := e.locks.TryAcquire(project); err != nil {
		ee := models.AsEngineError(err, models.ErrProjectBusy)
		return fatalResult(directive, ee), ee
	}
	defer e.locks.Release(project)

	d, err := e.cat.Lookup(directive)
	if err != nil {
		ee := models.AsEngineError(err, models.ErrUnknownDirective)
		return fatalResult(directive, ee), ee
	}

	merged := e.mergedPrefs(directive, prefs)

	result, openTx, err := e.runOnce(project, d, merged)
	if err == nil && openTx != nil {
		result, err = e.suspend(ctx, project, d, merged, result, openTx)
	}
	return result, err
}

// runOnce performs a single interpreted run inside a fresh transaction.
// When the run escalates and a handler is configured, the still-open
// transaction is returned for suspend to own; in every other case the
// transaction is finished here.
func (e *Engine) runOnce(project string, d *models.Directive, prefs map[string]string) (*models.ExecutionResult, *txn.Tx, error) {
	tx := e.coord.Begin(project)
	execCtx := NewExecutionContext(project, tx, prefs, e.cfg.Engine.MaxCallDepth)

	result, err := e.interp.Execute(d, execCtx)
	if err != nil {
		e.coord.Rollback(tx)
		e.logger.Log("TXN", "rolled back %s: %v", tx.ID, err)
		ee := models.AsEngineError(err, models.ErrActionFailed)
		return fatalResult(d.Name, ee), nil, ee
	}

	result.Mutations = tx.Records()

	switch result.Outcome {
	case models.OutcomeSuccess:
		if err := e.coord.Commit(tx); err != nil {
			e.logger.Log("TXN", "commit of %s failed: %v", tx.ID, err)
			ee := models.AsEngineError(err, models.ErrStorage)
			return fatalResult(d.Name, ee), nil, ee
		}
		e.logger.Log("TXN", "committed %s (%d mutations)", tx.ID, len(result.Mutations))
		return result, nil, nil

	case models.OutcomeEscalated:
		if e.escalations == nil {
			e.coord.Rollback(tx)
			return result, nil, nil
		}
		return result, tx, nil

	default:
		e.coord.Rollback(tx)
		return result, nil, nil
	}
}

// suspend blocks an escalated invocation on the escalation handler. The
// transaction remains open and uncommitted while suspended; cancellation
// and abandonment always trigger rollback, never a partial commit.
func (e *Engine) suspend(ctx context.Context, project string, d *models.Directive, prefs map[string]string, escalated *models.ExecutionResult, tx *txn.Tx) (*models.ExecutionResult, error) {
	e.logger.Log("ESCALATION", "directive %s suspended: %s", d.Name, escalated.Escalation.Reason)
	resp, err := e.escalations.Await(ctx, escalated.Escalation)
	if err != nil {
		e.coord.Rollback(tx)
		e.logger.Log("ESCALATION", "suspension cancelled, rolled back %s", tx.ID)
		return escalated, nil
	}

	switch resp.Action {
	case EscalationProceed:
		if err := e.coord.Commit(tx); err != nil {
			ee := models.AsEngineError(err, models.ErrStorage)
			return fatalResult(d.Name, ee), ee
		}
		e.logger.Log("ESCALATION", "decision proceed, committed %s", tx.ID)
		escalated.Outcome = models.OutcomeSuccess
		return escalated, nil

	case EscalationRetry:
		e.coord.Rollback(tx)
		e.logger.Log("ESCALATION", "decision retry, rolled back %s", tx.ID)
		result, openTx, err := e.runOnce(project, d, prefs)
		if err == nil && openTx != nil {
			// A retried run may escalate again; it suspends like the
			// first one did.
			return e.suspend(ctx, project, d, prefs, result, openTx)
		}
		return result, err

	default:
		e.coord.Rollback(tx)
		e.logger.Log("ESCALATION", "decision abandon, rolled back %s", tx.ID)
		return escalated, nil
	}
}

// mergedPrefs merges configured per-directive preferences with
// caller-supplied overrides, caller values winning.
func (e *Engine) mergedPrefs(directive string, overrides map[string]string) map[string]string {
	merged := make(map[string]string)
	for k, v := range e.cfg.Preferences[directive] {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// fatalResult wraps a classified error as a fatal-error result.
func fatalResult(directive string, err *models.EngineError) *models.ExecutionResult {
	return &models.ExecutionResult{
		Outcome:   models.OutcomeFatal,
		Directive: directive,
		Err:       err,
	}
}
