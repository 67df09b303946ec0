package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"locator-healing/internal/config"
	"locator-healing/internal/entity"
	"locator-healing/internal/metrics"
	"locator-healing/internal/ports"
	"locator-healing/internal/report"
	"locator-healing/pkg/apperr"
	"locator-healing/pkg/logg"
	"locator-healing/pkg/tracing"
)

const (
	healerName   = "Healer"
	healerTracer = "usecase.healer"
)

var errExhausted = errors.New("all healing strategies exhausted")

// Healer recovers elements whose locator stopped matching. It tries, in order,
// substitutes remembered from earlier heals, generated alternatives, the
// semantic finder and the visual finder, and stops at the first hit.
//
// Heal never fails: collaborator errors and panics count as "no candidate" and
// the only failure signal is an exhausted resolution. The history cache is the
// only state shared between concurrent calls.
type Healer struct {
	logger    *zap.Logger
	tracer    trace.Tracer
	history   ports.HealingHistory
	generator ports.AlternativeGenerator
	semantic  ports.SemanticFinder
	visual    ports.VisualFinder
	reporter  ports.Reporter
	metrics   *metrics.Healing
	enabled   bool
	learning  bool
}

type HealerParams struct {
	fx.In

	Config    *config.Config
	Logger    *zap.Logger
	History   ports.HealingHistory
	Generator ports.AlternativeGenerator
	Semantic  ports.SemanticFinder `optional:"true"`
	Visual    ports.VisualFinder   `optional:"true"`
	Reporter  ports.Reporter       `optional:"true"`
	Metrics   *metrics.Healing     `optional:"true"`
}

func NewHealer(params HealerParams) *Healer {
	reporter := params.Reporter
	if reporter == nil {
		reporter = report.Nop{}
	}

	return &Healer{
		logger:    params.Logger.With(zap.String(logg.Layer, healerName)),
		tracer:    otel.Tracer(healerTracer),
		history:   params.History,
		generator: params.Generator,
		semantic:  params.Semantic,
		visual:    params.Visual,
		reporter:  reporter,
		metrics:   params.Metrics,
		enabled:   params.Config.HealingConfig.Enabled,
		learning:  params.Config.HealingConfig.LearningEnabled,
	}
}

// stepFunc runs one strategy. attempted is false when the step had nothing to
// try and reported itself as skipped.
type stepFunc func(ctx context.Context, run *healRun) (res entity.Resolution, attempted bool)

var strategyStages = map[entity.Strategy]string{
	entity.StrategyHistory:     apperr.StageHistory,
	entity.StrategyAlternative: apperr.StageAlternative,
	entity.StrategySemantic:    apperr.StageSemantic,
	entity.StrategyVisual:      apperr.StageVisual,
}

// healRun carries the per-call state of one Heal.
type healRun struct {
	id          string
	session     ports.Session
	original    entity.Locator
	description string
	logger      *zap.Logger
	step        *tracing.Span
}

func (h *Healer) Heal(ctx context.Context, session ports.Session, original entity.Locator, description string) (res entity.Resolution) {
	if !h.enabled {
		return entity.Exhausted()
	}

	const op = "Heal"

	run := &healRun{
		id:          uuid.NewString(),
		session:     session,
		original:    original,
		description: description,
	}
	run.logger = h.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.HealID, run.id),
		zap.Stringer(logg.Original, original),
	)

	ctx, run.step = tracing.StartSpan(ctx, h.tracer, run.logger, op,
		attribute.String("heal_id", run.id),
		attribute.String("original", original.String()),
		attribute.Bool("described", description != ""))

	if traceID := run.step.TraceID(); traceID != "" {
		run.logger = run.logger.With(zap.String(logg.TraceID, traceID))
	}

	started := time.Now()
	defer func() {
		h.metrics.ObserveOutcome(res, time.Since(started))

		if res.IsResolved() {
			run.step.SetAttributes(attribute.String("strategy", string(res.Strategy)))
			run.step.End(nil)

			return
		}

		run.step.End(errExhausted)
	}()

	h.report(run, h.reporter.Info, "locator %s failed, healing", original)

	steps := []struct {
		strategy entity.Strategy
		fn       stepFunc
	}{
		{entity.StrategyHistory, h.replayHistory},
		{entity.StrategyAlternative, h.tryAlternatives},
		{entity.StrategySemantic, h.trySemantic},
		{entity.StrategyVisual, h.tryVisual},
	}

	for _, s := range steps {
		run.step.AddEvent("step", attribute.String("strategy", string(s.strategy)))

		var attempted bool
		if res, attempted = h.runStep(ctx, run, s.strategy, s.fn); res.IsResolved() {
			h.report(run, h.reporter.Success, "locator %s healed via %s", original, describeResolution(res))
			run.logger.Info("Locator healed",
				zap.String(logg.Strategy, string(res.Strategy)),
				zap.Stringer(logg.Locator, res.Locator))

			return res
		}

		if attempted {
			h.report(run, h.reporter.Warning, "%s step found no candidate for %s", s.strategy, original)
		}
	}

	h.report(run, h.reporter.Warning, "locator %s could not be healed", original)
	run.logger.Warn("Healing exhausted")

	return entity.Exhausted()
}

// runStep isolates one step: a panic inside it is logged and turns into a miss.
func (h *Healer) runStep(ctx context.Context, run *healRun, strategy entity.Strategy, fn stepFunc) (res entity.Resolution, attempted bool) {
	defer func() {
		if r := recover(); r != nil {
			err := apperr.Wrap("runStep", apperr.CodeInternal, fmt.Errorf("panic: %v", r), map[string]any{
				apperr.MetaReason:   "step_panicked",
				apperr.MetaStrategy: string(strategy),
				apperr.MetaStage:    strategyStages[strategy],
			})
			run.logger.Error("Healing step panicked", zap.String(logg.Strategy, string(strategy)), zap.Error(err))
			h.metrics.ObserveAttempt(strategy, metrics.ResultError)
			res, attempted = entity.Exhausted(), true
		}
	}()

	return fn(ctx, run)
}

func (h *Healer) replayHistory(ctx context.Context, run *healRun) (entity.Resolution, bool) {
	known := h.history.Lookup(run.original)
	if len(known) == 0 {
		h.skip(run, entity.StrategyHistory, "nothing remembered")

		return entity.Exhausted(), false
	}

	h.report(run, h.reporter.Info, "replaying %d remembered substitute(s) for %s", len(known), run.original)

	for _, candidate := range known {
		if el := h.tryLocator(ctx, run, entity.StrategyHistory, candidate); el != nil {
			return entity.Resolved(el, entity.StrategyHistory, candidate), true
		}
	}

	return entity.Exhausted(), true
}

func (h *Healer) tryAlternatives(ctx context.Context, run *healRun) (entity.Resolution, bool) {
	candidates := h.generator.Generate(run.original, run.description)
	if len(candidates) == 0 {
		h.skip(run, entity.StrategyAlternative, "no alternatives generated")

		return entity.Exhausted(), false
	}

	h.report(run, h.reporter.Info, "trying %d generated alternative(s) for %s", len(candidates), run.original)

	for _, candidate := range candidates {
		el := h.tryLocator(ctx, run, entity.StrategyAlternative, candidate)
		if el == nil {
			continue
		}

		if h.learning {
			h.learn(run, candidate)
		}

		return entity.Resolved(el, entity.StrategyAlternative, candidate), true
	}

	return entity.Exhausted(), true
}

// learn records a working alternative. A failing history write is logged and
// does not undo the resolution already found.
func (h *Healer) learn(run *healRun, candidate entity.Locator) {
	defer func() {
		if r := recover(); r != nil {
			run.logger.Warn("Failed to remember substitute",
				zap.Stringer(logg.Locator, candidate),
				zap.Any("panic", r))
		}
	}()

	h.history.Remember(run.original, candidate)
	h.metrics.ObserveLearned()
	run.logger.Debug("Substitute remembered", zap.Stringer(logg.Locator, candidate))
}

func (h *Healer) trySemantic(ctx context.Context, run *healRun) (entity.Resolution, bool) {
	switch {
	case run.description == "":
		h.skip(run, entity.StrategySemantic, "no description")

		return entity.Exhausted(), false
	case h.semantic == nil:
		h.skip(run, entity.StrategySemantic, "no semantic finder")

		return entity.Exhausted(), false
	}

	h.report(run, h.reporter.Info, "asking semantic finder for %q", run.description)

	el := h.observe(run.logger, entity.StrategySemantic, func() (entity.ElementHandle, error) {
		return h.semantic.FindElement(ctx, run.session, run.description)
	})
	if el == nil {
		return entity.Exhausted(), true
	}

	return entity.Resolved(el, entity.StrategySemantic, entity.Locator{}), true
}

func (h *Healer) tryVisual(ctx context.Context, run *healRun) (entity.Resolution, bool) {
	if h.visual == nil {
		h.skip(run, entity.StrategyVisual, "no visual finder")

		return entity.Exhausted(), false
	}

	h.report(run, h.reporter.Info, "asking visual finder for %q", run.description)

	el := h.observe(run.logger, entity.StrategyVisual, func() (entity.ElementHandle, error) {
		return h.visual.FindElement(ctx, run.session, run.description)
	})
	if el == nil {
		return entity.Exhausted(), true
	}

	return entity.Resolved(el, entity.StrategyVisual, entity.Locator{}), true
}

func (h *Healer) skip(run *healRun, strategy entity.Strategy, reason string) {
	h.metrics.ObserveAttempt(strategy, metrics.ResultSkipped)
	h.report(run, h.reporter.Info, "%s step skipped for %s: %s", strategy, run.original, reason)
}

func (h *Healer) tryLocator(ctx context.Context, run *healRun, strategy entity.Strategy, candidate entity.Locator) entity.ElementHandle {
	logger := run.logger.With(zap.Stringer(logg.Locator, candidate))

	return h.observe(logger, strategy, func() (entity.ElementHandle, error) {
		return run.session.FindElement(ctx, candidate)
	})
}

// observe runs one resolution attempt and folds every kind of failure into nil.
func (h *Healer) observe(logger *zap.Logger, strategy entity.Strategy, find func() (entity.ElementHandle, error)) entity.ElementHandle {
	el, err := guard(strategyStages[strategy], find)

	switch {
	case err == nil && el != nil:
		h.metrics.ObserveAttempt(strategy, metrics.ResultResolved)

		return el
	case err == nil, apperr.IsNotFound(err):
		h.metrics.ObserveAttempt(strategy, metrics.ResultMissed)
		logger.Debug("Candidate missed", zap.String(logg.Strategy, string(strategy)))
	default:
		h.metrics.ObserveAttempt(strategy, metrics.ResultError)
		logger.Warn("Candidate failed", zap.String(logg.Strategy, string(strategy)), zap.Error(err))
	}

	return nil
}

func guard(stage string, find func() (entity.ElementHandle, error)) (el entity.ElementHandle, err error) {
	defer func() {
		if r := recover(); r != nil {
			el = nil
			err = apperr.Wrap("guard", apperr.CodeInternal, fmt.Errorf("panic: %v", r), map[string]any{
				apperr.MetaReason: "strategy_panicked",
				apperr.MetaStage:  stage,
			})
		}
	}()

	return find()
}

// report hands an event to the sink. A panicking sink is logged and ignored.
func (h *Healer) report(run *healRun, emit func(string), format string, args ...any) {
	defer func() {
		if r := recover(); r != nil {
			run.logger.Warn("Reporter panicked", zap.Any("panic", r))
		}
	}()

	emit(fmt.Sprintf("[heal %s] ", run.id) + fmt.Sprintf(format, args...))
}

func describeResolution(res entity.Resolution) string {
	if res.Locator.IsZero() {
		return string(res.Strategy)
	}

	return fmt.Sprintf("%s (%s)", res.Strategy, res.Locator)
}

// Find resolves original on the page and heals only when that lookup misses.
// An exhausted heal is returned as a not_found error.
func (h *Healer) Find(ctx context.Context, session ports.Session, original entity.Locator, description string) (entity.ElementHandle, error) {
	const op = "Find"

	el, err := guard(apperr.StageLookup, func() (entity.ElementHandle, error) {
		return session.FindElement(ctx, original)
	})
	if err == nil && el != nil {
		return el, nil
	}

	if err != nil && !apperr.IsNotFound(err) {
		h.logger.Warn("Lookup failed, healing",
			zap.String(logg.Operation, op),
			zap.Stringer(logg.Locator, original),
			zap.Error(err))
	}

	if res := h.Heal(ctx, session, original, description); res.IsResolved() {
		return res.Element, nil
	}

	if err == nil {
		err = fmt.Errorf("element not found: %s", original)
	}

	return nil, apperr.Wrap(op, apperr.CodeNotFound, err, map[string]any{
		apperr.MetaReason:      "healing_exhausted",
		apperr.MetaLocator:     original.String(),
		apperr.MetaDescription: description,
	})
}
