package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"locator-healing/internal/config"
	"locator-healing/internal/entity"
	"locator-healing/internal/history"
	"locator-healing/internal/metrics"
	"locator-healing/internal/ports"
	"locator-healing/internal/usecase"
	"locator-healing/pkg/apperr"
)

type fixture struct {
	history   *countingHistory
	generator *countingGenerator
	semantic  *stubFinder
	visual    *stubFinder
	reporter  *recordingReporter
}

func newFixture() *fixture {
	return &fixture{
		history:   newHistory(),
		generator: &countingGenerator{},
		semantic:  &stubFinder{},
		visual:    &stubFinder{},
		reporter:  &recordingReporter{},
	}
}

func (f *fixture) healer(t *testing.T, enabled, learning bool) *usecase.Healer {
	t.Helper()

	return usecase.NewHealer(usecase.HealerParams{
		Config: &config.Config{HealingConfig: &config.HealingConfig{
			Enabled:         enabled,
			LearningEnabled: learning,
		}},
		Logger:    zaptest.NewLogger(t),
		History:   f.history,
		Generator: f.generator,
		Semantic:  f.semantic,
		Visual:    f.visual,
		Reporter:  f.reporter,
	})
}

func TestHeal_DisabledShortCircuits(t *testing.T) {
	f := newFixture()
	f.history.Cache.Remember(entity.ByID("a"), entity.ByName("a"))
	session := newSession(entity.ByName("a"))

	res := f.healer(t, false, true).Heal(context.Background(), session, entity.ByID("a"), "A button")

	assert.True(t, res.IsExhausted())
	assert.Zero(t, f.history.lookups)
	assert.Zero(t, f.history.remembers)
	assert.Zero(t, f.generator.calls)
	assert.Zero(t, f.semantic.calls)
	assert.Zero(t, f.visual.calls)
	assert.Empty(t, session.attempts())
	assert.Empty(t, f.reporter.info)
}

func TestHeal_HistoryReplayWins(t *testing.T) {
	f := newFixture()
	original := entity.ByID("login-btn")
	f.history.Cache.Remember(original, entity.ByName("stale"))
	f.history.Cache.Remember(original, entity.ByClassName("login-btn"))
	session := newSession(entity.ByClassName("login-btn"))

	res := f.healer(t, true, true).Heal(context.Background(), session, original, "Login button")

	require.True(t, res.IsResolved())
	assert.Equal(t, entity.StrategyHistory, res.Strategy)
	assert.Equal(t, entity.ByClassName("login-btn"), res.Locator)
	assert.Equal(t, []entity.Locator{entity.ByName("stale"), entity.ByClassName("login-btn")}, session.attempts())
	assert.Zero(t, f.generator.calls)
	assert.Zero(t, f.semantic.calls)
	assert.Zero(t, f.visual.calls)
	assert.Zero(t, f.history.remembers, "replays are not new successes")
	assert.Len(t, f.reporter.success, 1)
}

func TestHeal_AlternativeIsLearned(t *testing.T) {
	f := newFixture()
	original := entity.ByID("submit")
	session := newSession(entity.ByAttributeContains("data-test-id", "submit"))

	res := f.healer(t, true, true).Heal(context.Background(), session, original, "")

	require.True(t, res.IsResolved())
	assert.Equal(t, entity.StrategyAlternative, res.Strategy)
	assert.Contains(t, f.history.Cache.Lookup(original), entity.ByAttributeContains("data-test-id", "submit"))
	assert.Equal(t, 1, f.history.remembers)
}

func TestHeal_LearningDisabledLeavesHistoryAlone(t *testing.T) {
	f := newFixture()
	original := entity.ByID("submit")
	session := newSession(entity.ByName("submit"))

	res := f.healer(t, true, false).Heal(context.Background(), session, original, "")

	require.True(t, res.IsResolved())
	assert.Equal(t, entity.StrategyAlternative, res.Strategy)
	assert.Zero(t, f.history.remembers)
	assert.Empty(t, f.history.Cache.Lookup(original))
	assert.Equal(t, 1, f.history.lookups, "reads are not affected by the learning flag")
}

func TestHeal_LoginButtonScenario(t *testing.T) {
	f := newFixture()
	original := entity.ByID("login-btn")
	session := newSession(entity.ByClassName("login-btn"))

	res := f.healer(t, true, true).Heal(context.Background(), session, original, "")

	require.True(t, res.IsResolved())
	assert.Equal(t, entity.StrategyAlternative, res.Strategy)
	assert.Equal(t, entity.ByClassName("login-btn"), res.Locator)

	text, err := res.Element.Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "class:login-btn", text)

	assert.Equal(t, []entity.Locator{entity.ByName("login-btn"), entity.ByClassName("login-btn")}, session.attempts())
	assert.Equal(t, []entity.Locator{entity.ByClassName("login-btn")}, f.history.Cache.Lookup(original))

	// The next failure of the same locator is answered from history.
	again := f.healer(t, true, true).Heal(context.Background(), session, original, "")
	assert.Equal(t, entity.StrategyHistory, again.Strategy)
	assert.Equal(t, 1, f.generator.calls)
}

func TestHeal_AllStepsFail(t *testing.T) {
	f := newFixture()
	session := newSession()

	res := f.healer(t, true, true).Heal(context.Background(), session, entity.ByCSSSelector("#old-id"), "Login button")

	assert.True(t, res.IsExhausted())
	assert.Equal(t, 1, f.history.lookups)
	assert.Equal(t, 1, f.generator.calls)
	assert.Equal(t, 1, f.semantic.calls)
	assert.Equal(t, 1, f.visual.calls)
	assert.Equal(t, []string{"Login button"}, f.visual.descriptions)
	assert.Zero(t, f.history.remembers)

	assert.Equal(t, []entity.Locator{
		entity.ByID("old-id"),
		entity.ByXPath("//*[contains(text(), 'Login button')]"),
		entity.ByXPath("//*[contains(@aria-label, 'Login button')]"),
		entity.ByXPath("//*[contains(@placeholder, 'Login button')]"),
	}, session.attempts())

	assert.Equal(t, []string{
		"alternative step found no candidate for css:#old-id",
		"semantic step found no candidate for css:#old-id",
		"visual step found no candidate for css:#old-id",
		"locator css:#old-id could not be healed",
	}, stripHealID(f.reporter.warnings))
	assert.Contains(t, stripHealID(f.reporter.info), "history step skipped for css:#old-id: nothing remembered")
	assert.Empty(t, f.reporter.success)

	for _, strategy := range []string{"history", "alternative", "semantic", "visual"} {
		assert.Equal(t, 1, countOutcomes(f.reporter.events(), strategy), strategy)
	}
}

func TestHeal_SkippedStepsAreReported(t *testing.T) {
	f := newFixture()
	healer := usecase.NewHealer(usecase.HealerParams{
		Config:    &config.Config{HealingConfig: &config.HealingConfig{Enabled: true}},
		Logger:    zap.NewNop(),
		History:   f.history,
		Generator: f.generator,
		Reporter:  f.reporter,
	})

	res := healer.Heal(context.Background(), newSession(), entity.ByName("q"), "")

	assert.True(t, res.IsExhausted())
	assert.Equal(t, []string{
		"locator name:q failed, healing",
		"history step skipped for name:q: nothing remembered",
		"alternative step skipped for name:q: no alternatives generated",
		"semantic step skipped for name:q: no description",
		"visual step skipped for name:q: no visual finder",
	}, stripHealID(f.reporter.info))
	assert.Equal(t, []string{"locator name:q could not be healed"}, stripHealID(f.reporter.warnings))
}

func TestHeal_FailedLearningKeepsResolution(t *testing.T) {
	f := newFixture()
	healer := usecase.NewHealer(usecase.HealerParams{
		Config:    &config.Config{HealingConfig: &config.HealingConfig{Enabled: true, LearningEnabled: true}},
		Logger:    zaptest.NewLogger(t),
		History:   forgetfulHistory{Cache: history.NewCache()},
		Generator: f.generator,
		Semantic:  f.semantic,
		Visual:    f.visual,
		Reporter:  f.reporter,
	})

	var res entity.Resolution
	require.NotPanics(t, func() {
		res = healer.Heal(context.Background(), newSession(entity.ByName("submit")), entity.ByID("submit"), "Submit")
	})

	require.True(t, res.IsResolved())
	assert.Equal(t, entity.StrategyAlternative, res.Strategy)
	assert.Equal(t, entity.ByName("submit"), res.Locator)
	assert.Zero(t, f.semantic.calls)
	assert.Zero(t, f.visual.calls)
}

// stripHealID drops the "[heal <id>] " prefix from reporter messages.
func stripHealID(messages []string) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		if _, rest, ok := strings.Cut(m, "] "); ok && strings.HasPrefix(m, "[heal ") {
			m = rest
		}

		out = append(out, m)
	}

	return out
}

func countOutcomes(messages []string, strategy string) int {
	n := 0
	for _, m := range stripHealID(messages) {
		if strings.HasPrefix(m, strategy+" step ") {
			n++
		}
	}

	return n
}

func TestHeal_SemanticNeedsDescription(t *testing.T) {
	f := newFixture()
	f.visual.element = &stubElement{id: "visual"}

	res := f.healer(t, true, true).Heal(context.Background(), newSession(), entity.ByName("q"), "")

	require.True(t, res.IsResolved())
	assert.Equal(t, entity.StrategyVisual, res.Strategy)
	assert.True(t, res.Locator.IsZero())
	assert.Zero(t, f.semantic.calls)
	assert.Equal(t, []string{""}, f.visual.descriptions)
}

func TestHeal_SemanticResolves(t *testing.T) {
	f := newFixture()
	f.semantic.element = &stubElement{id: "semantic"}

	res := f.healer(t, true, true).Heal(context.Background(), newSession(), entity.ByName("q"), "Search box")

	require.True(t, res.IsResolved())
	assert.Equal(t, entity.StrategySemantic, res.Strategy)
	assert.Zero(t, f.visual.calls)
	assert.Zero(t, f.history.remembers, "only generated alternatives are learned")
}

func TestHeal_FailuresAreSwallowed(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture, s *stubSession)
	}{
		{
			name: "semantic internal error",
			setup: func(f *fixture, _ *stubSession) {
				f.semantic.err = apperr.WrapErrorWithReason("model", apperr.CodeAIError, "rate_limited")
			},
		},
		{
			name: "semantic panic",
			setup: func(f *fixture, _ *stubSession) {
				f.semantic.panics = true
			},
		},
		{
			name: "alternative lookup errors",
			setup: func(_ *fixture, s *stubSession) {
				s.broken[entity.ByName("q")] = errors.New("invalid selector")
			},
		},
		{
			name: "alternative lookup panics",
			setup: func(_ *fixture, s *stubSession) {
				s.panicky[entity.ByName("q")] = true
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.visual.element = &stubElement{id: "visual"}
			session := newSession()
			tt.setup(f, session)

			var res entity.Resolution
			require.NotPanics(t, func() {
				res = f.healer(t, true, true).Heal(context.Background(), session, entity.ByID("q"), "Search")
			})

			require.True(t, res.IsResolved())
			assert.Equal(t, entity.StrategyVisual, res.Strategy)
		})
	}
}

func TestHeal_ReporterFailureDoesNotChangeOutcome(t *testing.T) {
	f := newFixture()
	healer := usecase.NewHealer(usecase.HealerParams{
		Config:    &config.Config{HealingConfig: &config.HealingConfig{Enabled: true, LearningEnabled: true}},
		Logger:    zap.NewNop(),
		History:   f.history,
		Generator: f.generator,
		Reporter:  panickingReporter{},
	})

	var res entity.Resolution
	require.NotPanics(t, func() {
		res = healer.Heal(context.Background(), newSession(entity.ByName("a")), entity.ByID("a"), "")
	})

	assert.Equal(t, entity.StrategyAlternative, res.Strategy)
}

func TestHeal_WithoutOptionalCollaborators(t *testing.T) {
	f := newFixture()
	healer := usecase.NewHealer(usecase.HealerParams{
		Config:    &config.Config{HealingConfig: &config.HealingConfig{Enabled: true}},
		Logger:    zap.NewNop(),
		History:   f.history,
		Generator: f.generator,
	})

	res := healer.Heal(context.Background(), newSession(), entity.ByID("a"), "A")

	assert.True(t, res.IsExhausted())
}

func TestHeal_RecordsMetrics(t *testing.T) {
	f := newFixture()
	reg := prometheus.NewRegistry()
	healer := usecase.NewHealer(usecase.HealerParams{
		Config:    &config.Config{HealingConfig: &config.HealingConfig{Enabled: true, LearningEnabled: true}},
		Logger:    zap.NewNop(),
		History:   f.history,
		Generator: f.generator,
		Metrics:   metrics.NewHealing(reg),
	})

	healer.Heal(context.Background(), newSession(entity.ByClassName("a")), entity.ByID("a"), "")
	healer.Heal(context.Background(), newSession(), entity.ByName("b"), "")

	expected := `
# HELP locator_healing_heals_total Heal calls by the strategy that resolved them, or exhausted.
# TYPE locator_healing_heals_total counter
locator_healing_heals_total{outcome="alternative"} 1
locator_healing_heals_total{outcome="exhausted"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "locator_healing_heals_total"))
}

func TestHeal_ConcurrentCallsShareHistory(t *testing.T) {
	defer goleak.VerifyNone(t)

	const workers = 50

	f := newFixture()
	healer := f.healer(t, true, true)

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()

			original := entity.ByID(fmt.Sprintf("field-%d", i%5))
			session := newSession(entity.ByClassName(original.Value()))

			res := healer.Heal(context.Background(), session, original, "")
			assert.True(t, res.IsResolved())
		}(i)
	}

	wg.Wait()

	assert.Equal(t, 5, f.history.Cache.Len())
	for i := 0; i < 5; i++ {
		original := entity.ByID(fmt.Sprintf("field-%d", i))
		assert.Equal(t, []entity.Locator{entity.ByClassName(original.Value())}, f.history.Cache.Lookup(original))
	}
}

func TestFind(t *testing.T) {
	t.Run("direct hit skips healing", func(t *testing.T) {
		f := newFixture()
		session := newSession(entity.ByID("ok"))

		el, err := f.healer(t, true, true).Find(context.Background(), session, entity.ByID("ok"), "")

		require.NoError(t, err)
		assert.NotNil(t, el)
		assert.Zero(t, f.history.lookups)
	})

	t.Run("miss is healed", func(t *testing.T) {
		f := newFixture()
		session := newSession(entity.ByName("gone"))

		el, err := f.healer(t, true, true).Find(context.Background(), session, entity.ByID("gone"), "")

		require.NoError(t, err)
		assert.Equal(t, &stubElement{id: "name:gone"}, el)
	})

	t.Run("exhausted heal is not found", func(t *testing.T) {
		f := newFixture()

		el, err := f.healer(t, true, true).Find(context.Background(), newSession(), entity.ByID("gone"), "Gone")

		assert.Nil(t, el)
		require.Error(t, err)
		assert.True(t, apperr.IsNotFound(err))

		var appErr *apperr.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "healing_exhausted", appErr.Metadata[apperr.MetaReason])
		assert.Equal(t, "id:gone", appErr.Metadata[apperr.MetaLocator])
	})

	t.Run("panicking direct lookup is tagged with its stage", func(t *testing.T) {
		f := newFixture()
		session := newSession()
		session.panicky[entity.ByID("gone")] = true

		_, err := f.healer(t, true, true).Find(context.Background(), session, entity.ByID("gone"), "")

		require.Error(t, err)
		assert.True(t, apperr.IsNotFound(err))

		var exhausted *apperr.Error
		require.True(t, errors.As(err, &exhausted))

		var cause *apperr.Error
		require.True(t, errors.As(exhausted.Err, &cause))
		assert.Equal(t, apperr.CodeInternal, cause.Code)
		assert.Equal(t, "strategy_panicked", cause.Metadata[apperr.MetaReason])
		assert.Equal(t, apperr.StageLookup, cause.Metadata[apperr.MetaStage])
	})

	t.Run("disabled healing still does the direct lookup", func(t *testing.T) {
		f := newFixture()

		_, err := f.healer(t, false, true).Find(context.Background(), newSession(entity.ByName("x")), entity.ByID("x"), "")

		assert.True(t, apperr.IsNotFound(err))
		assert.Zero(t, f.generator.calls)
	})
}

var _ ports.HealingHistory = (*countingHistory)(nil)
