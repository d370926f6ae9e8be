package di

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/kbukum/wirekit/component"
	apperrors "github.com/kbukum/wirekit/errors"
	"github.com/kbukum/wirekit/logger"
)

type WiringSuite struct {
	suite.Suite
	wctx *WiringContext
}

func TestWiringSuite(t *testing.T) {
	suite.Run(t, new(WiringSuite))
}

func (s *WiringSuite) SetupTest() {
	s.wctx = NewWiringContext(WithLogger(logger.Nop()))
}

func (s *WiringSuite) submitAll(descs ...Descriptor) {
	for _, d := range descs {
		s.Require().NoError(s.wctx.Submit(d), "submit %s", d.Name)
	}
}

func (s *WiringSuite) TestScenarioServiceRepoLogger() {
	s.submitAll(serviceDesc())
	snap := s.wctx.Snapshot()
	s.Len(snap.Waiting, 2, "service waits for repo and cache")

	s.submitAll(repoDesc())
	_, found, _ := s.wctx.Resolve(TypeOf[*Repo]())
	s.False(found, "repo waits for logger")

	s.submitAll(loggerDesc())
	_, found, _ = s.wctx.Resolve(TypeOf[*Repo]())
	s.True(found, "logger completes repo in the same call")
	_, found, _ = s.wctx.Resolve(TypeOf[*Service]())
	s.False(found, "service still waits for its optional cache")

	s.Require().NoError(s.wctx.FinalizeWiring(true))

	svc := MustResolve[*Service](s.wctx)
	repo := MustResolve[*Repo](s.wctx)
	log := MustResolve[*Logger](s.wctx)
	s.Same(repo, svc.repo)
	s.Same(log, repo.log)
	s.Nil(svc.cache)
	s.Empty(s.wctx.Snapshot().Waiting)
}

func (s *WiringSuite) TestOrderIndependence() {
	for _, order := range permutations([]Descriptor{loggerDesc(), repoDesc(), serviceDesc()}) {
		wctx := NewWiringContext(WithLogger(logger.Nop()))
		var names []string
		for _, d := range order {
			names = append(names, d.Name)
			s.Require().NoError(wctx.Submit(d))
		}
		s.Require().NoError(wctx.FinalizeWiring(true), "order %v", names)

		svc := MustResolve[*Service](wctx)
		s.Same(MustResolve[*Repo](wctx), svc.repo, "order %v", names)
		s.Same(MustResolve[*Logger](wctx), svc.repo.log, "order %v", names)
		s.Nil(svc.cache, "order %v", names)
	}
}

type nodeA struct{ b *nodeB }
type nodeB struct{ c *nodeC }
type nodeC struct{}

func (s *WiringSuite) TestForwardReference() {
	a := Describe[*nodeA]("a").Constructor(func(b *nodeB) *nodeA { return &nodeA{b: b} }).MustBuild()
	b := Describe[*nodeB]("b").Constructor(func() *nodeB { return &nodeB{} }).MustBuild()

	s.submitAll(a)
	_, found, _ := s.wctx.Resolve(TypeOf[*nodeA]())
	s.False(found)

	s.submitAll(b)
	gotA := MustResolve[*nodeA](s.wctx)
	s.Same(MustResolve[*nodeB](s.wctx), gotA.b)
}

func (s *WiringSuite) TestCascadeCompletion() {
	var order []string
	a := Describe[*nodeA]("a").Constructor(func(b *nodeB) *nodeA {
		order = append(order, "A")
		return &nodeA{b: b}
	}).MustBuild()
	b := Describe[*nodeB]("b").Constructor(func(c *nodeC) *nodeB {
		order = append(order, "B")
		return &nodeB{c: c}
	}).MustBuild()
	c := Describe[*nodeC]("c").Constructor(func() *nodeC {
		order = append(order, "C")
		return &nodeC{}
	}).MustBuild()

	s.submitAll(a, b)
	s.Empty(order)

	s.submitAll(c)
	s.Equal([]string{"C", "B", "A"}, order)
	s.Equal([]string{"c", "b", "a"}, s.wctx.Snapshot().Components)
}

func (s *WiringSuite) TestOptionalDefaultSubstitution() {
	s.submitAll(loggerDesc(), repoDesc(), serviceDesc())
	s.Require().NoError(s.wctx.FinalizeWiring(true))
	s.Nil(MustResolve[*Service](s.wctx).cache)
}

func (s *WiringSuite) TestOptionalUsesConfiguredDefault() {
	fallback := memoryCache{"k": "v"}
	wctx := NewWiringContext(WithLogger(logger.Nop()), WithDefault(TypeOf[Cache](), Cache(fallback)))
	for _, d := range []Descriptor{loggerDesc(), repoDesc(), serviceDesc()} {
		s.Require().NoError(wctx.Submit(d))
	}
	s.Require().NoError(wctx.FinalizeWiring(true))

	v, ok := MustResolve[*Service](wctx).cache.Get("k")
	s.True(ok)
	s.Equal("v", v)
}

func (s *WiringSuite) TestOptionalResolvedWhenProvided() {
	s.submitAll(serviceDesc(), repoDesc(), loggerDesc())
	s.Require().NoError(Provide[Cache](s.wctx, memoryCache{}))
	s.NotNil(MustResolve[*Service](s.wctx).cache)
}

func (s *WiringSuite) TestRequiredUnresolvedFailure() {
	s.submitAll(repoDesc(), serviceDesc())

	err := s.wctx.FinalizeWiring(true)
	s.Require().Error(err)
	s.True(errors.Is(err, ErrUnresolvedDependency))

	var waitErr *WaitError
	s.Require().True(errors.As(err, &waitErr))
	s.Require().Len(waitErr.Missing, 2)
	s.Equal(TypeOf[*Logger](), waitErr.Missing[0].Type)
	s.Equal("repo", waitErr.Missing[0].Consumers[0].Component)
	s.Equal(TypeOf[*Repo](), waitErr.Missing[1].Type)
	s.Equal("service", waitErr.Missing[1].Consumers[0].Component)
	s.Empty(waitErr.Cycles)
	s.Contains(err.Error(), "*di.Logger")
	s.Contains(err.Error(), "repo.NewRepo[0]")

	appErr, ok := apperrors.AsAppError(err)
	s.Require().True(ok)
	s.Equal(apperrors.ErrCodeUnresolvedDependency, appErr.Code)

	s.True(s.wctx.CanWait(), "a failed finalization leaves waiting enabled")
	s.False(s.wctx.Finalized())
}

func (s *WiringSuite) TestWaitErrorListsConsumersInLedgerOrder() {
	first := Describe[*nodeA]("first").Constructor(func(l *Logger) *nodeA { return &nodeA{} }).MustBuild()
	second := Describe[*nodeB]("second").Constructor(func(l *Logger) *nodeB { return &nodeB{} }).MustBuild()
	s.submitAll(first, second)

	var waitErr *WaitError
	s.Require().ErrorAs(s.wctx.FinalizeWiring(true), &waitErr)
	s.Require().Len(waitErr.Missing, 1)
	consumers := waitErr.Missing[0].Consumers
	s.Require().Len(consumers, 2)
	s.Equal("first", consumers[0].Component)
	s.Equal("second", consumers[1].Component)
}

func (s *WiringSuite) TestAfterFinalizeRequiredMissFailsImmediately() {
	s.Require().NoError(s.wctx.FinalizeWiring(true))
	s.False(s.wctx.CanWait())

	err := s.wctx.Submit(repoDesc())
	s.Require().Error(err)
	s.True(errors.Is(err, ErrUnresolvedDependency))
	appErr, ok := apperrors.AsAppError(err)
	s.Require().True(ok)
	s.Equal("repo", appErr.Details["consumer"])
	s.Equal("*di.Logger", appErr.Details["dependency"])
	s.Empty(s.wctx.Snapshot().Waiting)
}

func (s *WiringSuite) TestAfterFinalizeOptionalDefaultsImmediately() {
	s.submitAll(loggerDesc(), repoDesc())
	s.Require().NoError(s.wctx.FinalizeWiring(true))

	s.Require().NoError(s.wctx.Submit(serviceDesc()))
	s.Nil(MustResolve[*Service](s.wctx).cache)
}

func (s *WiringSuite) TestFinalizeWithoutDisablingKeepsWaiting() {
	s.Require().NoError(s.wctx.FinalizeWiring(false))
	s.True(s.wctx.CanWait())
	s.True(s.wctx.Finalized())

	s.Require().NoError(s.wctx.Submit(repoDesc()))
	s.Len(s.wctx.Snapshot().Waiting, 1)
}

func (s *WiringSuite) TestSingletonStability() {
	one := Describe[*nodeA]("one").Constructor(func(l *Logger) *nodeA { return &nodeA{} }).MustBuild()
	var seen []*Logger
	two := Describe[*nodeB]("two").Constructor(func(l *Logger) *nodeB {
		seen = append(seen, l)
		return &nodeB{}
	}).MustBuild()
	three := Describe[*nodeC]("three").Constructor(func(l *Logger) *nodeC {
		seen = append(seen, l)
		return &nodeC{}
	}).MustBuild()

	s.submitAll(two, loggerDesc(), one, three)
	s.Require().Len(seen, 2)
	s.Same(seen[0], seen[1])
	s.Same(MustResolve[*Logger](s.wctx), seen[0])
}

func (s *WiringSuite) TestLifecycleOrdering() {
	var calls []string
	desc := Describe[*Service]("service").
		Constructor(func() *Service { return &Service{calls: &calls} }).
		On(component.PhasePostInit, "Start", (*Service).Start).
		On(component.PhasePostInit, "Warm", (*Service).Warm).
		On(component.PhasePreShutdown, "Stop", (*Service).Stop).
		MustBuild()
	s.submitAll(desc)

	ctx := context.Background()
	err := s.wctx.RunLifecycle(ctx, component.PhasePostInit)
	s.Require().ErrorIs(err, component.ErrNotFinalized)
	s.Empty(calls)

	s.Require().NoError(s.wctx.FinalizeWiring(true))
	s.Require().NoError(s.wctx.RunLifecycle(ctx, component.PhasePostInit))
	s.Require().NoError(s.wctx.RunLifecycle(ctx, component.PhasePreShutdown))
	s.Equal([]string{"m1@POST_INIT", "m2@POST_INIT", "m3@PRE_SHUTDOWN"}, calls)

	s.Require().NoError(s.wctx.RunLifecycle(ctx, component.PhasePostInit))
	s.Len(calls, 3, "bindings fire exactly once")
}

func (s *WiringSuite) TestPreInitRunsBeforePublication() {
	var observed []bool
	wctx := s.wctx
	desc := Describe[*Logger]("logger").
		Constructor(NewLogger).
		On(component.PhasePreInit, "Prepare", func(l *Logger) {
			_, found, _ := wctx.Resolve(TypeOf[*Logger]())
			observed = append(observed, found)
		}).
		MustBuild()

	s.submitAll(desc)
	s.Equal([]bool{false}, observed)
	_, found, _ := wctx.Resolve(TypeOf[*Logger]())
	s.True(found)

	states := wctx.Dispatcher().Bindings()
	s.Require().Len(states, 1)
	s.True(states[0].Fired)
}

func (s *WiringSuite) TestPreInitFailureStopsSetup() {
	desc := Describe[*Logger]("logger").
		Constructor(NewLogger).
		On(component.PhasePreInit, "Prepare", func(l *Logger) error { return fmt.Errorf("not ready") }).
		MustBuild()

	err := s.wctx.Submit(desc)
	appErr, ok := apperrors.AsAppError(err)
	s.Require().True(ok)
	s.Equal(apperrors.ErrCodeInvocationFailure, appErr.Code)
	_, found, _ := s.wctx.Resolve(TypeOf[*Logger]())
	s.False(found)
}

func (s *WiringSuite) TestConstructorFailure() {
	cause := fmt.Errorf("connection refused")
	desc := Describe[*Repo]("repo").
		Constructor(func() (*Repo, error) { return nil, cause }).
		MustBuild()

	err := s.wctx.Submit(desc)
	s.Require().ErrorIs(err, cause)
	appErr, ok := apperrors.AsAppError(err)
	s.Require().True(ok)
	s.Equal(apperrors.ErrCodeInvocationFailure, appErr.Code)
	s.Equal("repo", appErr.Details["component"])
}

func (s *WiringSuite) TestConstructorPanicIsInvocationFailure() {
	desc := Describe[*Repo]("repo").
		Constructor(func() *Repo { panic("boom") }).
		MustBuild()

	err := s.wctx.Submit(desc)
	appErr, ok := apperrors.AsAppError(err)
	s.Require().True(ok)
	s.Equal(apperrors.ErrCodeInvocationFailure, appErr.Code)
	s.Contains(err.Error(), "boom")
}

func (s *WiringSuite) TestFailureDuringCascadeIsReturnedToRegistrar() {
	desc := Describe[*Repo]("repo").
		Constructor(func(l *Logger) (*Repo, error) { return nil, fmt.Errorf("bad logger") }).
		MustBuild()
	s.submitAll(desc)

	err := s.wctx.Submit(loggerDesc())
	appErr, ok := apperrors.AsAppError(err)
	s.Require().True(ok)
	s.Equal(apperrors.ErrCodeInvocationFailure, appErr.Code)
	s.Equal("repo", appErr.Details["component"])

	_, found, _ := s.wctx.Resolve(TypeOf[*Logger]())
	s.True(found, "partial state is kept")
}

func (s *WiringSuite) TestFailingProviderKeepsWaiterForFinalize() {
	s.submitAll(repoDesc())
	s.Len(s.wctx.Snapshot().Waiting, 1)

	failing := NewFactory(func() (any, error) { return nil, errors.New("boom") }, true)
	err := s.wctx.Register(TypeOf[*Logger](), failing)
	s.Require().Error(err)
	s.ErrorContains(err, "boom")
	s.Len(s.wctx.Snapshot().Waiting, 1, "repo still waits for a logger")

	err = s.wctx.FinalizeWiring(true)
	var waitErr *WaitError
	s.Require().ErrorAs(err, &waitErr)
	s.Require().Len(waitErr.Missing, 1)
	s.Equal(TypeOf[*Logger](), waitErr.Missing[0].Type)
	s.Equal("repo", waitErr.Missing[0].Consumers[0].Component)
	s.Contains(err.Error(), "*di.Logger")
	s.Empty(s.wctx.Components())
}

func (s *WiringSuite) TestWaiterServedByLaterProvider() {
	s.submitAll(repoDesc())

	failing := NewFactory(func() (any, error) { return nil, errors.New("boom") }, true)
	s.Require().Error(s.wctx.Register(TypeOf[*Logger](), failing))

	l := &Logger{prefix: "retry"}
	s.Require().NoError(s.wctx.RegisterInstance(TypeOf[*Logger](), l))
	s.Empty(s.wctx.Snapshot().Waiting)
	s.Same(l, MustResolve[*Repo](s.wctx).log)
	s.Require().NoError(s.wctx.FinalizeWiring(true))
}

func (s *WiringSuite) TestReRegistrationOverwritesProvider() {
	t := TypeOf[*Logger]()
	first, second := &Logger{prefix: "first"}, &Logger{prefix: "second"}
	s.Require().NoError(s.wctx.RegisterInstance(t, first))
	s.Require().NoError(s.wctx.RegisterInstance(t, second))

	s.Same(second, MustResolve[*Logger](s.wctx))
	s.Len(s.wctx.Snapshot().Providers, 1)
}

type token struct{ gen int }

type relay struct{ in *token }

func (r *relay) Next() *token { return &token{gen: r.in.gen + 1} }

func (s *WiringSuite) TestDeliveryReadsCurrentProvider() {
	// relay waits first for *token and, once built, provides a newer *token.
	// The consumer waiting behind it must see the newer one.
	relayDesc := Describe[*relay]("relay").
		Constructor(func(t *token) *relay { return &relay{in: t} }).
		Provides("Next", (*relay).Next).
		MustBuild()
	var got *token
	consumerDesc := Describe[*nodeC]("consumer").
		Constructor(func(t *token) *nodeC {
			got = t
			return &nodeC{}
		}).
		MustBuild()
	s.submitAll(relayDesc, consumerDesc)

	s.Require().NoError(s.wctx.RegisterInstance(TypeOf[*token](), &token{gen: 1}))
	s.Require().NotNil(got)
	s.Equal(2, got.gen)
}

func (s *WiringSuite) TestResolveIsPureLookup() {
	calls := 0
	desc := Describe[*Logger]("logger").Constructor(func() *Logger {
		calls++
		return NewLogger()
	}).MustBuild()

	v, found, err := s.wctx.Resolve(TypeOf[*Logger]())
	s.NoError(err)
	s.False(found)
	s.Nil(v)
	s.Zero(calls)

	s.submitAll(desc)
	MustResolve[*Logger](s.wctx)
	MustResolve[*Logger](s.wctx)
	s.Equal(1, calls)
}

func (s *WiringSuite) TestCycleReported() {
	a := Describe[*nodeA]("a").Constructor(func(b *nodeB) *nodeA { return &nodeA{b: b} }).MustBuild()
	b := Describe[*nodeB]("b").Constructor(func(a *nodeA) *nodeB { return &nodeB{} }).MustBuild()
	s.submitAll(a, b)

	var waitErr *WaitError
	s.Require().ErrorAs(s.wctx.FinalizeWiring(true), &waitErr)
	s.Require().Len(waitErr.Cycles, 1)
	s.Equal([]string{"a", "b", "a"}, waitErr.Cycles[0])
	s.Contains(waitErr.Error(), "cycle: a -> b -> a")
}

func (s *WiringSuite) TestObserverSeesEvents() {
	obs := &recordingObserver{}
	wctx := NewWiringContext(WithLogger(logger.Nop()), WithObserver(obs))
	for _, d := range []Descriptor{serviceDesc(), repoDesc(), loggerDesc()} {
		s.Require().NoError(wctx.Submit(d))
	}
	s.Require().NoError(wctx.FinalizeWiring(true))

	s.Equal(3, obs.completed)
	s.Equal(3, obs.registered)
	s.Equal(3, obs.deferred, "service waits for repo and cache, repo waits for logger")
	s.Equal(2, obs.delivered)
	s.Equal(1, obs.defaulted)
	s.Equal(1, obs.finalized)
}

func (s *WiringSuite) TestRunIDIsStable() {
	s.NotEmpty(s.wctx.ID())
	s.Equal(s.wctx.ID(), s.wctx.Snapshot().RunID)

	fixed := NewWiringContext(WithRunID("run-42"), WithLogger(logger.Nop()))
	s.Equal("run-42", fixed.ID())
}

func TestResolveHelpers(t *testing.T) {
	wctx := NewWiringContext(WithLogger(logger.Nop()))

	_, err := Resolve[*Logger](wctx)
	require.ErrorIs(t, err, ErrUnresolvedDependency)

	_, ok := TryResolve[*Logger](wctx)
	assert.False(t, ok)
	assert.Panics(t, func() { MustResolve[*Logger](wctx) })

	l := NewLogger()
	require.NoError(t, Provide(wctx, l))
	got, ok := TryResolve[*Logger](wctx)
	assert.True(t, ok)
	assert.Same(t, l, got)

	require.NoError(t, wctx.RegisterInstance(TypeOf[*Logger](), "not a logger"))
	_, err = Resolve[*Logger](wctx)
	assert.Error(t, err)
}

func TestRegisterRejectsNil(t *testing.T) {
	wctx := NewWiringContext(WithLogger(logger.Nop()))
	assert.Error(t, wctx.Register(nil, Constant(1)))
	assert.Error(t, wctx.Register(TypeOf[int](), nil))
}
