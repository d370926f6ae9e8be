// Package di is the wiring engine of wirekit.
//
// It turns component descriptors into a connected object graph. Components
// may be submitted in any order: a dependency that has no provider yet leaves
// a wire request in the wait ledger, and the dependent component completes on
// the call stack that registers the missing provider. Nothing blocks and no
// work is redone.
//
// # Declaring components
//
//	desc := di.Describe[*Service]("service").
//	    Constructor(NewService, di.Optional(1)).
//	    Setter("SetMetrics", (*Service).SetMetrics).
//	    On(component.PhasePostInit, "Start", (*Service).Start).
//	    On(component.PhasePreShutdown, "Stop", (*Service).Stop).
//	    MustBuild()
//
// # Wiring
//
//	wctx := di.NewWiringContext(di.WithConfigSource(src))
//	for _, d := range descriptors {
//	    if err := wctx.Submit(d); err != nil { ... }
//	}
//	if err := wctx.FinalizeWiring(true); err != nil { ... } // *di.WaitError
//	err := wctx.RunLifecycle(ctx, component.PhasePostInit)
//
// FinalizeWiring hands every optional dependency still waiting its default
// value and fails with a *WaitError naming each required type nobody
// provided, together with every consumer waiting for it.
package di
