// Package bootstrap runs a wirekit application from config to shutdown.
//
// NewApp validates the typed config, initializes logging, and creates the
// wiring context with the config and logger already provided. Run and
// RunTask then drive the startup sequence:
//
//  1. discover component declarations and validate every descriptor
//  2. submit them in order, then run OnConfigure callbacks
//  3. finalize wiring (optional waits get defaults, missing required
//     dependencies fail startup)
//  4. fire POST_INIT, then OnStart hooks
//  5. schedule periodic methods and start the diagnostics server
//  6. ready check, OnReady hooks, startup summary
//
// Shutdown runs OnStop hooks, stops periodic methods and diagnostics, fires
// PRE_SHUTDOWN in reverse order and flushes telemetry.
//
// # Quick Start
//
//	store := di.Describe[*Store]("store").Constructor(NewStore).MustBuild()
//	api := di.Describe[*API]("api").Constructor(NewAPI).
//	    On(component.PhasePostInit, "Listen", (*API).Listen).MustBuild()
//
//	app, err := bootstrap.NewApp(&cfg, bootstrap.WithComponents(store, api))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := app.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package bootstrap
