// Package schedule runs periodic lifecycle methods.
//
// Methods declared with di.Describe(...).Every(interval, ...) are recorded as
// POST_INIT bindings with an interval. The dispatcher skips them; after
// POST_INIT the application hands them to a Runner:
//
//	r := schedule.New(wc.Dispatcher().Periodic(), schedule.WithTimeout(5*time.Second))
//	_ = r.Start(ctx)
//	defer r.Stop()
//
// Each method gets its own ticker goroutine under one errgroup. An optional
// semaphore caps how many run at once.
package schedule
