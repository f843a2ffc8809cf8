// Package engine keeps the on-screen device values current.
//
// One Poller per polled category (GPIO every 500ms, HWMON every second) wakes
// up on a timer, skips the tick if its category is paused, reads every
// visible record and hands the values to the Dispatcher as one Batch. Pollers
// never touch record values: the presentation context (the Bubble Tea update
// loop, or the hub of the network feed) drains Dispatcher.Batches and calls
// Apply, which drops updates whose record no longer matches.
//
// # Usage
//
//	eng := engine.New(cat, accessors, engine.WithLogger(logger))
//	if err := eng.Start(ctx); err != nil {
//	    return err
//	}
//	defer eng.Stop()
//
//	for batch := range eng.Dispatcher().Batches() {
//	    engine.Apply(cat, batch)
//	}
//
// Collapsing a category in the UI calls Pauses().Pause and expanding it calls
// Pauses().Resume. User edits go through Editor, which writes synchronously and
// re-reads the edited device.
package engine
