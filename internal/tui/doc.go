// Package tui implements the interactive device monitor using Bubble Tea.
//
// # Architecture
//
// The monitor is a single Model whose Update loop is the presentation
// context: it is the only code that changes record values while the monitor
// runs. Poller batches arrive as messages through a command that waits on the
// engine's dispatcher and is re-armed after every batch:
//
//	poller goroutine ──Deliver──▶ Dispatcher ──waitForBatch──▶ Update ──Apply──▶ records
//
// The screen shows one header row per category followed by its devices.
// After every cursor move, resize, expand or collapse, the model marks the
// device rows inside the window visible and all others invisible, so pollers
// only read what is on screen. Collapsing a category pauses its poller;
// expanding it resumes polling on the next tick.
//
// # Editing
//
// Edits go through engine.Editor synchronously and the outcome is shown as a
// notice on the status line for a few seconds:
//
//   - enter: LED on/off, GPIO output level, PWM enable
//   - d: GPIO direction (refused for output-only lines)
//   - t: next LED trigger
//   - +/-: PWM duty cycle in 10% steps
//   - p: PWM period in microseconds, keeping the duty cycle percentage
//
// # Usage
//
//	eng := engine.New(cat, accessors)
//	if err := tui.Run(ctx, cat, eng); err != nil {
//	    return err
//	}
package tui
