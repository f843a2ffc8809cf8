// Package catalog builds the in-memory list of peripherals shown by periphmon.
//
// A catalog is built once at startup from a discovery.Source. Lines are
// matched to a category by their key prefix ("led.", "gpio.", "hwmon.",
// "pwm.") and each distinct device name becomes one Record. Categories with
// no devices are dropped, so they never get a poller or a row on screen.
//
// Records are shared by reference between the pollers and the presentation
// layer for the whole process lifetime; see Record for which context may
// write which field.
package catalog
