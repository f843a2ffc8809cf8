// Package server implements the read-only network feed of a device catalog.
//
// The feed is a headless presentation context. A Hub goroutine drains the
// engine's dispatcher, applies batches to the records and broadcasts the
// changed devices to every WebSocket client. It is the only code that writes
// record values while the feed runs; HTTP handlers ask it for snapshots over
// a channel instead of reading records themselves.
//
// # Endpoints
//
//	GET /ws           WebSocket: a "snapshot" message, then one "update" per batch
//	GET /api/devices  the current snapshot as JSON
//	GET /healthz      device and client counts
//
// No endpoint writes to a device. Since the feed has no screen, every record
// is marked visible and all polled categories are read on every tick.
//
// # Usage
//
//	srv := server.New(&server.Config{Addr: ":8080"}, cat, eng)
//	if err := srv.ListenAndServe(ctx); err != nil {
//	    return err
//	}
package server
