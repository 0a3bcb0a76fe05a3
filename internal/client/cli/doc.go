// Package cli provides the interactive taxiledger command-line client.
//
// It wires configuration, the local store, the remote store and the
// services into a REPL. The store works offline; a background scheduler
// syncs at start, when the remote comes back and every few minutes.
//
// Key features:
//   - Login / Logout with an access token
//   - Add trips, earnings, expenses, notes and schedule items
//   - List / Delete records
//   - Hotspot recommendations and a daily and weekly summary
//   - Ride history import from a file or S3
//   - Settings, sync and status
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
