// Package services contains the application services of the taxiledger
// client: the sync engine and its scheduler, hotspot orchestration, trip
// recording, income summaries, the auth session and record entry. The CLI
// talks to the core only through these types.
package services
