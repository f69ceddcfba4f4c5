// Package dispatch runs the engine: it ingests messages from producers,
// drains the priority queue strictly in tier order, executes each command
// under its latency contract, and keeps the fault watchdog fed.
//
// The dispatcher owns three cooperative tasks under one Run call: the
// single-consumer dispatch loop, the housekeeping loop (TTL sweep and gauge
// refresh), and the fault manager's watchdog. Producers call Submit from any
// goroutine. The admission floor from the fault manager decides which tiers
// the loop may process; traffic below the floor stays queued until the mode
// recovers.
package dispatch
