// Package transceiver defines the radio hardware port the dispatcher drives,
// with normalized error values and a deterministic fake for tests and demo
// wiring.
package transceiver
