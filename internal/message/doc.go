// Package message defines the message envelope, the closed command catalogue,
// and the five-tier priority taxonomy used across the dispatch controller.
//
// Every command type is permanently bound to exactly one priority level, and
// every priority level carries an immutable maximum-latency contract. The
// mapping is a pure, total function fixed at compile time.
package message
