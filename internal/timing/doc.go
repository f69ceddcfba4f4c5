// Package timing enforces the per-tier latency contracts around command
// execution.
//
// Every command passes through a fixed lifecycle: validation (token plus
// freshness), then exactly one execution attempt, then a completion record.
// The enforcer measures wall-clock execution time against the tier contract
// and emits an immutable sample for every executed command. Execution is not
// preempted when a contract is exceeded; the violation is recorded after the
// fact and, for real-time tiers, escalated to the fault manager before
// Execute returns.
package timing
