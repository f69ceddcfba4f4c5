// Package fault owns the system operating mode and the recovery policy for
// everything that goes wrong at runtime.
//
// The manager is the only writer of the mode. Faults map through a fixed
// policy table to a recovery action; anything the table does not recognize
// takes the fail-safe default and drops the system into safe mode. A
// software watchdog guards the dispatch loop: missing feeds force safe mode
// exactly once per expiry. Safe mode narrows the dispatch admission floor to
// real-time traffic but keeps ingestion and transmit alive so a ground
// recovery command can still get through.
package fault
