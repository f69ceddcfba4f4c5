// Package band models the RF frequency bands available to the space link and
// selects the best band for a transmission profile.
//
// Selection scores every band by combining a physical link budget (free-space
// path loss, gaseous absorption, rain attenuation, Shannon capacity) with a
// learned reliability estimate per weather regime. Real-time traffic favors
// the most reliable feasible band; bulk traffic favors throughput. Band
// switches are bounded in time and fall back to the last known-good band on
// failure.
package band
