// Package auth implements message-level authentication for the dispatch
// controller.
//
// Every command carries an HMAC-SHA256 token binding the message ID and
// source component to an issue time. Verification checks the signature and,
// separately, freshness against a replay window, so a captured command cannot
// be replayed outside that window.
package auth
