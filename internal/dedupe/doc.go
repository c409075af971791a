// Package dedupe provides a bounded seen-set so repeated polls of the same
// history hand each message to the caller only once.
package dedupe
