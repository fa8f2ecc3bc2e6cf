// Package ratelimit paces outgoing gateway requests so the archiver stays
// under the remote side's limits instead of discovering them the hard way.
// Server-signaled waits are handled separately by the fetch loop.
package ratelimit
