// Package discovery implements the rendezvous service: a registry of named
// groups, the authority that hands out per-group process identities, and the
// membership event stream that tells clients whom to connect to.
//
// Each group owns its own lock. The participant table, subscriber table, slot
// pool and history log of a group change together under that lock, so a
// join's snapshot, broadcast and registration are observed as one step.
// Operations on different groups never contend.
package discovery
