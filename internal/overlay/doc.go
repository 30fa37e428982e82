// Package overlay is the client side of a group chat: it keeps one direct
// link per known group member, stamps outgoing messages with the local
// vector clock and fans them out, and folds incoming messages into the
// local clock and history.
//
// Membership comes from the discovery service. The overlay joins through
// it, follows its event stream, and reconnects to that stream with backoff
// if it breaks. Peer links survive such breaks; only a later membership
// event or a failed send removes them.
package overlay
