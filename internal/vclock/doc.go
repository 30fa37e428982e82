// Package vclock provides the slot-indexed vector clocks carried on every chat
// message. Slot i belongs to the process holding group identity i; clocks grow
// as membership grows and are never shrunk.
package vclock
