// Package history provides the bounded message log kept per group by the
// discovery service and per client by the overlay. The log keeps the most
// recent messages in insertion order and evicts the oldest first.
package history
