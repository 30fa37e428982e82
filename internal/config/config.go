package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"groupchat/internal/discovery"
	"groupchat/internal/overlay"
)

// Group is a group to create when the discovery server starts.
type Group struct {
	ID       string
	Password string
}

// Discovery holds the discovery server configuration.
type Discovery struct {
	ListenAddr   string
	AdminAddr    string
	MaxGroupSize int
	HistorySize  int
	EventBuffer  int
	Groups       []Group
}

// Peer holds the configuration of one chat client.
type Peer struct {
	UserID        string
	ListenAddr    string
	AdvertiseAddr string
	DiscoveryAddr string
	SendTimeout   time.Duration
	HistorySize   int
	// LogToDiscovery mirrors sent messages into the discovery history.
	LogToDiscovery bool
}

// DefaultDiscovery returns the discovery defaults.
func DefaultDiscovery() Discovery {
	return Discovery{
		ListenAddr:   "127.0.0.1:50051",
		MaxGroupSize: discovery.DefaultMaxGroupSize,
		HistorySize:  discovery.DefaultHistorySize,
		EventBuffer:  discovery.DefaultEventBuffer,
	}
}

// DefaultPeer returns the client defaults.
func DefaultPeer() Peer {
	return Peer{
		ListenAddr:    "127.0.0.1:0",
		DiscoveryAddr: "127.0.0.1:50051",
		SendTimeout:   overlay.DefaultSendTimeout,
		HistorySize:   overlay.DefaultHistorySize,
	}
}

// Validate checks the discovery configuration.
func (c *Discovery) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.MaxGroupSize <= 0 {
		errs = append(errs, fmt.Errorf("max group size must be positive, got %d", c.MaxGroupSize))
	}
	if c.HistorySize <= 0 {
		errs = append(errs, fmt.Errorf("history size must be positive, got %d", c.HistorySize))
	}
	if c.EventBuffer <= 0 {
		errs = append(errs, fmt.Errorf("event buffer must be positive, got %d", c.EventBuffer))
	}
	return errors.Join(errs...)
}

// ServiceOptions converts the configuration into discovery options.
func (c *Discovery) ServiceOptions() []discovery.Option {
	return []discovery.Option{
		discovery.WithMaxGroupSize(c.MaxGroupSize),
		discovery.WithHistorySize(c.HistorySize),
		discovery.WithEventBuffer(c.EventBuffer),
	}
}

// Validate checks the client configuration.
func (c *Peer) Validate() error {
	var errs []error
	if c.UserID == "" {
		errs = append(errs, errors.New("user id is required"))
	}
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.DiscoveryAddr == "" {
		errs = append(errs, errors.New("discovery address is required"))
	}
	if c.SendTimeout <= 0 {
		errs = append(errs, fmt.Errorf("send timeout must be positive, got %s", c.SendTimeout))
	}
	return errors.Join(errs...)
}

// OverlayConfig builds the overlay configuration. advertised is the address
// the peer server actually listens on, used when AdvertiseAddr is empty.
func (c *Peer) OverlayConfig(advertised string) overlay.Config {
	addr := c.AdvertiseAddr
	if addr == "" {
		addr = advertised
	}
	return overlay.Config{
		UserID:         c.UserID,
		Addr:           addr,
		SendTimeout:    c.SendTimeout,
		HistorySize:    c.HistorySize,
		LogToDiscovery: c.LogToDiscovery,
	}
}

// ParseGroups parses a comma-separated list of groups in the format:
// "general,ops=secret,random"
// A group without "=" has no password.
func ParseGroups(groupsStr string) ([]Group, error) {
	if groupsStr == "" {
		return []Group{}, nil
	}

	parts := strings.Split(groupsStr, ",")
	groups := make([]Group, 0, len(parts))
	seen := make(map[string]bool, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		id, password, _ := strings.Cut(part, "=")
		id = strings.TrimSpace(id)
		password = strings.TrimSpace(password)

		if id == "" {
			return nil, fmt.Errorf("group ID cannot be empty: %s", part)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate group: %s", id)
		}
		seen[id] = true

		groups = append(groups, Group{
			ID:       id,
			Password: password,
		})
	}

	return groups, nil
}
