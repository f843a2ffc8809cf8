package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Monitor represents a periphmon feed server discovered on the network
type Monitor struct {
	// Instance is the advertised mDNS instance name (e.g., "ventana-gw5400")
	Instance string

	// Hostname is the mDNS hostname (e.g., "gw5400.local.")
	Hostname string

	// IP is the IPv4 address, or IPv6 if no IPv4 address was advertised
	IP string

	// Port is the HTTP port of the feed server
	Port int

	// Metadata contains the mDNS TXT record data ("version=...", "devices=...")
	Metadata map[string]string

	// DiscoveredAt is when the monitor was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the monitor
func (m *Monitor) String() string {
	return fmt.Sprintf("periphmon %s (%s) at %s", m.Instance, m.Hostname, net.JoinHostPort(m.IP, strconv.Itoa(m.Port)))
}

// BaseURL returns the HTTP base URL of the feed server
func (m *Monitor) BaseURL() string {
	return "http://" + net.JoinHostPort(m.IP, strconv.Itoa(m.Port))
}

// FeedURL returns the WebSocket URL of the live feed
func (m *Monitor) FeedURL() string {
	return "ws://" + net.JoinHostPort(m.IP, strconv.Itoa(m.Port)) + "/ws"
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (m *Monitor) GetMetadata(key string) string {
	if m.Metadata == nil {
		return ""
	}
	return m.Metadata[key]
}
