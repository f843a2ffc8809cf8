package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type advertised by "periphmon serve"
	ServiceType = "_periphmon._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for monitor discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the default HTTP port of the feed server
	DefaultPort = 8080
)

// Advertise registers a feed server on the local network. The returned
// server must be shut down by the caller.
func Advertise(instance string, port int, txt map[string]string) (*zeroconf.Server, error) {
	if instance == "" {
		return nil, fmt.Errorf("mDNS instance name is required")
	}

	records := make([]string, 0, len(txt))
	for k, v := range txt {
		records = append(records, k+"="+v)
	}

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, records, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	return server, nil
}

// Scanner handles mDNS monitor discovery
type Scanner struct {
	// Timeout is the maximum time to wait for advertisements
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForMonitors discovers all periphmon feed servers on the local network
func (s *Scanner) ScanForMonitors() ([]*Monitor, error) {
	return s.ScanForMonitorsWithContext(context.Background())
}

// ScanForMonitorsWithContext discovers monitors with a custom context
func (s *Scanner) ScanForMonitorsWithContext(ctx context.Context) ([]*Monitor, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	var (
		mu       sync.Mutex
		monitors []*Monitor
		seen     = make(map[string]bool)
		done     = make(chan struct{})
	)

	go func() {
		defer close(done)
		for entry := range entries {
			monitor := s.parseServiceEntry(entry)
			if monitor == nil {
				continue
			}
			mu.Lock()
			if !seen[monitor.Instance] {
				seen[monitor.Instance] = true
				monitors = append(monitors, monitor)
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	// The resolver closes entries once ctx is done
	<-ctx.Done()
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]*Monitor, len(monitors))
	copy(out, monitors)
	return out, nil
}

// parseServiceEntry converts a zeroconf service entry to a Monitor.
// Returns nil if the entry has no usable address.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Monitor {
	if entry == nil || entry.Instance == "" {
		return nil
	}

	// Prefer IPv4
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	// TXT records are in "key=value" format
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	return &Monitor{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// ScanForMonitors is a convenience function to scan with a custom timeout
func ScanForMonitors(timeout time.Duration) ([]*Monitor, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.ScanForMonitors()
}
