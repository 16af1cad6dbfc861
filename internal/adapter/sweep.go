package adapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"

	"roomsense/internal/log"
)

// SweepSource discovers live devices with an nmap ping sweep. It knows
// nothing about association points, so the devices it reports carry no
// room attribution and feed only the Home/Away gate and the device
// surface. Useful as a fallback when neither a controller API nor SSH
// access to the access point is available.
type SweepSource struct {
	targets []string
	timeout time.Duration
}

// NewSweepSource creates an nmap-backed network source for the given
// CIDR ranges
func NewSweepSource(targets []string, timeout time.Duration) *SweepSource {
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &SweepSource{targets: targets, timeout: timeout}
}

// Name returns the source identifier
func (s *SweepSource) Name() string {
	return "sweep"
}

// Fetch runs a ping sweep across the configured ranges
func (s *SweepSource) Fetch(ctx context.Context) ([]AssociationRecord, error) {
	if len(s.targets) == 0 {
		return nil, fmt.Errorf("no sweep targets configured")
	}

	scanCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	scanner, err := nmap.NewScanner(
		scanCtx,
		nmap.WithTargets(s.targets...),
		nmap.WithPingScan(),
	)
	if err != nil {
		return nil, fmt.Errorf("create scanner: %w", err)
	}

	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, fmt.Errorf("ping sweep: %w", err)
	}
	if warnings != nil && len(*warnings) > 0 {
		log.Debug("sweep warnings", "warnings", *warnings)
	}

	now := time.Now()
	var records []AssociationRecord
	for _, host := range result.Hosts {
		if host.Status.State != "up" {
			continue
		}

		var mac, ip, vendor string
		for _, addr := range host.Addresses {
			switch addr.AddrType {
			case "mac":
				mac = strings.ToLower(addr.Addr)
				vendor = addr.Vendor
			default:
				ip = addr.Addr
			}
		}

		// Without ARP visibility (unprivileged scan) fall back to the
		// IP as a stable-enough device id for gate purposes.
		id := mac
		if id == "" {
			id = ip
		}
		if id == "" {
			continue
		}

		hint := vendor
		if len(host.Hostnames) > 0 {
			hint = host.Hostnames[0].Name
		}

		records = append(records, AssociationRecord{
			DeviceID:    id,
			DisplayHint: hint,
			LastSeen:    now,
		})
	}

	log.Debug("sweep complete", "targets", s.targets, "devices", len(records))
	return records, nil
}
