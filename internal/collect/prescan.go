package collect

import (
	"context"
	"fmt"
	"log"

	nmap "github.com/Ullaakut/nmap/v3"
)

// Prescan filters the host list down to hosts with an open SSH port. It is
// optional; skipping it just means unreachable hosts fail at connect time
// instead.
func Prescan(ctx context.Context, hosts []string, port int) ([]string, error) {
	if port == 0 {
		port = 22
	}

	scanner, err := nmap.NewScanner(
		ctx,
		nmap.WithTargets(hosts...),
		nmap.WithPorts(fmt.Sprintf("%d", port)),
		nmap.WithSkipHostDiscovery(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	log.Printf("Prescan: scanning %d host(s) for port %d", len(hosts), port)
	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	if warnings != nil && len(*warnings) > 0 {
		log.Printf("Prescan: warnings: %v", *warnings)
	}

	open := make(map[string]bool)
	for _, h := range result.Hosts {
		reachable := false
		for _, p := range h.Ports {
			if int(p.ID) == port && p.State.State == "open" {
				reachable = true
				break
			}
		}
		if !reachable {
			continue
		}
		for _, addr := range h.Addresses {
			open[addr.Addr] = true
		}
		for _, name := range h.Hostnames {
			open[name.Name] = true
		}
	}

	var filtered []string
	for _, host := range hosts {
		if open[host] {
			filtered = append(filtered, host)
		} else {
			log.Printf("Prescan: dropping unreachable host %s", host)
		}
	}
	return filtered, nil
}
