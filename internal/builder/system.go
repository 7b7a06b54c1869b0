package builder

import (
	"context"
	"fmt"
	"log"

	"invscout/internal/domain"
)

// PackageQuerier reports whether a host carries any of the named OS
// packages. Used to distinguish package installs from archive installs.
type PackageQuerier interface {
	HasPackages(ctx context.Context, host string, packages []string) (bool, error)
}

// MapHosts runs the host mapping stage: it asks the collector which service
// units are enabled and running where, and seeds the inventory groups and
// their members. Builders refuse to run against groups this stage left
// empty.
func MapHosts(ctx context.Context, c Collector, inv *domain.Inventory) error {
	table, err := c.ServiceHosts(ctx)
	if err != nil {
		return fmt.Errorf("map service hosts: %w", err)
	}
	for _, svc := range domain.Services {
		hosts := table[svc.Key]
		if len(hosts) == 0 {
			continue
		}
		for _, host := range hosts {
			inv.AddHost(svc.Group, host)
		}
		log.Printf("System: %s on %d host(s)", svc.Label, len(hosts))
	}
	return nil
}

// ConnectionVars renders the remote access settings as a broadcast update
// so every discovered group carries them.
func ConnectionVars(user, keyPath string, port int, become bool) domain.Update {
	vars := map[string]any{
		"ansible_user":   user,
		"ansible_become": become,
	}
	if keyPath != "" {
		vars["ansible_ssh_private_key_file"] = keyPath
	}
	if port != 0 && port != 22 {
		vars["ansible_port"] = port
	}
	return domain.Update{Scope: domain.ScopeAll, Vars: vars}
}

// InstallationMethod probes the first discovered host of each service until
// one answers, and reports "package" when the service's packages are
// installed through the OS package manager, "archive" otherwise.
func InstallationMethod(ctx context.Context, q PackageQuerier, inv *domain.Inventory) domain.Update {
	for _, svc := range domain.Services {
		hosts := inv.Hosts(svc.Group)
		if len(hosts) == 0 {
			continue
		}
		installed, err := q.HasPackages(ctx, hosts[0], svc.Packages)
		if err != nil {
			log.Printf("System: package probe on %s failed: %v", hosts[0], err)
			continue
		}
		method := "archive"
		if installed {
			method = "package"
		}
		return domain.Update{Scope: domain.ScopeAll, Vars: map[string]any{"installation_method": method}}
	}
	return domain.Update{Scope: domain.ScopeAll}
}
