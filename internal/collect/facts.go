package collect

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"invscout/internal/domain"
)

// execStartPattern pulls the property files out of a systemd ExecStart
// line. An optional --<name>.config flag in front of a file names the
// configuration variant; a bare file is the default variant.
var execStartPattern = regexp.MustCompile(`(--[\w.]+\.config)?\s+([\w/.-]+\.properties)`)

// ServiceHosts asks every configured host which service units are enabled
// and running, and returns service key to host list.
func (c *SSHCollector) ServiceHosts(ctx context.Context) (map[string][]string, error) {
	units := make([]string, 0, len(domain.Services))
	for _, svc := range domain.Services {
		units = append(units, svc.Unit)
	}
	cmd := "systemctl show " + strings.Join(units, " ") + " --property=Id,ActiveState,UnitFileState"

	var mu sync.Mutex
	found := make(map[string]map[string]bool)

	c.eachHost(ctx, c.hosts, func(host string) error {
		out, err := c.run(ctx, host, cmd)
		if err != nil {
			return err
		}
		for _, unit := range parseActiveUnits(out) {
			svc, ok := domain.ServiceByUnit(unit)
			if !ok {
				continue
			}
			mu.Lock()
			if found[svc.Key] == nil {
				found[svc.Key] = make(map[string]bool)
			}
			found[svc.Key][host] = true
			mu.Unlock()
		}
		return nil
	})

	result := make(map[string][]string, len(found))
	for key, hosts := range found {
		// Preserve the configured host order.
		for _, host := range c.hosts {
			if hosts[host] {
				result[key] = append(result[key], host)
			}
		}
	}
	return result, nil
}

// parseActiveUnits extracts the unit names that are both running and
// enabled from systemctl show block output.
func parseActiveUnits(out string) []string {
	var units []string
	for _, block := range strings.Split(out, "\n\n") {
		props := parseShowBlock(block)
		if props["ActiveState"] != "active" {
			continue
		}
		state := props["UnitFileState"]
		if state != "enabled" && state != "static" {
			continue
		}
		if id := props["Id"]; id != "" {
			units = append(units, id)
		}
	}
	return units
}

// parseShowBlock parses one systemctl show Key=Value block.
func parseShowBlock(block string) map[string]string {
	props := make(map[string]string)
	for _, line := range strings.Split(block, "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), "=")
		if !found || key == "" {
			continue
		}
		props[key] = value
	}
	return props
}

// Collect fetches every configuration variant of a service from each host.
// Hosts that fail are logged and omitted; the builder works with whatever
// subset answered.
func (c *SSHCollector) Collect(ctx context.Context, svc domain.Service, hosts []string) (domain.HostProperties, error) {
	var mu sync.Mutex
	table := make(domain.HostProperties)

	c.eachHost(ctx, hosts, func(host string) error {
		variants, err := c.collectHost(ctx, svc, host)
		if err != nil {
			return err
		}
		mu.Lock()
		table[host] = variants
		mu.Unlock()
		return nil
	})
	return table, nil
}

func (c *SSHCollector) collectHost(ctx context.Context, svc domain.Service, host string) (domain.VariantSet, error) {
	out, err := c.run(ctx, host, "systemctl show "+svc.Unit+" --property=ExecStart")
	if err != nil {
		return nil, err
	}

	files := parseExecStartFiles(out)
	if len(files) == 0 {
		return nil, fmt.Errorf("no property files in ExecStart of %s", svc.Unit)
	}

	variants := make(domain.VariantSet, len(files))
	for variant, path := range files {
		raw, err := c.run(ctx, host, "cat "+path)
		if err != nil {
			return nil, err
		}
		variants[variant] = domain.ParseProperties(raw)
	}
	return variants, nil
}

// parseExecStartFiles maps variant name to property file path from an
// ExecStart line.
func parseExecStartFiles(execStart string) map[string]string {
	files := make(map[string]string)
	for _, m := range execStartPattern.FindAllStringSubmatch(execStart, -1) {
		variant := domain.DefaultVariant
		if m[1] != "" {
			variant = strings.TrimPrefix(m[1], "--")
		}
		files[variant] = m[2]
	}
	return files
}

// UserGroup fetches the daemon account facts of a service unit.
func (c *SSHCollector) UserGroup(ctx context.Context, svc domain.Service, host string) (domain.DaemonFacts, error) {
	out, err := c.run(ctx, host, "systemctl show "+svc.Unit+" --property=User,Group,Environment")
	if err != nil {
		return domain.DaemonFacts{}, err
	}
	props := parseShowBlock(out)
	env := parseEnvironment(props["Environment"])
	return domain.DaemonFacts{
		User:   props["User"],
		Group:  props["Group"],
		LogDir: env["LOG_DIR"],
	}, nil
}

// RuntimeArgs fetches the JVM argument string the unit exports, heap
// options first.
func (c *SSHCollector) RuntimeArgs(ctx context.Context, svc domain.Service, host string) (string, error) {
	out, err := c.run(ctx, host, "systemctl show "+svc.Unit+" --property=Environment")
	if err != nil {
		return "", err
	}
	env := parseEnvironment(parseShowBlock(out)["Environment"])

	var args []string
	if heap := env["KAFKA_HEAP_OPTS"]; heap != "" {
		args = append(args, heap)
	}
	if opts := env["KAFKA_OPTS"]; opts != "" {
		args = append(args, opts)
	}
	return strings.Join(args, " "), nil
}

// parseEnvironment splits a systemd Environment property into variables.
// Values are space-separated KEY=value tokens, possibly quoted as a whole;
// JVM flags inside a value (-Xmx, -X...) stay attached to their variable.
func parseEnvironment(raw string) map[string]string {
	env := make(map[string]string)
	key := ""
	for _, token := range strings.Fields(raw) {
		trimmed := strings.Trim(token, "\"")
		if k, v, found := strings.Cut(trimmed, "="); found && !strings.HasPrefix(trimmed, "-") {
			key = k
			env[key] = v
			continue
		}
		// Continuation of the previous variable's value.
		if key != "" {
			env[key] += " " + trimmed
		}
	}
	return env
}

// HasPackages reports whether any of the named packages is installed on a
// host through the OS package manager.
func (c *SSHCollector) HasPackages(ctx context.Context, host string, packages []string) (bool, error) {
	for _, pkg := range packages {
		out, err := c.run(ctx, host, fmt.Sprintf("rpm -q %s 2>/dev/null || dpkg -s %s 2>/dev/null", pkg, pkg))
		if err != nil {
			return false, err
		}
		out = strings.TrimSpace(out)
		if out != "" && !strings.Contains(out, "not installed") {
			return true, nil
		}
	}
	return false, nil
}
