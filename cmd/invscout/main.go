package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"invscout/internal/builder"
	"invscout/internal/codec"
	"invscout/internal/collect"
	"invscout/internal/config"
	"invscout/internal/domain"
	"invscout/internal/journal"
)

func main() {
	configPath := flag.String("config", "", "YAML config file path")
	inventoryPath := flag.String("inventory", "", "input host list file, one host per line")
	hostList := flag.String("hosts", "", "comma-separated target hosts")
	user := flag.String("user", "", "SSH user")
	keyPath := flag.String("key", "", "SSH private key path")
	password := flag.String("password", "", "SSH password")
	port := flag.Int("port", 0, "SSH port")
	fromVersion := flag.String("from-version", "", "source platform version (major.minor[.patch])")
	output := flag.String("o", "", "output file path")
	format := flag.String("format", "", "output format: yaml or json")
	journalPath := flag.String("journal", "", "SQLite run journal path")
	prescan := flag.Bool("prescan", false, "filter unreachable hosts with a port scan first")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg, *hostList, *user, *keyPath, *password, *port, *fromVersion, *output, *format, *journalPath, *prescan, *verbose)

	hosts, err := resolveHosts(cfg.Hosts, *inventoryPath)
	if err != nil {
		log.Fatalf("Failed to resolve hosts: %v", err)
	}
	if len(hosts) == 0 {
		log.Fatal("No target hosts; use -hosts, -inventory or the config file")
	}

	version := builder.NormalizeVersion(cfg.FromVersion)
	if cfg.FromVersion != "" && version == "" {
		log.Printf("Invalid from_version %q, discovering without version hints", cfg.FromVersion)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, hosts, version); err != nil {
		log.Fatalf("Discovery failed: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, hosts []string, version string) error {
	if cfg.Prescan {
		filtered, err := collect.Prescan(ctx, hosts, cfg.Connection.Port)
		if err != nil {
			log.Printf("Prescan failed, continuing with all hosts: %v", err)
		} else {
			hosts = filtered
		}
		if len(hosts) == 0 {
			return errors.New("no reachable hosts after prescan")
		}
	}

	var jnl *journal.Journal
	if cfg.Journal != "" {
		var err error
		jnl, err = journal.Open(cfg.Journal)
		if err != nil {
			return err
		}
		defer jnl.Close()
		if err := jnl.StartRun(ctx, len(hosts), version); err != nil {
			return err
		}
	}

	collector := collect.New(hosts, collect.Options{
		User:           cfg.Connection.User,
		PrivateKeyPath: cfg.Connection.PrivateKeyPath,
		Password:       cfg.Connection.Password,
		Port:           cfg.Connection.Port,
		Become:         cfg.Connection.Become,
	})
	defer collector.Close()

	inv := domain.NewInventory()
	if err := builder.MapHosts(ctx, collector, inv); err != nil {
		return err
	}
	if len(inv.Groups()) == 0 {
		return errors.New("no known services found on any host")
	}

	inv.Apply(builder.ConnectionVars(cfg.Connection.User, cfg.Connection.PrivateKeyPath,
		cfg.Connection.Port, cfg.Connection.Become))
	inv.Apply(builder.InstallationMethod(ctx, collector, inv))

	registry := builder.DefaultRegistry()
	var builders []*builder.ServiceBuilder
	for _, svc := range domain.Services {
		b, err := registry.Resolve(svc.Key, version)
		if err != nil {
			return err
		}
		skip, err := config.LoadSkipList(cfg.SkipDir, svc.Key)
		if err != nil {
			log.Printf("Skip list for %s unavailable: %v", svc.Key, err)
			skip = map[string]bool{}
		}
		b.Skip = skip
		builders = append(builders, b)
	}

	deps := builder.Deps{Collector: collector, Aliases: collector, Inventory: inv}
	for _, b := range builder.Order(builders) {
		svc := b.Service
		groupHosts := inv.Hosts(svc.Group)
		result, err := b.Build(ctx, deps)
		if err != nil {
			status, detail := classify(err)
			if status == "no-hosts" {
				if cfg.Verbose {
					log.Printf("Skipping %s: %v", svc.Label, err)
				}
			} else {
				log.Printf("Builder %s failed: %v", svc.Key, err)
			}
			record(ctx, jnl, svc, groupHosts, status, detail)
			continue
		}

		// Single merge stage: builders only propose, the inventory applies.
		for _, update := range result.Updates {
			inv.Apply(update)
		}
		for _, hu := range result.HostUpdates {
			inv.ApplyHost(hu)
		}
		log.Printf("Builder %s: %d group update(s), %d host override(s)",
			svc.Key, len(result.Updates), len(result.HostUpdates))
		record(ctx, jnl, svc, groupHosts, "ok", "")
	}

	if err := export(inv, cfg.Output, cfg.Format); err != nil {
		return err
	}
	log.Printf("Inventory written to %s", cfg.Output)

	if jnl != nil {
		if err := jnl.FinishRun(ctx); err != nil {
			log.Printf("Journal: %v", err)
		}
	}
	return nil
}

func classify(err error) (status, detail string) {
	var noHosts *domain.NoHostsFoundError
	if errors.As(err, &noHosts) {
		return "no-hosts", err.Error()
	}
	return "failed", err.Error()
}

func record(ctx context.Context, jnl *journal.Journal, svc domain.Service, hosts []string, status, detail string) {
	if jnl == nil {
		return
	}
	if err := jnl.RecordService(ctx, svc.Key, svc.Group, hosts, status, detail); err != nil {
		log.Printf("Journal: %v", err)
	}
}

func export(inv *domain.Inventory, path, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()
	return codec.ForFormat(format).Export(inv, f)
}

// applyFlags layers non-empty flag values over the file config.
func applyFlags(cfg *config.Config, hosts, user, key, password string, port int, fromVersion, output, format, journalPath string, prescan, verbose bool) {
	if hosts != "" {
		for _, h := range strings.Split(hosts, ",") {
			if h = strings.TrimSpace(h); h != "" {
				cfg.Hosts = append(cfg.Hosts, h)
			}
		}
	}
	if user != "" {
		cfg.Connection.User = user
	}
	if key != "" {
		cfg.Connection.PrivateKeyPath = key
	}
	if password != "" {
		cfg.Connection.Password = password
	}
	if port != 0 {
		cfg.Connection.Port = port
	}
	if fromVersion != "" {
		cfg.FromVersion = fromVersion
	}
	if output != "" {
		cfg.Output = output
	}
	if format != "" {
		cfg.Format = format
	}
	if journalPath != "" {
		cfg.Journal = journalPath
	}
	if prescan {
		cfg.Prescan = true
	}
	if verbose {
		cfg.Verbose = true
	}
}

// resolveHosts merges the configured hosts with an optional input file,
// deduplicating while preserving first-seen order.
func resolveHosts(configured []string, inventoryPath string) ([]string, error) {
	hosts := append([]string(nil), configured...)

	if inventoryPath != "" {
		f, err := os.Open(inventoryPath)
		if err != nil {
			return nil, fmt.Errorf("open host file: %w", err)
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			hosts = append(hosts, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read host file: %w", err)
		}
	}

	seen := make(map[string]bool, len(hosts))
	var unique []string
	for _, h := range hosts {
		if seen[h] {
			continue
		}
		seen[h] = true
		unique = append(unique, h)
	}
	return unique, nil
}
