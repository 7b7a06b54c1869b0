// Package collect gathers raw service facts from the fleet over SSH:
// systemd unit state, property files referenced by ExecStart, daemon
// accounts, JVM arguments and keystore aliases.
package collect

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"invscout/internal/domain"
)

// Options holds the connection settings of the collector.
type Options struct {
	// User is the remote login name.
	User string
	// PrivateKeyPath points at a PEM private key; key auth wins over
	// password auth when both are set.
	PrivateKeyPath string
	// Password enables password authentication.
	Password string
	// Port is the SSH port, 22 when zero.
	Port int
	// Become prefixes remote commands with sudo.
	Become bool
	// ConnectTimeout bounds dialing and handshake.
	ConnectTimeout time.Duration
	// CommandTimeout bounds individual command execution.
	CommandTimeout time.Duration
	// MaxConcurrent limits parallel SSH sessions across hosts.
	MaxConcurrent int
}

// SSHCollector fetches facts from hosts over SSH. Connections are cached
// per host for the lifetime of the collector.
type SSHCollector struct {
	hosts []string
	opts  Options

	sem chan struct{}

	mu      sync.Mutex
	clients map[string]*ssh.Client
}

// New creates a collector over the given hosts.
func New(hosts []string, opts Options) *SSHCollector {
	if opts.Port == 0 {
		opts.Port = 22
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.CommandTimeout == 0 {
		opts.CommandTimeout = 30 * time.Second
	}
	if opts.MaxConcurrent == 0 {
		opts.MaxConcurrent = 5
	}
	return &SSHCollector{
		hosts:   hosts,
		opts:    opts,
		sem:     make(chan struct{}, opts.MaxConcurrent),
		clients: make(map[string]*ssh.Client),
	}
}

// Hosts returns the configured target hosts.
func (c *SSHCollector) Hosts() []string {
	return c.hosts
}

// Close drops all cached connections.
func (c *SSHCollector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for host, client := range c.clients {
		client.Close()
		delete(c.clients, host)
	}
}

// acquire blocks until a session slot is free or the context is done.
func (c *SSHCollector) acquire(ctx context.Context) error {
	select {
	case c.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *SSHCollector) release() {
	<-c.sem
}

// run executes one command on a host, connecting on first use.
func (c *SSHCollector) run(ctx context.Context, host, cmd string) (string, error) {
	if err := c.acquire(ctx); err != nil {
		return "", err
	}
	defer c.release()

	client, err := c.client(ctx, host)
	if err != nil {
		return "", &domain.HostUnreachableError{Host: host, Err: err}
	}
	out, err := c.runCommand(client, c.maybeSudo(cmd))
	if err != nil {
		return "", &domain.HostExecutionFailedError{Host: host, Command: cmd, Err: err}
	}
	return out, nil
}

func (c *SSHCollector) maybeSudo(cmd string) string {
	if c.opts.Become {
		return "sudo " + cmd
	}
	return cmd
}

// eachHost fans a function out over hosts. Per-host failures are logged and
// reported to the callback; they never abort the whole pass.
func (c *SSHCollector) eachHost(ctx context.Context, hosts []string, fn func(host string) error) {
	var wg sync.WaitGroup
	for _, host := range hosts {
		wg.Add(1)
		go func(host string) {
			defer wg.Done()
			if err := fn(host); err != nil {
				log.Printf("Collector: host %s: %v", host, err)
			}
		}(host)
	}
	wg.Wait()
}

func (c *SSHCollector) addr(host string) string {
	return fmt.Sprintf("%s:%d", host, c.opts.Port)
}
