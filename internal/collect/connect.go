package collect

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
)

// client returns the cached connection for a host, dialing when absent.
func (c *SSHCollector) client(ctx context.Context, host string) (*ssh.Client, error) {
	c.mu.Lock()
	if client, ok := c.clients[host]; ok {
		c.mu.Unlock()
		return client, nil
	}
	c.mu.Unlock()

	client, err := c.connect(ctx, host)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A concurrent dial may have won; keep the first connection.
	if existing, ok := c.clients[host]; ok {
		client.Close()
		return existing, nil
	}
	c.clients[host] = client
	return client, nil
}

// connect establishes an SSH connection to a host using the configured
// credentials. Supports both key-based and password authentication.
func (c *SSHCollector) connect(ctx context.Context, host string) (*ssh.Client, error) {
	config, err := c.buildSSHConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build SSH config: %w", err)
	}
	config.Timeout = c.opts.ConnectTimeout

	addr := c.addr(host)
	dialer := &net.Dialer{Timeout: c.opts.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to establish SSH connection: %w", err)
	}
	return ssh.NewClient(sshConn, chans, reqs), nil
}

// buildSSHConfig creates an SSH client config from the collector options.
func (c *SSHCollector) buildSSHConfig() (*ssh.ClientConfig, error) {
	if c.opts.User == "" {
		return nil, errors.New("no SSH user configured")
	}

	var methods []ssh.AuthMethod
	if c.opts.PrivateKeyPath != "" {
		keyData, err := os.ReadFile(c.opts.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if c.opts.Password != "" {
		methods = append(methods, ssh.Password(c.opts.Password))
	}
	if len(methods) == 0 {
		return nil, errors.New("no SSH credentials configured")
	}

	return &ssh.ClientConfig{
		User:            c.opts.User,
		Auth:            methods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.opts.ConnectTimeout,
	}, nil
}

// runCommand executes a command over SSH and returns the combined output.
// A non-zero exit still yields the output; systemctl exits non-zero for
// units that are not loaded and the parsers handle that case.
func (c *SSHCollector) runCommand(client *ssh.Client, cmd string) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	done := make(chan error, 1)
	var output []byte
	go func() {
		output, err = session.CombinedOutput(cmd)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			var exitErr *ssh.ExitError
			if errors.As(err, &exitErr) {
				return string(output), nil
			}
			return "", fmt.Errorf("command failed: %w", err)
		}
		return string(output), nil
	case <-time.After(c.opts.CommandTimeout):
		session.Signal(ssh.SIGKILL)
		return "", fmt.Errorf("command timeout")
	}
}
