package client

import (
	"fmt"
	"net"
	"os/exec"
	"strconv"

	"golang.org/x/crypto/ssh"
)

// SSHVendor establishes a command channel on a remote host. Injected
// through Options rather than process-wide state so callers can swap
// implementations per client.
type SSHVendor interface {
	RunCommand(host string, port int, username, command string) (*Conn, error)
}

// ExecSSHVendor runs the external ssh binary. It is the default vendor.
type ExecSSHVendor struct {
	// Program overrides the ssh binary name. Defaults to "ssh".
	Program string
}

func (v *ExecSSHVendor) RunCommand(host string, port int, username, command string) (*Conn, error) {
	program := v.Program
	if program == "" {
		program = "ssh"
	}
	args := []string{"-x"}
	if port != 0 {
		args = append(args, "-p", strconv.Itoa(port))
	}
	if username != "" {
		host = username + "@" + host
	}
	args = append(args, host, command)
	return startCommandConn(exec.Command(program, args...))
}

// NativeSSHVendor dials with the in-process SSH implementation instead of
// shelling out. The caller supplies the full client configuration,
// including authentication and host key checking.
type NativeSSHVendor struct {
	Config *ssh.ClientConfig
}

func (v *NativeSSHVendor) RunCommand(host string, port int, username, command string) (*Conn, error) {
	if port == 0 {
		port = 22
	}
	cfg := v.Config
	if username != "" && cfg.User == "" {
		c := *cfg
		c.User = username
		cfg = &c
	}

	client, err := ssh.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(port)), cfg)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", host, err)
	}
	sess, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ssh session: %w", err)
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("ssh stdin: %w", err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("ssh stdout: %w", err)
	}
	if err := sess.Start(command); err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("ssh start %q: %w", command, err)
	}

	closeFn := func() error {
		stdin.Close()
		err := sess.Wait()
		sess.Close()
		client.Close()
		return err
	}
	// No descriptor to poll through an SSH channel; reporting false only
	// means the engine keeps batching haves.
	return NewConn(stdout, stdin, closeFn, nil), nil
}

// SSHClient runs the git services on a remote host over SSH.
type SSHClient struct {
	*traditionalClient
	host     string
	port     int
	username string
	vendor   SSHVendor
}

// NewSSHClient creates a client for host. Port 0 selects the vendor's
// default, an empty username the current user.
func NewSSHClient(host string, port int, username string, opts Options) *SSHClient {
	vendor := opts.SSHVendor
	if vendor == nil {
		vendor = &ExecSSHVendor{}
	}
	c := &SSHClient{host: host, port: port, username: username, vendor: vendor}
	c.traditionalClient = newTraditionalClient(c.run, opts)
	return c
}

func (c *SSHClient) run(service, path string) (*Conn, error) {
	command := fmt.Sprintf("git-%s '%s'", service, path)
	return c.vendor.RunCommand(c.host, c.port, c.username, command)
}
