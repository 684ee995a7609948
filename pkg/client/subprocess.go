package client

import (
	"fmt"
	"os"
	"os/exec"
)

// SubprocessClient talks to a repository on the local filesystem by
// spawning "git <service> <path>" and speaking the protocol over its
// pipes.
type SubprocessClient struct {
	*traditionalClient
	gitCommand string
}

// NewSubprocessClient creates a local subprocess client.
func NewSubprocessClient(opts Options) *SubprocessClient {
	git := opts.GitCommand
	if git == "" {
		git = "git"
	}
	c := &SubprocessClient{gitCommand: git}
	c.traditionalClient = newTraditionalClient(c.spawn, opts)
	return c
}

func (c *SubprocessClient) spawn(service, path string) (*Conn, error) {
	cmd := exec.Command(c.gitCommand, service, path)
	return startCommandConn(cmd)
}

// startCommandConn wires a command's stdin/stdout into a Conn. Closing
// the Conn closes both pipes and reaps the process.
func startCommandConn(cmd *exec.Cmd) (*Conn, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("subprocess stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("subprocess stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cmd.Path, err)
	}

	closeFn := func() error {
		stdin.Close()
		stdout.Close()
		return cmd.Wait()
	}

	var canRead func() bool
	if f, ok := stdout.(*os.File); ok {
		canRead = fileCanRead(f)
	}
	return NewConn(stdout, stdin, closeFn, canRead), nil
}
