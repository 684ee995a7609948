package client

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultGitPort is the port the git:// protocol listens on.
const DefaultGitPort = 9418

// TCPClient speaks the git:// protocol over a direct TCP connection.
type TCPClient struct {
	*traditionalClient
	host string
	port int
}

// NewTCPClient creates a client for git://host:port. A port of 0 selects
// the default.
func NewTCPClient(host string, port int, opts Options) *TCPClient {
	if port == 0 {
		port = DefaultGitPort
	}
	c := &TCPClient{host: host, port: port}
	c.traditionalClient = newTraditionalClient(c.dial, opts)
	return c
}

func (c *TCPClient) dial(service, path string) (*Conn, error) {
	nc, err := net.Dial("tcp", net.JoinHostPort(c.host, strconv.Itoa(c.port)))
	if err != nil {
		return nil, fmt.Errorf("git tcp connect %s: %w", c.host, err)
	}
	tc := nc.(*net.TCPConn)

	conn := NewConn(tc, tc, tc.Close, connCanRead(tc))

	// A path of /~user means the user's home directory; the leading
	// slash is stripped on the wire.
	if strings.HasPrefix(path, "/~") {
		path = path[1:]
	}
	cmd := fmt.Sprintf("git-%s %s\x00host=%s\x00", service, path, c.host)
	if err := conn.WritePacket([]byte(cmd)); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
