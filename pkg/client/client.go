package client

import (
	"fmt"
	"net/url"
	"strings"
)

// New selects a transport for a remote URI and returns the client
// together with the repository path to pass to it.
//
// Recognized forms: git://host/path, ssh://user@host:port/path (also
// git+ssh://), http(s)://host/path, the scp-like user@host:path, and a
// bare filesystem path served through a local git subprocess.
func New(uri string, opts Options) (Client, string, error) {
	if host, path, ok := splitSCPLike(uri); ok {
		username, hostname := splitUserHost(host)
		return NewSSHClient(hostname, 0, username, opts), path, nil
	}

	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" {
		// No scheme: a local path.
		return NewSubprocessClient(opts), uri, nil
	}

	switch u.Scheme {
	case "git":
		port := 0
		if p := u.Port(); p != "" {
			fmt.Sscanf(p, "%d", &port)
		}
		return NewTCPClient(u.Hostname(), port, opts), u.Path, nil
	case "ssh", "git+ssh":
		port := 0
		if p := u.Port(); p != "" {
			fmt.Sscanf(p, "%d", &port)
		}
		username := ""
		if u.User != nil {
			username = u.User.Username()
		}
		return NewSSHClient(u.Hostname(), port, username, opts), u.Path, nil
	case "http", "https":
		c, err := NewHTTPClient(uri, nil, opts)
		if err != nil {
			return nil, "", err
		}
		// The repository path is part of the base URL.
		return c, "", nil
	case "file":
		return NewSubprocessClient(opts), u.Path, nil
	}
	return nil, "", fmt.Errorf("unknown git protocol scheme %q", u.Scheme)
}

// splitSCPLike recognizes the scp-style user@host:path form, which has no
// scheme and no slashes before the colon.
func splitSCPLike(uri string) (host, path string, ok bool) {
	if strings.Contains(uri, "://") {
		return "", "", false
	}
	colon := strings.IndexByte(uri, ':')
	if colon <= 0 {
		return "", "", false
	}
	host = uri[:colon]
	path = uri[colon+1:]
	if strings.ContainsAny(host, "/\\") || !strings.Contains(host, "@") {
		return "", "", false
	}
	return host, path, true
}

func splitUserHost(s string) (username, host string) {
	if at := strings.LastIndexByte(s, '@'); at >= 0 {
		return s[:at], s[at+1:]
	}
	return "", s
}
