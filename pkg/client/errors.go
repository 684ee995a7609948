// Package client implements the client side of the Git smart-transport
// protocol: ref advertisement, want/have negotiation and pack transfer
// over TCP, SSH, local subprocess and HTTP transports.
package client

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotGitRepository is returned when the remote end reports that the
// repository does not exist (HTTP 404 or equivalent).
var ErrNotGitRepository = errors.New("not a git repository")

// ProtocolError reports a violation of the wire protocol: malformed
// framing, unexpected data after a terminator, an unexpected ACK status.
// Fatal for the current operation; never retried internally.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string {
	return "git protocol error: " + e.Msg
}

func protocolErrorf(format string, args ...any) *ProtocolError {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...)}
}

// SendPackError is returned when the server rejects the uploaded pack. It
// carries the server's literal unpack status message.
type SendPackError struct {
	Msg string
}

func (e *SendPackError) Error() string {
	return "pack rejected by server: " + e.Msg
}

// UpdateRefsError is returned when the server rejects one or more ref
// updates. Statuses maps each failing ref to the server's reason; refs
// that updated cleanly are excluded.
type UpdateRefsError struct {
	Statuses map[string]string
}

func (e *UpdateRefsError) Error() string {
	refs := make([]string, 0, len(e.Statuses))
	for ref := range e.Statuses {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return strings.Join(refs, ", ") + " failed to update"
}
