package client

import (
	"bytes"
	"strings"
)

// Capability tokens this client understands. Anything else the server
// advertises is preserved verbatim and simply never acted on.
const (
	capMultiAck         = "multi_ack"
	capMultiAckDetailed = "multi_ack_detailed"
	capOfsDelta         = "ofs-delta"
	capSideBand64k      = "side-band-64k"
	capThinPack         = "thin-pack"
	capReportStatus     = "report-status"
)

var (
	commonCapabilities = []string{capOfsDelta, capSideBand64k}
	fetchCapabilities  = append([]string{capMultiAck, capMultiAckDetailed}, commonCapabilities...)
	sendCapabilities   = append([]string{capReportStatus}, commonCapabilities...)
)

// extractCapabilities splits the first advertised ref line into the ref
// part and its capability list. Capabilities follow the first NUL byte,
// separated by spaces; a line without a NUL has none.
func extractCapabilities(line []byte) ([]byte, []string) {
	ref, caps, found := bytes.Cut(line, []byte{0})
	if !found {
		return line, nil
	}
	return ref, strings.Fields(string(caps))
}

// negotiateCapabilities computes the capability set for one conversation:
// the client's default list minus anything the server did not advertise.
// Computed once per session, at the advertised transition.
func negotiateCapabilities(client, server []string) []string {
	advertised := make(map[string]struct{}, len(server))
	for _, c := range server {
		advertised[c] = struct{}{}
	}
	negotiated := make([]string, 0, len(client))
	for _, c := range client {
		if _, ok := advertised[c]; ok {
			negotiated = append(negotiated, c)
		}
	}
	return negotiated
}

func hasCapability(caps []string, name string) bool {
	for _, c := range caps {
		if c == name {
			return true
		}
	}
	return false
}

func joinCapabilities(caps []string) string {
	return strings.Join(caps, " ")
}
