package client

import (
	"bytes"
)

// reportStatusParser consumes the server's post-push status report, sent
// under the report-status capability: exactly one unpack status line,
// then zero or more per-ref status lines, terminated by a flush. Any
// packet after the flush is a protocol violation.
type reportStatusParser struct {
	done        bool
	packStatus  []byte
	refStatuses [][]byte
	refOK       bool
}

func newReportStatusParser() *reportStatusParser {
	return &reportStatusParser{refOK: true}
}

// HandlePacket feeds one pkt-line payload; nil marks the flush.
func (p *reportStatusParser) HandlePacket(pkt []byte) error {
	if p.done {
		return protocolErrorf("received more data after status report")
	}
	if pkt == nil {
		p.done = true
		return nil
	}
	pkt = bytes.TrimSpace(pkt)
	if p.packStatus == nil {
		p.packStatus = pkt
		return nil
	}
	p.refStatuses = append(p.refStatuses, pkt)
	if !bytes.HasPrefix(pkt, []byte("ok ")) {
		p.refOK = false
	}
	return nil
}

// Check raises the outcome: a SendPackError when the server could not
// unpack, an UpdateRefsError when any ref update failed. Malformed status
// lines are skipped, not fatal.
func (p *reportStatusParser) Check() error {
	if p.packStatus != nil && !bytes.Equal(p.packStatus, []byte("unpack ok")) {
		return &SendPackError{Msg: string(p.packStatus)}
	}
	if p.refOK {
		return nil
	}

	// Only failing refs enter the error payload; refs that updated
	// cleanly are excluded.
	statuses := make(map[string]string)
	for _, line := range p.refStatuses {
		status, rest, found := bytes.Cut(line, []byte(" "))
		if !found {
			// malformed response, move on to the next one
			continue
		}
		if !bytes.Equal(status, []byte("ng")) {
			continue
		}
		ref, reason, found := bytes.Cut(rest, []byte(" "))
		if found {
			statuses[string(ref)] = string(reason)
		} else {
			statuses[string(rest)] = string(status)
		}
	}
	return &UpdateRefsError{Statuses: statuses}
}
