package pktline

import (
	"fmt"
	"io"
)

// Side-band channel numbers. The set is closed: anything else on the wire
// aborts the transfer.
const (
	ChannelData     byte = 1 // pack or ref data
	ChannelProgress byte = 2 // progress text
	ChannelError    byte = 3 // fatal server error
)

// DemuxSideband reads pkt-lines from r until a flush packet, routing each
// payload by its leading channel byte. This requires the side-band-64k
// capability to have been negotiated.
//
// A nil handler discards that channel's data. A payload on the error
// channel aborts the demux and is surfaced as the returned error, as is an
// unknown channel number or an empty packet.
func DemuxSideband(r io.Reader, data, progress func(payload []byte) error) error {
	return ReadSeq(r, func(pkt []byte) error {
		if len(pkt) == 0 {
			return fmt.Errorf("side-band: empty packet")
		}
		payload := pkt[1:]
		switch pkt[0] {
		case ChannelData:
			if data != nil {
				return data(payload)
			}
		case ChannelProgress:
			if progress != nil {
				return progress(payload)
			}
		case ChannelError:
			return fmt.Errorf("remote error: %s", payload)
		default:
			return fmt.Errorf("side-band: invalid channel %d", pkt[0])
		}
		return nil
	})
}
