package client

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"sort"

	"github.com/odvcencio/gitwire/pkg/object"
	"github.com/odvcencio/gitwire/pkg/packfile"
	"github.com/odvcencio/gitwire/pkg/pktline"
)

const readBufferSize = 32 * 1024

// GraphWalker produces the sequence of "have" identifiers for a fetch:
// ancestors already present locally. The sequence is exhaustible and not
// restartable; Ack is invoked whenever the server acknowledges a have.
type GraphWalker interface {
	Next() (object.ID, bool)
	Ack(id object.ID)
}

// DetermineWants selects which advertised objects to fetch. Returning an
// empty set skips the pack exchange entirely.
type DetermineWants func(refs map[string]object.ID) ([]object.ID, error)

// DetermineRefs returns the desired ref state for a push given the
// server's current refs. A nil map aborts the push cleanly.
type DetermineRefs func(oldRefs map[string]object.ID) (map[string]object.ID, error)

// GeneratePack returns the objects to upload, given the identifiers the
// server already has and the ones it needs.
type GeneratePack func(have, want []object.ID) ([]object.Object, error)

// PackData receives raw pack bytes as they stream in. The chunk is only
// valid for the duration of the call.
type PackData func(chunk []byte)

// Progress receives raw progress text from the server.
type Progress func(text []byte)

// Client is a git smart-transport client. One Client speaks to one
// remote; each call runs a complete synchronous conversation.
type Client interface {
	// FetchPack negotiates and downloads a pack. It returns the full
	// advertised ref mapping.
	FetchPack(path string, determineWants DetermineWants, walker GraphWalker, packData PackData, progress Progress) (map[string]object.ID, error)
	// SendPack negotiates ref updates and uploads a pack. It returns
	// the new ref mapping.
	SendPack(path string, determineRefs DetermineRefs, generatePack GeneratePack, progress Progress) (map[string]object.ID, error)
	Close() error
}

// Fetch downloads a pack into store: wants default to everything the
// store is missing, pack bytes flow into the store's pack sink.
func Fetch(c Client, path string, store object.Store, walker GraphWalker, determineWants DetermineWants, progress Progress) (map[string]object.ID, error) {
	if determineWants == nil {
		determineWants = func(refs map[string]object.ID) ([]object.ID, error) {
			return store.DetermineWantsAll(refs), nil
		}
	}
	sink, commit := store.AddPack()
	refs, err := c.FetchPack(path, determineWants, walker, func(chunk []byte) {
		sink.Write(chunk)
	}, progress)
	if cerr := commit(); err == nil {
		err = cerr
	}
	return refs, err
}

// sessionState tracks where in the conversation the engine is. The
// negotiated capability set is fixed at the advertised transition and
// never mutated afterwards.
type sessionState int

const (
	stateAdvertised sessionState = iota
	stateNegotiatingHaves
	stateAwaitingAck
	stateStreamingPack
	stateDone
)

type session struct {
	conn  *Conn
	caps  []string
	state sessionState
}

func newSession(conn *Conn, clientCaps, serverCaps []string) *session {
	return &session{
		conn:  conn,
		caps:  negotiateCapabilities(clientCaps, serverCaps),
		state: stateAdvertised,
	}
}

// readRefAdvertisement consumes the ref advertisement: "<id> <ref>" lines
// terminated by a flush, capabilities attached to the first line after a
// NUL. An id field of literally "ERR" is a structured server error.
func readRefAdvertisement(conn *Conn) (map[string]object.ID, []string, error) {
	refs := make(map[string]object.ID)
	var serverCaps []string
	first := true
	for {
		pkt, err := conn.ReadPacket()
		if err != nil {
			return nil, nil, protocolErrorf("reading ref advertisement: %v", err)
		}
		if pkt == nil {
			return refs, serverCaps, nil
		}
		line := bytes.TrimSuffix(pkt, []byte("\n"))
		idField, ref, found := bytes.Cut(line, []byte(" "))
		if !found {
			return nil, nil, protocolErrorf("malformed ref advertisement line %q", line)
		}
		if bytes.Equal(idField, []byte("ERR")) {
			return nil, nil, &ProtocolError{Msg: string(ref)}
		}
		if first {
			ref, serverCaps = extractCapabilities(ref)
			first = false
		}
		id, err := object.ParseHexID(idField)
		if err != nil {
			return nil, nil, protocolErrorf("ref advertisement: %v", err)
		}
		refs[string(ref)] = id
	}
}

// uploadPackHead emits the want lines and drives the have loop. After
// each have the engine reads one ACK, but only when the transport reports
// pending data; otherwise it keeps batching haves.
func (s *session) uploadPackHead(walker GraphWalker, wants []object.ID) error {
	s.state = stateNegotiatingHaves

	line := fmt.Sprintf("want %s %s\n", wants[0], joinCapabilities(s.caps))
	if err := s.conn.WritePacket([]byte(line)); err != nil {
		return err
	}
	for _, w := range wants[1:] {
		if err := s.conn.WritePacket([]byte(fmt.Sprintf("want %s\n", w))); err != nil {
			return err
		}
	}
	if err := s.conn.WriteFlush(); err != nil {
		return err
	}

haves:
	for {
		have, ok := walker.Next()
		if !ok {
			break
		}
		if err := s.conn.WritePacket([]byte(fmt.Sprintf("have %s\n", have))); err != nil {
			return err
		}
		if !s.conn.CanRead() {
			continue
		}

		s.state = stateAwaitingAck
		pkt, err := s.conn.ReadPacket()
		if err != nil {
			return protocolErrorf("reading ack: %v", err)
		}
		s.state = stateNegotiatingHaves
		if pkt == nil {
			continue
		}
		parts := bytes.Fields(pkt)
		if len(parts) == 0 || !bytes.Equal(parts[0], []byte("ACK")) {
			continue
		}
		if len(parts) < 3 {
			return protocolErrorf("ack %q missing status", pkt)
		}
		id, err := object.ParseHexID(parts[1])
		if err != nil {
			return protocolErrorf("ack: %v", err)
		}
		walker.Ack(id)
		switch string(parts[2]) {
		case "continue", "common":
		case "ready":
			break haves
		default:
			return protocolErrorf("ack status %q not in (continue, ready, common)", parts[2])
		}
	}
	return s.conn.WritePacket([]byte("done\n"))
}

// uploadPackTail drains the final ACK lines, then streams the pack:
// demultiplexed when side-band-64k was negotiated, raw to exhaustion
// otherwise.
func (s *session) uploadPackTail(walker GraphWalker, packData PackData, progress Progress) error {
	s.state = stateAwaitingAck
	for {
		pkt, err := s.conn.ReadPacket()
		if err != nil {
			return protocolErrorf("reading final acks: %v", err)
		}
		if pkt == nil {
			break
		}
		parts := bytes.Fields(pkt)
		if len(parts) >= 2 && bytes.Equal(parts[0], []byte("ACK")) {
			id, err := object.ParseHexID(parts[1])
			if err != nil {
				return protocolErrorf("ack: %v", err)
			}
			walker.Ack(id)
		}
		if len(parts) < 3 || !ackStatusContinues(parts[2]) {
			break
		}
	}

	s.state = stateStreamingPack
	if hasCapability(s.caps, capSideBand64k) {
		err := pktline.DemuxSideband(s.conn, func(payload []byte) error {
			if packData != nil {
				packData(payload)
			}
			return nil
		}, progressHandler(progress))
		if err != nil {
			return err
		}
		// The server must stop talking once the sideband stream ends.
		if err := drainCheck(s.conn); err != nil {
			return err
		}
	} else {
		buf := make([]byte, readBufferSize)
		for {
			n, err := s.conn.Read(buf)
			if n > 0 && packData != nil {
				packData(buf[:n])
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
		}
	}
	s.state = stateDone
	return nil
}

func ackStatusContinues(status []byte) bool {
	switch string(status) {
	case "ready", "continue", "common":
		return true
	}
	return false
}

// receivePackHead emits one "<old> <new> <ref>" line per changed ref,
// capabilities attached to the first line only, and accumulates the
// have/want sets. Missing sides are the zero sentinel.
func receivePackHead(conn *Conn, caps []string, oldRefs, newRefs map[string]object.ID) (have, want []object.ID, err error) {
	names := make(map[string]struct{}, len(oldRefs)+len(newRefs))
	for name := range oldRefs {
		names[name] = struct{}{}
	}
	for name := range newRefs {
		names[name] = struct{}{}
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	haveSet := make(map[object.ID]struct{})
	for _, name := range sorted {
		if id, ok := oldRefs[name]; ok && !id.IsZero() {
			if _, dup := haveSet[id]; !dup {
				haveSet[id] = struct{}{}
				have = append(have, id)
			}
		}
	}

	wantSet := make(map[object.ID]struct{})
	sentCapabilities := false
	for _, name := range sorted {
		oldID := oldRefs[name]
		newID := newRefs[name]
		if oldID != newID {
			line := make([]byte, 0, 128)
			line = append(line, oldID.HexBytes()...)
			line = append(line, ' ')
			line = append(line, newID.HexBytes()...)
			line = append(line, ' ')
			line = append(line, name...)
			if !sentCapabilities {
				line = append(line, 0)
				line = append(line, joinCapabilities(caps)...)
				sentCapabilities = true
			}
			if err := conn.WritePacket(line); err != nil {
				return nil, nil, err
			}
		}
		if newID.IsZero() {
			continue
		}
		if _, has := haveSet[newID]; has {
			continue
		}
		if _, dup := wantSet[newID]; dup {
			continue
		}
		wantSet[newID] = struct{}{}
		want = append(want, newID)
	}
	if err := conn.WriteFlush(); err != nil {
		return nil, nil, err
	}
	return have, want, nil
}

// receivePackTail consumes the server's response to a push: the status
// report when report-status was negotiated, over side-band channel 1 when
// side-band-64k was, then verifies the server has nothing more to say.
func receivePackTail(conn *Conn, caps []string, progress Progress) error {
	var parser *reportStatusParser
	if hasCapability(caps, capReportStatus) {
		parser = newReportStatusParser()
	}

	if hasCapability(caps, capSideBand64k) {
		var data func([]byte) error
		if parser != nil {
			data = pktline.NewParser(parser.HandlePacket).Feed
		}
		if err := pktline.DemuxSideband(conn, data, progressHandler(progress)); err != nil {
			return err
		}
	} else if parser != nil {
		for {
			pkt, err := conn.ReadPacket()
			if err != nil {
				return protocolErrorf("reading status report: %v", err)
			}
			if err := parser.HandlePacket(pkt); err != nil {
				return err
			}
			if pkt == nil {
				break
			}
		}
	}

	if parser != nil {
		if err := parser.Check(); err != nil {
			return err
		}
	}
	return drainCheck(conn)
}

// sendPackConversation runs a complete push over one duplex connection.
func sendPackConversation(conn *Conn, sendCaps []string, determineRefs DetermineRefs, generatePack GeneratePack, progress Progress) (map[string]object.ID, error) {
	oldRefs, serverCaps, err := readRefAdvertisement(conn)
	if err != nil {
		return nil, err
	}
	caps := negotiateCapabilities(sendCaps, serverCaps)

	newRefs, err := determineRefs(oldRefs)
	if err != nil {
		return nil, err
	}
	if newRefs == nil {
		if err := conn.WriteFlush(); err != nil {
			return nil, err
		}
		return oldRefs, nil
	}

	have, want, err := receivePackHead(conn, caps, oldRefs, newRefs)
	if err != nil {
		return nil, err
	}
	if len(want) == 0 && maps.Equal(oldRefs, newRefs) {
		return newRefs, nil
	}

	objects, err := generatePack(have, want)
	if err != nil {
		return nil, err
	}
	if len(objects) > 0 {
		if _, err := packfile.WritePack(conn, objects); err != nil {
			return nil, fmt.Errorf("send pack: %w", err)
		}
	}

	if err := receivePackTail(conn, caps, progress); err != nil {
		return nil, err
	}
	return newRefs, nil
}

// fetchPackConversation runs a complete fetch over one duplex connection.
func fetchPackConversation(conn *Conn, fetchCaps []string, determineWants DetermineWants, walker GraphWalker, packData PackData, progress Progress) (map[string]object.ID, error) {
	refs, serverCaps, err := readRefAdvertisement(conn)
	if err != nil {
		return nil, err
	}
	s := newSession(conn, fetchCaps, serverCaps)

	wants, err := determineWants(refs)
	if err != nil {
		return nil, err
	}
	if len(wants) == 0 {
		if err := conn.WriteFlush(); err != nil {
			return nil, err
		}
		return refs, nil
	}

	if err := s.uploadPackHead(walker, wants); err != nil {
		return nil, err
	}
	if err := s.uploadPackTail(walker, packData, progress); err != nil {
		return nil, err
	}
	return refs, nil
}

func progressHandler(progress Progress) func([]byte) error {
	return func(payload []byte) error {
		if progress != nil {
			progress(payload)
		}
		return nil
	}
}
