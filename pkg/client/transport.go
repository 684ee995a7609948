package client

import (
	"slices"

	"github.com/odvcencio/gitwire/pkg/object"
)

// connectFunc establishes one conversation with the named git service
// ("upload-pack" or "receive-pack") for a repository path.
type connectFunc func(service, path string) (*Conn, error)

// Options configures a client.
type Options struct {
	// NoThinPack disables requesting thin packs on fetch.
	NoThinPack bool
	// GitCommand overrides the binary the subprocess transport runs.
	// Defaults to "git".
	GitCommand string
	// SSHVendor supplies the SSH command channel. Defaults to running
	// the external ssh binary.
	SSHVendor SSHVendor
}

func (o Options) fetchCapabilities() []string {
	caps := slices.Clone(fetchCapabilities)
	if !o.NoThinPack {
		caps = append(caps, capThinPack)
	}
	return caps
}

func (o Options) sendCapabilities() []string {
	return slices.Clone(sendCapabilities)
}

// traditionalClient drives both conversations over a single duplex
// channel supplied by a connect function. TCP, SSH and subprocess
// transports differ only in how they connect.
type traditionalClient struct {
	fetchCaps []string
	sendCaps  []string
	connect   connectFunc
}

func newTraditionalClient(connect connectFunc, opts Options) *traditionalClient {
	return &traditionalClient{
		fetchCaps: opts.fetchCapabilities(),
		sendCaps:  opts.sendCapabilities(),
		connect:   connect,
	}
}

func (c *traditionalClient) FetchPack(path string, determineWants DetermineWants, walker GraphWalker, packData PackData, progress Progress) (map[string]object.ID, error) {
	conn, err := c.connect("upload-pack", path)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return fetchPackConversation(conn, c.fetchCaps, determineWants, walker, packData, progress)
}

func (c *traditionalClient) SendPack(path string, determineRefs DetermineRefs, generatePack GeneratePack, progress Progress) (map[string]object.ID, error) {
	conn, err := c.connect("receive-pack", path)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return sendPackConversation(conn, c.sendCaps, determineRefs, generatePack, progress)
}

func (c *traditionalClient) Close() error {
	return nil
}
