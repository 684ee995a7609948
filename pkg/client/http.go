package client

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"

	"github.com/odvcencio/gitwire/pkg/object"
	"github.com/odvcencio/gitwire/pkg/packfile"
)

// HTTPClient speaks the smart HTTP protocol: ref discovery through
// GET info/refs?service=... and one POST per conversation. The dumb
// protocol is not supported.
type HTTPClient struct {
	base       *url.URL
	httpClient *http.Client
	fetchCaps  []string
	sendCaps   []string
}

// NewHTTPClient creates a client rooted at baseURL. httpClient may be nil
// for the default client.
func NewHTTPClient(baseURL string, httpClient *http.Client, opts Options) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse remote URL: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{
		base:       u,
		httpClient: httpClient,
		fetchCaps:  opts.fetchCapabilities(),
		sendCaps:   opts.sendCapabilities(),
	}, nil
}

func (c *HTTPClient) repoURL(path string) *url.URL {
	return c.base.JoinPath(strings.Trim(path, "/"))
}

// discoverReferences performs smart ref discovery for the given service
// ("git-upload-pack" or "git-receive-pack").
func (c *HTTPClient) discoverReferences(service string, repo *url.URL) (map[string]object.ID, []string, error) {
	u := repo.JoinPath("info", "refs")
	q := u.Query()
	q.Set("service", service)
	u.RawQuery = q.Encode()

	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", fmt.Sprintf("application/x-%s-request", service))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("ref discovery: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil, ErrNotGitRepository
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, protocolErrorf("unexpected http response %d from ref discovery", resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "application/x-git-") {
		return nil, nil, protocolErrorf("server does not support the smart http protocol")
	}

	conn := NewConn(resp.Body, nil, nil, nil)

	// The smart response opens with exactly one service marker packet
	// and a flush before the advertisement proper.
	marker, err := conn.ReadPacket()
	if err != nil {
		return nil, nil, protocolErrorf("reading service marker: %v", err)
	}
	want := fmt.Sprintf("# service=%s\n", service)
	if string(marker) != want {
		return nil, nil, protocolErrorf("unexpected first line %q from smart server", marker)
	}
	if end, err := conn.ReadPacket(); err != nil || end != nil {
		return nil, nil, protocolErrorf("missing flush after service marker")
	}

	return readRefAdvertisement(conn)
}

// smartRequest POSTs a complete request body to the service endpoint and
// validates the response status and content type.
func (c *HTTPClient) smartRequest(service string, repo *url.URL, body []byte) (*http.Response, error) {
	u := repo.JoinPath(service)
	req, err := http.NewRequest(http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", fmt.Sprintf("application/x-%s-request", service))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", service, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrNotGitRepository
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, protocolErrorf("invalid http response %d from %s", resp.StatusCode, service)
	}
	if ct := resp.Header.Get("Content-Type"); ct != fmt.Sprintf("application/x-%s-result", service) {
		resp.Body.Close()
		return nil, protocolErrorf("invalid content-type %q from %s", ct, service)
	}
	return resp, nil
}

func (c *HTTPClient) FetchPack(path string, determineWants DetermineWants, walker GraphWalker, packData PackData, progress Progress) (map[string]object.ID, error) {
	repo := c.repoURL(path)
	refs, serverCaps, err := c.discoverReferences("git-upload-pack", repo)
	if err != nil {
		return nil, err
	}

	wants, err := determineWants(refs)
	if err != nil {
		return nil, err
	}
	if len(wants) == 0 {
		return refs, nil
	}

	// The whole head is buffered into one request body; there is no
	// opportunistic ACK reading over HTTP.
	var reqBody bytes.Buffer
	s := &session{
		conn:  NewConn(nil, &reqBody, nil, func() bool { return false }),
		caps:  negotiateCapabilities(c.fetchCaps, serverCaps),
		state: stateAdvertised,
	}
	if err := s.uploadPackHead(walker, wants); err != nil {
		return nil, err
	}

	resp, err := c.smartRequest("git-upload-pack", repo, reqBody.Bytes())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	s.conn = NewConn(resp.Body, nil, nil, nil)
	if err := s.uploadPackTail(walker, packData, progress); err != nil {
		return nil, err
	}
	return refs, nil
}

func (c *HTTPClient) SendPack(path string, determineRefs DetermineRefs, generatePack GeneratePack, progress Progress) (map[string]object.ID, error) {
	repo := c.repoURL(path)
	oldRefs, serverCaps, err := c.discoverReferences("git-receive-pack", repo)
	if err != nil {
		return nil, err
	}
	caps := negotiateCapabilities(c.sendCaps, serverCaps)

	newRefs, err := determineRefs(oldRefs)
	if err != nil {
		return nil, err
	}
	if newRefs == nil {
		return oldRefs, nil
	}

	var reqBody bytes.Buffer
	reqConn := NewConn(nil, &reqBody, nil, nil)
	have, want, err := receivePackHead(reqConn, caps, oldRefs, newRefs)
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
		if _, err := packfile.WritePack(&reqBody, objects); err != nil {
			return nil, fmt.Errorf("send pack: %w", err)
		}
	}

	resp, err := c.smartRequest("git-receive-pack", repo, reqBody.Bytes())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respConn := NewConn(resp.Body, io.Discard, nil, nil)
	if err := receivePackTail(respConn, caps, progress); err != nil {
		return nil, err
	}
	return newRefs, nil
}

func (c *HTTPClient) Close() error {
	return nil
}
