package source

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"gocv.io/x/gocv"
)

// shotPollSource fetches one still image per Next call. It is not a
// continuous stream: every fetch is an independent bounded-timeout GET,
// and a failed fetch or decode is reported as ErrTransient so the caller
// can retry on its own schedule. The source itself never dies from a bad
// poll.
type shotPollSource struct {
	url    string
	client *http.Client
}

// openShotPoll validates the endpoint URL; no connection is attempted
// until the first Next.
func openShotPoll(desc Descriptor) (Source, error) {
	if desc.URL == "" {
		return nil, fmt.Errorf("%w: shot-poll source needs a URL", ErrUnavailable)
	}
	parsed, err := url.Parse(desc.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: malformed shot-poll URL %q", ErrUnavailable, desc.URL)
	}

	return &shotPollSource{
		url:    desc.URL,
		client: &http.Client{Timeout: shotFetchTimeout},
	}, nil
}

// Next performs a single bounded-timeout fetch and decode.
func (s *shotPollSource) Next() (gocv.Mat, error) {
	resp, err := s.client.Get(s.url)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("%w: fetch %s: %v", ErrTransient, s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return gocv.Mat{}, fmt.Errorf("%w: fetch %s: %s", ErrTransient, s.url, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("%w: read body from %s: %v", ErrTransient, s.url, err)
	}

	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("%w: decode snapshot from %s: %v", ErrTransient, s.url, err)
	}
	if img.Empty() {
		img.Close()
		return gocv.Mat{}, fmt.Errorf("%w: snapshot from %s decoded empty", ErrTransient, s.url)
	}

	return img, nil
}

// Close is a no-op; the source holds no persistent connection.
func (s *shotPollSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
