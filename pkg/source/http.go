package source

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rstms/iso-reader/pkg/isoerr"
)

// HTTPSource reads an image from a web server using byte range requests.
type HTTPSource struct {
	url    string
	size   int64
	client *http.Client
}

// OpenHTTP probes url with a HEAD request to learn the image size. Every later read is a single
// ranged GET bounded by timeout.
func OpenHTTP(url string, timeout time.Duration) (*HTTPSource, error) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Head(url)
	if err != nil {
		return nil, isoerr.NewIOError("head", 0, err)
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", isoerr.ErrNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return nil, isoerr.NewIOError("head", 0, fmt.Errorf("unexpected status %s", resp.Status))
	case resp.ContentLength == 0:
		return nil, fmt.Errorf("%w: %s", isoerr.ErrEmptyImage, url)
	case resp.ContentLength < 0:
		return nil, isoerr.NewIOError("head", 0, fmt.Errorf("server did not report a content length"))
	}

	return &HTTPSource{url: url, size: resp.ContentLength, client: client}, nil
}

func (s *HTTPSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= s.size {
		return 0, io.EOF
	}
	want := int64(len(p))
	if off+want > s.size {
		want = s.size - off
	}
	if want == 0 {
		return 0, nil
	}

	req, err := http.NewRequest(http.MethodGet, s.url, nil)
	if err != nil {
		return 0, isoerr.NewIOError("range", off, err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, off+want-1))

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, isoerr.NewIOError("range", off, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		return 0, isoerr.NewIOError("range", off, fmt.Errorf("unexpected status %s", resp.Status))
	}

	n, err := io.ReadFull(resp.Body, p[:want])
	if err != nil {
		return n, isoerr.NewIOError("range", off, err)
	}
	if want < int64(len(p)) {
		return n, io.EOF
	}
	return n, nil
}

func (s *HTTPSource) Size() int64 {
	return s.size
}

func (s *HTTPSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
