package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// maxFrameBytes bounds a single JPEG part.
const maxFrameBytes = 8 << 20

// MJPEGSource reads multipart/x-mixed-replace MJPEG streams and polls
// single-JPEG snapshot URLs.
type MJPEGSource struct {
	client *http.Client
	logger *slog.Logger
}

// NewMJPEGSource creates an MJPEGSource. connectTimeout bounds dialing and
// waiting for response headers. Stalls after that are bounded per Read by
// the caller's context.
func NewMJPEGSource(connectTimeout time.Duration, logger *slog.Logger) *MJPEGSource {
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	return &MJPEGSource{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
				ResponseHeaderTimeout: connectTimeout,
				TLSHandshakeTimeout:   connectTimeout,
			},
		},
		logger: logger.With("component", "mjpeg"),
	}
}

// Open connects to endpoint and picks a reader by response content type.
func (s *MJPEGSource) Open(ctx context.Context, endpoint string) (FrameReader, error) {
	resp, err := s.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("mjpeg: bad content type: %w", err)
	}

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		boundary := strings.TrimPrefix(params["boundary"], "--")
		if boundary == "" {
			resp.Body.Close()
			return nil, errors.New("mjpeg: multipart response without boundary")
		}
		return newMultipartReader(resp.Body, boundary), nil

	case mediaType == "image/jpeg":
		img, err := decodeJPEG(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		return &snapshotReader{src: s, endpoint: endpoint, first: img}, nil

	default:
		resp.Body.Close()
		return nil, fmt.Errorf("mjpeg: unsupported content type %q", mediaType)
	}
}

func (s *MJPEGSource) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("mjpeg: build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mjpeg: connect: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("mjpeg: unexpected status %d", resp.StatusCode)
	}
	return resp, nil
}

func decodeJPEG(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxFrameBytes+1))
	if err != nil {
		return nil, fmt.Errorf("mjpeg: read frame: %w", err)
	}
	if len(data) > maxFrameBytes {
		return nil, fmt.Errorf("mjpeg: frame exceeds %d byte limit", maxFrameBytes)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("mjpeg: decode frame: %w", err)
	}
	return img, nil
}

// multipartReader drains a multipart stream on its own goroutine and keeps
// only the newest part. Read decodes that part, so a camera faster than the
// session's frame rate never backs up in the socket, and a camera that goes
// silent leaves Read waiting on ctx rather than on the connection.
type multipartReader struct {
	body io.ReadCloser
	mr   *multipart.Reader

	mu      sync.Mutex
	latest  []byte
	gen     uint64 // parts received
	taken   uint64 // gen of the last part handed to Read
	err     error  // set once the stream ends
	changed chan struct{}

	closeOnce sync.Once
}

func newMultipartReader(body io.ReadCloser, boundary string) *multipartReader {
	r := &multipartReader{
		body:    body,
		mr:      multipart.NewReader(body, boundary),
		changed: make(chan struct{}),
	}
	go r.pump()
	return r
}

func (r *multipartReader) pump() {
	for {
		part, err := r.mr.NextPart()
		if err != nil {
			r.finish(fmt.Errorf("mjpeg: next part: %w", err))
			return
		}
		data, err := readPart(part)
		if err != nil {
			r.finish(err)
			return
		}
		r.mu.Lock()
		r.latest = data
		r.gen++
		close(r.changed)
		r.changed = make(chan struct{})
		r.mu.Unlock()
	}
}

func (r *multipartReader) finish(err error) {
	r.mu.Lock()
	r.err = err
	close(r.changed)
	r.changed = make(chan struct{})
	r.mu.Unlock()
}

// readPart returns the body of one part. A Content-Length header lets the
// frame complete as soon as its bytes arrive instead of when the next
// boundary does.
func readPart(part *multipart.Part) ([]byte, error) {
	if n, err := strconv.Atoi(part.Header.Get("Content-Length")); err == nil && n > 0 {
		if n > maxFrameBytes {
			return nil, fmt.Errorf("mjpeg: frame exceeds %d byte limit", maxFrameBytes)
		}
		buf := make([]byte, n)
		got, err := io.ReadFull(part, buf)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("mjpeg: read frame: %w", err)
		}
		return buf[:got], nil
	}
	data, err := io.ReadAll(io.LimitReader(part, maxFrameBytes+1))
	if err != nil {
		return nil, fmt.Errorf("mjpeg: read frame: %w", err)
	}
	if len(data) > maxFrameBytes {
		return nil, fmt.Errorf("mjpeg: frame exceeds %d byte limit", maxFrameBytes)
	}
	return data, nil
}

// Read returns the newest part not yet returned, waiting for one if
// needed. Parts that arrived in between are skipped undecoded.
func (r *multipartReader) Read(ctx context.Context) (image.Image, error) {
	for {
		r.mu.Lock()
		data, gen, err, wait := r.latest, r.gen, r.err, r.changed
		fresh := gen > r.taken
		if fresh {
			r.taken = gen
		}
		r.mu.Unlock()

		if fresh {
			return decodeJPEG(bytes.NewReader(data))
		}
		if err != nil {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("mjpeg: waiting for frame: %w", ctx.Err())
		case <-wait:
		}
	}
}

// Close ends the stream; the pump exits on its next read.
func (r *multipartReader) Close() error {
	var err error
	r.closeOnce.Do(func() { err = r.body.Close() })
	return err
}

// snapshotReader re-fetches a still image on every read after the first.
type snapshotReader struct {
	src      *MJPEGSource
	endpoint string
	first    image.Image
}

func (r *snapshotReader) Read(ctx context.Context) (image.Image, error) {
	if img := r.first; img != nil {
		r.first = nil
		return img, nil
	}
	resp, err := r.src.get(ctx, r.endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeJPEG(resp.Body)
}

func (r *snapshotReader) Close() error { return nil }
