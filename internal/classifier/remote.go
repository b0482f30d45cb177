package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"gocv.io/x/gocv"

	"artifact-detector/internal/errs"
	"artifact-detector/internal/imageio"
	"artifact-detector/internal/logger"
	"artifact-detector/internal/opencv/safe"
)

const remoteComponent = "Classifier"

// Remote calls an inference service that hosts one model per algorithm.
// Images are posted as a PNG multipart field named "file" to
// <base>/predict/<model>; the service answers {"scores": [fake, real]}.
type Remote struct {
	baseURL string
	model   string
	shape   InputShape
	client  *http.Client
	timeout time.Duration
	retries uint64
	backoff time.Duration
	logger  logger.Logger
}

type RemoteOption func(*Remote)

func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) {
		if c != nil {
			r.client = c
		}
	}
}

// WithTimeout bounds each request. It applies to a copy of the client, so
// a client passed through WithHTTPClient is never modified.
func WithTimeout(d time.Duration) RemoteOption {
	return func(r *Remote) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRetries sets how many times a transient failure is retried.
func WithRetries(n int) RemoteOption {
	return func(r *Remote) {
		if n >= 0 {
			r.retries = uint64(n)
		}
	}
}

// WithBackoff sets the base of the Fibonacci backoff between retries.
func WithBackoff(d time.Duration) RemoteOption {
	return func(r *Remote) {
		if d > 0 {
			r.backoff = d
		}
	}
}

func WithRemoteLogger(l logger.Logger) RemoteOption {
	return func(r *Remote) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRemote(baseURL, model string, shape InputShape, opts ...RemoteOption) (*Remote, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("classifier url %q: %v: %w", baseURL, err, errs.ErrInvalidArgument)
	}
	if model == "" {
		return nil, fmt.Errorf("empty classifier model name: %w", errs.ErrInvalidArgument)
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}

	r := &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		shape:   shape,
		client:  &http.Client{Timeout: 30 * time.Second},
		retries: 3,
		backoff: 500 * time.Millisecond,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.timeout > 0 {
		client := *r.client
		client.Timeout = r.timeout
		r.client = &client
	}
	return r, nil
}

func (r *Remote) InputShape() InputShape {
	return r.shape
}

func (r *Remote) Predict(ctx context.Context, img *safe.Mat) (Scores, error) {
	prepared, err := Prepare(img, r.shape)
	if err != nil {
		return Scores{}, err
	}
	defer prepared.Close()

	encoded, err := imageio.Encode(prepared, gocv.PNGFileExt)
	if err != nil {
		return Scores{}, err
	}

	var scores Scores
	b := retry.WithMaxRetries(r.retries, retry.NewFibonacci(r.backoff))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		s, err := r.post(ctx, encoded)
		if err != nil {
			var transient *transientError
			if errors.As(err, &transient) {
				r.logger.Warning(remoteComponent, "prediction failed, retrying", map[string]interface{}{
					"model": r.model,
					"error": err.Error(),
				})
				return retry.RetryableError(err)
			}
			return err
		}
		scores = s
		return nil
	})
	if err != nil {
		return Scores{}, err
	}
	return scores, nil
}

func (r *Remote) post(ctx context.Context, image []byte) (Scores, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", r.model+".png")
	if err != nil {
		return Scores{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return Scores{}, fmt.Errorf("write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Scores{}, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/predict/"+url.PathEscape(r.model), body)
	if err != nil {
		return Scores{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Scores{}, ctx.Err()
		}
		return Scores{}, &transientError{fmt.Errorf("send request: %v: %w", err, errs.ErrIOFailure)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return Scores{}, &transientError{fmt.Errorf("inference failed with status %d: %w", resp.StatusCode, errs.ErrIOFailure)}
	}
	if resp.StatusCode != http.StatusOK {
		return Scores{}, fmt.Errorf("inference rejected with status %d: %w", resp.StatusCode, errs.ErrInvalidArgument)
	}

	var result struct {
		Scores []float64 `json:"scores"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Scores{}, fmt.Errorf("decode response: %v: %w", err, errs.ErrIOFailure)
	}
	if len(result.Scores) != len(labels) {
		return Scores{}, fmt.Errorf("expected %d scores, got %d: %w", len(labels), len(result.Scores), errs.ErrShapeMismatch)
	}
	return Scores{Fake: result.Scores[Fake], Real: result.Scores[Real]}, nil
}

// Health reports whether the inference service answers on /health.
func (r *Remote) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("classifier service unreachable: %v: %w", err, errs.ErrIOFailure)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("classifier service unhealthy: %d: %w", resp.StatusCode, errs.ErrIOFailure)
	}
	return nil
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }
