package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/pkg/errors"

	"workagent/internal/models"
)

const (
	ActivityPath   = "/log-activity"
	ScreenshotPath = "/upload-screenshot"

	// ValidationAppName is the app_name of the startup key check.
	ValidationAppName = "Agent Started"

	ActivityTimeout   = 10 * time.Second
	ScreenshotTimeout = 30 * time.Second

	apiKeyHeader    = "x-api-key"
	screenshotField = "screenshot"
	screenshotName  = "screenshot.jpg"
	screenshotType  = "image/jpeg"
	maxErrorBody    = 512
)

// ErrUnauthorized matches any 401 answer from the collection endpoint.
var ErrUnauthorized = errors.New("invalid API key")

// StatusError is returned when the endpoint answers with anything but 200.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s returned status %d: %s", e.Endpoint, e.Code, e.Body)
	}
	return fmt.Sprintf("%s returned status %d", e.Endpoint, e.Code)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.Code == http.StatusUnauthorized
}

// StatusCode extracts the HTTP status from err, 200 for nil and 0 when no
// response was received.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// Client submits activity records and screenshots to the collection API.
type Client struct {
	baseURL           string
	apiKey            string
	httpClient        *http.Client
	activityTimeout   time.Duration
	screenshotTimeout time.Duration
	userAgent         string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTimeouts(activity, screenshot time.Duration) Option {
	return func(c *Client) {
		c.activityTimeout = activity
		c.screenshotTimeout = screenshot
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:           strings.TrimRight(baseURL, "/"),
		apiKey:            apiKey,
		httpClient:        &http.Client{},
		activityTimeout:   ActivityTimeout,
		screenshotTimeout: ScreenshotTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendActivity posts one activity record.
func (c *Client) SendActivity(ctx context.Context, rec models.ActivityRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "failed to encode activity record")
	}

	ctx, cancel := context.WithTimeout(ctx, c.activityTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, ActivityPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, ActivityPath)
}

// UploadScreenshot posts one JPEG as multipart form data.
func (c *Client) UploadScreenshot(ctx context.Context, shot *models.ScreenshotBlob) error {
	if shot == nil || len(shot.Data) == 0 {
		return errors.New("empty screenshot")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, screenshotField, screenshotName))
	h.Set("Content-Type", screenshotType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return errors.Wrap(err, "failed to create multipart part")
	}
	if _, err := part.Write(shot.Data); err != nil {
		return errors.Wrap(err, "failed to write screenshot part")
	}
	if err := mw.Close(); err != nil {
		return errors.Wrap(err, "failed to finish multipart body")
	}

	ctx, cancel := context.WithTimeout(ctx, c.screenshotTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, ScreenshotPath, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.do(req, ScreenshotPath)
}

// Validate checks the API key by sending a zero-length "Agent Started"
// activity record. A 401 yields an error matching ErrUnauthorized.
func (c *Client) Validate(ctx context.Context) error {
	return c.SendActivity(ctx, models.ActivityRecord{
		AppName:         ValidationAppName,
		Status:          models.StatusWorking,
		DurationSeconds: 0,
	})
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) newRequest(ctx context.Context, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build request for %s", path)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, endpoint string) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "request to %s failed", endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_, _ = io.Copy(io.Discard, resp.Body)

	return &StatusError{
		Endpoint: endpoint,
		Code:     resp.StatusCode,
		Body:     strings.TrimSpace(string(snippet)),
	}
}
