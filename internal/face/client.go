// Package face es el cliente HTTP del servicio externo de reconocimiento
// facial. El servicio es opaco: recibe una imagen por multipart y responde
// JSON. Toda falla de transporte o respuesta no decodificable se reporta
// como ErrUnavailable; un "no reconocido" es un resultado normal.
package face

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/dropDatabas3/izzu/internal/observability/logger"
	"github.com/dropDatabas3/izzu/internal/observability/metrics"
)

var (
	ErrUnavailable  = errors.New("face: service unavailable")
	ErrInvalidImage = errors.New("face: image is required")
)

const (
	DefaultTimeout = 15 * time.Second
	// límite de lectura de la respuesta
	maxResponseBytes = 1 << 20
)

// Image es el archivo subido por el cliente del SDK.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// RegisterResult: Success=false con Error es un rechazo del servicio (sin rostro, etc).
type RegisterResult struct {
	Success  bool      `json:"success"`
	Encoding []float32 `json:"encoding,omitempty"`
	PhotoURL string    `json:"photo_url,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// IdentifyResult de una búsqueda 1:N.
type IdentifyResult struct {
	Identified bool    `json:"identified"`
	UserID     string  `json:"user_id,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	PhotoURL   string  `json:"photo_url,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// VerifyResult de una comparación 1:1 contra un usuario registrado.
type VerifyResult struct {
	Verified   bool    `json:"verified"`
	Confidence float64 `json:"confidence,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// LivenessResult del chequeo de vida.
type LivenessResult struct {
	Passed bool   `json:"passed"`
	IsLive bool   `json:"is_live"`
	Error  string `json:"error,omitempty"`
}

type Client interface {
	Register(ctx context.Context, img Image, endUserID string) (*RegisterResult, error)
	Identify(ctx context.Context, img Image, projectID string) (*IdentifyResult, error)
	Verify(ctx context.Context, img Image, endUserID string) (*VerifyResult, error)
	Liveness(ctx context.Context, img Image) (*LivenessResult, error)
	Ping(ctx context.Context) error
}

type httpClient struct {
	baseURL string
	hc      *http.Client
}

// NewClient; timeout <= 0 usa DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
	}
}

func (c *httpClient) Register(ctx context.Context, img Image, endUserID string) (*RegisterResult, error) {
	var out RegisterResult
	if err := c.post(ctx, "/register", img, map[string]string{"user_id": endUserID}, &out); err != nil {
		metrics.Face("register", "unavailable")
		return nil, err
	}
	metrics.Face("register", resultLabel(out.Success))
	return &out, nil
}

func (c *httpClient) Identify(ctx context.Context, img Image, projectID string) (*IdentifyResult, error) {
	var out IdentifyResult
	if err := c.post(ctx, "/identify", img, map[string]string{"project_id": projectID}, &out); err != nil {
		metrics.Face("identify", "unavailable")
		return nil, err
	}
	metrics.Face("identify", resultLabel(out.Identified))
	return &out, nil
}

func (c *httpClient) Verify(ctx context.Context, img Image, endUserID string) (*VerifyResult, error) {
	var out VerifyResult
	if err := c.post(ctx, "/verify", img, map[string]string{"user_id": endUserID}, &out); err != nil {
		metrics.Face("verify", "unavailable")
		return nil, err
	}
	metrics.Face("verify", resultLabel(out.Verified))
	return &out, nil
}

func (c *httpClient) Liveness(ctx context.Context, img Image) (*LivenessResult, error) {
	var out LivenessResult
	if err := c.post(ctx, "/liveness-check", img, nil, &out); err != nil {
		metrics.Face("liveness", "unavailable")
		return nil, err
	}
	metrics.Face("liveness", resultLabel(out.Passed))
	return &out, nil
}

// Ping llama al health check (GET /).
func (c *httpClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *httpClient) post(ctx context.Context, path string, img Image, fields map[string]string, out any) error {
	log := logger.From(ctx).With(logger.Component("face"), logger.Op("face.post"), logger.Path(path))

	if len(img.Data) == 0 {
		return ErrInvalidImage
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("face: write field: %w", err)
		}
	}
	filename := img.Filename
	if filename == "" {
		filename = "capture.jpg"
	}
	ct := img.ContentType
	if ct == "" {
		ct = "image/jpeg"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", ct)
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("face: create part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return fmt.Errorf("face: write image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("face: close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return fmt.Errorf("face: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		log.Warn("face service request failed", logger.Err(err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	log.Debug("face service responded", logger.Status(resp.StatusCode), logger.Duration(time.Since(start)))

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return nil
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "rejected"
}
