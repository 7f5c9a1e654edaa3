package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/proctoring"
)

const (
	pathHealth   = "/health"
	pathFaces    = "/v1/faces"
	pathFaceMesh = "/v1/face-mesh"
	pathObjects  = "/v1/objects"

	jpegQuality = 85
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the vision sidecar that hosts the face detector, face mesh
// and object detector. It implements the three proctoring model interfaces.
type Client struct {
	baseURL string
	http    *http.Client
}

type HealthResponse struct {
	Status string `json:"status"`
	Models struct {
		FaceDetection   bool `json:"face_detection"`
		FaceMesh        bool `json:"face_mesh"`
		ObjectDetection bool `json:"object_detection"`
	} `json:"models"`
}

type facesResponse struct {
	Faces []proctoring.FaceBox `json:"faces"`
}

type meshResponse struct {
	Faces [][]proctoring.Landmark `json:"faces"`
}

type objectsResponse struct {
	Objects []proctoring.ObjectBox `json:"objects"`
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Load checks the sidecar and returns a handle with one member per model it
// reports as loaded. It fails when the sidecar is unreachable or has none.
func Load(ctx context.Context, cfg Config, logger *slog.Logger) (*proctoring.Models, error) {
	client := NewClient(cfg)

	health, err := client.Health(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", proctoring.ErrModelsNotLoaded, err)
	}

	models := &proctoring.Models{}
	if health.Models.FaceDetection {
		models.Faces = client
	}
	if health.Models.FaceMesh {
		models.Mesh = client
	}
	if health.Models.ObjectDetection {
		models.Objects = client
	}

	logger.Info("Detection models loaded",
		"inference_url", client.baseURL,
		"face_detection", health.Models.FaceDetection,
		"face_mesh", health.Models.FaceMesh,
		"object_detection", health.Models.ObjectDetection)

	if models.Faces == nil && models.Mesh == nil && models.Objects == nil {
		return nil, fmt.Errorf("%w: sidecar reports no models", proctoring.ErrModelsNotLoaded)
	}
	return models, nil
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathHealth, nil)
	if err != nil {
		return nil, err
	}
	var health HealthResponse
	if err := c.do(req, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

func (c *Client) DetectFaces(ctx context.Context, frame *proctoring.Frame) ([]proctoring.FaceBox, error) {
	var resp facesResponse
	if err := c.postFrame(ctx, pathFaces, frame, &resp); err != nil {
		return nil, err
	}
	return resp.Faces, nil
}

func (c *Client) Landmarks(ctx context.Context, frame *proctoring.Frame) ([][]proctoring.Landmark, error) {
	var resp meshResponse
	if err := c.postFrame(ctx, pathFaceMesh, frame, &resp); err != nil {
		return nil, err
	}
	return resp.Faces, nil
}

func (c *Client) DetectObjects(ctx context.Context, frame *proctoring.Frame) ([]proctoring.ObjectBox, error) {
	var resp objectsResponse
	if err := c.postFrame(ctx, pathObjects, frame, &resp); err != nil {
		return nil, err
	}
	return resp.Objects, nil
}

func (c *Client) postFrame(ctx context.Context, path string, frame *proctoring.Frame, out interface{}) error {
	var body bytes.Buffer
	if err := jpeg.Encode(&body, frame.Image(), &jpeg.Options{Quality: jpegQuality}); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "image/jpeg")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("inference request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("inference %s returned %d: %s", req.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode inference response %s: %w", req.URL.Path, err)
	}
	return nil
}
