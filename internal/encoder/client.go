package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const defaultURL = "http://localhost:8000"

// maxResponseBytes bounds how much of an encoder reply is read.
const maxResponseBytes = 8 << 20

// Client computes face embeddings using the embedding server's /embed/face endpoint.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewClient(baseURL, model string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  httpClient,
	}
}

type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"`
	DetScore  float64   `json:"det_score"`
}

type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// Encode uploads the image and returns the embedding of the first detected face.
func (c *Client) Encode(ctx context.Context, path string) (Detection, error) {
	const op = "encoder.Client.Encode"

	imageData, err := os.ReadFile(path)
	if err != nil {
		return Detection{}, fmt.Errorf("%s: failed to read image: %w", op, err)
	}

	body, err := c.postImage(ctx, "/embed/face", filepath.Base(path), imageData)
	if err != nil {
		return Detection{}, fmt.Errorf("%s: %w", op, err)
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return Detection{}, fmt.Errorf("%s: failed to parse response: %w", op, err)
	}

	if faceResp.FacesCount == 0 || len(faceResp.Faces) == 0 {
		return NotDetected(), nil
	}

	first := faceResp.Faces[0]
	for _, f := range faceResp.Faces[1:] {
		if f.FaceIndex < first.FaceIndex {
			first = f
		}
	}

	if len(first.Embedding) == 0 {
		return Detection{}, fmt.Errorf("%s: %w", op, errors.New("empty embedding returned"))
	}

	return Detected(first.Embedding), nil
}

func (c *Client) postImage(ctx context.Context, endpoint, filename string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if c.model != "" {
		if err := writer.WriteField("model", c.model); err != nil {
			return nil, fmt.Errorf("failed to write model field: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}
