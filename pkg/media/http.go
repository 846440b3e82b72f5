package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPService implements Service against the media engine's control API.
type HTTPService struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// HTTPServiceConfig configures the control-API client.
type HTTPServiceConfig struct {
	URL              string
	APIKey           string
	OperationTimeout time.Duration
}

// NewHTTPService builds a client for the engine at cfg.URL.
func NewHTTPService(cfg HTTPServiceConfig) (*HTTPService, error) {
	if cfg.URL == "" {
		return nil, errors.New("media engine url is required")
	}
	timeout := cfg.OperationTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPService{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// IsRoomEmpty reports whether the room has zero participants. An unknown
// room counts as empty.
func (s *HTTPService) IsRoomEmpty(ctx context.Context, roomID string) (bool, error) {
	var out struct {
		Participants []struct {
			Identity string `json:"identity"`
		} `json:"participants"`
	}
	status, err := s.do(ctx, http.MethodGet, "/rooms/"+roomID+"/participants", nil, &out)
	if err != nil {
		return false, err
	}
	if status == http.StatusNotFound {
		return true, nil
	}
	return len(out.Participants) == 0, nil
}

// DeleteRoom tears the room down. Deleting an unknown room is a no-op.
func (s *HTTPService) DeleteRoom(ctx context.Context, roomID string) error {
	_, err := s.do(ctx, http.MethodDelete, "/rooms/"+roomID, nil, nil)
	return err
}

// StartRecording begins a room recording and returns the engine's egress id.
func (s *HTTPService) StartRecording(ctx context.Context, roomID string) (string, error) {
	body := map[string]string{"roomId": roomID}
	var out struct {
		EgressID string `json:"egressId"`
	}
	status, err := s.do(ctx, http.MethodPost, "/recordings", body, &out)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		return "", fmt.Errorf("media engine: room %s not found", roomID)
	}
	if out.EgressID == "" {
		return "", errors.New("media engine returned no egress id")
	}
	return out.EgressID, nil
}

// StopRecording ends an in-progress egress.
func (s *HTTPService) StopRecording(ctx context.Context, egressID string) error {
	status, err := s.do(ctx, http.MethodDelete, "/recordings/"+egressID, nil, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("media engine: egress %s not found", egressID)
	}
	return nil
}

// do performs one control-API round trip. 404 is returned to the caller as
// a status, every other non-2xx is an error.
func (s *HTTPService) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("media engine request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("media engine %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode media engine response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
