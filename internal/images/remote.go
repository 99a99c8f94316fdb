package images

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RemoteStore talks to a Supabase-style storage bucket. Reads go through the
// public object URL unless a service key is set.
type RemoteStore struct {
	BaseURL    string
	Bucket     string
	ServiceKey string
	HTTP       *http.Client
}

func NewRemoteStore(baseURL, bucket, serviceKey string) *RemoteStore {
	return &RemoteStore{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Bucket:     bucket,
		ServiceKey: serviceKey,
		HTTP:       &http.Client{Timeout: 25 * time.Second},
	}
}

// PublicURL is the unauthenticated object URL for path.
func (s *RemoteStore) PublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.BaseURL, s.Bucket, strings.TrimLeft(path, "/"))
}

func (s *RemoteStore) objectURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", s.BaseURL, s.Bucket, path)
}

func (s *RemoteStore) Put(ctx context.Context, data []byte) (string, error) {
	if s.ServiceKey == "" {
		return "", fmt.Errorf("uploading to %s needs a service key", s.Bucket)
	}
	mimeType, ext, err := Sniff(data)
	if err != nil {
		return "", err
	}
	rel := newPath(ext)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectURL(rel), bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	s.authorize(req)
	req.Header.Set("Content-Type", mimeType)

	if _, err := s.do(req); err != nil {
		return "", fmt.Errorf("failed to upload card image: %w", err)
	}
	return rel, nil
}

func (s *RemoteStore) Fetch(ctx context.Context, path string) ([]byte, error) {
	rel, err := cleanPath(path)
	if err != nil {
		return nil, err
	}

	target := s.PublicURL(rel)
	if s.ServiceKey != "" {
		target = s.objectURL(rel)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if s.ServiceKey != "" {
		s.authorize(req)
	}

	data, err := s.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch card image: %w", err)
	}
	return data, nil
}

func (s *RemoteStore) authorize(req *http.Request) {
	req.Header.Set("apikey", s.ServiceKey)
	req.Header.Set("Authorization", "Bearer "+s.ServiceKey)
}

func (s *RemoteStore) do(req *http.Request) ([]byte, error) {
	resp, err := s.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("storage returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
