package possync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mmdatafocus/pitix_pos/utils"
)

// RemoteStore is the adapter to the authoritative cloud store. The sync
// driver and the startup reconciler are its only consumers.
type RemoteStore interface {
	Upsert(ctx context.Context, table string, id string, record []byte) error
	Delete(ctx context.Context, table string, id string) error
	SelectAll(ctx context.Context, table string) ([]json.RawMessage, error)
	Ping(ctx context.Context) error
}

// RemoteError carries the remote response so schema drift ("missing column"
// class failures) can be logged with enough detail to diagnose, even though
// it is retried like any other failure.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote store error %d: %s", e.StatusCode, e.Body)
}

func (e *RemoteError) SchemaMismatch() bool {
	body := strings.ToLower(e.Body)
	return e.StatusCode == http.StatusBadRequest && strings.Contains(body, "column")
}

type httpRemote struct {
	baseURL   string
	apiKey    string
	apiKeyHdr string
	http      *http.Client
}

// NewHTTPRemote builds the REST client for the cloud store. Base URL and
// credentials come from the environment:
//
//	POS_REMOTE_BASE_URL    (default https://api.pitix.com)
//	POS_REMOTE_API_KEY
//	POS_REMOTE_API_KEY_HEADER (default X-API-Key)
//	POS_REMOTE_TIMEOUT_SECONDS (default 30)
func NewHTTPRemote() (RemoteStore, error) {
	baseURL := strings.TrimSpace(os.Getenv("POS_REMOTE_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.pitix.com"
	}
	apiKey := strings.TrimSpace(os.Getenv("POS_REMOTE_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("POS_REMOTE_API_KEY is empty")
	}
	apiKeyHeader := strings.TrimSpace(os.Getenv("POS_REMOTE_API_KEY_HEADER"))
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}

	return &httpRemote{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiKeyHdr: apiKeyHeader,
		http:      &http.Client{Timeout: utils.DurationFromEnvSeconds("POS_REMOTE_TIMEOUT_SECONDS", 30*time.Second)},
	}, nil
}

type remoteListResponse struct {
	Data  []json.RawMessage `json:"data"`
	Items []json.RawMessage `json:"items"`
}

func (c *httpRemote) Upsert(ctx context.Context, table string, id string, record []byte) error {
	endpoint := fmt.Sprintf("%s/v1/%s/%s", c.baseURL, table, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(record))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = c.do(req)
	return err
}

func (c *httpRemote) Delete(ctx context.Context, table string, id string) error {
	endpoint := fmt.Sprintf("%s/v1/%s/%s", c.baseURL, table, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	if _, err = c.do(req); err != nil {
		// Deleting an already-absent record is a success for our purposes.
		var rerr *RemoteError
		if errors.As(err, &rerr) && rerr.StatusCode == http.StatusNotFound {
			return nil
		}
		return err
	}
	return nil
}

func (c *httpRemote) SelectAll(ctx context.Context, table string) ([]json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/v1/%s", c.baseURL, table)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var parsed remoteListResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", table, err)
	}
	records := parsed.Data
	if len(records) == 0 {
		records = parsed.Items
	}
	return records, nil
}

func (c *httpRemote) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

func (c *httpRemote) do(req *http.Request) ([]byte, error) {
	req.Header.Set(c.apiKeyHdr, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RemoteError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
