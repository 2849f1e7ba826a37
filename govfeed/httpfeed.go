package govfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	logger "github.com/sirupsen/logrus"
)

const (
	routeActions  = "/actions/"
	routePayloads = "/payloads/"
)

// HTTPFeed resolves actions against a governance registry endpoint and a
// content-addressed payload store behind the same gateway.
type HTTPFeed struct {
	baseURL string
	client  *http.Client
}

func NewHTTPFeed(baseURL string) *HTTPFeed {
	return &HTTPFeed{
		baseURL: baseURL,
		client:  http.DefaultClient,
	}
}

func (f *HTTPFeed) ResolveAction(ctx context.Context, key string) (*Action, bool, error) {
	var meta ActionMeta
	if err := f.getJSON(ctx, f.baseURL+routeActions+key, &meta); err != nil {
		return nil, false, err
	}

	if meta.Status != ActionStatusFailed {
		return &Action{Key: key}, true, nil
	}

	if meta.ContentHash == "" {
		logger.WithField("key", key).Warn("failed governance action without content hash, dropping")
		return nil, false, nil
	}

	var payload Payload
	if err := f.getJSON(ctx, f.baseURL+routePayloads+meta.ContentHash, &payload); err != nil {
		return nil, false, err
	}

	if payload.RequestID == nil {
		logger.WithFields(logger.Fields{
			"key":  key,
			"hash": meta.ContentHash,
		}).Warn("governance payload without request id, dropping")
		return nil, false, nil
	}

	return &Action{
		Key:       key,
		Failed:    true,
		RequestID: *payload.RequestID,
	}, true, nil
}

func (f *HTTPFeed) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	return json.Unmarshal(body, out)
}
