package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/YuminosukeSato/heartml/internal/predict"
	"github.com/YuminosukeSato/heartml/pkg/errors"
)

// Client calls the prediction API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a client for the API at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 3 * time.Minute},
	}
}

// APIError is a non-200 response.
type APIError struct {
	Status int
	Msg    string            `json:"error"`
	Fields map[string]string `json:"fields"`
	Detail string            `json:"detail"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s", e.Status, e.Msg)
	if e.Detail != "" {
		b.WriteString(": " + e.Detail)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n  %s: %s", k, e.Fields[k])
	}
	return b.String()
}

// Predict posts one record, given as field name to JSON value.
func (c *Client) Predict(ctx context.Context, record map[string]interface{}) (*predict.Prediction, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return nil, errors.Wrap(err, "encode record")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "call prediction API")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Msg = http.StatusText(resp.StatusCode)
		}
		return nil, apiErr
	}
	var p predict.Prediction
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, errors.Wrap(err, "decode prediction")
	}
	return &p, nil
}
