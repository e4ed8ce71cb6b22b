package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

var client = &http.Client{Timeout: 10 * time.Second}

// PostRequest sends a JSON body and returns the response status and body.
// Non-2xx responses are returned as errors alongside the body.
func PostRequest(ctx context.Context, url string, token string, reqBody []byte) (status string, resBody []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", nil, err
	}

	// set headers
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := client.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer res.Body.Close()

	resBody, err = io.ReadAll(res.Body)
	if err != nil {
		return res.Status, nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return res.Status, resBody, fmt.Errorf("unexpected status: %s", res.Status)
	}
	return res.Status, resBody, nil
}
