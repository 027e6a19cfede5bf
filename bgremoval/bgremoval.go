// Package bgremoval is a simple HTTP client for the image
// background-removal service.
//
// Removal failures are expected to be non-fatal: callers keep the original
// image when Remove returns an error.
package bgremoval

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Client provides functions for interacting with the background-removal
// API.
type Client struct {
	Client *http.Client
	Host   string

	apiKey string
}

// New creates a new Client.
func New(client *http.Client, host, apiKey string) *Client {
	return &Client{
		Client: client,
		Host:   host,
		apiKey: apiKey,
	}
}

// Remove posts the image to the removal service and returns the processed
// image bytes (a PNG with transparent background).
func (c *Client) Remove(ctx context.Context, image []byte) ([]byte, error) {
	tracer := otel.Tracer("flowerpress/bgremoval")
	var span trace.Span
	ctx, span = tracer.Start(ctx, "Client.Remove")
	defer span.End()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("image_file", "image")
	if err != nil {
		return nil, fmt.Errorf("while building multipart body: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("while writing image to multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("while finalizing multipart body: %w", err)
	}

	u := &url.URL{
		Scheme: "https",
		Host:   c.Host,
		Path:   "/v1.0/removebg",
	}

	req, err := http.NewRequestWithContext(ctx, "POST", u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("while making request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		err = fmt.Errorf("while calling background-removal service: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("bad status code %d from background-removal service", resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	processed, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("while reading processed image: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return processed, nil
}
