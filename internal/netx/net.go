// Package netx is a minimal client for presigned read and write URLs.
package netx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
)

// Upload is the receipt returned by a presigned write URL.
type Upload struct {
	ID           string `json:"id"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
}

// StatusError is returned when the server answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("request failed: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("request failed: %d %s", e.StatusCode, e.Code)
}

func statusError(resp *http.Response) error {
	e := &StatusError{StatusCode: resp.StatusCode}
	b, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(b, e); err != nil {
		e.Code = string(b)
	}
	return e
}

// UploadToPresignedURL posts data as the multipart "file" field of a write URL.
func UploadToPresignedURL(ctx context.Context, client *http.Client, url, name string, data []byte, idempotencyKey string) (*Upload, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var u Upload
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("decode upload receipt: %w", err)
	}
	return &u, nil
}

// DownloadFromPresignedURL fetches the file behind a read URL and returns
// its content together with the attachment file name.
func DownloadFromPresignedURL(ctx context.Context, client *http.Client, url, idempotencyKey string) (data []byte, name string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", statusError(resp)
	}

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		name = params["filename"]
	}
	return data, name, nil
}
