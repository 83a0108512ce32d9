package httpapi

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/vaultify/internal/common"
)

// Request parameters of the presign endpoints.
const (
	queryToken     = "token"
	queryFolderID  = "folderId"
	headerFileName = "X-File-Name"
	formFileField  = "file"
)

func idempotencyKey(r *http.Request) string {
	return r.Header.Get(common.IdempotencyKeyHeaderName)
}

// handlePresignRead streams the file behind a read token as an attachment.
func (s *HTTPServer) handlePresignRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	res, err := s.presign.ConsumeRead(ctx, r.URL.Query().Get(queryToken), idempotencyKey(r))
	if err != nil {
		s.errorResponse(ctx, w, err)
		return
	}

	contentType := res.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.OriginalName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

// handlePresignWrite stores the request payload through a write token. The
// payload is either a multipart form with a "file" part or the raw body
// named by X-File-Name.
func (s *HTTPServer) handlePresignWrite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	// Reject dead tokens and answer replays before reading the payload.
	cached, err := s.presign.CheckWrite(ctx, q.Get(queryToken), q.Get(queryFolderID), idempotencyKey(r))
	if err != nil {
		s.errorResponse(ctx, w, err)
		return
	}
	if cached != nil {
		s.jsonResponse(w, http.StatusOK, cached)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	name, contentType, data, err := readUpload(r)
	if err != nil {
		s.errorResponse(ctx, w, err)
		return
	}

	res, err := s.presign.ConsumeWrite(ctx, q.Get(queryToken), q.Get(queryFolderID), name, contentType, data, idempotencyKey(r))
	if err != nil {
		s.errorResponse(ctx, w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, res)
}

func readUpload(r *http.Request) (name, contentType string, data []byte, err error) {
	contentType = r.Header.Get("Content-Type")
	if mediaType, _, _ := mime.ParseMediaType(contentType); mediaType != "multipart/form-data" {
		data, err = io.ReadAll(r.Body)
		if err != nil {
			return "", "", nil, err
		}
		return r.Header.Get(headerFileName), contentType, data, nil
	}

	file, header, err := r.FormFile(formFileField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", "", nil, err
		}
		return "", "", nil, common.Errorf(common.ErrorInvalidArgument, "multipart field %q is required", formFileField)
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	data, err = io.ReadAll(file)
	if err != nil {
		return "", "", nil, err
	}

	name = header.Filename
	if n := r.Header.Get(headerFileName); n != "" {
		name = n
	}
	return name, header.Header.Get("Content-Type"), data, nil
}
