package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"slices"
	"strings"

	"arenacli/internal/apierror"
	"arenacli/internal/httpclient"
	"arenacli/pkg/logging"
)

// MaxUploadSize is the largest file the backend accepts.
const MaxUploadSize int64 = 50 << 20

// AllowedMediaTypes lists the content types accepted for upload.
var AllowedMediaTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"video/mp4",
	"video/webm",
}

// MediaService uploads and manages user media.
type MediaService struct {
	base
}

// Upload sends r as a multipart upload. size is the declared length of r;
// type and size are checked locally before anything is sent.
func (s *MediaService) Upload(ctx context.Context, fileName string, r io.Reader, size int64, caption string) (*Media, error) {
	if size > MaxUploadSize {
		return nil, apierror.New(apierror.FileTooLarge, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("%s is %d bytes, the limit is %d", fileName, size, MaxUploadSize), nil)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read %s: %w", fileName, err)
	}
	head = head[:n]

	contentType := DetectContentType(fileName, head)
	if !slices.Contains(AllowedMediaTypes, contentType) {
		return nil, apierror.New(apierror.InvalidFileType, http.StatusUnsupportedMediaType,
			fmt.Sprintf("%s has unsupported type %s", fileName, contentType), nil)
	}

	// bound the stream so a lying size cannot push past the limit
	content := io.LimitReader(io.MultiReader(bytes.NewReader(head), r), MaxUploadSize+1)

	form := httpclient.NewMultipartForm().
		AddFile(httpclient.FilePart{
			FieldName:   "file",
			FileName:    filepath.Base(fileName),
			ContentType: contentType,
			Content:     content,
		})
	if caption != "" {
		form.AddField("caption", caption)
	}

	logging.Debug("MediaService", "Uploading %s (%s, %d bytes)", fileName, contentType, size)
	m, err := httpclient.Do[Media](ctx, s.client, "/media/upload", httpclient.RequestOptions{
		Method: http.MethodPost,
		Form:   form,
		Retry:  s.retry,
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns the current user's media.
func (s *MediaService) List(ctx context.Context, opts ListOptions) (*Page[Media], error) {
	page, err := httpclient.Do[Page[Media]](ctx, s.client, "/media", httpclient.RequestOptions{
		Query: opts.query(),
		Retry: s.retry,
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// Delete removes an uploaded file.
func (s *MediaService) Delete(ctx context.Context, id string) error {
	_, err := s.client.Request(ctx, "/media/"+url.PathEscape(id), httpclient.RequestOptions{
		Method: http.MethodDelete,
		Retry:  s.retry,
	})
	return err
}

// DetectContentType prefers the extension and falls back to sniffing.
func DetectContentType(fileName string, head []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName))); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(head))
	return mt
}
