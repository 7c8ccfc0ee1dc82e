package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"arenacli/internal/apierror"
	"arenacli/internal/httpclient"
)

// MaxAvatarSize is the largest accepted avatar image.
const MaxAvatarSize int64 = 5 << 20

// ProfileService reads and edits user profiles.
type ProfileService struct {
	base
}

// Get returns the public profile of a user.
func (s *ProfileService) Get(ctx context.Context, userID string) (*User, error) {
	u, err := httpclient.Do[User](ctx, s.client, "/users/"+url.PathEscape(userID), httpclient.RequestOptions{Retry: s.retry})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Update replaces the editable fields of the current user's profile.
func (s *ProfileService) Update(ctx context.Context, update ProfileUpdate) (*User, error) {
	u, err := httpclient.Do[User](ctx, s.client, "/users/me", httpclient.RequestOptions{
		Method: http.MethodPut,
		Body:   update,
		Retry:  s.retry,
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UploadAvatar replaces the current user's avatar. Only images are accepted.
func (s *ProfileService) UploadAvatar(ctx context.Context, fileName string, content []byte) (*User, error) {
	if int64(len(content)) > MaxAvatarSize {
		return nil, apierror.New(apierror.FileTooLarge, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("%s is %d bytes, the avatar limit is %d", fileName, len(content), MaxAvatarSize), nil)
	}
	contentType := DetectContentType(fileName, content)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apierror.New(apierror.InvalidFileType, http.StatusUnsupportedMediaType,
			fmt.Sprintf("%s has unsupported type %s", fileName, contentType), nil)
	}

	form := httpclient.NewMultipartForm().AddFile(httpclient.FilePart{
		FieldName:   "avatar",
		FileName:    filepath.Base(fileName),
		ContentType: contentType,
		Content:     bytes.NewReader(content),
	})
	u, err := httpclient.Do[User](ctx, s.client, "/users/me/avatar", httpclient.RequestOptions{
		Method: http.MethodPost,
		Form:   form,
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}
