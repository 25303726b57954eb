package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

const (
	MaxImageSize       = 5 * 1024 * 1024 // 5MB
	cloudinaryFolder   = "faculty-images"
	localPublicIDStart = "local/"
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// UploadedImage is where a stored faculty image can be fetched and removed.
type UploadedImage struct {
	URL      string `json:"imageUrl"`
	PublicID string `json:"imagePublicId"`
	// Ticket is presented when submitting a faculty record that uses the image.
	Ticket   string `json:"imageTicket,omitempty"`
}

// ImageStorage persists image bytes.
type ImageStorage interface {
	Put(ctx context.Context, name, ext string, data []byte) (*UploadedImage, error)
	Delete(ctx context.Context, publicID string) error
}

type ImageService struct {
	storage ImageStorage
	tickets *TokenIssuer
}

func NewImageService(storage ImageStorage, tickets *TokenIssuer) *ImageService {
	return &ImageService{storage: storage, tickets: tickets}
}

// Upload validates size and content type before storing the image, and returns
// a ticket that only userID can redeem.
func (s *ImageService) Upload(ctx context.Context, userID, filename string, data []byte) (*UploadedImage, error) {
	if len(data) > MaxImageSize {
		return nil, ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, ErrUnsupportedImage
	}
	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, ErrUnsupportedImage
	}

	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	name := sanitizeFileBase(base) + "-" + uuid.NewString()[:8]
	img, err := s.storage.Put(ctx, name, ext, data)
	if err != nil {
		return nil, err
	}
	if s.tickets != nil && userID != "" {
		ticket, err := s.tickets.IssueImageTicket(userID, img)
		if err != nil {
			return nil, fmt.Errorf("sign image ticket: %w", err)
		}
		img.Ticket = ticket
	}
	return img, nil
}

// Claim resolves a ticket from Upload. It fails unless userID uploaded the image.
func (s *ImageService) Claim(userID, ticket string) (*UploadedImage, error) {
	if s == nil || s.tickets == nil {
		return nil, ErrInvalidImageTicket
	}
	return s.tickets.ParseImageTicket(ticket, userID)
}

func (s *ImageService) Destroy(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	return s.storage.Delete(ctx, publicID)
}

func sanitizeFileBase(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			if !strings.HasSuffix(b.String(), "-") {
				b.WriteRune('-')
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		out = "faculty"
	}
	if len(out) > 40 {
		out = out[:40]
	}
	return out
}

// CloudinaryStorage keeps images in a Cloudinary folder.
type CloudinaryStorage struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryStorage reads credentials from a cloudinary:// URL.
func NewCloudinaryStorage(cloudinaryURL string) (*CloudinaryStorage, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return &CloudinaryStorage{cld: cld}, nil
}

func boolPtr(b bool) *bool {
	return &b
}

func (c *CloudinaryStorage) Put(ctx context.Context, name, _ string, data []byte) (*UploadedImage, error) {
	res, err := c.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:       cloudinaryFolder,
		PublicID:     name,
		ResourceType: "image",
		Overwrite:    boolPtr(false),
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload failed: %w", err)
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload failed: %s", res.Error.Message)
	}
	return &UploadedImage{URL: res.SecureURL, PublicID: res.PublicID}, nil
}

func (c *CloudinaryStorage) Delete(ctx context.Context, publicID string) error {
	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return err
	}
	if res.Error.Message != "" {
		return errors.New(res.Error.Message)
	}
	return nil
}

// LocalStorage writes images under dir and serves them from publicBase.
type LocalStorage struct {
	dir        string
	publicBase string
}

func NewLocalStorage(dir, publicBase string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStorage{dir: dir, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

func (l *LocalStorage) Put(ctx context.Context, name, ext string, data []byte) (*UploadedImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file := name + ext
	if err := os.WriteFile(filepath.Join(l.dir, file), data, 0o644); err != nil {
		return nil, err
	}
	return &UploadedImage{
		URL:      l.publicBase + "/" + file,
		PublicID: localPublicIDStart + file,
	}, nil
}

func (l *LocalStorage) Delete(ctx context.Context, publicID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	file := strings.TrimPrefix(publicID, localPublicIDStart)
	if file == publicID || file != filepath.Base(file) {
		return fmt.Errorf("invalid local image id %q", publicID)
	}
	err := os.Remove(filepath.Join(l.dir, file))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
