// Package imagestore keeps product images and their thumbnails on local
// disk, below a media root served as static files.
package imagestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const (
	imageDir     = "product-images"
	thumbnailDir = "product-thumbnails"

	MaxImageSize = 10 << 20
)

var (
	ErrNotAnImage    = errors.New("not a supported image")
	ErrImageTooLarge = errors.New("image too large")
)

var _ port.ImageStore = (*DiskStore)(nil)

type DiskStore struct {
	root  string
	newID func() string
}

func NewDiskStore(root string) *DiskStore {
	return &DiskStore{root: root, newID: uuid.NewString}
}

// Root is the directory the returned paths are relative to.
func (s *DiskStore) Root() string {
	return s.root
}

// Save keeps the original bytes under product-images and a JPEG thumbnail
// that fits in domain.ThumbnailSize under product-thumbnails.
func (s *DiskStore) Save(ctx context.Context, name string, r io.Reader) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	if _, err := imaging.FormatFromFilename(name); err != nil {
		return "", "", fmt.Errorf("%w: %s", ErrNotAnImage, name)
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) > MaxImageSize {
		return "", "", fmt.Errorf("%w: %s", ErrImageTooLarge, name)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %v", ErrNotAnImage, name, err)
	}

	id := s.newID()
	imagePath := path.Join(imageDir, id+strings.ToLower(filepath.Ext(name)))
	thumbnailPath := path.Join(thumbnailDir, id+".thumb.jpg")

	if err := s.mkdirs(); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(s.abs(imagePath), data, 0o644); err != nil {
		return "", "", fmt.Errorf("write image: %w", err)
	}

	log.Printf("imagestore: generating thumbnail for %s", imagePath)
	thumb := imaging.Fit(img, domain.ThumbnailSize, domain.ThumbnailSize, imaging.Lanczos)
	if err := imaging.Save(thumb, s.abs(thumbnailPath), imaging.JPEGQuality(85)); err != nil {
		os.Remove(s.abs(imagePath))
		return "", "", fmt.Errorf("write thumbnail: %w", err)
	}
	return imagePath, thumbnailPath, nil
}

func (s *DiskStore) mkdirs() error {
	for _, dir := range []string{imageDir, thumbnailDir} {
		if err := os.MkdirAll(s.abs(dir), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func (s *DiskStore) abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}
