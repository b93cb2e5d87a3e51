package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidKey   = errors.New("invalid object key")
	ErrInvalidImage = errors.New("only jpg/png/webp allowed")
)

// Store is the blob store holding product images.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// FSStore writes objects under Root and serves them under BaseURL.
type FSStore struct {
	Root    string
	BaseURL string
}

func (s *FSStore) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.Root, filepath.FromSlash(clean)), nil
}

func (s *FSStore) Put(ctx context.Context, key string, r io.Reader) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	dst, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("create object: %w", err)
	}

	if _, err := io.Copy(dst, readerWithContext(ctx, r)); err != nil {
		_ = dst.Close()
		_ = os.Remove(p)
		return fmt.Errorf("write object: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(p)
		return fmt.Errorf("close object: %w", err)
	}
	return nil
}

func (s *FSStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// URL passes absolute http(s) keys through untouched.
func (s *FSStore) URL(key string) string {
	key = strings.TrimSpace(key)
	if key == "" || IsHTTPURL(key) {
		return key
	}
	return strings.TrimRight(s.BaseURL, "/") + "/" + strings.TrimLeft(key, "/")
}

func IsHTTPURL(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

func ValidImageName(name string) bool {
	n := strings.ToLower(name)
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".webp"} {
		if strings.HasSuffix(n, ext) {
			return true
		}
	}
	return false
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ProductImageKey builds "products/<product>/<random>_<name>".
func ProductImageKey(productID uuid.UUID, filename string) (string, error) {
	if !ValidImageName(filename) {
		return "", ErrInvalidImage
	}
	name := unsafeChars.ReplaceAllString(filepath.Base(filename), "-")
	return "products/" + productID.String() + "/" + uuid.NewString() + "_" + name, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
