package objectstore

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Local sink failures.
var (
	ErrInvalidUploadToken = errors.New("invalid upload token")
	ErrUploadTokenExpired = errors.New("upload token expired")
	ErrObjectTooLarge     = errors.New("object exceeds signed size")
	ErrInvalidKey         = errors.New("invalid object key")
)

// LocalStore keeps objects on disk and signs short-lived PUT URLs that the
// gateway's own storage sink accepts. Intended for development and tests.
type LocalStore struct {
	baseDir string
	bucket  string
	secret  []byte
	sinkURL string
	now     func() time.Time
}

// NewLocalStore ensures the base directory exists and returns a handle.
func NewLocalStore(baseDir, bucket, secret, sinkURL string) (*LocalStore, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if secret == "" {
		return nil, errors.New("local object store signing secret missing")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStore{
		baseDir: baseDir,
		bucket:  bucket,
		secret:  []byte(secret),
		sinkURL: strings.TrimRight(sinkURL, "/"),
		now:     time.Now,
	}, nil
}

// Bucket returns the logical bucket name recorded on documents.
func (s *LocalStore) Bucket() string {
	return s.bucket
}

// PresignPut returns a sink URL carrying a token bound to key, size and expiry.
func (s *LocalStore) PresignPut(_ context.Context, key, contentType string, size int64, ttl time.Duration) (*PresignedRequest, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	expiresAt := s.now().Add(ttl)
	token := s.sign(key, expiresAt, size)

	escaped := make([]string, 0)
	for _, segment := range strings.Split(key, "/") {
		escaped = append(escaped, url.PathEscape(segment))
	}
	target := fmt.Sprintf("%s/%s?token=%s", s.sinkURL, strings.Join(escaped, "/"), url.QueryEscape(token))

	return &PresignedRequest{
		URL:       target,
		Method:    http.MethodPut,
		Headers:   map[string]string{"Content-Type": contentType},
		ExpiresAt: expiresAt,
	}, nil
}

// Stat reports the size of the stored object or ErrObjectNotFound.
func (s *LocalStore) Stat(_ context.Context, key string) (*ObjectInfo, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	info, err := os.Stat(s.resolve(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("stat object: %w", err)
	}
	return &ObjectInfo{Key: key, Size: info.Size(), LastModified: info.ModTime()}, nil
}

// Verify checks the token against key and returns the maximum accepted size.
func (s *LocalStore) Verify(key, token string) (int64, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return 0, ErrInvalidUploadToken
	}
	rawKey, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil || string(rawKey) != key {
		return 0, ErrInvalidUploadToken
	}
	expUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, ErrInvalidUploadToken
	}
	maxBytes, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, ErrInvalidUploadToken
	}
	expected := s.signature(parts[0], parts[1], parts[2])
	if !hmac.Equal([]byte(expected), []byte(parts[3])) {
		return 0, ErrInvalidUploadToken
	}
	if s.now().After(time.Unix(expUnix, 0)) {
		return 0, ErrUploadTokenExpired
	}
	return maxBytes, nil
}

// Write streams r into key, refusing payloads larger than maxBytes.
func (s *LocalStore) Write(key string, r io.Reader, maxBytes int64) (int64, error) {
	if err := validateKey(key); err != nil {
		return 0, err
	}
	target := s.resolve(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("prepare object directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create object file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	written, err := io.Copy(tmp, io.LimitReader(r, maxBytes+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("write object stream: %w", err)
	}
	if written > maxBytes {
		return 0, ErrObjectTooLarge
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return 0, fmt.Errorf("commit object file: %w", err)
	}
	return written, nil
}

func (s *LocalStore) sign(key string, expiresAt time.Time, maxBytes int64) string {
	encodedKey := base64.RawURLEncoding.EncodeToString([]byte(key))
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	size := strconv.FormatInt(maxBytes, 10)
	return strings.Join([]string{encodedKey, exp, size, s.signature(encodedKey, exp, size)}, ".")
}

func (s *LocalStore) signature(encodedKey, exp, size string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(encodedKey + "|" + exp + "|" + size))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *LocalStore) resolve(key string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(key))
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	if path.Clean(key) != key {
		return ErrInvalidKey
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." || segment == "." {
			return ErrInvalidKey
		}
	}
	return nil
}
