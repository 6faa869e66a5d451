// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrImageTooLarge is returned when an upload exceeds the configured limit.
var ErrImageTooLarge = errors.New("image too large")

// ErrImageType is returned for uploads that are not png or jpeg.
var ErrImageType = errors.New("unsupported image type")

var imageExtensions = map[string]string{
	".png":  ".png",
	".jpg":  ".jpg",
	".jpeg": ".jpeg",
}

// ImageExtension normalizes the extension of an uploaded file name, or
// returns ErrImageType.
func ImageExtension(filename string) (string, error) {
	ext, ok := imageExtensions[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrImageType, filepath.Ext(filename))
	}
	return ext, nil
}

// SaveImage stores the uploaded bytes as images/<lotID><ext> and returns the
// path recorded on the lot. At most maxBytes are accepted.
func (s *Store) SaveImage(lotID, ext string, r io.Reader, maxBytes int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return "", ErrImageTooLarge
	}

	path := filepath.Join(s.paths.Images, lotID+ext)
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// OpenImage opens the image recorded on a lot. Paths outside the images
// directory are refused.
func (s *Store) OpenImage(path string) (*os.File, error) {
	if path == "" {
		return nil, ErrNotFound
	}
	if !s.insideImagesDir(path) {
		return nil, fmt.Errorf("%w: image outside images directory", ErrNotFound)
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// DeleteImage removes an image file. A missing file is not an error.
func (s *Store) DeleteImage(path string) error {
	if path == "" || !s.insideImagesDir(path) {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete image %s: %w", path, err)
	}
	return nil
}

func (s *Store) insideImagesDir(path string) bool {
	dir, err := filepath.Abs(s.paths.Images)
	if err != nil {
		return false
	}
	p, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(dir, p)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}
