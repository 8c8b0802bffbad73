package utils

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	// Base URL for serving files
	uploadsURL = "/uploads"
	// Maximum upload size (10MB)
	maxFileSize = 10 * 1024 * 1024
)

// PWA icon sizes written for every uploaded app icon.
var IconSizes = []int{192, 512}

var (
	allowedImageExts = map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
	}
	unsafeName = regexp.MustCompile(`[^a-zA-Z0-9.-]`)
)

// cleanFilename removes path components and unsafe characters.
func cleanFilename(filename string) string {
	return unsafeName.ReplaceAllString(filepath.Base(filename), "")
}

// ValidateImageFile checks size and extension of an uploaded image.
func ValidateImageFile(filename string, size int64) error {
	if size > maxFileSize {
		return fmt.Errorf("file too large. Maximum size is %d bytes", maxFileSize)
	}
	if !allowedImageExts[strings.ToLower(filepath.Ext(filename))] {
		return fmt.Errorf("unsupported image format. Allowed formats: jpg, jpeg, png, gif")
	}
	return nil
}

// UploadFileToPath writes data under baseDir/subDir and returns its public URL.
func UploadFileToPath(baseDir string, data []byte, filename, subDir string) (string, error) {
	if len(data) > maxFileSize {
		return "", fmt.Errorf("file too large. Maximum size is %d bytes", maxFileSize)
	}
	name := cleanFilename(filename)
	fullPath := filepath.Join(baseDir, subDir, name)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", filepath.Dir(fullPath), err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", fullPath, err)
	}
	return fmt.Sprintf("%s/%s/%s", uploadsURL, strings.Trim(subDir, "/"), name), nil
}

// GenerateAppIcons decodes an uploaded image and writes square PNG icons in
// every IconSizes size. It returns the public URLs keyed by size.
func GenerateAppIcons(baseDir, appUUID string, data []byte) (map[int]string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode icon: %w", err)
	}

	urls := make(map[int]string, len(IconSizes))
	for _, size := range IconSizes {
		icon := imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos)

		var buf bytes.Buffer
		if err := png.Encode(&buf, icon); err != nil {
			return nil, fmt.Errorf("failed to encode %dpx icon: %w", size, err)
		}
		url, err := UploadFileToPath(baseDir, buf.Bytes(), fmt.Sprintf("icon-%d.png", size), filepath.Join("apps", appUUID))
		if err != nil {
			return nil, err
		}
		urls[size] = url
	}
	return urls, nil
}
