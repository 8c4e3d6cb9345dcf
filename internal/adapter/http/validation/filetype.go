// Package validation guards the upload intake: content sniffing
// against per-field allowlists and filename sanitization.
package validation

import (
	"errors"
	"io"
	"net/http"
	"strings"
)

var ErrDisallowedFileType = errors.New("file type not allowed")

// allowedVideoMIMEs is the allowlist for the main video part. ffmpeg
// handles more containers than this, but intake stays deliberately
// narrow.
var allowedVideoMIMEs = map[string]bool{
	"video/mp4":        true,
	"video/webm":       true,
	"video/quicktime":  true,
	"video/x-msvideo":  true,
	"video/x-matroska": true,
}

// allowedImageMIMEs is the allowlist for custom thumbnail parts.
var allowedImageMIMEs = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

const sniffLen = 512

// SniffVideo reads the magic bytes of a video part, resets the reader,
// and reports the detected MIME type and whether it is acceptable.
func SniffVideo(r io.ReadSeeker) (mime string, allowed bool, err error) {
	mime, err = sniff(r)
	if err != nil {
		return "", false, err
	}
	if allowedVideoMIMEs[mime] {
		return mime, true, nil
	}
	// Matroska and some MP4 flavors sniff as application/octet-stream;
	// the pipeline's probe step is the authoritative rejection point.
	if mime == "application/octet-stream" {
		return mime, true, nil
	}
	return mime, false, nil
}

// SniffImage is SniffVideo's counterpart for thumbnail parts. Unlike
// videos there is no octet-stream escape hatch: an image that does not
// sniff as an image is rejected outright.
func SniffImage(r io.ReadSeeker) (mime string, allowed bool, err error) {
	mime, err = sniff(r)
	if err != nil {
		return "", false, err
	}
	return mime, allowedImageMIMEs[mime], nil
}

func sniff(r io.ReadSeeker) (string, error) {
	buf := make([]byte, sniffLen)
	n, err := r.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	mime := http.DetectContentType(buf[:n])
	// DetectContentType appends a charset parameter to text types.
	if idx := strings.Index(mime, ";"); idx != -1 {
		mime = strings.TrimSpace(mime[:idx])
	}
	return mime, nil
}
