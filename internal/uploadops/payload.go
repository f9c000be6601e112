package uploadops

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// sniffLen is how many leading bytes http.DetectContentType looks at.
const sniffLen = 512

// videoTypes covers containers the system MIME table often lacks.
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
}

// Payload is the media to upload: a byte stream of a known length and type.
// Body is closed by Upload on every exit path. A Body that implements
// io.ReaderAt (files, spooled trailers) can be resumed from any offset.
type Payload struct {
	Name        string
	ContentType string
	Length      int64
	Body        io.ReadCloser
}

// OpenFile opens a local file as a Payload. The content type comes from the
// extension, then from sniffing the first bytes.
func OpenFile(path string) (*Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("uploadops: opening %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("uploadops: stat %s: %w", path, err)
	}

	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("uploadops: %s is a directory", path)
	}

	ct, err := detectContentType(path, f)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Payload{
		Name:        filepath.Base(path),
		ContentType: ct,
		Length:      info.Size(),
		Body:        f,
	}, nil
}

func detectContentType(path string, r io.ReaderAt) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	if ct, ok := videoTypes[ext]; ok {
		return ct, nil
	}

	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct, nil
	}

	head := make([]byte, sniffLen)

	n, err := r.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("uploadops: sniffing %s: %w", path, err)
	}

	if n == 0 {
		return "", nil
	}

	return http.DetectContentType(head[:n]), nil
}
