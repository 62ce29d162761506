// Package intake chooses which files become a run's input batch and turns
// accepted images into displayable input frames.
package intake

import (
	"bytes"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	"github.com/raphaelgruber/cloudcast/internal/dataurl"
	"github.com/raphaelgruber/cloudcast/internal/models"
)

// MaxUploads is the number of images a batch keeps after filtering.
const MaxUploads = 5

// Accepted reports whether a MIME type is an image whose subtype mentions
// png, jpeg or jpg. Parameters such as "; charset" are ignored.
func Accepted(mimeType string) bool {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(mimeType))
	}
	sub, ok := strings.CutPrefix(mt, "image/")
	if !ok {
		return false
	}
	return strings.Contains(sub, "png") || strings.Contains(sub, "jpeg") || strings.Contains(sub, "jpg")
}

// Select drops unaccepted files and keeps at most limit of the rest, in order.
// An empty result is reported as models.ErrInvalidInput.
func Select(files []models.UploadedImage, limit int) ([]models.UploadedImage, error) {
	if limit <= 0 {
		limit = MaxUploads
	}

	out := make([]models.UploadedImage, 0, min(len(files), limit))
	for _, f := range files {
		if !Accepted(f.MIMEType) {
			continue
		}
		out = append(out, f)
		if len(out) == limit {
			break
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no png or jpeg images among %d files: %w", len(files), models.ErrInvalidInput)
	}
	return out, nil
}

// LoadFile reads path and sniffs its MIME type from the content.
func LoadFile(path string) (models.UploadedImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.UploadedImage{}, fmt.Errorf("read %s: %w", path, err)
	}
	return models.UploadedImage{
		Name:     filepath.Base(path),
		MIMEType: mimetype.Detect(data).String(),
		Data:     data,
	}, nil
}

// LoadFiles reads every path in order. Paths that cannot be read, such as
// directories or missing files, are logged and skipped.
func LoadFiles(paths []string) []models.UploadedImage {
	out := make([]models.UploadedImage, 0, len(paths))
	for _, p := range paths {
		img, err := LoadFile(p)
		if err != nil {
			slog.Warn("skipping unreadable file", "path", p, "error", err)
			continue
		}
		out = append(out, img)
	}
	return out
}

// ScanDir loads the first limit accepted images of dir, ordered by file name.
// Hidden files and subdirectories are skipped. Files are only read in full
// once their sniffed type is accepted.
func ScanDir(dir string, limit int) ([]models.UploadedImage, error) {
	if limit <= 0 {
		limit = MaxUploads
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var out []models.UploadedImage
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		mt, err := mimetype.DetectFile(path)
		if err != nil || !Accepted(mt.String()) {
			continue
		}
		img, err := LoadFile(path)
		if err != nil {
			// removed between listing and reading
			continue
		}
		out = append(out, img)
		if len(out) == limit {
			break
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no png or jpeg images in %s: %w", dir, models.ErrInvalidInput)
	}
	return out, nil
}

// ToInputFrames converts a batch to input frames. A file that cannot be
// decoded keeps its slot with an error marker instead of a data URL.
func ToInputFrames(batch []models.UploadedImage) []models.InputFrame {
	frames := make([]models.InputFrame, len(batch))
	for i, u := range batch {
		frames[i] = toInputFrame(i, u)
	}
	return frames
}

func toInputFrame(index int, u models.UploadedImage) models.InputFrame {
	frame := models.InputFrame{
		Index:    index,
		Name:     u.Name,
		MIMEType: u.MIMEType,
	}

	img, err := imaging.Decode(bytes.NewReader(u.Data))
	if err != nil {
		frame.Error = fmt.Errorf("decode %s: %v: %w", u.Name, err, models.ErrDecodeFailure).Error()
		return frame
	}

	b := img.Bounds()
	frame.Width = b.Dx()
	frame.Height = b.Dy()
	frame.DataURL = dataurl.Encode(u.MIMEType, u.Data)
	return frame
}
