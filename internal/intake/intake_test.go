package intake

import (
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/cloudcast/internal/models"
)

func encodeImage(t *testing.T, format imaging.Format, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(w, h, color.NRGBA{R: 90, G: 140, B: 200, A: 255})
	require.NoError(t, imaging.Encode(&buf, img, format))
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestAccepted(t *testing.T) {
	tests := []struct {
		mime string
		want bool
	}{
		{"image/png", true},
		{"image/jpeg", true},
		{"image/jpg", true},
		{"image/pjpeg", true},
		{"IMAGE/PNG", true},
		{"image/png; charset=binary", true},
		{"image/gif", false},
		{"image/webp", false},
		{"text/plain", false},
		{"application/png", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			assert.Equal(t, tt.want, Accepted(tt.mime))
		})
	}
}

func TestSelect(t *testing.T) {
	png := func(name string) models.UploadedImage {
		return models.UploadedImage{Name: name, MIMEType: "image/png"}
	}
	gif := models.UploadedImage{Name: "anim.gif", MIMEType: "image/gif"}
	txt := models.UploadedImage{Name: "notes.txt", MIMEType: "text/plain"}

	t.Run("drops unaccepted and keeps order", func(t *testing.T) {
		got, err := Select([]models.UploadedImage{png("a"), gif, png("b"), txt}, MaxUploads)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "a", got[0].Name)
		assert.Equal(t, "b", got[1].Name)
	})

	t.Run("truncates to the first five", func(t *testing.T) {
		var files []models.UploadedImage
		for _, n := range []string{"1", "2", "3", "4", "5", "6", "7"} {
			files = append(files, png(n))
		}
		got, err := Select(files, MaxUploads)
		require.NoError(t, err)
		require.Len(t, got, 5)
		assert.Equal(t, "5", got[4].Name)
	})

	t.Run("nothing accepted", func(t *testing.T) {
		_, err := Select([]models.UploadedImage{gif, txt}, MaxUploads)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := Select(nil, MaxUploads)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})
}

func TestLoadFile_SniffsContent(t *testing.T) {
	dir := t.TempDir()
	pngPath := writeFile(t, dir, "frame.jpg", encodeImage(t, imaging.PNG, 4, 4))
	gifPath := writeFile(t, dir, "frame.png", encodeImage(t, imaging.GIF, 4, 4))

	img, err := LoadFile(pngPath)
	require.NoError(t, err)
	assert.Equal(t, "frame.jpg", img.Name)
	assert.Equal(t, "image/png", img.MIMEType)

	img, err = LoadFile(gifPath)
	require.NoError(t, err)
	assert.Equal(t, "image/gif", img.MIMEType)

	_, err = LoadFile(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestLoadFiles_SkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "a.png", encodeImage(t, imaging.PNG, 4, 4))
	second := writeFile(t, dir, "b.jpg", encodeImage(t, imaging.JPEG, 4, 4))
	subdir := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(subdir, 0o755))

	got := LoadFiles([]string{first, subdir, filepath.Join(dir, "missing.png"), second})
	require.Len(t, got, 2)
	assert.Equal(t, "a.png", got[0].Name)
	assert.Equal(t, "b.jpg", got[1].Name)

	assert.Empty(t, LoadFiles([]string{subdir}))

	_, err := Select(LoadFiles([]string{subdir}), MaxUploads)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestScanDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.png", "a.png", "b.jpg", "d.png", "e.png", "f.png"} {
		format := imaging.PNG
		if strings.HasSuffix(name, ".jpg") {
			format = imaging.JPEG
		}
		writeFile(t, dir, name, encodeImage(t, format, 8, 8))
	}
	writeFile(t, dir, "0.gif", encodeImage(t, imaging.GIF, 8, 8))
	writeFile(t, dir, ".hidden.png", encodeImage(t, imaging.PNG, 8, 8))
	writeFile(t, dir, "readme.txt", []byte("not an image"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))

	got, err := ScanDir(dir, MaxUploads)
	require.NoError(t, err)

	var names []string
	for _, g := range got {
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{"a.png", "b.jpg", "c.png", "d.png", "e.png"}, names)
	assert.Equal(t, "image/jpeg", got[1].MIMEType)
}

func TestScanDir_NoImages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "only.gif", encodeImage(t, imaging.GIF, 2, 2))

	_, err := ScanDir(dir, MaxUploads)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestToInputFrames(t *testing.T) {
	good := models.UploadedImage{Name: "ok.png", MIMEType: "image/png", Data: encodeImage(t, imaging.PNG, 12, 7)}
	// valid signature, truncated body
	broken := models.UploadedImage{Name: "broken.png", MIMEType: "image/png", Data: good.Data[:20]}

	frames := ToInputFrames([]models.UploadedImage{good, broken})
	require.Len(t, frames, 2)

	assert.Equal(t, 0, frames[0].Index)
	assert.False(t, frames[0].Failed())
	assert.Equal(t, 12, frames[0].Width)
	assert.Equal(t, 7, frames[0].Height)
	assert.True(t, strings.HasPrefix(frames[0].DataURL, "data:image/png;base64,"))

	assert.Equal(t, 1, frames[1].Index)
	assert.True(t, frames[1].Failed())
	assert.Empty(t, frames[1].DataURL)
	assert.Contains(t, frames[1].Error, models.ErrDecodeFailure.Error())
	assert.Contains(t, frames[1].Error, "broken.png")
}
