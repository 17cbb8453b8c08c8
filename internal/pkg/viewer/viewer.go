// Package viewer displays a finished cover with the desktop's default
// image viewer.
package viewer

import (
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

type Viewer interface {
	Show(img image.Image) error
}

// Opener hands a file path to something that can display it.
type Opener func(path string) error

// A preview is deleted viewerGrace seconds after it is opened. Anything
// older than previewRetention is swept on the next Show.
const (
	previewPattern   = "cover-*.png"
	previewRetention = time.Hour
	viewerGrace      = 30
)

type systemViewer struct {
	tempDir string
	open    Opener
	retain  time.Duration
	now     func() time.Time
}

// NewSystemViewer writes the image to a temporary PNG and opens it with
// the platform's file handler, which deletes the file once the viewer
// has had time to load it. Previews older than an hour are swept on the
// next Show in case that deletion never ran.
func NewSystemViewer() Viewer {
	return NewViewer(os.TempDir(), openWithSystem)
}

func NewViewer(tempDir string, open Opener) Viewer {
	return &systemViewer{tempDir: tempDir, open: open, retain: previewRetention, now: time.Now}
}

func (v *systemViewer) Show(img image.Image) error {
	v.sweep()

	f, err := os.CreateTemp(v.tempDir, previewPattern)
	if err != nil {
		return fmt.Errorf("create preview file: %w", err)
	}
	path := f.Name()

	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encode preview: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close preview: %w", err)
	}

	logrus.WithField("path", path).Debug("opening preview")
	if err := v.open(path); err != nil {
		os.Remove(path)
		return fmt.Errorf("open preview: %w", err)
	}
	return nil
}

// sweep removes previews left behind by earlier calls.
func (v *systemViewer) sweep() {
	matches, err := filepath.Glob(filepath.Join(v.tempDir, previewPattern))
	if err != nil {
		return
	}
	cutoff := v.now().Add(-v.retain)
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			logrus.WithError(err).WithField("path", path).Warn("failed to remove stale preview")
		}
	}
}

func openWithSystem(path string) error {
	name, args := command(runtime.GOOS, path)
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

// command builds a detached shell that opens path, waits for the viewer
// to load it and deletes it. On unix the path is a positional argument
// and never part of the script.
func command(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "sh", []string{"-c", fmt.Sprintf(`open "$1"; sleep %d; rm -f "$1"`, viewerGrace), "sh", path}
	case "windows":
		quoted := "'" + strings.ReplaceAll(path, "'", "''") + "'"
		script := fmt.Sprintf("Start-Process -FilePath %s; Start-Sleep -Seconds %d; Remove-Item -Force -LiteralPath %s", quoted, viewerGrace, quoted)
		return "powershell", []string{"-NoProfile", "-NonInteractive", "-Command", script}
	default:
		return "sh", []string{"-c", fmt.Sprintf(`xdg-open "$1"; sleep %d; rm -f "$1"`, viewerGrace), "sh", path}
	}
}
