package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"
)

// DownloadFilename is the fixed name of the exported Markdown file.
const DownloadFilename = "markdown-playground.md"

var ErrClipboardUnavailable = errors.New("clipboard is not available on this system")

type Clipboard interface {
	Copy(text string) error
}

// ClipboardFunc adapts a function, for example one that emits an OSC52
// sequence through the terminal, to Clipboard.
type ClipboardFunc func(text string) error

func (f ClipboardFunc) Copy(text string) error { return f(text) }

// SystemClipboard writes through the OS clipboard tools (pbcopy, xclip,
// wl-copy, clip.exe).
type SystemClipboard struct{}

func (SystemClipboard) Copy(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnavailable
	}
	return clipboard.WriteAll(text)
}

// Download describes a written export file.
type Download struct {
	Path  string
	Bytes int
}

func (d Download) Size() string { return humanize.Bytes(uint64(d.Bytes)) }

func (d Download) String() string {
	return fmt.Sprintf("%s (%s)", d.Path, d.Size())
}

// WriteDownload writes text to dir/markdown-playground.md, replacing any
// earlier export.
func WriteDownload(dir, text string) (Download, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Download{}, fmt.Errorf("create download dir: %w", err)
	}
	path := filepath.Join(dir, DownloadFilename)
	tmp, err := os.CreateTemp(dir, ".markdown-playground-*.md")
	if err != nil {
		return Download{}, fmt.Errorf("create download file: %w", err)
	}
	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return Download{}, fmt.Errorf("write download file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return Download{}, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return Download{}, fmt.Errorf("move download file: %w", err)
	}
	return Download{Path: path, Bytes: len(text)}, nil
}

// ContentDisposition is the header value used when the export is served
// over HTTP.
func ContentDisposition() string {
	return `attachment; filename="` + DownloadFilename + `"`
}
