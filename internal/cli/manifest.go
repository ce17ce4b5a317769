package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/adapters/manifest"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/matcher"
)

// LoadManifest reads a manifest file. "-" reads CSV from stdin unless format
// says otherwise. An empty format is detected from the file extension.
func LoadManifest(path, format string, stdin io.Reader) ([]matcher.ManifestRow, error) {
	f := manifest.Format(format)
	if f == "" {
		f = manifest.DetectFormat(path)
	}

	if path == "-" {
		return manifest.Parse(stdin, f)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	rows, err := manifest.Parse(file, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
