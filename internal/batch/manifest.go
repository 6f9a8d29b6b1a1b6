package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one sample listed in a manifest.
type Entry struct {
	ID        string `json:"id"`
	ImagePath string `json:"image"`
	MaskPath  string `json:"mask"`
	Label     string `json:"label,omitempty"`
}

// ReadManifest reads a CSV manifest from disk. Relative image and mask paths
// resolve against the directory holding the manifest.
func ReadManifest(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	entries, err := ParseManifest(f, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return entries, nil
}

// ParseManifest reads manifest rows from r.
//
// The first row is a header naming at least the columns id, image and mask,
// in any order; a label column is optional and other columns are ignored.
// Relative paths are joined to baseDir. Blank ids fall back to the image file
// name without its extension.
//
// Returns an error for a missing required column, an empty image or mask
// field, or a duplicate id.
func ParseManifest(r io.Reader, baseDir string) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("manifest is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"id", "image", "mask"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("manifest header is missing the %q column", required)
		}
	}
	labelCol, hasLabel := cols["label"]

	field := func(record []string, i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) || baseDir == "" {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	var entries []Entry
	seen := map[string]int{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse manifest: %w", err)
		}
		line, _ := reader.FieldPos(0)

		e := Entry{
			ID:        field(record, cols["id"]),
			ImagePath: field(record, cols["image"]),
			MaskPath:  field(record, cols["mask"]),
		}
		if hasLabel {
			e.Label = field(record, labelCol)
		}
		if e.ImagePath == "" || e.MaskPath == "" {
			return nil, fmt.Errorf("line %d: image and mask are required", line)
		}
		if e.ID == "" {
			base := filepath.Base(e.ImagePath)
			e.ID = strings.TrimSuffix(base, filepath.Ext(base))
		}
		if prev, ok := seen[e.ID]; ok {
			return nil, fmt.Errorf("line %d: duplicate id %q (first on line %d)", line, e.ID, prev)
		}
		seen[e.ID] = line

		e.ImagePath = resolve(e.ImagePath)
		e.MaskPath = resolve(e.MaskPath)
		entries = append(entries, e)
	}
	return entries, nil
}
