package raster

import (
	"archive/zip"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultPattern matches the OS Terrain 50 ASCII grid archives, e.g.
// "nt27_OST50GRID_20170713.zip".
const DefaultPattern = "*_OST50GRID_*.zip"

// ArchiveSource decodes tiles from a directory tree laid out as
// <root>/<square>/<ref>_<suffix>.zip, each zip holding one .asc grid.
// Square directories and file names are matched in either case.
type ArchiveSource struct {
	Root    string
	Pattern string // glob for the part after "<ref>_"; defaults to DefaultPattern
}

// NewArchiveSource creates a source rooted at dir.
func NewArchiveSource(dir, pattern string) *ArchiveSource {
	if pattern == "" {
		pattern = DefaultPattern
	}
	return &ArchiveSource{Root: dir, Pattern: pattern}
}

// Path returns the archive holding the given tile, or ErrSourceDataAbsent.
func (s *ArchiveSource) Path(id string) (string, error) {
	suffix := strings.TrimPrefix(s.Pattern, "*")
	if len(id) < 2 {
		return "", fmt.Errorf("%w: %q", ErrSourceDataAbsent, id)
	}
	for _, ref := range []string{strings.ToLower(id), strings.ToUpper(id)} {
		glob := filepath.Join(s.Root, ref[:2], ref+suffix)
		matches, err := filepath.Glob(glob)
		if err != nil {
			return "", fmt.Errorf("glob %s: %w", glob, err)
		}
		if len(matches) > 0 {
			sort.Strings(matches)
			return matches[len(matches)-1], nil // newest release date sorts last
		}
	}
	return "", fmt.Errorf("%w: %s", ErrSourceDataAbsent, id)
}

// Decode implements Source.
func (s *ArchiveSource) Decode(id string) (Grid, error) {
	path, err := s.Path(id)
	if err != nil {
		return Grid{}, err
	}
	g, _, err := ReadZippedASC(path)
	return g, err
}

// ReadZippedASC opens a zip archive and parses the first .asc member.
func ReadZippedASC(path string) (Grid, ASCHeader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Grid{}, ASCHeader{}, fmt.Errorf("%w: %s", ErrSourceDataAbsent, path)
		}
		return Grid{}, ASCHeader{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if !strings.EqualFold(filepath.Ext(f.Name), ".asc") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return Grid{}, ASCHeader{}, fmt.Errorf("opening %s in %s: %w", f.Name, path, err)
		}
		g, hdr, err := ParseASC(rc)
		rc.Close()
		if err != nil {
			return Grid{}, hdr, fmt.Errorf("%s in %s: %w", f.Name, path, err)
		}
		return g, hdr, nil
	}
	return Grid{}, ASCHeader{}, fmt.Errorf("%s: no .asc member", path)
}

// Collect walks root's square directories and returns the tile ids of all
// archives matching the source pattern, uppercased and sorted. A non-empty
// filter keeps only ids starting with it (case-insensitive).
func (s *ArchiveSource) Collect(filter string) ([]string, error) {
	dirs, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, fmt.Errorf("readdir %s: %w", s.Root, err)
	}
	filter = strings.ToUpper(filter)

	seen := make(map[string]bool)
	var ids []string
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		dirPath := filepath.Join(s.Root, d.Name())
		entries, err := os.ReadDir(dirPath)
		if err != nil {
			return nil, fmt.Errorf("readdir %s: %w", dirPath, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			if ok, _ := filepath.Match(s.Pattern, name); !ok {
				lower := strings.ToLower(name)
				if ok, _ := filepath.Match(strings.ToLower(s.Pattern), lower); !ok {
					continue
				}
			}
			id := strings.ToUpper(strings.SplitN(name, "_", 2)[0])
			if filter != "" && !strings.HasPrefix(id, filter) {
				continue
			}
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}
