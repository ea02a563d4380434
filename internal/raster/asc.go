package raster

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ASCHeader holds the header of an ESRI ASCII grid (.asc) file.
//
// OS Terrain 50 tiles carry five header lines (ncols, nrows, xllcorner,
// yllcorner, cellsize); NODATA_value is optional.
type ASCHeader struct {
	Ncols, Nrows int
	XLLCorner    float64
	YLLCorner    float64
	CellSize     float64
	NoData       float64
	HasNoData    bool
}

// ParseASC reads an ESRI ASCII grid. Heights are rounded half-to-even to the
// nearest metre. The returned grid is north-row-first, as stored in the file.
func ParseASC(r io.Reader) (Grid, ASCHeader, error) {
	var hdr ASCHeader
	br := bufio.NewReaderSize(r, 64*1024)

	// Header lines are "key value" pairs; the first line starting with a
	// number (or '-') begins the data block.
	var firstData string
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return Grid{}, hdr, fmt.Errorf("reading ASC header: %w", err)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			if err == io.EOF {
				break
			}
			continue
		}
		if isNumeric(fields[0]) {
			firstData = line
			break
		}
		if len(fields) < 2 {
			return Grid{}, hdr, fmt.Errorf("ASC header line %q: missing value", strings.TrimSpace(line))
		}
		if perr := hdr.set(fields[0], fields[1]); perr != nil {
			return Grid{}, hdr, perr
		}
		if err == io.EOF {
			break
		}
	}

	if hdr.Ncols <= 0 || hdr.Nrows <= 0 {
		return Grid{}, hdr, fmt.Errorf("ASC header: invalid dimensions %dx%d", hdr.Ncols, hdr.Nrows)
	}

	g := NewGrid(hdr.Nrows, hdr.Ncols)
	n := 0
	total := hdr.Nrows * hdr.Ncols

	consume := func(line string) error {
		for _, f := range strings.Fields(line) {
			if n >= total {
				return fmt.Errorf("ASC data: more than %d values", total)
			}
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return fmt.Errorf("ASC data value %d: %w", n, err)
			}
			g.data[n] = int32(math.RoundToEven(v))
			n++
		}
		return nil
	}

	if err := consume(firstData); err != nil {
		return Grid{}, hdr, err
	}
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if err := consume(sc.Text()); err != nil {
			return Grid{}, hdr, err
		}
	}
	if err := sc.Err(); err != nil {
		return Grid{}, hdr, fmt.Errorf("reading ASC data: %w", err)
	}
	if n != total {
		return Grid{}, hdr, fmt.Errorf("ASC data: got %d values, want %d", n, total)
	}
	return g, hdr, nil
}

func (h *ASCHeader) set(key, value string) error {
	var err error
	switch strings.ToLower(key) {
	case "ncols":
		h.Ncols, err = strconv.Atoi(value)
	case "nrows":
		h.Nrows, err = strconv.Atoi(value)
	case "xllcorner", "xllcenter":
		h.XLLCorner, err = strconv.ParseFloat(value, 64)
	case "yllcorner", "yllcenter":
		h.YLLCorner, err = strconv.ParseFloat(value, 64)
	case "cellsize":
		h.CellSize, err = strconv.ParseFloat(value, 64)
	case "nodata_value":
		h.NoData, err = strconv.ParseFloat(value, 64)
		h.HasNoData = err == nil
	default:
		return fmt.Errorf("ASC header: unknown key %q", key)
	}
	if err != nil {
		return fmt.Errorf("ASC header %s: %w", key, err)
	}
	return nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9')
}
