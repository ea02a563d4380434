package encode

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pspoerri/asc2tiles/internal/raster"
)

// HeightImage renders a north-row-first height raster as a Terrarium RGB
// image, one pixel per sample.
func HeightImage(g raster.Grid) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, g.Cols, g.Rows))
	for r := 0; r < g.Rows; r++ {
		for c, v := range g.Row(r) {
			img.SetRGBA(c, r, ElevationToTerrarium(float64(v)))
		}
	}
	return img
}

// MaskImage renders a north-row-first land mask as a grayscale image with
// land white and sea black.
func MaskImage(m raster.Mask) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Cols, m.Rows))
	for r := 0; r < m.Rows; r++ {
		for c, v := range m.Row(r) {
			if v != 0 {
				img.SetGray(c, r, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// MaskFromImage reads a land mask back from a rendered preview. A pixel is
// land when its luminance is at least half scale, which tolerates the
// studio-range levels and edge noise of lossy or YCbCr-decoded formats.
func MaskFromImage(img image.Image) raster.Mask {
	b := img.Bounds()
	m := raster.NewMask(b.Dy(), b.Dx())
	for r := 0; r < m.Rows; r++ {
		row := m.Row(r)
		for c := range row {
			if color.GrayModel.Convert(img.At(b.Min.X+c, b.Min.Y+r)).(color.Gray).Y >= 128 {
				row[c] = 1
			}
		}
	}
	return m
}

// ElevationsFromImage reads a height raster back from a Terrarium preview.
// Transparent pixels carry no elevation and are rejected.
func ElevationsFromImage(img image.Image) (raster.Grid, error) {
	b := img.Bounds()
	g := raster.NewGrid(b.Dy(), b.Dx())
	for r := 0; r < g.Rows; r++ {
		row := g.Row(r)
		for c := range row {
			elev := terrariumToElevation(color.RGBAModel.Convert(img.At(b.Min.X+c, b.Min.Y+r)).(color.RGBA))
			if math.IsNaN(elev) {
				return raster.Grid{}, fmt.Errorf("pixel (%d,%d) has no elevation", c, r)
			}
			row[c] = int32(math.Round(elev))
		}
	}
	return g, nil
}

// ReadPreview loads the previews that Previewer.Write produced for tile id
// from dir. maskFormat is the format the land mask was written in.
func ReadPreview(dir, id, maskFormat string) (raster.Grid, raster.Mask, error) {
	id = strings.ToUpper(id)
	if maskFormat == "terrarium" {
		return raster.Grid{}, raster.Mask{}, fmt.Errorf("terrarium is a height format, not a mask format")
	}
	enc, err := NewEncoder(maskFormat, 0)
	if err != nil {
		return raster.Grid{}, raster.Mask{}, err
	}
	var heights TerrariumEncoder

	hImg, err := readImage(filepath.Join(dir, id+"_heights"+heights.FileExtension()), heights.Format())
	if err != nil {
		return raster.Grid{}, raster.Mask{}, err
	}
	g, err := ElevationsFromImage(hImg)
	if err != nil {
		return raster.Grid{}, raster.Mask{}, fmt.Errorf("heights preview %s: %w", id, err)
	}
	mImg, err := readImage(filepath.Join(dir, id+"_land"+enc.FileExtension()), enc.Format())
	if err != nil {
		return raster.Grid{}, raster.Mask{}, err
	}
	return g, MaskFromImage(mImg), nil
}

func readImage(path, format string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := decodeImage(data, format)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

// Previewer writes image previews of assembled tiles to a directory.
type Previewer struct {
	Dir     string
	Mask    Encoder
	heights TerrariumEncoder
}

// NewPreviewer creates dir if needed and returns a Previewer that writes
// land masks in maskFormat ("png" or "webp").
func NewPreviewer(dir, maskFormat string, quality int) (*Previewer, error) {
	if maskFormat == "terrarium" {
		return nil, fmt.Errorf("terrarium is a height format, not a mask format")
	}
	enc, err := NewEncoder(maskFormat, quality)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating preview directory: %w", err)
	}
	return &Previewer{Dir: dir, Mask: enc}, nil
}

// Write renders heights and land for tile id and returns the paths written.
// Both rasters are north-row-first.
func (p *Previewer) Write(id string, heights raster.Grid, land raster.Mask) ([]string, error) {
	id = strings.ToUpper(id)

	hData, err := p.heights.Encode(HeightImage(heights))
	if err != nil {
		return nil, fmt.Errorf("encoding heights preview %s: %w", id, err)
	}
	mData, err := p.Mask.Encode(MaskImage(land))
	if err != nil {
		return nil, fmt.Errorf("encoding land preview %s: %w", id, err)
	}

	hPath := filepath.Join(p.Dir, id+"_heights"+p.heights.FileExtension())
	mPath := filepath.Join(p.Dir, id+"_land"+p.Mask.FileExtension())
	if err := os.WriteFile(hPath, hData, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", hPath, err)
	}
	if err := os.WriteFile(mPath, mData, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", mPath, err)
	}
	return []string{hPath, mPath}, nil
}
