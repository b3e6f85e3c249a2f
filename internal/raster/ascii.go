package raster

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

const defaultNoData = -9999

// ReadASCIIFile reads an ESRI ASCII grid (.asc) from disk.
func ReadASCIIFile(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: open %s", path)
	}
	defer f.Close()

	g, err := ReadASCII(f)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: read %s", path)
	}
	return g, nil
}

// ReadASCII parses an ESRI ASCII grid. The header must use xllcorner /
// yllcorner; NODATA_value is optional and defaults to -9999.
func ReadASCII(r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	next := func() (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", eris.Wrap(err, "raster: scan")
			}
			return "", eris.New("raster: unexpected end of input")
		}
		return sc.Text(), nil
	}

	header := map[string]float64{}
	nodata := float64(defaultNoData)

	// Header lines are keyword/value pairs; the first bare number starts
	// the data block.
	var firstValue string
	for {
		tok, err := next()
		if err != nil {
			return nil, err
		}
		if _, convErr := strconv.ParseFloat(tok, 64); convErr == nil {
			firstValue = tok
			break
		}
		key := strings.ToLower(tok)
		val, err := next()
		if err != nil {
			return nil, err
		}
		fv, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "raster: header %s", key)
		}
		if key == "nodata_value" {
			nodata = fv
			continue
		}
		header[key] = fv
	}

	for _, k := range []string{"ncols", "nrows", "cellsize", "xllcorner", "yllcorner"} {
		if _, ok := header[k]; !ok {
			return nil, eris.Errorf("raster: missing header field %s", k)
		}
	}

	rows := int(header["nrows"])
	cols := int(header["ncols"])
	if rows <= 0 || cols <= 0 {
		return nil, eris.Errorf("raster: invalid grid shape %dx%d", rows, cols)
	}
	if header["cellsize"] <= 0 {
		return nil, eris.New("raster: cellsize must be positive")
	}

	g := New(rows, cols, header["cellsize"], header["xllcorner"], header["yllcorner"], nodata)

	for i := 0; i < rows*cols; i++ {
		tok := firstValue
		if i > 0 {
			var err error
			tok, err = next()
			if err != nil {
				return nil, eris.Wrapf(err, "raster: cell %d of %d", i, rows*cols)
			}
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "raster: cell %d", i)
		}
		g.Data[i] = v
	}

	return g, nil
}

// WriteASCIIFile writes an ESRI ASCII grid to disk.
func WriteASCIIFile(path string, g *Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "raster: create %s", path)
	}
	defer f.Close()

	if err := WriteASCII(f, g); err != nil {
		return eris.Wrapf(err, "raster: write %s", path)
	}
	return nil
}

// WriteASCII writes g in ESRI ASCII grid format.
func WriteASCII(w io.Writer, g *Grid) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ncols %d\n", g.Cols)
	fmt.Fprintf(bw, "nrows %d\n", g.Rows)
	fmt.Fprintf(bw, "xllcorner %g\n", g.XMin)
	fmt.Fprintf(bw, "yllcorner %g\n", g.YMin)
	fmt.Fprintf(bw, "cellsize %g\n", g.CellSize)
	fmt.Fprintf(bw, "NODATA_value %g\n", g.NoData)

	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			if c > 0 {
				bw.WriteByte(' ')
			}
			fmt.Fprintf(bw, "%g", g.Value(r, c))
		}
		bw.WriteByte('\n')
	}
	return eris.Wrap(bw.Flush(), "raster: flush ascii grid")
}
