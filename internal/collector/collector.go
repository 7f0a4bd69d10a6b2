package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"MarketPulse/internal/model"
)

// inputName matches <SYMBOL>.csv and <SYMBOL>_<YYYYMMDD>.csv. Processed
// outputs carry a second underscore and never match.
var inputName = regexp.MustCompile(`^([^_]+?)(?:_(\d{8}))?\.csv$`)

var reservedNames = map[string]bool{"alerts": true, "snapshot": true}

// CSVSource reads per-symbol CSV files from a directory.
type CSVSource struct {
	Dir string
}

// NewCSVSource creates a CSVSource over dir.
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{Dir: dir}
}

func (s *CSVSource) Name() string { return "csv" }

// Symbols discovers symbols from the file names in Dir.
func (s *CSVSource) Symbols(ctx context.Context) ([]string, error) {
	files, err := s.scan()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(files))
	for sym := range files {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out, nil
}

// Load parses the newest file for symbol.
func (s *CSVSource) Load(ctx context.Context, symbol string) (*model.RawSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files, err := s.scan()
	if err != nil {
		return nil, err
	}
	path, ok := files[symbol]
	if !ok {
		return nil, fmt.Errorf("%s: %w in %s", symbol, ErrNoData, s.Dir)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", symbol, err)
	}
	defer f.Close()
	return ParseCSV(f, symbol, path)
}

// scan maps each symbol to its newest input file. A dated file is newer than
// the undated one, and later dates win.
func (s *CSVSource) scan() (map[string]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	type candidate struct{ path, stamp string }
	best := make(map[string]candidate)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := inputName.FindStringSubmatch(e.Name())
		if m == nil || reservedNames[strings.ToLower(m[1])] {
			continue
		}
		sym, stamp := m[1], m[2]
		if cur, ok := best[sym]; !ok || stamp > cur.stamp {
			best[sym] = candidate{path: filepath.Join(s.Dir, e.Name()), stamp: stamp}
		}
	}
	out := make(map[string]string, len(best))
	for sym, c := range best {
		out[sym] = c.path
	}
	return out, nil
}
