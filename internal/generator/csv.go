package generator

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/roach88/dataforge/internal/value"
)

// csvGenerator returns rows of a CSV file as objects keyed by the header.
//
// Options: file (required), sequential (true). Sequential rows cycle in
// file order with one counter per schema node; otherwise rows are drawn
// uniformly. A file with no data rows yields null.
//
// Parsed files are cached for the life of the registry. The cache only
// holds file contents, so runs sharing the registry still see the same
// values.
type csvGenerator struct {
	mu    sync.Mutex
	files map[string][][]string
}

func newCSVGenerator() *csvGenerator {
	return &csvGenerator{files: make(map[string][][]string)}
}

func (g *csvGenerator) Generate(ctx *Context) (value.Value, error) {
	file, err := optionString(ctx.Options, "file", "")
	if err != nil {
		return nil, err
	}
	if file == "" {
		return nil, fmt.Errorf("csv generator requires option %q", "file")
	}
	sequential, err := optionBool(ctx.Options, "sequential", true)
	if err != nil {
		return nil, err
	}
	records, err := g.load(file)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return value.Null{}, nil
	}

	rows := int64(len(records) - 1)
	var idx int64
	if sequential {
		idx = ctx.State.Next(ctx.Key, 0, 1) % rows
	} else {
		idx = ctx.Rand.Int64N(rows)
	}
	header, row := records[0], records[1+idx]
	out := value.NewObject(len(header))
	for i, name := range header {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		out.Set(name, value.String(cell))
	}
	return out, nil
}

func (g *csvGenerator) load(path string) ([][]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if records, ok := g.files[path]; ok {
		return records, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	g.files[path] = records
	return records, nil
}
