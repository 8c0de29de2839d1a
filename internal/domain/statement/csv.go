package statement

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// LoadOptions configures the statement loaders.
type LoadOptions struct {
	Delimiter rune // CSV delimiter (0 = auto-detect)
	SkipLines int  // Preamble lines before the header row
}

// LoadCSV decodes a CSV statement export into a Table. Bank exports are
// messy, so the reader tolerates lazy quotes and ragged row widths.
func LoadCSV(reader io.Reader, opts LoadOptions) (Table, error) {
	br := bufio.NewReader(reader)

	for i := 0; i < opts.SkipLines; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			return Table{}, fmt.Errorf("skipping preamble: %w", err)
		}
	}

	delimiter := opts.Delimiter
	if delimiter == 0 {
		peeked, _ := br.Peek(1024)
		delimiter = detectDelimiter(string(peeked))
	}

	r := csv.NewReader(br)
	r.Comma = delimiter
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return Table{}, ErrNoHeader
	}
	if err != nil {
		return Table{}, fmt.Errorf("reading header: %w", err)
	}

	table := Table{Headers: header, Rows: make([][]string, 0, 256)}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A single garbled line is not worth failing the import.
			continue
		}
		table.Rows = append(table.Rows, record)
	}
	return table, nil
}

// detectDelimiter picks the most frequent candidate separator in the first
// chunk of the file. Comma wins ties.
func detectDelimiter(sample string) rune {
	if idx := strings.IndexByte(sample, '\n'); idx >= 0 {
		sample = sample[:idx]
	}

	best := ','
	bestCount := strings.Count(sample, ",")
	for _, cand := range []rune{';', '\t', '|'} {
		if c := strings.Count(sample, string(cand)); c > bestCount {
			best = cand
			bestCount = c
		}
	}
	return best
}
