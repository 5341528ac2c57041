// Package sheet reads lead spreadsheets (CSV, XLSX) into raw records for the
// importer. The first row is treated as the header; an optional YAML mapping
// file renames spreadsheet headers to lead fields.
package sheet

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/favalepink/traincrm/internal/lead"
)

// Mapping renames spreadsheet headers to lead field names. Keys are matched
// case-insensitively after trimming.
type Mapping map[string]string

// LoadMapping reads a YAML header-mapping file, e.g.:
//
//	"Nome completo": name
//	"E-mail": email
//	"Celular": phone
func LoadMapping(path string) (Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: read mapping file")
	}
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "sheet: parse mapping file")
	}
	m := make(Mapping, len(raw))
	for k, v := range raw {
		m[normalizeHeader(k)] = v
	}
	return m, nil
}

// Records converts header + rows into raw records, applying the mapping.
// Rows with no non-blank cells are skipped. Cells beyond the header width are
// ignored; missing trailing cells are treated as blank.
func Records(header []string, rows [][]string, mapping Mapping) []lead.RawRecord {
	fields := make([]string, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if mapped, ok := mapping[key]; ok {
			fields[i] = mapped
		} else {
			fields[i] = key
		}
	}

	records := make([]lead.RawRecord, 0, len(rows))
	for _, row := range rows {
		rec := make(lead.RawRecord, len(fields))
		blank := true
		for i, field := range fields {
			if field == "" || i >= len(row) {
				continue
			}
			val := strings.TrimSpace(row[i])
			if val == "" {
				continue
			}
			rec[field] = val
			blank = false
		}
		if blank {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// normalizeHeader lowercases and trims a header cell for matching.
func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
