package bids

import (
	"encoding/csv"
	"fmt"
	"os"
)

// Participant is one row of participants.tsv: the subject identifier plus
// whatever metadata columns the dataset ships. Records are immutable once
// loaded.
type Participant struct {
	ID     string
	Fields map[string]string
}

// Field returns the named metadata column, or "n/a" when the dataset does
// not carry it (the BIDS convention for missing values).
func (p Participant) Field(name string) string {
	if v, ok := p.Fields[name]; ok && v != "" {
		return v
	}
	return "n/a"
}

// LoadParticipants reads a participants.tsv file and returns its rows
// keyed by participant_id. The header must contain a participant_id
// column; other columns are preserved as free-form metadata.
func LoadParticipants(path string) (map[string]Participant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1 // ragged rows: missing trailing cells become "n/a" via Field

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty file (expected a header row)", path)
	}

	header := rows[0]
	idCol := -1
	for i, col := range header {
		if col == "participant_id" {
			idCol = i
			break
		}
	}
	if idCol < 0 {
		return nil, fmt.Errorf("%s: no participant_id column", path)
	}

	participants := make(map[string]Participant, len(rows)-1)
	for _, row := range rows[1:] {
		if idCol >= len(row) || row[idCol] == "" {
			continue
		}
		p := Participant{
			ID:     row[idCol],
			Fields: make(map[string]string, len(header)),
		}
		for i, col := range header {
			if i == idCol || i >= len(row) {
				continue
			}
			p.Fields[col] = row[i]
		}
		participants[p.ID] = p
	}
	return participants, nil
}
