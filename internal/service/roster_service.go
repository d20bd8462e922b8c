package service

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/Sai-Yarlagadda/grading-14763/internal/models"
	appErrors "github.com/Sai-Yarlagadda/grading-14763/pkg/errors"
)

type rosterCSVRow struct {
	Name string `csv:"Name"`
}

// LoadRoster reads declared student names from a .csv, .xlsx or plain text file.
func LoadRoster(path string) (models.Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Roster{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
			fmt.Sprintf("open roster %s", filepath.Base(path)))
	}
	defer f.Close()

	var names []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		names, err = ReadRosterCSV(f)
	case ".xlsx":
		names, err = ReadRosterXLSX(f)
	default:
		names, err = ReadRosterLines(f)
	}
	if err != nil {
		return models.Roster{}, err
	}
	return BuildRoster(names)
}

// ReadRosterCSV returns the Name column of a headed CSV.
func ReadRosterCSV(r io.Reader) ([]string, error) {
	var rows []rosterCSVRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster csv")
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.Name)
	}
	return names, nil
}

// ReadRosterXLSX returns the first column of the first sheet, skipping a leading Name header.
func ReadRosterXLSX(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster workbook")
	}
	defer f.Close() //nolint:errcheck

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "roster workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster workbook")
	}
	var names []string
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(row[0]), models.ColumnName) {
			continue
		}
		if strings.TrimSpace(row[0]) == "" {
			continue
		}
		names = append(names, row[0])
	}
	return names, nil
}

// ReadRosterLines returns one name per non-blank line.
func ReadRosterLines(r io.Reader) ([]string, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			names = append(names, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return names, nil
}

// BuildRoster keys names by normalized identifier, preserving input order.
func BuildRoster(names []string) (models.Roster, error) {
	entries := make([]models.RosterEntry, 0, len(names))
	seen := make(map[string]string, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		id := models.NormalizeID(name)
		if id == "" {
			return models.Roster{}, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("roster entry %q has no letters to build an identifier", name))
		}
		if prev, ok := seen[id]; ok {
			return models.Roster{}, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("roster entries %q and %q share identifier %q", prev, name, id))
		}
		seen[id] = name
		entries = append(entries, models.RosterEntry{ID: id, Name: name})
	}
	if len(entries) == 0 {
		return models.Roster{}, appErrors.Clone(appErrors.ErrValidation, "roster has no students")
	}
	return models.NewRoster(entries), nil
}

// RosterFile loads the roster from a path on every call so edits apply to the next run.
type RosterFile string

// Roster implements the roster provider used by report runs.
func (p RosterFile) Roster() (models.Roster, error) {
	return LoadRoster(string(p))
}
