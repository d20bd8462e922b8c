package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Sai-Yarlagadda/grading-14763/internal/models"
	appErrors "github.com/Sai-Yarlagadda/grading-14763/pkg/errors"
)

func TestLoadRosterCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.csv")
	require.NoError(t, os.WriteFile(path, []byte("Name,Section\n\"Abam, Brianna\",A\n\"Chen, Chi-yeh\",B\n"), 0o644))

	roster, err := LoadRoster(path)
	require.NoError(t, err)
	assert.Equal(t, []models.RosterEntry{
		{ID: "abambrianna", Name: "Abam, Brianna"},
		{ID: "chenchiyeh", Name: "Chen, Chi-yeh"},
	}, roster.Entries)
}

func TestLoadRosterXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Name"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "Ali, Jonathan"))
	require.NoError(t, f.SetCellValue("Sheet1", "A3", "Zhou, Zhexian"))
	path := filepath.Join(t.TempDir(), "roster.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	roster, err := LoadRoster(path)
	require.NoError(t, err)
	require.Equal(t, 2, roster.Len())
	entry, ok := roster.Find("zhouzhexian")
	require.True(t, ok)
	assert.Equal(t, "Zhou, Zhexian", entry.Name)
}

func TestLoadRosterText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.txt")
	require.NoError(t, os.WriteFile(path, []byte("Abam, Brianna\n\n  Ali, Jonathan  \n"), 0o644))

	roster, err := LoadRoster(path)
	require.NoError(t, err)
	assert.Equal(t, 2, roster.Len())
	assert.Equal(t, "Ali, Jonathan", roster.Entries[1].Name)
}

func TestBuildRosterRejectsBadEntries(t *testing.T) {
	cases := map[string][]string{
		"duplicate identifier": {"Chen, Ruike", "Chen Ruike"},
		"no letters":           {"12345"},
		"empty":                nil,
	}
	for name, names := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := BuildRoster(names)
			var appErr *appErrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
		})
	}
}

func TestReadRosterCSVWithoutNameColumn(t *testing.T) {
	names, err := ReadRosterCSV(strings.NewReader("Student\nAbam\n"))
	if err == nil {
		_, err = BuildRoster(names)
	}
	assert.Error(t, err)
}

func TestLoadRosterMissingFile(t *testing.T) {
	_, err := LoadRoster(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
