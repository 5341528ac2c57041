package sheet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/favalepink/traincrm/internal/lead"
)

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRecords(t *testing.T) {
	header := []string{"Name", "Email", "Phone"}
	rows := [][]string{
		{"Ana", "ana@example.com", "11912345678"},
		{"João", "joao@example.com", "21988880000"},
	}

	records := Records(header, rows, nil)
	require.Len(t, records, 2)
	assert.Equal(t, lead.RawRecord{
		"name":  "Ana",
		"email": "ana@example.com",
		"phone": "11912345678",
	}, records[0])
}

func TestRecords_AppliesMapping(t *testing.T) {
	mapping := Mapping{
		"nome completo": "name",
		"e-mail":        "email",
		"celular":       "phone",
	}
	header := []string{"Nome Completo", "E-mail", "Celular"}
	rows := [][]string{{"Ana", "ana@example.com", "11912345678"}}

	records := Records(header, rows, mapping)
	require.Len(t, records, 1)
	assert.Equal(t, "Ana", records[0]["name"])
	assert.Equal(t, "11912345678", records[0]["phone"])
}

func TestRecords_SkipsBlankRows(t *testing.T) {
	header := []string{"name", "email"}
	rows := [][]string{
		{"Ana", "ana@example.com"},
		{"", "  "},
		{},
		{"João", "joao@example.com"},
	}

	records := Records(header, rows, nil)
	assert.Len(t, records, 2)
}

func TestRecords_ShortAndLongRows(t *testing.T) {
	header := []string{"name", "email", "phone"}
	rows := [][]string{
		{"Ana"}, // missing trailing cells
		{"João", "joao@example.com", "21988880000", "extra-ignored"},
	}

	records := Records(header, rows, nil)
	require.Len(t, records, 2)
	_, hasEmail := records[0]["email"]
	assert.False(t, hasEmail)
	assert.Equal(t, "21988880000", records[1]["phone"])
}

func TestLoadMapping(t *testing.T) {
	path := writeTempFile(t, "mapping.yaml", []byte(
		"\"Nome Completo\": name\n\"E-mail\": email\nCelular: phone\n"))

	m, err := LoadMapping(path)
	require.NoError(t, err)
	assert.Equal(t, "name", m["nome completo"])
	assert.Equal(t, "email", m["e-mail"])
	assert.Equal(t, "phone", m["celular"])
}

func TestLoadMapping_MissingFile(t *testing.T) {
	_, err := LoadMapping(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read mapping file")
}

func TestReadCSV(t *testing.T) {
	path := writeTempFile(t, "leads.csv", []byte(
		"name,email,phone\nAna,ana@example.com,11912345678\nJoão,joao@example.com,21988880000\n"))

	header, rows, err := ReadCSV(path, CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "email", "phone"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Ana", "ana@example.com", "11912345678"}, rows[0])
}

func TestReadCSV_SemicolonDelimiter(t *testing.T) {
	path := writeTempFile(t, "leads.csv", []byte(
		"name;email\nAna;ana@example.com\n"))

	header, rows, err := ReadCSV(path, CSVOptions{Delimiter: ';'})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "email"}, header)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"Ana", "ana@example.com"}, rows[0])
}

func TestReadCSV_Latin1Encoding(t *testing.T) {
	// "João" in ISO-8859-1: 'ã' is 0xE3.
	path := writeTempFile(t, "leads.csv", []byte{
		'n', 'a', 'm', 'e', '\n',
		'J', 'o', 0xE3, 'o', '\n',
	})

	header, rows, err := ReadCSV(path, CSVOptions{Encoding: "iso-8859-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, header)
	require.Len(t, rows, 1)
	assert.Equal(t, "João", rows[0][0])
}

func TestReadCSV_UnknownEncoding(t *testing.T) {
	path := writeTempFile(t, "leads.csv", []byte("name\nAna\n"))

	_, _, err := ReadCSV(path, CSVOptions{Encoding: "not-a-charset"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown encoding")
}

func TestReadCSV_EmptyFile(t *testing.T) {
	path := writeTempFile(t, "empty.csv", nil)

	_, _, err := ReadCSV(path, CSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no header row")
}
