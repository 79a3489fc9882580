package csvio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadColumn(t *testing.T) {
	path := writeFile(t, "in.csv", "id,sentence,label\n1,the cat sat,a\n2,on the mat,b\n3,quite happily,c\n")

	got, err := LoadColumn(path, "sentence", ",")
	require.NoError(t, err)
	assert.Equal(t, []string{"the cat sat", "on the mat", "quite happily"}, got)
}

func TestLoadColumnMissingColumn(t *testing.T) {
	path := writeFile(t, "in.csv", "id,text\n1,hello\n")

	_, err := LoadColumn(path, "sentence", ",")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"sentence" column does not exist`)
}

func TestLoadColumnEmptyFile(t *testing.T) {
	path := writeFile(t, "in.csv", "")

	_, err := LoadColumn(path, "sentence", ",")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no header row")
}

func TestLoadColumnTSVForcesTab(t *testing.T) {
	path := writeFile(t, "in.tsv", "id\tsentence\n1\thello there\n2\tgeneral kenobi\n")

	got, err := LoadColumn(path, "sentence", ",")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello there", "general kenobi"}, got)
}

func TestLoadColumnCustomDelimiter(t *testing.T) {
	path := writeFile(t, "in.csv", "id|sentence\n1|hello, world\n")

	got, err := LoadColumn(path, "sentence", "|")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello, world"}, got)
}

func TestAppendColumnRoundTrip(t *testing.T) {
	path := writeFile(t, "in.csv", "id,sentence\n1,a\n2,b\n")

	err := AppendColumn(path, []string{"a", "b"}, []float64{2.5, 4.5}, ",")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,sentence,Perplexity\n1,a,2.5\n2,b,4.5\n", string(data))
}

func TestAppendColumnLengthMismatch(t *testing.T) {
	path := writeFile(t, "in.csv", "id,sentence\n1,a\n2,b\n")

	err := AppendColumn(path, []string{"a", "b"}, []float64{2.5}, ",")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to write misaligned rows")

	// the file is untouched
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,sentence\n1,a\n2,b\n", string(data))
}

func TestAppendColumnRowCountMismatch(t *testing.T) {
	path := writeFile(t, "in.csv", "id,sentence\n1,a\n2,b\n3,c\n")

	err := AppendColumn(path, []string{"a", "b"}, []float64{2.5, 4.5}, ",")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 data rows but 2 perplexities")
}

func TestLoadAndAppendExcel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"id", "sentence"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{1, "hello"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{2, "world"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	sentences, err := LoadColumn(path, "sentence", ",")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "world"}, sentences)

	require.NoError(t, AppendColumn(path, sentences, []float64{1.5, 3.5}, ","))

	out, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer out.Close()

	rows, err := out.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "sentence", "Perplexity"}, rows[0])
	assert.Equal(t, "1.5", rows[1][2])
	assert.Equal(t, "3.5", rows[2][2])
}
