package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDatasetSummary_Merge(t *testing.T) {
	d := &DatasetSummary{Dataset: "dfp"}

	r1 := NewResult()
	r1.RowsRead = 100
	r1.RowsWritten = 90
	r1.RowsFailed = 5
	r1.Batches = 1
	r1.Rejected[ReasonBadTaxID] = 3
	r1.Rejected[ReasonFiltered] = 2

	r2 := NewResult()
	r2.RowsRead = 50
	r2.RowsWritten = 50
	r2.Rejected[ReasonBadTaxID] = 1

	d.Merge(r1)
	d.Merge(r2)
	d.Merge(nil)

	assert.Equal(t, int64(150), d.RowsRead)
	assert.Equal(t, int64(140), d.RowsWritten)
	assert.Equal(t, int64(5), d.RowsFailed)
	assert.Equal(t, 1, d.BatchesFailed)
	assert.Equal(t, map[string]int64{ReasonBadTaxID: 4, ReasonFiltered: 2}, d.Rejected)
}

func TestResult_Tallies(t *testing.T) {
	r := NewResult()

	r.Accept()
	r.Accept()
	r.Reject(ReasonBadTaxID)
	// Rows the CSV reader skipped never reach the mappers; they are folded
	// in after the stream so they still show up in the totals.
	r.RejectN(ReasonParseRow, 3)
	r.RejectN(ReasonParseRow, 0)
	r.RejectN(ReasonParseRow, -1)

	assert.Equal(t, int64(6), r.RowsRead)
	assert.Equal(t, map[string]int64{ReasonBadTaxID: 1, ReasonParseRow: 3}, r.Rejected)
}

func TestDatasetSummary_FailYearTruncatesError(t *testing.T) {
	d := &DatasetSummary{Dataset: "itr"}
	d.FailYear(2021, errors.New(strings.Repeat("e", 500)))
	d.SkipYear(2022)

	assert.Equal(t, []int{2021}, d.FailedYears)
	assert.Equal(t, []int{2022}, d.SkippedYears)
	assert.Len(t, d.LastError, 200)
}

func TestSummary_DatasetFindOrCreate(t *testing.T) {
	s := NewSummary()

	a := s.Dataset("fca")
	b := s.Dataset("fca")
	c := s.Dataset("dfp")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Len(t, s.Datasets, 2)
}

func TestSummary_WriteFile(t *testing.T) {
	s := NewSummary()
	d := s.Dataset("vlmo")
	d.RowsRead = 10
	d.RowsWritten = 8
	d.Rejected = map[string]int64{ReasonUnknownCompany: 2}
	d.SkipYear(2026)
	s.Finish()

	path := filepath.Join(t.TempDir(), "report.yaml")
	require.NoError(t, s.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Summary
	require.NoError(t, yaml.Unmarshal(data, &got))
	require.Len(t, got.Datasets, 1)
	assert.Equal(t, "vlmo", got.Datasets[0].Dataset)
	assert.Equal(t, int64(8), got.Datasets[0].RowsWritten)
	assert.Equal(t, []int{2026}, got.Datasets[0].SkippedYears)
	assert.Equal(t, map[string]int64{ReasonUnknownCompany: 2}, got.Datasets[0].Rejected)
}

func TestSummary_WriteFile_BadPath(t *testing.T) {
	s := NewSummary()
	err := s.WriteFile(filepath.Join(t.TempDir(), "missing", "report.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write report")
}
