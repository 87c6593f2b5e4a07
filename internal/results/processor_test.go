package results

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adam-setup/server/internal/dataset"
	"github.com/adam-setup/server/internal/sandbox"
)

type stubStore struct {
	uploads []string
	err     error
}

func (s *stubStore) Upload(_ context.Context, _ *dataset.Table, label string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.uploads = append(s.uploads, label)
	return "/artifacts/" + label, nil
}

func wideTable(rows, cols int) *dataset.Table {
	names := make([]string, cols)
	for i := range names {
		names[i] = fmt.Sprintf("col_%d", i+1)
	}
	t := dataset.New(names...)
	for r := 0; r < rows; r++ {
		values := make(map[string]any, cols)
		for _, n := range names {
			values[n] = fmt.Sprintf("v%d", r)
		}
		t.AppendRow(values)
	}
	return t
}

func TestProcessSmallTable(t *testing.T) {
	p := NewProcessor(nil, 0)
	tbl := dataset.New("Name", "Budget")
	tbl.AppendRow(map[string]any{"Name": "li-1", "Budget": 100.0})

	pr := p.Process(context.Background(), sandbox.TableResult(tbl), "line_items")
	assert.Equal(t, StatusSuccess, pr.Status)
	assert.Equal(t, 1, pr.TotalRows)
	assert.Equal(t, 2, pr.TotalColumns)
	assert.False(t, pr.Truncated)
	assert.Contains(t, pr.Display, "li-1")
}

func TestProcessTruncation(t *testing.T) {
	p := NewProcessor(nil, -1)
	pr := p.Process(context.Background(), sandbox.TableResult(wideTable(25, 14)), "big")

	assert.Equal(t, StatusSuccess, pr.Status)
	assert.True(t, pr.Truncated)
	assert.Equal(t, 25, pr.TotalRows)
	assert.Equal(t, 14, pr.TotalColumns)
	assert.Contains(t, pr.Display, "... +15 more rows")
	assert.Contains(t, pr.Display, "... +4 more columns")

	// The display block itself holds only the visible window.
	lines := strings.Split(pr.Display, "\n")
	// header + 10 rows + 2 overflow notes
	assert.Len(t, lines, 13)
	assert.NotContains(t, lines[0], "col_11")
}

func TestProcessExactBoundsNotTruncated(t *testing.T) {
	p := NewProcessor(nil, -1)
	pr := p.Process(context.Background(), sandbox.TableResult(wideTable(10, 10)), "exact")
	assert.False(t, pr.Truncated)
	assert.NotContains(t, pr.Display, "more rows")
}

func TestProcessEmptyTable(t *testing.T) {
	p := NewProcessor(nil, 0)
	pr := p.Process(context.Background(), sandbox.TableResult(dataset.New("Name")), "nothing")
	assert.Equal(t, StatusEmpty, pr.Status)
}

func TestProcessErrorMarker(t *testing.T) {
	p := NewProcessor(nil, 0)
	pr := p.Process(context.Background(), sandbox.ErrorResult("KeyError: 'Budget'"), "failed")
	assert.Equal(t, StatusError, pr.Status)
	assert.Equal(t, "KeyError: 'Budget'", pr.ErrorDetails)
}

func TestProcessOffloadThreshold(t *testing.T) {
	store := &stubStore{}
	p := NewProcessor(store, 6)

	small := wideTable(2, 3) // 6 cells, not above threshold
	pr := p.Process(context.Background(), sandbox.TableResult(small), "small")
	assert.Empty(t, pr.Links)

	big := wideTable(3, 3) // 9 cells
	pr = p.Process(context.Background(), sandbox.TableResult(big), "big")
	require.Len(t, pr.Links, 1)
	assert.Equal(t, "/artifacts/big", pr.Links[0].URL)
	assert.Equal(t, []string{"big"}, store.uploads)
}

func TestProcessZeroThresholdOffloadsEverything(t *testing.T) {
	store := &stubStore{}
	p := NewProcessor(store, 0)
	pr := p.Process(context.Background(), sandbox.TableResult(wideTable(1, 1)), "tiny")
	require.Len(t, pr.Links, 1)
}

func TestProcessUploadFailureIsPartial(t *testing.T) {
	p := NewProcessor(&stubStore{err: assert.AnError}, 0)
	pr := p.Process(context.Background(), sandbox.TableResult(wideTable(2, 2)), "x")
	assert.Equal(t, StatusPartialSuccess, pr.Status)
	assert.NotEmpty(t, pr.UploadNote)
	assert.Empty(t, pr.Links)
	// The preview is still available.
	assert.NotEmpty(t, pr.Display)
}

func TestProcessNamedResult(t *testing.T) {
	store := &stubStore{}
	p := NewProcessor(store, -1)

	res := sandbox.NamedResult([]sandbox.NamedTable{
		{Name: "abnormal_campaigns", Table: wideTable(2, 2)},
		{Name: "abnormal_line_items", Table: dataset.New("Name")},
	})
	pr := p.Process(context.Background(), res, "anomaly_run")

	assert.Equal(t, StatusSuccess, pr.Status)
	require.Len(t, pr.Items, 2)
	assert.Equal(t, "abnormal_campaigns", pr.Items[0].Label)
	assert.Equal(t, StatusEmpty, pr.Items[1].Status)
}

func TestCompositeStatusSeverity(t *testing.T) {
	p := NewProcessor(nil, -1)

	res := &sandbox.Result{Kind: sandbox.KindList, Tables: []*dataset.Table{
		wideTable(1, 1),
		dataset.ErrorMarker("boom"),
	}}
	pr := p.Process(context.Background(), res, "mixed")
	assert.Equal(t, StatusError, pr.Status)

	allEmpty := &sandbox.Result{Kind: sandbox.KindList, Tables: []*dataset.Table{
		dataset.New("a"), dataset.New("b"),
	}}
	pr = p.Process(context.Background(), allEmpty, "empty")
	assert.Equal(t, StatusEmpty, pr.Status)
}

func TestFormatSummary(t *testing.T) {
	p := NewProcessor(&stubStore{}, 0)
	pr := p.Process(context.Background(), sandbox.TableResult(wideTable(2, 2)), "line_items")

	summary := FormatSummary(pr)
	assert.Contains(t, summary, "## Result: line_items")
	assert.Contains(t, summary, "Status: success")
	assert.Contains(t, summary, "Rows: 2, Columns: 2")
	assert.Contains(t, summary, "Download: [line_items](/artifacts/line_items)")
}

func TestFormatSummaryError(t *testing.T) {
	p := NewProcessor(nil, -1)
	pr := p.Process(context.Background(), sandbox.ErrorResult("data missing"), "x")
	summary := FormatSummary(pr)
	assert.Contains(t, summary, "Status: error")
	assert.Contains(t, summary, "Error: data missing")
}
