package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homework-grader/api/internal/verify"
)

func TestHashSteps(t *testing.T) {
	a := []*verify.SolutionStep{{From: "3×4 + 2", To: "14"}, {From: "14", To: "14"}}
	b := []*verify.SolutionStep{{From: "3*4+2", To: " 14 "}, nil, {From: "14", To: "14"}}
	c := []*verify.SolutionStep{{From: "14", To: "14"}, {From: "3*4+2", To: "14"}}

	assert.Len(t, HashSteps(a), 64)
	assert.Equal(t, HashSteps(a), HashSteps(b), "normalized steps share a hash")
	assert.NotEqual(t, HashSteps(a), HashSteps(c), "order matters")
	assert.NotEqual(t, HashSteps(nil), HashSteps(a))
}

func TestPurge_RejectsNonPositiveAge(t *testing.T) {
	// проверка аргумента срабатывает до обращения к БД
	_, err := (&GradeRepo{}).PurgeOlderThan(context.Background(), 0)
	require.Error(t, err)
	_, err = (&SegmentRepo{}).PurgeOlderThan(context.Background(), -1)
	require.Error(t, err)
}

func TestSave_NilRecord(t *testing.T) {
	assert.Error(t, (&GradeRepo{}).Save(context.Background(), nil))
}

// rowStub отдаёт заранее заданные значения колонок в порядке selectRecord.
type rowStub []any

func (r rowStub) Scan(dest ...any) error {
	if len(dest) != len(r) {
		return fmt.Errorf("scan: %d dest for %d columns", len(dest), len(r))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r[i].(int64)
		case *string:
			*p = r[i].(string)
		case *time.Time:
			*p = r[i].(time.Time)
		case *[]byte:
			*p = r[i].([]byte)
		case *bool:
			*p = r[i].(bool)
		case *float64:
			*p = r[i].(float64)
		default:
			return fmt.Errorf("scan: unexpected dest %T", d)
		}
	}
	return nil
}

func gradedRow(t *testing.T, steps, result []byte) rowStub {
	t.Helper()
	return rowStub{
		int64(7), time.Now(), "req-1", "hash", "p1",
		"15 - (-4)", "api", int64(0), "judge", "ru", "external_first",
		steps, result, false, 0.5,
	}
}

func TestScanRecord_DecodesGradedSteps(t *testing.T) {
	steps := []*verify.SolutionStep{
		{From: "15 - (-4)", To: "11"},
		{From: "16/16 + 4/9", To: "13/9"},
	}
	res, err := verify.NewGrader().GradeSteps(context.Background(), steps)
	require.NoError(t, err)

	stepsJSON, err := json.Marshal(steps)
	require.NoError(t, err)
	require.Contains(t, string(stepsJSON), `"from_value":"19"`)
	resultJSON, err := json.Marshal(res)
	require.NoError(t, err)

	rec, err := scanRecord(gradedRow(t, stepsJSON, resultJSON))
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, "req-1", rec.RequestID)
	require.Len(t, rec.Steps, 2)
	require.NotNil(t, rec.Steps[0].Check)
	require.NotNil(t, rec.Steps[0].Check.FromValue)
	assert.True(t, rec.Steps[0].Check.FromValue.Equal(verify.IntNumber(19)))
	assert.Equal(t, verify.Incorrect, rec.Steps[0].Rule)
	assert.Equal(t, "13/9", rec.Steps[1].Check.ToValue.String())
	assert.Equal(t, res.IsCorrect, rec.Result.IsCorrect)
	assert.Equal(t, len(res.Steps), len(rec.Result.Steps))
}

func TestScanRecord_BrokenJSONIsNotNotFound(t *testing.T) {
	_, err := scanRecord(gradedRow(t, []byte(`[{"check":{"from_value":"abc"}}]`), []byte(`{}`)))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "steps_json")

	_, err = scanRecord(gradedRow(t, []byte(`[]`), []byte(`{`)))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "result_json")
}
