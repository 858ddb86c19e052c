package matrixio

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authscreen/domain/survey"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVSource_ReadMatrix(t *testing.T) {
	dir := t.TempDir()
	items := writeFile(t, dir, "items.csv",
		"item_id,n_categories\nq1,2\nq2,5\n")
	responses := writeFile(t, dir, "responses.csv",
		"participant_id,is_authentic,covariate,q1,q2\n"+
			"p1,true,0.5,1,4\n"+
			"p2,true,-0.3,0,\n"+
			"p3,false,1.1,1,2\n")

	m, err := NewCSVSource(items, responses).ReadMatrix(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, m.NItems())
	assert.Equal(t, survey.ItemBinary, m.Items[0].Type)
	assert.Equal(t, survey.ItemPolytomous, m.Items[1].Type)

	require.Equal(t, 3, m.NParticipants())
	assert.Equal(t, []int{0, 1}, m.AuthenticIndex())
	assert.Equal(t, []int{2}, m.NonAuthenticIndex())

	code, observed := m.Response(0, 1)
	assert.True(t, observed)
	assert.Equal(t, 4, code)

	_, observed = m.Response(1, 1)
	assert.False(t, observed, "empty cell must read as missing")
	assert.Equal(t, 1, m.Participants[1].NAnswered())
}

func TestCSVSource_TruncatedRowTreatsTailAsMissing(t *testing.T) {
	dir := t.TempDir()
	items := writeFile(t, dir, "items.csv",
		"item_id,n_categories\nq1,3\nq2,3\nq3,3\n")
	responses := writeFile(t, dir, "responses.csv",
		"participant_id,is_authentic,covariate,q1,q2,q3\n"+
			"p1,true,0,1\n")

	m, err := NewCSVSource(items, responses).ReadMatrix(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, m.Participants[0].NAnswered())
}

func TestCSVSource_RejectsOutOfRangeCode(t *testing.T) {
	dir := t.TempDir()
	items := writeFile(t, dir, "items.csv",
		"item_id,n_categories\nq1,2\n")
	responses := writeFile(t, dir, "responses.csv",
		"participant_id,is_authentic,covariate,q1\np1,true,0,7\n")

	_, err := NewCSVSource(items, responses).ReadMatrix(context.Background())
	assert.Error(t, err)
}

func TestCSVSource_RejectsBadAuthenticFlag(t *testing.T) {
	dir := t.TempDir()
	items := writeFile(t, dir, "items.csv",
		"item_id,n_categories\nq1,2\n")
	responses := writeFile(t, dir, "responses.csv",
		"participant_id,is_authentic,covariate,q1\np1,maybe,0,1\n")

	_, err := NewCSVSource(items, responses).ReadMatrix(context.Background())
	assert.Error(t, err)
}
