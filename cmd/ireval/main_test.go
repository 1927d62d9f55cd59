package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/errors"
)

const testCorpus = "The Matrix\tA hacker discovers reality is a simulation\n" +
	"The Notebook\tA love story across decades\n" +
	"this line has no tab\n" +
	"Love Actually\tLove stories intertwine in London at Christmas\n"

const testBenchmark = "matrix\t1\n" +
	"love\t2 4\n"

// writeConfig lays out a corpus, a benchmark and a config file in a temp
// dir and returns the config path. extra is appended to the YAML.
func writeConfig(t *testing.T, extra ...string) string {
	t.Helper()
	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "movies.txt")
	benchPath := filepath.Join(dir, "benchmark.txt")
	require.NoError(t, os.WriteFile(corpusPath, []byte(testCorpus), 0644))
	require.NoError(t, os.WriteFile(benchPath, []byte(testBenchmark), 0644))

	cfg := fmt.Sprintf(`corpus:
  path: %s
  onMalformed: skip
benchmark:
  path: %s
indexer:
  dataDir: %s
  compression: lz4
logging:
  level: error
`, corpusPath, benchPath, filepath.Join(dir, "data")) + strings.Join(extra, "")
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestIndexThenEvaluate(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := run(t, "index", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Documents added: 3 (skipped 1 malformed)")

	out, err = run(t, "evaluate", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "####### Field: title")
	assert.Contains(t, out, "       Query: matrix")
	assert.Contains(t, out, "MAP:")

	out, err = run(t, "evaluate", "--config", cfgPath, "--format", "json", "--keep-retrieved")
	require.NoError(t, err)
	var rep evaluation.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Fields, 3)
	assert.Equal(t, "title", rep.Fields[0].Field)
	assert.Equal(t, 3, rep.K)

	title := rep.Fields[0]
	require.Len(t, title.Queries, 2)
	assert.Equal(t, "matrix", title.Queries[0].Query)
	assert.Equal(t, []index.DocID{1}, title.Queries[0].Retrieved)
	assert.InDelta(t, 1.0, title.Queries[0].AP, 1e-9)
	// Line 3 of the corpus is malformed, so Love Actually keeps id 4.
	assert.Equal(t, []index.DocID{4}, title.Queries[1].Retrieved)
	assert.Equal(t, []index.DocID{2, 4}, title.Queries[1].RelevantIDs)
	assert.InDelta(t, 0.5, title.Queries[1].AP, 1e-9)
}

func TestEvaluateFieldsOverride(t *testing.T) {
	cfgPath := writeConfig(t)
	_, err := run(t, "index", "--config", cfgPath)
	require.NoError(t, err)

	out, err := run(t, "evaluate", "--config", cfgPath, "--fields", "body", "--format", "json")
	require.NoError(t, err)
	var rep evaluation.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Fields, 1)
	assert.Equal(t, "body", rep.Fields[0].Field)
}

func TestEvaluateRejectsDuplicateFields(t *testing.T) {
	cfgPath := writeConfig(t)
	_, err := run(t, "index", "--config", cfgPath)
	require.NoError(t, err)

	_, err = run(t, "evaluate", "--config", cfgPath, "--fields", "title,title")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), `"title" is listed more than once`)

	_, err = run(t, "evaluate", "--config", cfgPath, "--fields", "title,")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	for _, limit := range []string{"0", "-1"} {
		_, err := run(t, "history", "--config", writeConfig(t), "--limit", limit)
		require.ErrorIs(t, err, apperrors.ErrInvalidInput, limit)
		assert.Contains(t, err.Error(), "--limit must be at least 1")
	}
}

func TestCacheClearRequiresRedis(t *testing.T) {
	_, err := run(t, "cache", "clear", "--config", writeConfig(t))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = run(t, "cache", "flush", "--config", writeConfig(t))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestIndexSurvivesUnreachableRedis(t *testing.T) {
	cfgPath := writeConfig(t, "redis:\n  enabled: true\n  addr: 127.0.0.1:1\n")
	out, err := run(t, "index", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Documents added: 3")
}

// Needs a reachable server configured through the IREVAL_POSTGRES_*
// variables.
func TestHistoryShowsStoredRun(t *testing.T) {
	if os.Getenv("IREVAL_TEST_POSTGRES") == "" {
		t.Skip("IREVAL_TEST_POSTGRES not set")
	}
	cfgPath := writeConfig(t, "postgres:\n  enabled: true\n")
	_, err := run(t, "index", "--config", cfgPath)
	require.NoError(t, err)
	out, err := run(t, "evaluate", "--config", cfgPath, "--format", "json")
	require.NoError(t, err)
	var rep evaluation.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))

	out, err = run(t, "history", rep.RunID, "--config", cfgPath, "--format", "json")
	require.NoError(t, err)
	var stored evaluation.Report
	require.NoError(t, json.Unmarshal([]byte(out), &stored))
	assert.Equal(t, rep.RunID, stored.RunID)
	assert.Equal(t, rep.Fields, stored.Fields)

	_, err = run(t, "history", uuid.NewString(), "--config", cfgPath)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCheck(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := run(t, "check", "--config", cfgPath)
	assert.ErrorIs(t, err, apperrors.ErrIOFailure, "no segment yet")
	assert.Contains(t, out, "segment")

	_, err = run(t, "index", "--config", cfgPath)
	require.NoError(t, err)
	out, err = run(t, "check", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "disabled")
}

func TestEvaluateWithoutIndex(t *testing.T) {
	_, err := run(t, "evaluate", "--config", writeConfig(t))
	require.Error(t, err)
	assert.Equal(t, apperrors.ExitIO, apperrors.ExitCode(err))
}

func TestUsageErrors(t *testing.T) {
	_, err := run(t, "reindex")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = run(t, "index", "--no-such-flag")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = run(t, "index", "--config", writeConfig(t), "--format", "xml")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = run(t, "history", "--config", writeConfig(t))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
