package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/errors"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadMovies(t *testing.T) {
	path := writeFile(t, "The Matrix\tA hacker discovers reality is a simulation\r\n"+
		"\n"+
		"The Notebook\tA love story across decades\textra column\n")

	movies, stats, err := ReadMovies(path, Abort)
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, Movie{Line: 1, Title: "The Matrix", Body: "A hacker discovers reality is a simulation"}, movies[0])
	assert.Equal(t, Movie{Line: 3, Title: "The Notebook", Body: "A love story across decades"}, movies[1])
	assert.Equal(t, Stats{Lines: 3, Records: 2}, stats)
}

func TestReadMoviesMalformedPolicies(t *testing.T) {
	content := "Alien\tIn space no one can hear you scream\nno tab here\nHeat\tCops and robbers\n"

	movies, stats, err := ReadMovies(writeFile(t, content), Skip)
	require.NoError(t, err)
	assert.Len(t, movies, 2)
	assert.Equal(t, 1, stats.Skipped)

	_, _, err = ReadMovies(writeFile(t, content), Abort)
	require.ErrorIs(t, err, apperrors.ErrMalformedRecord)
	var recErr *apperrors.MalformedRecordError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, 2, recErr.Line)
}

func TestReadMoviesMissingFile(t *testing.T) {
	_, _, err := ReadMovies(filepath.Join(t.TempDir(), "nope.txt"), Skip)
	assert.ErrorIs(t, err, apperrors.ErrIOFailure)
}

func TestReadBenchmark(t *testing.T) {
	path := writeFile(t, "matrix\t1\nlove story\t2 5\nempty set\t\nbroken\t1 two\n")

	records, stats, err := ReadBenchmark(path, Skip)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "love story", records[1].Query)
	assert.Equal(t, "2 5", records[1].Relevant)
	assert.Equal(t, "", records[2].Relevant)
	assert.Equal(t, 1, stats.Skipped)

	_, _, err = ReadBenchmark(path, Abort)
	assert.ErrorIs(t, err, apperrors.ErrMalformedRecord)
}

func TestReadLongLine(t *testing.T) {
	body := strings.Repeat("word ", 100000)
	var got []string
	_, err := Read(strings.NewReader("Long\t"+body+"\n"), "mem", Abort, func(line int, cols []string) error {
		got = cols
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, body, got[1])
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("abort")
	require.NoError(t, err)
	assert.Equal(t, Abort, p)

	p, err = ParsePolicy("skip")
	require.NoError(t, err)
	assert.Equal(t, Skip, p)

	_, err = ParsePolicy("ignore")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
