// Package corpus reads the tab-separated movie corpus and benchmark files.
// Each non-blank line must carry at least two tab-separated columns; lines
// that do not are malformed and are either skipped with a warning or abort
// the read, depending on the Policy.
package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/evaluation/judgment"
	apperrors "github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/logger"
)

const maxLineSize = 4 * 1024 * 1024

type Policy int

const (
	Skip Policy = iota
	Abort
)

// ParsePolicy maps the configuration value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "skip", "":
		return Skip, nil
	case "abort":
		return Abort, nil
	default:
		return Skip, apperrors.Newf(apperrors.ErrInvalidInput, "unknown malformed-record policy %q", s)
	}
}

// Movie is one corpus line.
type Movie struct {
	Line  int
	Title string
	Body  string
}

// Stats summarises a read.
type Stats struct {
	Lines   int
	Records int
	Skipped int
}

// ReadMovies reads a corpus file of title<TAB>body lines.
func ReadMovies(path string, policy Policy) ([]Movie, Stats, error) {
	var movies []Movie
	stats, err := readFile(path, policy, func(line int, cols []string) error {
		movies = append(movies, Movie{Line: line, Title: cols[0], Body: cols[1]})
		return nil
	})
	if err != nil {
		return nil, stats, err
	}
	return movies, stats, nil
}

// ReadBenchmark reads a benchmark file of query<TAB>ids lines. A line whose
// id list does not parse is malformed.
func ReadBenchmark(path string, policy Policy) ([]judgment.Record, Stats, error) {
	var records []judgment.Record
	stats, err := readFile(path, policy, func(line int, cols []string) error {
		if _, err := judgment.ParseIDs(cols[1]); err != nil {
			return err
		}
		records = append(records, judgment.Record{Line: line, Query: cols[0], Relevant: cols[1]})
		return nil
	})
	if err != nil {
		return nil, stats, err
	}
	return records, stats, nil
}

func readFile(path string, policy Policy, fn func(line int, cols []string) error) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, apperrors.Newf(apperrors.ErrIOFailure, "opening %s: %v", path, err)
	}
	defer f.Close()
	return Read(f, path, policy, fn)
}

// Read scans r line by line and hands the columns of every well-formed line
// to fn. Columns past the second are ignored. An error returned by fn marks
// the line malformed.
func Read(r io.Reader, path string, policy Policy, fn func(line int, cols []string) error) (Stats, error) {
	log := logger.WithComponent("corpus").With("path", path)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var stats Stats
	for scanner.Scan() {
		stats.Lines++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		cols := strings.Split(text, "\t")
		var recErr *apperrors.MalformedRecordError
		if len(cols) < 2 {
			recErr = &apperrors.MalformedRecordError{Path: path, Line: stats.Lines, Reason: "expected two tab-separated columns"}
		} else if err := fn(stats.Lines, cols[:2]); err != nil {
			if !errors.As(err, &recErr) {
				recErr = &apperrors.MalformedRecordError{Path: path, Line: stats.Lines, Reason: err.Error()}
			}
		}
		if recErr != nil {
			if policy == Abort {
				return stats, recErr
			}
			stats.Skipped++
			log.Warn("skipping malformed record", "line", recErr.Line, "reason", recErr.Reason)
			continue
		}
		stats.Records++
	}
	if err := scanner.Err(); err != nil {
		return stats, apperrors.Newf(apperrors.ErrIOFailure, "reading %s: %v", path, err)
	}
	return stats, nil
}

func (s Stats) String() string {
	return fmt.Sprintf("lines=%d records=%d skipped=%d", s.Lines, s.Records, s.Skipped)
}
