package tle

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/kkgkaundal/sas/internal/apperr"
)

// Parse reads TLE text from r. Both the 3-line form (name, line 1, line 2)
// and the bare 2-line form are accepted. Groups that cannot be parsed are
// skipped with a warning and counted in skipped.
func Parse(r io.Reader, logger *slog.Logger) (entries []Entry, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("reading TLE data: %w", err)
	}

	for i := 0; i < len(lines); {
		var name, line1, line2 string
		switch {
		case isLine(lines, i, '1') && isLine(lines, i+1, '2'):
			line1, line2 = lines[i], lines[i+1]
			i += 2
		case isLine(lines, i+1, '1') && isLine(lines, i+2, '2'):
			name, line1, line2 = strings.TrimSpace(lines[i]), lines[i+1], lines[i+2]
			i += 3
		default:
			logger.Warn("skipping malformed TLE line", "line_index", i, "line", lines[i])
			skipped++
			i++
			continue
		}

		e, err := parseGroup(name, line1, line2)
		if err != nil {
			logger.Warn("skipping malformed TLE entry", "name", name, "error", err)
			skipped++
			continue
		}
		entries = append(entries, e)
	}

	return entries, skipped, nil
}

// ParseOne parses a response expected to hold exactly one element set, as
// returned by a single-catalog query.
func ParseOne(data []byte, catalog int, logger *slog.Logger) (Entry, error) {
	entries, _, err := Parse(bytes.NewReader(data), logger)
	if err != nil {
		return Entry{}, apperr.New("tle.parse", apperr.ErrMalformedRecord, "", err)
	}
	for _, e := range entries {
		if e.CatalogNumber == catalog {
			return e, nil
		}
	}
	return Entry{}, apperr.Malformed("tle.parse", "no element set for catalog number %d", catalog)
}

func isLine(lines []string, i int, n byte) bool {
	return i < len(lines) && len(lines[i]) > 2 && lines[i][0] == n && lines[i][1] == ' '
}

func parseGroup(name, line1, line2 string) (Entry, error) {
	if len(line1) < 32 {
		return Entry{}, apperr.Malformed("tle.parse", "line 1 too short (%d chars)", len(line1))
	}

	// NORAD ID from line1 cols 3-7 (0-indexed: 2..7).
	noradStr := strings.TrimSpace(line1[2:7])
	catalog, err := strconv.Atoi(noradStr)
	if err != nil {
		return Entry{}, apperr.Malformed("tle.parse", "invalid catalog number %q", noradStr)
	}

	// Epoch from line1 cols 19-32 (0-indexed: 18..32).
	epochStr := strings.TrimSpace(line1[18:32])
	epoch, err := parseEpoch(epochStr)
	if err != nil {
		return Entry{}, apperr.New("tle.parse", apperr.ErrMalformedRecord, "invalid epoch", err)
	}

	if name == "" {
		name = strconv.Itoa(catalog)
	}
	return Entry{
		CatalogNumber: catalog,
		Name:          name,
		Epoch:         epoch,
		Line1:         line1,
		Line2:         line2,
	}, nil
}

// parseEpoch converts a TLE epoch string in YYDDD.DDDDDDDD format to time.Time.
// Year 00-56 → 2000s, 57-99 → 1900s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", s[:2], err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", s[2:], err)
	}

	// dayOfYear is 1-based: day 1 = Jan 1.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return t.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour))), nil
}
