package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var ErrInvalidPair = errors.New("invalid format in config file")

// Pair is one monitored source directory and its target.
type Pair struct {
	Src string
	Dst string
}

var pairLine = regexp.MustCompile(`^\(\s*([^,()]*[^,()\s])\s*,\s*([^,()]*[^,()\s])\s*\)$`)

// ReadPairs reads a directory-pair file with one "(src, dst)" entry per
// line. Neither path may contain ',', '(' or ')', since those delimit the
// entry. Blank lines are skipped; any other malformed line is an error.
func ReadPairs(path string) ([]Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	return ParsePairs(f)
}

func ParsePairs(r io.Reader) ([]Pair, error) {
	var pairs []Pair

	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		m := pairLine.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("%w: line %d: %q: want \"(src, dst)\" with no ',', '(' or ')' in either path",
				ErrInvalidPair, n, line)
		}
		pairs = append(pairs, Pair{Src: m[1], Dst: m[2]})
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return pairs, nil
}
