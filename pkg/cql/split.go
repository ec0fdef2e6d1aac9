package cql

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxLineSize bounds a single script line. Fixture files often carry
// large inline blobs on one line.
const maxLineSize = 16 * 1024 * 1024

// Split lexes a whole script held in memory.
func Split(text string) []string {
	return NewLexer(splitText(text)).Statements()
}

// SplitLines lexes a script already split into lines.
func SplitLines(lines []string) []string {
	return NewLexer(lines).Statements()
}

// ReadLines reads every line from r, without line terminators.
func ReadLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return lines, nil
}

func splitText(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}
