package simlog

import (
	"fmt"
	"io"
	"strings"
)

// CountStartedUsers counts the lines mentioning both USER and START. It is
// meant for logs that are still being written, so it never validates lines.
func CountStartedUsers(r io.Reader) (uint64, error) {
	scanner := newLineReader(r)

	var count uint64
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, actionUser) && strings.Contains(line, userStart) {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("error reading input: %w", err)
	}

	return count, nil
}
