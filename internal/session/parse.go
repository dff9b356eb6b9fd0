package session

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// parseCoordinate reads a row or column given as an integer or a single
// letter A-Z (case-insensitive, A is 0).
func parseCoordinate(token string) (int, bool) {
	token = strings.TrimSpace(token)

	if value, err := strconv.Atoi(token); err == nil {
		return value, true
	}

	if utf8.RuneCountInString(token) == 1 {
		letter := strings.ToUpper(token)[0]
		if letter >= 'A' && letter <= 'Z' {
			return int(letter - 'A'), true
		}
	}

	return 0, false
}

// parseLine splits a command line into its lowercased name and arguments.
func parseLine(line string) (string, []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}

	return strings.ToLower(fields[0]), fields[1:]
}
