// SPDX-License-Identifier: GPL-3.0-or-later

package rac

import (
	"bufio"
	"strconv"
	"strings"
)

// Record is one block of the administration tool's output, a flat mapping of
// normalized keys to string, int64 or bool values.
type Record map[string]any

// ParseRecords converts block-structured "key: value" text into an ordered
// slice of records. Blocks are separated by blank lines; a trailing block
// without a final blank line is still emitted. Keys are lowercased with
// internal spaces replaced by underscores. Values lose one pair of
// surrounding double quotes; "true"/"false" become bool, all-digit values
// become int64. Input without a single "key: value" line yields nil.
func ParseRecords(text string) []Record {
	var records []Record
	current := Record{}

	sc := bufio.NewScanner(strings.NewReader(text))

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		if line == "" {
			if len(current) > 0 {
				records = append(records, current)
				current = Record{}
			}
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		key = strings.ToLower(strings.TrimSpace(key))
		key = strings.ReplaceAll(key, " ", "_")
		current[key] = coerceValue(strings.TrimSpace(value))
	}

	if len(current) > 0 {
		records = append(records, current)
	}

	return records
}

func coerceValue(s string) any {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}

	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}

	if s != "" && isDigits(s) {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return v
		}
	}

	return s
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// String returns the value under key rendered as a string, regardless of the
// type the parser coerced it to.
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Int returns the value under key as int64, or 0 when missing or non-numeric.
func (r Record) Int(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		return n
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// Bool interprets the value under key as a flag. The tool reports flags
// inconsistently ("yes"/"no", "true"/"false", 0/1), so all three spellings
// are accepted.
func (r Record) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case string:
		s := strings.ToLower(v)
		return s == "yes" || s == "true" || s == "1"
	default:
		return false
	}
}
