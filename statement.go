package sqlview

// hasTrailingStatement reports whether query holds anything other than
// whitespace, comments or empty statements after its first top-level
// semicolon. String literals, quoted identifiers and comments are skipped,
// so a semicolon inside them does not end the statement.
func hasTrailingStatement(query string) bool {
	ended := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			continue
		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			i = skipTo(query, i+2, "\n")
			continue
		case c == '/' && i+1 < len(query) && query[i+1] == '*':
			i = skipTo(query, i+2, "*/")
			continue
		case c == ';':
			ended = true
			continue
		}

		if ended {
			return true
		}

		switch c {
		case '\'':
			i = skipTo(query, i+1, "'")
		case '"':
			i = skipTo(query, i+1, `"`)
		case '`':
			i = skipTo(query, i+1, "`")
		case '[':
			i = skipTo(query, i+1, "]")
		}
	}

	return false
}

// skipTo returns the index of the last byte of the first occurrence of
// end at or after start, or the last index of s when end never appears.
// A doubled quote inside a literal is read as a close followed by a new
// open, which lands on the same place.
func skipTo(s string, start int, end string) int {
	for i := start; i+len(end) <= len(s); i++ {
		if s[i:i+len(end)] == end {
			return i + len(end) - 1
		}
	}
	return len(s) - 1
}
