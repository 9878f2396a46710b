package engine

import "strings"

// Split breaks a block of statement text into individual statements on
// semicolon boundaries. Semicolons inside quoted strings, quoted
// identifiers and comments do not split, and neither do the ones inside a
// CREATE TRIGGER body: the definition runs through its closing END, the
// boundary sqlite3_complete draws. Statements made up entirely of
// whitespace and comments are dropped; trailing text without a semicolon
// counts as a final statement.
func Split(text string) []string {
	var statements []string
	var s splitter
	start := 0

	i := 0
	for i < len(text) {
		switch c := text[i]; {
		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(text, i+1, c)
			s.other()
		case c == '[':
			i = skipQuoted(text, i+1, ']')
			s.other()
		case c == '-' && i+1 < len(text) && text[i+1] == '-':
			i = skipLineComment(text, i+2)
		case c == '/' && i+1 < len(text) && text[i+1] == '*':
			i = skipBlockComment(text, i+2)
		case c == ';':
			if s.semicolon() {
				if s.meaningful {
					statements = append(statements, strings.TrimSpace(text[start:i]))
				}
				start = i + 1
				s = splitter{}
			}
			i++
		case isWordByte(c):
			j := i + 1
			for j < len(text) && isWordByte(text[j]) {
				j++
			}
			s.word(text[i:j])
			i = j
		default:
			if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
				s.other()
			}
			i++
		}
	}

	if s.meaningful {
		statements = append(statements, strings.TrimSpace(text[start:]))
	}
	return statements
}

type splitState int

const (
	stateStart       splitState = iota // nothing of the statement seen yet
	stateNormal                        // ordinary statement body
	stateCreate                        // CREATE seen, possibly qualified by TEMP
	stateTrigger                       // inside a trigger definition
	stateTriggerSemi                   // trigger body statement just closed
	stateTriggerEnd                    // END seen; the next semicolon closes the trigger
)

// splitter tracks just enough statement structure to know which semicolons
// terminate: between CREATE TRIGGER and the END closing its body, none do.
type splitter struct {
	state      splitState
	meaningful bool
}

// word advances the state on one unquoted word, keyword or not. Keywords
// are matched case-insensitively; a quoted END is a value, not a keyword,
// and never reaches here.
func (s *splitter) word(w string) {
	s.meaningful = true
	switch s.state {
	case stateStart:
		switch {
		case strings.EqualFold(w, "CREATE"):
			s.state = stateCreate
		case strings.EqualFold(w, "EXPLAIN"):
			// A prefix; the statement proper starts after it.
		default:
			s.state = stateNormal
		}
	case stateCreate:
		switch {
		case strings.EqualFold(w, "TEMP"), strings.EqualFold(w, "TEMPORARY"):
			// Still a CREATE qualifier.
		case strings.EqualFold(w, "TRIGGER"):
			s.state = stateTrigger
		default:
			s.state = stateNormal
		}
	case stateTriggerSemi:
		if strings.EqualFold(w, "END") {
			s.state = stateTriggerEnd
		} else {
			s.state = stateTrigger
		}
	case stateTriggerEnd:
		s.state = stateTrigger
	}
}

// other advances the state on any token that is not a word or a
// semicolon: operators, parentheses, quoted regions.
func (s *splitter) other() {
	s.meaningful = true
	switch s.state {
	case stateStart, stateCreate:
		s.state = stateNormal
	case stateTriggerSemi, stateTriggerEnd:
		s.state = stateTrigger
	}
}

// semicolon reports whether this semicolon terminates the statement. In a
// trigger body it separates the body's inner statements instead; only the
// one following END terminates.
func (s *splitter) semicolon() bool {
	switch s.state {
	case stateTrigger:
		s.state = stateTriggerSemi
		return false
	case stateTriggerSemi:
		return false
	default:
		return true
	}
}

func isWordByte(c byte) bool {
	return c == '_' || '0' <= c && c <= '9' || 'A' <= c && c <= 'Z' || 'a' <= c && c <= 'z' || c >= 0x80
}

// skipQuoted advances past a quoted region opened just before i. SQL
// escapes a quote by doubling it, which reads here as two adjacent quoted
// regions and splits identically. An unterminated quote runs to the end of
// the text; the statement is passed through for the engine to reject.
func skipQuoted(text string, i int, close byte) int {
	for ; i < len(text); i++ {
		if text[i] == close {
			return i + 1
		}
	}
	return i
}

func skipLineComment(text string, i int) int {
	for ; i < len(text); i++ {
		if text[i] == '\n' {
			return i + 1
		}
	}
	return i
}

func skipBlockComment(text string, i int) int {
	for ; i+1 < len(text); i++ {
		if text[i] == '*' && text[i+1] == '/' {
			return i + 2
		}
	}
	return len(text)
}
