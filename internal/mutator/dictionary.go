package mutator

// dictionaryInsert overwrites a contiguous range with a token drawn
// uniformly from the loaded dictionary, truncated to fit the input.
// This is the supplemental ninth transformation described in
// SPEC_FULL.md §4.3: it only enters the draw when a dictionary has been
// loaded via SetDictionary, and the engine treats every token as an
// opaque byte string — no token is ever parsed or interpreted.
func (m *Mutator) dictionaryInsert(input []byte) ([]byte, bool) {
	if len(m.dict) == 0 {
		return nil, false
	}
	token := m.dict[secureIntn(len(m.dict))]
	if len(token) == 0 {
		return nil, false
	}

	out := copyOf(input)
	if len(token) > len(out) {
		token = token[:len(out)]
	}
	pos := secureIntn(len(out) - len(token) + 1)
	copy(out[pos:pos+len(token)], token)
	return out, true
}

// BuiltinDictionary returns a fixed set of tokens drawn from common
// injection-style payload strings (SQL, shell, path-traversal, and
// template-injection markers in particular), useful as a starting
// dictionary when the target's input format is textual. Each entry is
// an opaque byte string; covfuzz assigns it no structural meaning.
func BuiltinDictionary() [][]byte {
	strs := []string{
		// SQL
		"'", "' OR '1'='1", "' OR 1=1--", "'; DROP TABLE--", "' UNION SELECT NULL--",
		"1' AND SLEEP(5)--",
		// NoSQL
		`{"$gt": ""}`, `{"$ne": null}`, `{"$where": "1==1"}`,
		// XSS
		"<script>alert(1)</script>", `"><img src=x onerror=alert(1)>`,
		"javascript:alert(1)", "<svg onload=alert(1)>",
		// command injection
		"; ls -la", "| whoami", "`id`", "$(id)", "&& cat /etc/passwd",
		// path traversal
		"../../../../etc/passwd", "..\\..\\..\\..\\windows\\win.ini",
		// LDAP
		"*)(uid=*))(|(uid=*", "*)(|(password=*))",
		// XML/XXE
		`<?xml version="1.0"?><!DOCTYPE a [<!ENTITY x SYSTEM "file:///etc/passwd">]><a>&x;</a>`,
		// template injection
		"{{7*7}}", "${7*7}", "#{7*7}",
		// boundary markers that show up disproportionately often in crash reports
		"\x00", "\xff\xfe", "%n%n%n%n",
	}
	tokens := make([][]byte, len(strs))
	for i, s := range strs {
		tokens[i] = []byte(s)
	}
	return tokens
}
