package session

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/ctera/ctera-edge-mcp/internal/edge"
)

// sessionExpiredPhrases are matched, case-folded, against failure text that
// carries no explicit signal. The filer's wording is not a stable interface;
// extend this list when it changes.
var sessionExpiredPhrases = []string{
	"session expired",
	"session invalid",
	"unauthorized",
	"authentication",
}

// sessionExpiredTokens must appear as a whole token (delimited by anything
// other than a letter or digit), so "HTTP 401" matches and "4012" does not.
var sessionExpiredTokens = []string{
	"401",
}

// IsSessionExpired reports whether err means the filer no longer accepts the
// session, so a re-login may let the operation succeed.
//
// Explicit signals win: edge.ErrSessionExpired and edge.ErrUnauthorized.
// Otherwise the failure text is matched against sessionExpiredPhrases and
// sessionExpiredTokens. When err holds *edge.EdgeError values, anywhere in a
// joined tree, only the filer's messages are matched, not the request paths.
// ErrInvalidInvocation is never a session failure.
func IsSessionExpired(err error) bool {
	if err == nil || errors.Is(err, ErrInvalidInvocation) {
		return false
	}

	if errors.Is(err, edge.ErrSessionExpired) || errors.Is(err, edge.ErrUnauthorized) {
		return true
	}

	messages := edgeMessages(err, nil)
	if messages == nil {
		return matchesSessionText(err.Error())
	}

	for _, m := range messages {
		if matchesSessionText(m) {
			return true
		}
	}

	return false
}

// edgeMessages appends the Message of every *edge.EdgeError in err's tree.
func edgeMessages(err error, out []string) []string {
	if ee, ok := err.(*edge.EdgeError); ok {
		return append(out, ee.Message)
	}

	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			out = edgeMessages(e, out)
		}
	case interface{ Unwrap() error }:
		if e := u.Unwrap(); e != nil {
			out = edgeMessages(e, out)
		}
	}

	return out
}

func matchesSessionText(text string) bool {
	folded := cases.Fold().String(text)

	for _, phrase := range sessionExpiredPhrases {
		if strings.Contains(folded, phrase) {
			return true
		}
	}

	tokens := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, tok := range tokens {
		for _, want := range sessionExpiredTokens {
			if tok == want {
				return true
			}
		}
	}

	return false
}
