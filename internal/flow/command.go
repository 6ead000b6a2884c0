package flow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind identifies what a user's reply asks for.
type Kind int

// Command kinds produced by turn parsing.
const (
	KindNone Kind = iota
	KindSelect
	KindMore
	KindCover
	KindRequest
	KindApprove
	KindDecline
	KindRetry
	KindDelete
	KindAway
)

// Command is one parsed user turn. Index is set for KindSelect,
// Params for KindRequest.
type Command struct {
	Kind   Kind
	Index  int
	Params string
}

// Stage describes which commands are legal at the current point of a
// conversation. Only commands valid for the stage are matched; all
// other input falls through to numeric selection.
type Stage struct {
	// Selected is true once a result has been picked.
	Selected bool
	// Pending is true when the selected entry's media status is
	// pending, which enables approve/decline.
	Pending bool
	// Browse distinguishes the request-browsing actions (retry,
	// delete, approve, decline) from the search actions (request).
	Browse bool
}

var requestWordRe = regexp.MustCompile(`(?i)^(r|req|request)(\s+|$)`)

// ParseTurn matches a reply against the commands legal in the given
// stage. Matching is case-insensitive against the short and long form
// of each command word. The second return is false when nothing
// applies; that is a normal outcome, not an error.
func ParseTurn(text string, stage Stage) (Command, bool) {
	trimmed := strings.TrimSpace(text)

	if matchWord(trimmed, "m", "more") {
		return Command{Kind: KindMore}, true
	}

	if !stage.Selected {
		return Command{}, false
	}

	if matchWord(trimmed, "c", "cover") {
		return Command{Kind: KindCover}, true
	}

	if stage.Browse {
		if stage.Pending {
			if matchWord(trimmed, "a", "approve") {
				return Command{Kind: KindApprove}, true
			}
			if matchWord(trimmed, "d", "decline") {
				return Command{Kind: KindDecline}, true
			}
		}
		if matchWord(trimmed, "r", "retry") {
			return Command{Kind: KindRetry}, true
		}
		if matchWord(trimmed, "del", "delete") {
			return Command{Kind: KindDelete}, true
		}
		return Command{}, false
	}

	if loc := requestWordRe.FindStringIndex(trimmed); loc != nil {
		params := strings.TrimSpace(trimmed[loc[1]:])
		return Command{Kind: KindRequest, Params: params}, true
	}

	return Command{}, false
}

func matchWord(text string, forms ...string) bool {
	lowered := strings.ToLower(text)
	for _, form := range forms {
		if lowered == form {
			return true
		}
	}
	return false
}

// SelectIndex resolves a reply to one of the numbered candidates.
// Indexing is 1-based: "1" maps to candidates[0]. Non-numeric or
// out-of-range input returns false, never an error.
func SelectIndex[T any](candidates []T, text string) (T, bool) {
	var zero T
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > len(candidates) {
		return zero, false
	}
	return candidates[n-1], true
}

// RequestKinds is the vocabulary of request-listing filters.
var RequestKinds = []string{
	"all", "approved", "available", "pending",
	"processing", "unavailable", "failed",
}

// KindFilterError reports a filter prefix that does not uniquely
// identify a request kind. It is a user-input error, surfaced as a
// reply rather than a fault.
type KindFilterError struct {
	Given string
}

// Error implements the error interface.
func (e *KindFilterError) Error() string {
	return fmt.Sprintf("%q does not uniquely identify a request kind", e.Given)
}

// UserMessage is the reply shown to the user.
func (e *KindFilterError) UserMessage() string {
	return fmt.Sprintf("Sorry, '%s' does not uniquely identify a valid request type. "+
		"Request types are:\n%s", e.Given, strings.Join(RequestKinds, ", "))
}

// ResolveKind resolves a case-insensitive prefix to a request kind.
// Exactly one vocabulary entry must start with the prefix; zero or
// several matches yield a *KindFilterError. An empty prefix means
// "all".
func ResolveKind(prefix string) (string, error) {
	p := strings.ToLower(strings.TrimSpace(prefix))
	if p == "" {
		p = "all"
	}

	var matches []string
	for _, kind := range RequestKinds {
		if strings.HasPrefix(kind, p) {
			matches = append(matches, kind)
		}
	}
	if len(matches) != 1 {
		return "", &KindFilterError{Given: p}
	}
	return matches[0], nil
}
