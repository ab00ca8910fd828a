package agent

import (
	"slices"
	"strings"
	"unicode"
)

// Verdict is how a human reply to an approval question was read.
type Verdict int

const (
	// VerdictRevise means the reply is neither a clear yes nor a clear no;
	// the oracle gets it back as feedback.
	VerdictRevise Verdict = iota
	VerdictApprove
	VerdictDecline
)

func (v Verdict) String() string {
	switch v {
	case VerdictApprove:
		return "approve"
	case VerdictDecline:
		return "decline"
	default:
		return "revise"
	}
}

// ApprovalClassifier reads a free-text reply to an approval question.
type ApprovalClassifier interface {
	Classify(reply string) Verdict
}

// ApprovalFunc adapts a function to ApprovalClassifier.
type ApprovalFunc func(reply string) Verdict

// Classify calls f.
func (f ApprovalFunc) Classify(reply string) Verdict { return f(reply) }

// KeywordClassifier is a deliberately narrow word matcher.
//
// Approve: the whole reply is one of ApprovePhrases, or it has at most three
// words and one of them is in ApproveWords. Either way no word may be in
// DeclineWords or ReviseWords.
// Decline: any word is in DeclineWords and no word is in ReviseWords.
// Everything else is Revise.
//
// Matching is on lower-cased words with punctuation stripped, so "now" does
// not count as "no".
type KeywordClassifier struct{}

var (
	ApprovePhrases = []string{"yes", "y", "ok", "sure", "send", "send it", "approve", "confirm"}
	ApproveWords   = []string{"yes", "ok", "sure", "send"}
	DeclineWords   = []string{"no", "don't", "dont", "cancel", "stop"}
	ReviseWords    = []string{"change", "modify", "edit", "update", "revise"}
)

// Classify implements ApprovalClassifier.
func (KeywordClassifier) Classify(reply string) Verdict {
	words := normalize(reply)
	if len(words) == 0 {
		return VerdictRevise
	}
	phrase := strings.Join(words, " ")

	hasAny := func(set []string) bool {
		return slices.ContainsFunc(words, func(w string) bool { return slices.Contains(set, w) })
	}

	approves := slices.Contains(ApprovePhrases, phrase) || (len(words) <= 3 && hasAny(ApproveWords))
	revises := hasAny(ReviseWords)
	switch {
	case approves && !revises && !hasAny(DeclineWords):
		return VerdictApprove
	case hasAny(DeclineWords) && !revises:
		return VerdictDecline
	default:
		return VerdictRevise
	}
}

func normalize(reply string) []string {
	fields := strings.FieldsFunc(strings.ToLower(reply), func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '\'')
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
