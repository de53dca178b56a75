package validate

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

// TokenLevel buckets an estimated token count against the thresholds an
// AI-assistant context window cares about, per SPEC_FULL.md §4.6.
type TokenLevel string

const (
	TokenOptimal   TokenLevel = "optimal"
	TokenGood      TokenLevel = "good"
	TokenWarning   TokenLevel = "warning"
	TokenExcessive TokenLevel = "excessive"
)

const (
	tokenOptimalMax = 2000
	tokenGoodMax    = 3500
	tokenWarnMax    = 5000
)

// TokenEstimate is the result of EstimateTokens.
type TokenEstimate struct {
	Count int        `json:"count"`
	Level TokenLevel `json:"level"`
}

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
	encodingErr  error
)

// cl100kEncoding lazily loads the cl100k_base BPE encoding, matching the
// original's tiktoken_rs::cl100k_base. tiktoken-go fetches the rank table
// over the network on first use and caches it; encodingErr is sticky for
// the process so EstimateTokens can fall back cleanly if that fetch never
// succeeds (offline CI, no egress).
func cl100kEncoding() (*tiktoken.Tiktoken, error) {
	encodingOnce.Do(func() {
		encoding, encodingErr = tiktoken.GetEncoding("cl100k_base")
	})
	return encoding, encodingErr
}

// EstimateTokens counts body's tokens under the cl100k_base BPE scheme.
func EstimateTokens(body string) TokenEstimate {
	count := estimateTokenCount(body)
	return TokenEstimate{Count: count, Level: levelFor(count)}
}

func estimateTokenCount(body string) int {
	if strings.TrimSpace(body) == "" {
		return 0
	}
	enc, err := cl100kEncoding()
	if err != nil {
		return approximateTokenCount(body)
	}
	return len(enc.Encode(body, nil, nil))
}

// approximateTokenCount is the fallback used only when the cl100k_base
// rank table couldn't be loaded: roughly 4 ASCII characters per token, plus
// one token per non-ASCII rune (CJK, emoji, and other scripts tokenize far
// denser than Latin text).
func approximateTokenCount(body string) int {
	asciiChars := 0
	wideRunes := 0
	for _, r := range body {
		if unicode.IsSpace(r) {
			continue
		}
		if r <= unicode.MaxASCII {
			asciiChars++
		} else {
			wideRunes++
		}
	}
	return (asciiChars / 4) + wideRunes
}

func levelFor(count int) TokenLevel {
	switch {
	case count <= tokenOptimalMax:
		return TokenOptimal
	case count <= tokenGoodMax:
		return TokenGood
	case count <= tokenWarnMax:
		return TokenWarning
	default:
		return TokenExcessive
	}
}

// ValidateTokenBudget reports a warning once a spec drifts past the "good"
// threshold, and an error once it is excessive.
func ValidateTokenBudget(body string) Result {
	var r Result
	est := EstimateTokens(body)
	switch est.Level {
	case TokenWarning:
		r.add(SeverityWarning, "token_budget_warning", fmt.Sprintf("spec is ~%d tokens, consider splitting (warning threshold %d)", est.Count, tokenGoodMax))
	case TokenExcessive:
		r.add(SeverityError, "token_budget_excessive", fmt.Sprintf("spec is ~%d tokens, exceeds the excessive threshold of %d; split it", est.Count, tokenWarnMax))
	}
	return r
}
