package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeASCIIHonorsQuotedSpans(t *testing.T) {
	tokens := tokenizeASCII(`1.2.3.4 5.6.7.8 "hello world" -`)
	assert.Equal(t, []string{`1.2.3.4`, `5.6.7.8`, `"hello world"`, `-`}, tokens)
}

func TestTokenizeASCIIHonorsEscapedQuoteInsideSpan(t *testing.T) {
	tokens := tokenizeASCII(`"a\"b" next`)
	assert.Equal(t, []string{`"a\"b"`, "next"}, tokens)
}

func TestTokenizeASCIICollapsesRepeatedSpaces(t *testing.T) {
	tokens := tokenizeASCII("a   b\tc")
	assert.Equal(t, []string{"a", "b", "c"}, tokens)
}
