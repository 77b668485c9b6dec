package snippet

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractExactMatch(t *testing.T) {
	text := "Help me implement authentication with JWT tokens"
	res := Extract(text, "authentication", 3, 150)

	require.Len(t, res.Snippets, 1)
	assert.Equal(t, 1, res.MatchCount)
	assert.Contains(t, res.Snippets[0].Text, "authentication")
	assert.Equal(t, []string{"authentication"}, res.Snippets[0].MatchTerms)
	// Short document: no truncation, no ellipses.
	assert.Equal(t, text, res.Snippets[0].Text)
}

func TestExtractCountsRawOccurrences(t *testing.T) {
	text := strings.Repeat("retry the deploy. ", 5)
	res := Extract(text, "deploy", 3, 150)

	// Five occurrences found, even though they collapse into one snippet.
	assert.Equal(t, 5, res.MatchCount)
	assert.Len(t, res.Snippets, 1)
}

func TestExtractCapsRecordedPositions(t *testing.T) {
	text := strings.Repeat("deploy ", 500)
	res := Extract(text, "deploy", 3, 150)

	assert.Equal(t, maxRecordedPositions, res.MatchCount)
}

func TestExtractSnippetSeparation(t *testing.T) {
	// Two matches far apart must yield two snippets whose centers are at
	// least 2*contextChars apart; a third match close to the first must
	// not produce its own snippet.
	var b strings.Builder
	b.WriteString("alpha needle beta needle ")
	b.WriteString(strings.Repeat("x ", 400))
	b.WriteString("needle omega")
	text := b.String()

	res := Extract(text, "needle", 3, 50)

	require.Len(t, res.Snippets, 2)
	assert.Equal(t, 3, res.MatchCount)
	for _, s := range res.Snippets {
		assert.Contains(t, s.Text, "needle")
	}
}

func TestExtractEllipses(t *testing.T) {
	text := strings.Repeat("a ", 200) + "needle" + strings.Repeat(" b", 200)
	res := Extract(text, "needle", 1, 30)

	require.Len(t, res.Snippets, 1)
	assert.True(t, strings.HasPrefix(res.Snippets[0].Text, "..."))
	assert.True(t, strings.HasSuffix(res.Snippets[0].Text, "..."))
}

func TestExtractFuzzyFallback(t *testing.T) {
	text := "We discussed authentication flows at length."

	// Misspelled query: exact phase finds nothing, fuzzy phase lands on
	// the close variant.
	res := Extract(text, "autentication", 3, 150)

	require.NotEmpty(t, res.Snippets)
	assert.NotEmpty(t, res.Snippets[0].Text)
	assert.Equal(t, 1, res.MatchCount)
	assert.Equal(t, []string{"autentication"}, res.Snippets[0].MatchTerms)

	// The exact phase alone really does miss.
	assert.Empty(t, exactScan(strings.ToLower(text), []string{"autentication"}))
}

func TestExtractNoMatchFallbackSnippet(t *testing.T) {
	text := strings.Repeat("completely unrelated content ", 20)
	res := Extract(text, "zzqqxx999", 3, 50)

	require.Len(t, res.Snippets, 1)
	assert.Equal(t, 0, res.MatchCount)
	assert.True(t, strings.HasSuffix(res.Snippets[0].Text, "..."))
	assert.LessOrEqual(t, len(res.Snippets[0].Text), 2*50+3)
}

func TestExtractKeepsOffsetsAlignedOnUnicode(t *testing.T) {
	// Lowercasing "İ" changes its byte length, which would shift every
	// later match offset; window edges can also land mid-rune. The
	// snippet must still land on the match and stay valid UTF-8.
	text := "İstanbul İstanbul İstanbul deploy steps"
	res := Extract(text, "deploy", 1, 9)

	require.Len(t, res.Snippets, 1)
	assert.True(t, utf8.ValidString(res.Snippets[0].Text))
	assert.Contains(t, res.Snippets[0].Text, "deploy")
}

func TestExtractFallbackKeepsRunesWhole(t *testing.T) {
	text := strings.Repeat("日", 60)
	res := Extract(text, "zzqqxx999", 1, 50)

	require.Len(t, res.Snippets, 1)
	assert.True(t, utf8.ValidString(res.Snippets[0].Text))
	assert.True(t, strings.HasSuffix(res.Snippets[0].Text, "..."))
}

func TestExtractEmptyText(t *testing.T) {
	res := Extract("", "anything", 3, 150)

	require.Len(t, res.Snippets, 1)
	assert.Equal(t, "", res.Snippets[0].Text)
	assert.Equal(t, 0, res.MatchCount)
}

func TestExtractMultipleQueryWords(t *testing.T) {
	text := "configure the database connection pool for postgres"
	res := Extract(text, "database postgres", 3, 150)

	require.Len(t, res.Snippets, 1)
	assert.Equal(t, 2, res.MatchCount)
	assert.ElementsMatch(t, []string{"database", "postgres"}, res.Snippets[0].MatchTerms)
}
