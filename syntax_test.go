package bramble

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/bramble/internal/pyast"
)

func parseSource(t *testing.T, src string) *pyast.Module {
	t.Helper()
	mod, err := pyast.Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	t.Cleanup(mod.Close)
	return mod
}

func runSyntax(t *testing.T, src string) Diagnostics {
	t.Helper()
	mod := parseSource(t, src)
	diags, err := lintSyntax(context.Background(), src, mod, false)
	require.NoError(t, err)
	return diags
}

func TestLintSyntax_CleanFile(t *testing.T) {
	diags := runSyntax(t, "x = \"ok\"\n")
	assert.True(t, diags.IsEmpty())
	assert.Nil(t, diags, "no findings is the nil value")
}

func TestLintSyntax_LineTooLong(t *testing.T) {
	src := "x = \"" + strings.Repeat("a", 100) + "\"\n"
	lineLen := len(src) - 1

	diags := runSyntax(t, src)
	require.Len(t, diags, 1)
	assert.Equal(t, fmt.Sprintf("Line 1 is too long (%d characters)", lineLen), diags[0])
}

func TestLintSyntax_LineLengthBoundary(t *testing.T) {
	// 88 characters is allowed, 89 is not.
	ok := "# " + strings.Repeat("a", 86)
	require.Len(t, ok, 88)
	assert.Empty(t, runSyntax(t, ok+"\n"))

	over := ok + "a"
	diags := runSyntax(t, over+"\n")
	require.Len(t, diags, 1)
	assert.Equal(t, "Line 1 is too long (89 characters)", diags[0])
}

func TestLintSyntax_LineLengthCountsCharactersNotBytes(t *testing.T) {
	// 88 two-byte characters: 176 bytes but within the character budget.
	src := "# " + strings.Repeat("é", 86) + "\n"
	assert.Empty(t, runSyntax(t, src))

	src = "# " + strings.Repeat("é", 87) + "\n"
	diags := runSyntax(t, src)
	require.Len(t, diags, 1)
	assert.Equal(t, "Line 1 is too long (89 characters)", diags[0])
}

func TestLintSyntax_LineNumbersAreOneIndexed(t *testing.T) {
	src := "x = 1\ny = \"" + strings.Repeat("b", 100) + "\"\n"
	diags := runSyntax(t, src)
	require.Len(t, diags, 1)
	assert.True(t, strings.HasPrefix(diags[0], "Line 2 is too long"))
}

func TestLintSyntax_SingleQuotedString(t *testing.T) {
	diags := runSyntax(t, "x = 'single'\n")
	assert.Equal(t, Diagnostics{"Use double quotes for strings"}, diags)
}

func TestLintSyntax_DoubleQuotedString(t *testing.T) {
	assert.Empty(t, runSyntax(t, "x = \"double\"\n"))
}

func TestLintSyntax_EveryStringOccurrenceFlagged(t *testing.T) {
	diags := runSyntax(t, "a = 'one'\nb = \"two\"\nc = 'three'\n")
	assert.Equal(t, Diagnostics{
		"Use double quotes for strings",
		"Use double quotes for strings",
	}, diags)
}

func TestLintSyntax_NestedString(t *testing.T) {
	diags := runSyntax(t, "xs = [1, 'nested', 2]\n")
	assert.Equal(t, Diagnostics{"Use double quotes for strings"}, diags)
}

func TestLintSyntax_PrefixedStringChecksFirstByte(t *testing.T) {
	// The check reads the literal's first raw byte, so a prefixed
	// single-quoted string passes.
	assert.Empty(t, runSyntax(t, "x = r'raw'\n"))
}

func TestLintSyntax_ParseErrorsReplaceTreeChecks(t *testing.T) {
	src := "x = 'bad\ndef broken(:\n    pass\n"
	mod := parseSource(t, src)
	require.False(t, mod.IsValid())

	diags, err := lintSyntax(context.Background(), src, mod, false)
	require.NoError(t, err)
	require.NotEmpty(t, diags)
	for _, d := range diags {
		assert.True(t, strings.HasPrefix(d, "Parse error at line"), "got %q", d)
	}
	assert.NotContains(t, diags, "Use double quotes for strings")
}

func TestLintSyntax_LineLengthStillRunsOnBrokenParse(t *testing.T) {
	src := strings.Repeat("a", 100) + " = = 1\n"
	mod := parseSource(t, src)
	require.False(t, mod.IsValid())

	diags, err := lintSyntax(context.Background(), src, mod, false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(diags[0], "Line 1 is too long"))
}

func TestLintSyntax_SlowPathHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mod := parseSource(t, "x = 1\n")
	_, err := lintSyntax(ctx, "x = 1\n", mod, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
