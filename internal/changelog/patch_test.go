package changelog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddEntryNewestFirst(t *testing.T) {
	text := AddEntry("", Added, "A", "")
	text = AddEntry(text, Added, "B", "")
	require.Equal(t, "## [Unreleased]\n\n### Added\n- B\n- A\n\n", text)
}

func TestAddEntryOnBoilerplate(t *testing.T) {
	text := AddEntry(Boilerplate, "added", "A", "")
	text = AddEntry(text, "added", "B", "")
	require.True(t, strings.HasPrefix(text, strings.TrimSuffix(Boilerplate, "\n")))
	require.Equal(t, []string{"B", "A"}, SummarizeUnreleased(text).Entries(Added))
	require.True(t, strings.HasSuffix(text, "## [Unreleased]\n\n### Added\n- B\n- A\n\n"))
}

func TestAddEntryCreatesUnreleasedBeforeVersion(t *testing.T) {
	in := "# Changelog\n\n## [0.1.0] - 2023-01-01\n### Added\n- old\n"
	got := AddEntry(in, Fixed, "x", "")
	want := "# Changelog\n\n## [Unreleased]\n\n### Fixed\n- x\n\n## [0.1.0] - 2023-01-01\n### Added\n- old\n"
	require.Equal(t, want, got)
}

func TestAddEntryAppendsUnreleasedAtEnd(t *testing.T) {
	got := AddEntry("# Title\nprose", Added, "A", "src")
	require.Equal(t, "# Title\nprose\n\n## [Unreleased]\n\n### Added\n- A *(src)*\n\n", got)
}

func TestAddEntryNewCategoryGoesToTop(t *testing.T) {
	in := "## [Unreleased]\n\n### Added\n- A\n"
	got := AddEntry(in, Fixed, "F", "")
	require.Equal(t, "## [Unreleased]\n\n### Fixed\n- F\n\n### Added\n- A\n", got)
}

func TestAddEntryIgnoresReleasedCategories(t *testing.T) {
	in := "## [Unreleased]\n\n## [1.0.0] - 2024-01-01\n### Added\n- old\n"
	got := AddEntry(in, Added, "new", "")
	want := "## [Unreleased]\n\n### Added\n- new\n\n## [1.0.0] - 2024-01-01\n### Added\n- old\n"
	require.Equal(t, want, got)
}

func TestAddEntryPreservesUnrelatedBytes(t *testing.T) {
	head := "# Changelog\n\nHand written  prose, with   odd spacing.\n\n"
	tail := "## [0.9.0] - 2022-02-02\n\n### Removed\n-   weird   bullet\n\n<!-- footer -->"
	in := head + "## [Unreleased]\n\n### Changed\n- c\n\n" + tail
	got := AddEntry(in, Changed, "d", "")
	require.True(t, strings.HasPrefix(got, head))
	require.True(t, strings.HasSuffix(got, tail))
	require.Contains(t, got, "### Changed\n- d\n- c\n")
}

func TestAddEntryUnknownCategoryIsTitleCased(t *testing.T) {
	got := AddEntry("## [Unreleased]\n", "ai stuff", "x", "")
	require.Contains(t, got, "### Ai Stuff\n- x\n")
	require.Equal(t, []string{"x"}, SummarizeUnreleased(got).Entries("ai stuff"))
}

func TestReleaseConversion(t *testing.T) {
	in := "## [Unreleased]\n\n### Added\n- A\n"
	got, err := Release(in, "1.0.0", "2024-01-01")
	require.NoError(t, err)
	require.Equal(t, "## [Unreleased]\n\n## [1.0.0] - 2024-01-01\n\n### Added\n- A\n", got)
	require.Empty(t, SummarizeUnreleased(got))
}

func TestReleaseWithoutUnreleasedIsNoop(t *testing.T) {
	in := "# Changelog\n\n## [1.0.0] - 2024-01-01\n"
	got, err := Release(in, "1.1.0", "2024-02-01")
	require.ErrorIs(t, err, ErrNoUnreleased)
	require.Equal(t, in, got)
}

func TestSummarizeUnreleased(t *testing.T) {
	in := strings.Join([]string{
		"# Changelog",
		"## [Unreleased]",
		"### Added",
		"- one *(s)*",
		"- two",
		"### Decided",
		"- ruling",
		"### Added",
		"- three",
		"## [1.0.0] - 2024-01-01",
		"### Added",
		"- shipped",
	}, "\n")
	s := SummarizeUnreleased(in)
	require.Equal(t, Summary{
		{Category: "Added", Entries: []string{"one *(s)*", "two", "three"}},
		{Category: "Decided", Entries: []string{"ruling"}},
	}, s)
	require.Equal(t, 4, s.Total())
	require.Nil(t, SummarizeUnreleased("# nothing here\n"))
}

func TestFormatEntry(t *testing.T) {
	require.Equal(t, "- a b", FormatEntry(" a\n b ", ""))
	require.Equal(t, "- a *(The Court)*", FormatEntry("a", " The Court "))
}
