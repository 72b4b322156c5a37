package drive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func names(entries []FileEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}
	return out
}

func TestPolicyApply(t *testing.T) {
	input := []FileEntry{
		{Path: ".git", IsDirectory: true},
		{Path: "b.txt"},
		{Path: "a", IsDirectory: true},
	}

	t.Run("DirectoriesFirstAndHideHidden", func(t *testing.T) {
		got := DefaultPolicy().Apply("", input)
		assert.Equal(t, []string{"a", "b.txt"}, names(got))
	})

	t.Run("NoPolicyKeepsServerOrder", func(t *testing.T) {
		got := Policy{}.Apply("", input)
		assert.Equal(t, []string{".git", "b.txt", "a"}, names(got))
	})

	t.Run("DirectoriesFirstOnly", func(t *testing.T) {
		got := Policy{DirectoriesFirst: true}.Apply("", input)
		assert.Equal(t, []string{".git", "a", "b.txt"}, names(got))
	})

	t.Run("HideHiddenOnly", func(t *testing.T) {
		got := Policy{HideHidden: true}.Apply("", input)
		assert.Equal(t, []string{"b.txt", "a"}, names(got))
	})

	t.Run("StableWithinGroups", func(t *testing.T) {
		in := []FileEntry{
			{Path: "z.txt"}, {Path: "y", IsDirectory: true}, {Path: "a.txt"}, {Path: "b", IsDirectory: true},
		}
		got := DefaultPolicy().Apply("", in)
		assert.Equal(t, []string{"y", "b", "z.txt", "a.txt"}, names(got))
	})

	t.Run("HiddenInSubdirectory", func(t *testing.T) {
		in := []FileEntry{{Path: "docs/.DS_Store"}, {Path: "docs/readme.md"}}
		got := DefaultPolicy().Apply("docs", in)
		assert.Equal(t, []string{"docs/readme.md"}, names(got))
	})

	t.Run("RemovesSelfEntry", func(t *testing.T) {
		in := []FileEntry{{Path: "docs", IsDirectory: true}, {Path: "docs/readme.md"}}
		got := Policy{}.Apply("/docs/", in)
		assert.Equal(t, []string{"docs/readme.md"}, names(got))
	})

	t.Run("DoesNotModifyInput", func(t *testing.T) {
		in := []FileEntry{{Path: "b.txt"}, {Path: "a", IsDirectory: true}}
		_ = DefaultPolicy().Apply("", in)
		assert.Equal(t, []string{"b.txt", "a"}, names(in))
	})

	t.Run("EmptyIsNotNil", func(t *testing.T) {
		got := DefaultPolicy().Apply("", nil)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}
