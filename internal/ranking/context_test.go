package ranking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContext_Rank(t *testing.T) {
	c := NewContext(
		[]string{"flex", "p-*", "px-*", "text-*", "-mt-1", "mt-*", "text-center"},
		[]string{"md", "hover"},
		"",
	)

	tests := []struct {
		name  string
		class string
		want  Key
		ok    bool
	}{
		{"exact", "flex", Key{Base: 0}, true},
		{"wildcard", "p-2", Key{Base: 1}, true},
		{"longest wildcard wins", "px-4", Key{Base: 2}, true},
		{"exact beats wildcard", "text-center", Key{Base: 6}, true},
		{"wildcard needs a suffix", "p-", Key{}, false},
		{"important prefix", "!p-2", Key{Base: 1}, true},
		{"important suffix", "p-2!", Key{Base: 1}, true},
		{"negative exact", "-mt-1", Key{Base: 4}, true},
		{"negative falls back to positive", "-mt-2", Key{Base: 5}, true},
		{"variant", "md:p-2", Key{Variants: []int{0}, Base: 1}, true},
		{"stacked variants", "md:hover:p-2", Key{Variants: []int{0, 1}, Base: 1}, true},
		{"unknown variant ranks last", "print:flex", Key{Variants: []int{2}, Base: 0}, true},
		{"arbitrary value keeps colons", "text-[color:red]", Key{Base: 3}, true},
		{"custom class", "my-widget", Key{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Rank(tt.class)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestContext_RankWithPrefix(t *testing.T) {
	c := NewContext([]string{"flex", "mt-*", "-mt-1"}, nil, "tw-")

	k, ok := c.Rank("tw-flex")
	require.True(t, ok)
	require.Equal(t, 0, k.Base)

	k, ok = c.Rank("-tw-mt-1")
	require.True(t, ok)
	require.Equal(t, 2, k.Base)

	k, ok = c.Rank("tw--mt-1")
	require.True(t, ok)
	require.Equal(t, 2, k.Base)

	_, ok = c.Rank("tw-unknown")
	require.False(t, ok)
}

func TestContext_NilIsEmpty(t *testing.T) {
	var c *Context
	_, ok := c.Rank("flex")
	require.False(t, ok)
	require.Zero(t, c.Len())
}

func TestContext_DuplicateEntriesKeepFirst(t *testing.T) {
	c := NewContext([]string{"flex", "block", "flex"}, nil, "")
	k, ok := c.Rank("flex")
	require.True(t, ok)
	require.Equal(t, 0, k.Base)
}

func TestKey_Compare(t *testing.T) {
	plain := Key{Base: 5}
	md := Key{Variants: []int{0}, Base: 1}
	mdHover := Key{Variants: []int{0, 1}, Base: 0}
	hover := Key{Variants: []int{1}, Base: 0}

	require.Negative(t, plain.Compare(md))
	require.Negative(t, md.Compare(mdHover))
	require.Negative(t, mdHover.Compare(hover))
	require.Zero(t, md.Compare(Key{Variants: []int{0}, Base: 1}))
	require.Positive(t, Key{Base: 2}.Compare(Key{Base: 1}))
}

func TestSplitVariants(t *testing.T) {
	tests := []struct {
		class    string
		variants []string
		base     string
	}{
		{"p-2", nil, "p-2"},
		{"md:p-2", []string{"md"}, "p-2"},
		{"md:hover:p-2", []string{"md", "hover"}, "p-2"},
		{"[&:hover]:p-2", []string{"[&:hover]"}, "p-2"},
		{"bg-[url(a:b)]", nil, "bg-[url(a:b)]"},
	}

	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			variants, base := SplitVariants(tt.class)
			require.Equal(t, tt.variants, variants)
			require.Equal(t, tt.base, base)
		})
	}
}
