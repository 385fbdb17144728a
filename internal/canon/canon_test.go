package canon

import (
	"slices"
	"strings"
	"testing"

	"github.com/dlclark/regexp2"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/classwind/internal/ranking"
)

var testRanking = ranking.NewContext(
	[]string{"container", "flex", "p-*", "text-*", "bg-*"},
	[]string{"md", "hover"},
	"",
)

func TestSorter_Canonicalize(t *testing.T) {
	comma := regexp2.MustCompile(`,\s*`, regexp2.ECMAScript)

	tests := []struct {
		name   string
		tokens string
		opts   Options
		want   string
	}{
		{
			name:   "sorts known classes by rank",
			tokens: "bg-white p-2 flex",
			opts:   Options{Ranking: testRanking},
			want:   "flex p-2 bg-white",
		},
		{
			name:   "variants after plain classes",
			tokens: "md:p-2 hover:flex p-4 md:flex",
			opts:   Options{Ranking: testRanking},
			want:   "p-4 md:flex md:p-2 hover:flex",
		},
		{
			name:   "custom classes appended in original order",
			tokens: "zeta p-2 alpha flex",
			opts:   Options{Ranking: testRanking},
			want:   "flex p-2 zeta alpha",
		},
		{
			name:   "custom classes prepended",
			tokens: "zeta p-2 alpha flex",
			opts:   Options{Ranking: testRanking, PrependCustom: true},
			want:   "zeta alpha flex p-2",
		},
		{
			name:   "duplicates kept by default",
			tokens: "p-2 flex p-2",
			opts:   Options{Ranking: testRanking},
			want:   "flex p-2 p-2",
		},
		{
			name:   "duplicates removed",
			tokens: "p-2 flex p-2",
			opts:   Options{Ranking: testRanking, RemoveDuplicates: true},
			want:   "flex p-2",
		},
		{
			name:   "irregular whitespace collapses",
			tokens: "  p-2\n\tflex  ",
			opts:   Options{Ranking: testRanking},
			want:   "flex p-2",
		},
		{
			name:   "custom separator and replacement",
			tokens: "p-2, flex,bg-red",
			opts:   Options{Ranking: testRanking, Separator: comma, Replacement: ", "},
			want:   "flex, p-2, bg-red",
		},
		{
			name:   "template interpolation untouched",
			tokens: "p-2 {{ extra }} flex",
			opts:   Options{Ranking: testRanking},
			want:   "p-2 {{ extra }} flex",
		},
		{
			name:   "js template untouched",
			tokens: "p-2 ${cls} flex",
			opts:   Options{Ranking: testRanking},
			want:   "p-2 ${cls} flex",
		},
		{
			name:   "no ranking keeps order",
			tokens: "b a c",
			opts:   Options{},
			want:   "b a c",
		},
		{
			name:   "blank input returned as is",
			tokens: "   ",
			opts:   Options{Ranking: testRanking},
			want:   "   ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Sorter{}.Canonicalize(tt.tokens, tt.opts))
		})
	}
}

func TestSplit(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, Split(" a  b ", nil))
	require.Equal(t, []string{"a", "b c"}, Split("a| b c |", regexp2.MustCompile(`\|`, regexp2.ECMAScript)))
	require.Equal(t, []string{"ab"}, Split("ab", regexp2.MustCompile(`x*`, regexp2.ECMAScript)))
	require.Equal(t, []string{"é", "ü"}, Split("é,ü", regexp2.MustCompile(`,`, regexp2.ECMAScript)))
}

func classList(t *rapid.T) []string {
	return rapid.SliceOfN(
		rapid.SampledFrom([]string{"flex", "p-2", "p-4", "md:p-2", "hover:bg-red", "text-sm", "custom", "other", "container"}),
		0, 10,
	).Draw(t, "classes")
}

func TestProperty_CanonicalizeIsPermutation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := classList(t)
		out := Split(Sorter{}.Canonicalize(strings.Join(in, " "), Options{Ranking: testRanking}), nil)

		a := slices.Clone(in)
		b := slices.Clone(out)
		slices.Sort(a)
		slices.Sort(b)
		if !slices.Equal(a, b) {
			t.Fatalf("not a permutation: %v -> %v", in, out)
		}
	})
}

func TestProperty_CanonicalizeIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		opts := Options{
			Ranking:          testRanking,
			RemoveDuplicates: rapid.Bool().Draw(t, "dedupe"),
			PrependCustom:    rapid.Bool().Draw(t, "prepend"),
		}
		once := Sorter{}.Canonicalize(strings.Join(classList(t), " "), opts)
		twice := Sorter{}.Canonicalize(once, opts)
		if once != twice {
			t.Fatalf("not idempotent: %q -> %q", once, twice)
		}
	})
}
