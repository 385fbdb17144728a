package ranking

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/classwind/internal/cachemanager"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestParse_Formats(t *testing.T) {
	want := File{Prefix: "tw-", Variants: []string{"md"}, Order: []string{"flex", "p-*"}}

	tests := []struct {
		name string
		ext  string
		data string
	}{
		{"yaml", ".yaml", "prefix: tw-\nvariants: [md]\norder:\n  - flex\n  - p-*\n"},
		{"toml", ".toml", "prefix = \"tw-\"\nvariants = [\"md\"]\norder = [\"flex\", \"p-*\"]\n"},
		{"json", ".json", `{"prefix":"tw-","variants":["md"],"order":["flex","p-*"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.data), tt.ext)
			require.NoError(t, err)
			require.Equal(t, want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		data string
	}{
		{"unknown yaml key", ".yaml", "sortOrder: [flex]\n"},
		{"unknown json key", ".json", `{"sortOrder":["flex"]}`},
		{"broken toml", ".toml", "order = [\n"},
		{"empty entry", ".yaml", "order: [flex, '']\n"},
		{"inner wildcard", ".yaml", "order: ['p-*-x']\n"},
		{"double wildcard", ".yaml", "order: ['p**']\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.ext)
			require.Error(t, err)
		})
	}
}

func TestParse_EmptyYAML(t *testing.T) {
	got, err := Parse(nil, ".yaml")
	require.NoError(t, err)
	require.Empty(t, got.Order)
}

func TestStarterParses(t *testing.T) {
	f, err := Parse(Starter(), ".yaml")
	require.NoError(t, err)
	require.NotEmpty(t, f.Order)
	require.Contains(t, f.Variants, "md")
}

func TestWriteStarter(t *testing.T) {
	path := filepath.Join(t.TempDir(), SubDir, "classorder.yaml")

	written, err := WriteStarter(path)
	require.NoError(t, err)
	require.True(t, written)

	written, err = WriteStarter(path)
	require.NoError(t, err)
	require.False(t, written)
}

func TestLocate(t *testing.T) {
	root := t.TempDir()
	rootFile := filepath.Join(root, "classorder.yaml")
	writeFile(t, rootFile, "order: [flex]")
	subFile := filepath.Join(root, "app", SubDir, "classorder.json")
	writeFile(t, subFile, `{"order":["block"]}`)
	writeFile(t, filepath.Join(root, "app", "pages", "index.html"), "")

	t.Run("walks up to nearest directory", func(t *testing.T) {
		got, err := Locate(filepath.Join(root, "app", "pages", "index.html"), "")
		require.NoError(t, err)
		require.Equal(t, subFile, got)
	})

	t.Run("falls back to parent", func(t *testing.T) {
		got, err := Locate(filepath.Join(root, "other", "index.html"), "")
		require.NoError(t, err)
		require.Equal(t, rootFile, got)
	})

	t.Run("override wins", func(t *testing.T) {
		got, err := Locate(filepath.Join(root, "app", "pages", "index.html"), rootFile)
		require.NoError(t, err)
		require.Equal(t, rootFile, got)
	})

	t.Run("missing override", func(t *testing.T) {
		_, err := Locate(rootFile, filepath.Join(root, "nope.yaml"))
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("no file path", func(t *testing.T) {
		_, err := Locate("", "")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classorder.toml")
	writeFile(t, path, "order = [\"flex\", \"p-*\"]\n")

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, c.Source)
	k, ok := c.Rank("p-2")
	require.True(t, ok)
	require.Equal(t, 1, k.Base)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, ErrNotFound)
}

type recordingWatcher struct {
	paths []string
}

func (r *recordingWatcher) Watch(path string) error {
	r.paths = append(r.paths, path)
	return nil
}

func TestFileProvider_CachesUntilInvalidated(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "classorder.yaml")
	writeFile(t, path, "order: [flex]")
	doc := filepath.Join(root, "index.html")

	w := &recordingWatcher{}
	p := NewFileProvider(WithWatcher(w))
	ctx := context.Background()

	first, err := p.Resolve(ctx, doc, "")
	require.NoError(t, err)
	require.Equal(t, []string{"flex"}, first.Order)
	require.Equal(t, []string{path}, w.paths)

	writeFile(t, path, "order: [block, flex]")

	cached, err := p.Resolve(ctx, doc, "")
	require.NoError(t, err)
	require.Same(t, first, cached)

	changes := make(chan []string, 1)
	changes <- []string{path}
	close(changes)
	p.Follow(ctx, changes)

	reloaded, err := p.Resolve(ctx, doc, "")
	require.NoError(t, err)
	require.Equal(t, []string{"block", "flex"}, reloaded.Order)
}

func TestFileProvider_WithoutCache(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "classorder.yaml")
	writeFile(t, path, "order: [flex]")

	p := NewFileProvider(WithoutCache())
	ctx := context.Background()

	_, err := p.Resolve(ctx, path, "")
	require.NoError(t, err)

	writeFile(t, path, "order: [grid]")
	got, err := p.Resolve(ctx, path, "")
	require.NoError(t, err)
	require.Equal(t, []string{"grid"}, got.Order)
}

func TestFileProvider_WithCacheManager(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "classorder.yaml")
	writeFile(t, path, "order: [flex]")

	store := cachemanager.NewInMemoryCacheManager[string, *Context]("test", time.Minute, time.Minute)
	p := NewFileProvider(WithCacheManager(store))

	got, err := p.Resolve(context.Background(), filepath.Join(root, "index.html"), "")
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	cached, ok := store.Get(context.Background(), path)
	require.True(t, ok)
	require.Same(t, got, cached)
}

func TestFileProvider_NotFound(t *testing.T) {
	p := NewFileProvider()
	_, err := p.Resolve(context.Background(), "", filepath.Join(t.TempDir(), "none.yaml"))
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestFileProvider_FollowStopsOnCancel(t *testing.T) {
	p := NewFileProvider()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		p.Follow(ctx, make(chan []string))
		close(done)
	}()
	<-done
}

func TestStatic(t *testing.T) {
	c := NewContext([]string{"flex"}, nil, "")
	got, err := Static{Context: c}.Resolve(context.Background(), "", "")
	require.NoError(t, err)
	require.Same(t, c, got)

	_, err = Static{}.Resolve(context.Background(), "", "")
	require.ErrorIs(t, err, ErrNotFound)
}
