package host

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/classwind/internal/pubsub"
)

func TestBuffer_ApplyEdits(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		edits []Edit
		want  string
	}{
		{
			name:  "single replacement",
			text:  `<div class="b a">`,
			edits: []Edit{{Range: Range{Start: 12, End: 15}, NewText: "a b"}},
			want:  `<div class="a b">`,
		},
		{
			name: "edits given out of order",
			text: "xx yy zz",
			edits: []Edit{
				{Range: Range{Start: 6, End: 8}, NewText: "Z"},
				{Range: Range{Start: 0, End: 2}, NewText: "XXX"},
			},
			want: "XXX yy Z",
		},
		{
			name:  "multibyte offsets are characters",
			text:  "é class",
			edits: []Edit{{Range: Range{Start: 2, End: 7}, NewText: "klass"}},
			want:  "é klass",
		},
		{
			name:  "insertion",
			text:  "ab",
			edits: []Edit{{Range: Range{Start: 1, End: 1}, NewText: "-"}},
			want:  "a-b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewBuffer("mem://a", "a.html", "", tt.text, nil)
			require.NoError(t, buf.ApplyEdits(tt.edits))
			require.Equal(t, tt.want, buf.Text())
			require.Equal(t, 1, buf.Version())
		})
	}
}

func TestBuffer_ApplyEdits_RejectsInvalidRanges(t *testing.T) {
	buf := NewBuffer("mem://a", "a.html", "", "abcdef", nil)

	err := buf.ApplyEdits([]Edit{{Range: Range{Start: 4, End: 10}}})
	require.ErrorIs(t, err, ErrInvalidRange)

	err = buf.ApplyEdits([]Edit{
		{Range: Range{Start: 0, End: 3}},
		{Range: Range{Start: 2, End: 4}},
	})
	require.ErrorIs(t, err, ErrInvalidRange)

	require.Equal(t, "abcdef", buf.Text(), "failed batches leave the text untouched")
	require.Equal(t, 0, buf.Version())
}

func TestBuffer_PublishesFullTextOnChange(t *testing.T) {
	broker := pubsub.NewBroker[DocumentEvent]()
	defer broker.Close()

	ch := broker.Subscribe(context.Background())
	buf := NewBuffer("mem://a", "a.html", "", "one", broker)

	buf.SetText("two")

	select {
	case event := <-ch:
		require.Equal(t, pubsub.ChangedEvent, event.Type)
		require.Equal(t, "mem://a", event.Payload.URI)
		require.Equal(t, "two", event.Payload.Text)
		require.Equal(t, 1, event.Payload.Version)
	case <-time.After(time.Second):
		require.Fail(t, "no change event")
	}
}

func TestPositionAtAndOffsetAt(t *testing.T) {
	text := "ab\ncdé\n\nx"

	tests := []struct {
		offset int
		pos    Position
	}{
		{0, Position{0, 0}},
		{2, Position{0, 2}},
		{3, Position{1, 0}},
		{5, Position{1, 2}},
		{6, Position{1, 3}},
		{7, Position{2, 0}},
		{8, Position{3, 0}},
		{9, Position{3, 1}},
	}

	for _, tt := range tests {
		require.Equal(t, tt.pos, PositionAt(text, tt.offset), "PositionAt(%d)", tt.offset)
		require.Equal(t, tt.offset, OffsetAt(text, tt.pos), "OffsetAt(%v)", tt.pos)
	}

	require.Equal(t, 2, OffsetAt(text, Position{Line: 0, Column: 40}), "column clamps to line end")
	require.Equal(t, 9, OffsetAt(text, Position{Line: 12}), "line past end clamps to text end")
}

func TestLanguageForPath(t *testing.T) {
	require.Equal(t, "html", LanguageForPath("index.HTML"))
	require.Equal(t, "typescriptreact", LanguageForPath("src/App.tsx"))
	require.Equal(t, "blade", LanguageForPath("views/home.blade.php"))
	require.Equal(t, "php", LanguageForPath("index.php"))
	require.Equal(t, "plaintext", LanguageForPath("Makefile"))
}

func TestSlice(t *testing.T) {
	require.Equal(t, "cd", Slice("abcdef", Range{Start: 2, End: 4}))
	require.Equal(t, "ef", Slice("abcdef", Range{Start: 4, End: 99}))
	require.Equal(t, "", Slice("abcdef", Range{Start: 5, End: 2}))
}

func TestHub_NotificationsAndLookup(t *testing.T) {
	hub := NewHub("/work")
	defer hub.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	saves := hub.WillSave().Subscribe(ctx)
	configs := hub.ConfigChanges().Subscribe(ctx)

	buf := hub.Open("file:///work/a.vue", "/work/a.vue", "", "<template/>")
	require.Equal(t, "vue", buf.LanguageID())

	doc, ok := hub.Document(ctx, "file:///work/a.vue")
	require.True(t, ok)
	require.Equal(t, "<template/>", doc.Text())

	require.True(t, hub.NotifyWillSave("file:///work/a.vue"))
	require.False(t, hub.NotifyWillSave("file:///work/missing.vue"))
	event := <-saves
	require.Equal(t, "<template/>", event.Payload.Text)

	hub.NotifyConfigChanged("highlight")
	cfgEvent := <-configs
	require.True(t, cfgEvent.Payload.Affects("highlight"))
	require.False(t, cfgEvent.Payload.Affects("sort"))

	root, ok := hub.Root()
	require.True(t, ok)
	require.Equal(t, "/work", root)

	hub.Close("file:///work/a.vue")
	_, ok = hub.Document(ctx, "file:///work/a.vue")
	require.False(t, ok)
}
