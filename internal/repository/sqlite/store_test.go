package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidegraph/internal/domain"
	"slidegraph/internal/domain/models/llm"
	"slidegraph/internal/domain/models/slide"
	"slidegraph/internal/domain/repositories"
)

func openStore(t *testing.T) *repositories.Store {
	t.Helper()
	db, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db.Store()
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func node(id string, parent *string, title string, age int) *slide.Node {
	return &slide.Node{
		ID: id,
		Slide: slide.Slide{
			ID:         id,
			Title:      title,
			Background: slide.DefaultBackground,
			Blocks:     []slide.Block{{ID: "h", Type: slide.BlockHeading, Props: slide.Props{"text": title}}},
			Actions:    []slide.Action{{Label: "Continue →", Prompt: "next"}},
		},
		ParentID:            parent,
		ConversationHistory: llm.History{llm.NewUserText("Explain " + title)},
		CreatedAt:           epoch.Add(time.Duration(age) * time.Minute),
	}
}

func ptr(s string) *string { return &s }

func TestSlideRepository_CreateGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.Slides.Create(ctx, node("a", nil, "Photosynthesis", 0)))

	got, err := store.Slides.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis", got.Slide.Title)
	assert.Equal(t, "a", got.Slide.ID)
	assert.Nil(t, got.ParentID)
	require.Len(t, got.Slide.Blocks, 1)
	assert.Equal(t, "Photosynthesis", got.Slide.Blocks[0].Props["text"])
	assert.Equal(t, "next", got.Slide.Actions[0].Prompt)
	require.Len(t, got.ConversationHistory, 1)
	assert.Equal(t, "Explain Photosynthesis", got.ConversationHistory[0].Text)
	assert.True(t, got.CreatedAt.Equal(epoch))

	_, err = store.Slides.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSlideRepository_CreateErrors(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.Slides.Create(ctx, node("a", nil, "A", 0)))

	err := store.Slides.Create(ctx, node("a", nil, "A again", 1))
	assert.ErrorIs(t, err, domain.ErrConflict)

	err = store.Slides.Create(ctx, node("b", ptr("ghost"), "B", 1))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSlideRepository_ChildrenAndMainChild(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.Slides.Create(ctx, node("a", nil, "A", 0)))
	require.NoError(t, store.Slides.Create(ctx, node("b", ptr("a"), "B", 1)))
	require.NoError(t, store.Slides.Create(ctx, node("c", ptr("a"), "C", 2)))

	require.NoError(t, store.Slides.SetMainChild(ctx, "a", "c"))

	children, err := store.Slides.Children(ctx, "a")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "b", children[0].ID)
	assert.False(t, children[0].IsMain)
	assert.Equal(t, "c", children[1].ID)
	assert.True(t, children[1].IsMain)

	got, err := store.Slides.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "c", *got.MainChildID)

	assert.ErrorIs(t, store.Slides.SetMainChild(ctx, "ghost", "c"), domain.ErrNotFound)
}

func TestSlideRepository_ListSearchUpdate(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.Slides.Create(ctx, node("a", nil, "Photosynthesis", 0)))
	require.NoError(t, store.Slides.Create(ctx, node("b", ptr("a"), "Light reactions", 1)))
	require.NoError(t, store.Slides.Create(ctx, node("c", ptr("a"), "100% chlorophyll", 2)))

	list, err := store.Slides.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "c", list[0].ID, "newest first")
	assert.Nil(t, list[2].ParentID)
	require.NotNil(t, list[1].ParentID)
	assert.Equal(t, "a", *list[1].ParentID)

	hits, err := store.Slides.Search(ctx, "PHOTO", 20)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ID)

	hits, err = store.Slides.Search(ctx, "%", 20)
	require.NoError(t, err)
	require.Len(t, hits, 1, "wildcards are matched literally")
	assert.Equal(t, "c", hits[0].ID)

	require.NoError(t, store.Slides.Update(ctx, "b", slide.NodePatch{Title: ptr("Light-dependent reactions")}))
	got, err := store.Slides.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "Light-dependent reactions", got.Slide.Title)

	assert.ErrorIs(t, store.Slides.Update(ctx, "ghost", slide.NodePatch{Title: ptr("x")}), domain.ErrNotFound)
	assert.ErrorIs(t, store.Slides.Update(ctx, "ghost", slide.NodePatch{}), domain.ErrNotFound)
}

func TestLinkRepository(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.Slides.Create(ctx, node("a", nil, "A", 0)))
	require.NoError(t, store.Slides.Create(ctx, node("b", nil, "B", 1)))

	link := &slide.Link{ID: "l1", FromNodeID: "a", ToNodeID: "b", CreatedAt: epoch}
	require.NoError(t, store.Links.Create(ctx, link))

	err := store.Links.Create(ctx, &slide.Link{ID: "l2", FromNodeID: "a", ToNodeID: "b", CreatedAt: epoch})
	var conflict *domain.ConflictError
	assert.True(t, errors.As(err, &conflict))

	err = store.Links.Create(ctx, &slide.Link{ID: "l3", FromNodeID: "a", ToNodeID: "ghost", CreatedAt: epoch})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	out, err := store.Links.Outgoing(ctx, "a")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, slide.LinkRef{ID: "l1", SlideID: "b", Title: ptr("B")}, out[0])

	in, err := store.Links.Incoming(ctx, "b")
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, "a", in[0].SlideID)

	edges, err := store.Links.Edges(ctx)
	require.NoError(t, err)
	assert.Equal(t, []slide.GraphEdge{{From: "a", To: "b"}}, edges)

	require.NoError(t, store.Links.Delete(ctx, "l1"))
	require.NoError(t, store.Links.Delete(ctx, "l1"))
	edges, err = store.Links.Edges(ctx)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestChatRepository(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.Slides.Create(ctx, node("a", nil, "A", 0)))

	thread := &slide.ChatThread{ID: "c1", NodeID: "a", SelectedText: "chlorophyll", BlockID: ptr("t1"), CreatedAt: epoch}
	require.NoError(t, store.Chats.CreateThread(ctx, thread))
	assert.ErrorIs(t, store.Chats.CreateThread(ctx, &slide.ChatThread{ID: "c2", NodeID: "ghost", CreatedAt: epoch}), domain.ErrNotFound)

	for i, role := range []string{llm.RoleUser, llm.RoleAssistant} {
		require.NoError(t, store.Chats.AppendMessage(ctx, &slide.ChatMessage{
			ID: "m" + role, ChatID: "c1", Role: role, Content: role + " says", CreatedAt: epoch.Add(time.Duration(i) * time.Second),
		}))
	}

	got, err := store.Chats.GetThread(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "t1", *got.BlockID)

	threads, err := store.Chats.ListThreads(ctx, "a")
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, 2, threads[0].MessageCount)

	msgs, err := store.Chats.ListMessages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, llm.RoleUser, msgs[0].Role)
	assert.Equal(t, "assistant says", msgs[1].Content)

	_, err = store.Chats.GetThread(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransactionManager_Rollback(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Tx.ExecTx(ctx, func(ctx context.Context) error {
		if err := store.Slides.Create(ctx, node("a", nil, "A", 0)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	ok, err := store.Slides.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Tx.ExecTx(ctx, func(ctx context.Context) error {
		return store.Slides.Create(ctx, node("a", nil, "A", 0))
	}))
	ok, err = store.Slides.Exists(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
}
