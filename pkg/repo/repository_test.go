package repo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bookshelf/pkg/domain"
	"bookshelf/pkg/store"
)

// countingStore wraps a Store and counts remote round trips per operation.
type countingStore struct {
	store.Store
	mu    sync.Mutex
	calls map[string]int
}

func newCountingStore(inner store.Store) *countingStore {
	return &countingStore{Store: inner, calls: make(map[string]int)}
}

func (c *countingStore) bump(op string) {
	c.mu.Lock()
	c.calls[op]++
	c.mu.Unlock()
}

func (c *countingStore) count(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

func (c *countingStore) ListsByUser(ctx context.Context, userID string) ([]domain.BookList, error) {
	c.bump("ListsByUser")
	return c.Store.ListsByUser(ctx, userID)
}

func (c *countingStore) BooksByList(ctx context.Context, listID string) ([]domain.Book, error) {
	c.bump("BooksByList")
	return c.Store.BooksByList(ctx, listID)
}

func (c *countingStore) InsertList(ctx context.Context, list domain.BookList) error {
	c.bump("InsertList")
	return c.Store.InsertList(ctx, list)
}

func (c *countingStore) DeleteList(ctx context.Context, id string) error {
	c.bump("DeleteList")
	return c.Store.DeleteList(ctx, id)
}

func seedCatalog(t *testing.T) (*store.MemoryStore, *countingStore, *Repository) {
	t.Helper()
	mem := store.NewMemoryStore()
	for _, b := range []domain.Book{
		{ID: "book1", Title: "Dune", Author: "Frank Herbert"},
		{ID: "book7", Title: "Solaris", Author: "Stanislaw Lem"},
		{ID: "book9", Title: "Blindsight", Author: "Peter Watts"},
	} {
		mem.SeedBook(b)
	}
	counting := newCountingStore(mem)
	return mem, counting, New(counting, NewMemoryListCache())
}

func TestGetUserBookListsCachesAssembledSnapshot(t *testing.T) {
	ctx := context.Background()
	_, counting, r := seedCatalog(t)

	list1, err := r.CreateBookList(ctx, "owner", "to-read")
	require.NoError(t, err)
	list2, err := r.CreateBookList(ctx, "owner", "favorites")
	require.NoError(t, err)
	require.NoError(t, r.AddBookToList(ctx, list1.ID, "book1"))
	require.NoError(t, r.AddBookToList(ctx, list1.ID, "book7"))
	require.NoError(t, r.AddBookToList(ctx, list2.ID, "book9"))

	lists, err := r.GetUserBookLists(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, lists, 2)
	require.Equal(t, 1, counting.count("ListsByUser"), "one lists fetch per cache miss")
	require.Equal(t, 2, counting.count("BooksByList"), "one books fetch per returned list")

	again, err := r.GetUserBookLists(ctx, "owner")
	require.NoError(t, err)
	require.Equal(t, lists, again)
	require.Equal(t, 1, counting.count("ListsByUser"), "cache hit must not refetch")
	require.Equal(t, 2, counting.count("BooksByList"))
}

func TestMutationsInvalidateEveryCacheEntry(t *testing.T) {
	ctx := context.Background()
	_, counting, r := seedCatalog(t)

	ownerList, err := r.CreateBookList(ctx, "owner", "to-read")
	require.NoError(t, err)
	_, err = r.CreateBookList(ctx, "other", "shelf")
	require.NoError(t, err)

	_, err = r.GetUserBookLists(ctx, "owner")
	require.NoError(t, err)
	_, err = r.GetUserBookLists(ctx, "other")
	require.NoError(t, err)
	require.Equal(t, 2, counting.count("ListsByUser"))

	// A mutation on owner's list clears the other user's entry too.
	require.NoError(t, r.AddBookToList(ctx, ownerList.ID, "book1"))
	_, err = r.GetUserBookLists(ctx, "other")
	require.NoError(t, err)
	require.Equal(t, 3, counting.count("ListsByUser"), "global clear must force a fresh fetch for any user")
}

func TestRemoveBookFromListThenReload(t *testing.T) {
	ctx := context.Background()
	_, _, r := seedCatalog(t)

	list, err := r.CreateBookList(ctx, "owner", "list1")
	require.NoError(t, err)
	require.NoError(t, r.AddBookToList(ctx, list.ID, "book1"))
	require.NoError(t, r.AddBookToList(ctx, list.ID, "book7"))

	require.NoError(t, r.RemoveBookFromList(ctx, list.ID, "book7"))

	lists, err := r.GetUserBookLists(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, lists, 1)
	ids := make([]string, 0, len(lists[0].Books))
	for _, b := range lists[0].Books {
		ids = append(ids, b.ID)
	}
	require.Equal(t, []string{"book1"}, ids)
}

func TestCreateBookListRejectsDuplicateNameBeforeInsert(t *testing.T) {
	ctx := context.Background()
	_, counting, r := seedCatalog(t)

	_, err := r.CreateBookList(ctx, "owner", "to-read")
	require.NoError(t, err)
	require.Equal(t, 1, counting.count("InsertList"))

	_, err = r.CreateBookList(ctx, "owner", "to-read")
	require.ErrorIs(t, err, ErrDuplicateListName)
	require.Equal(t, 1, counting.count("InsertList"), "conflict must fail before attempting the insert")

	// Same name under a different creator is fine.
	_, err = r.CreateBookList(ctx, "other", "to-read")
	require.NoError(t, err)
}

func TestCreateBookListRequiresName(t *testing.T) {
	_, _, r := seedCatalog(t)
	_, err := r.CreateBookList(context.Background(), "owner", "   ")
	require.ErrorIs(t, err, ErrListNameRequired)
}

func TestDeleteBookListAuthorization(t *testing.T) {
	ctx := context.Background()
	_, counting, r := seedCatalog(t)

	list, err := r.CreateBookList(ctx, "owner", "to-read")
	require.NoError(t, err)

	err = r.DeleteBookList(ctx, list.ID, "stranger")
	require.ErrorIs(t, err, ErrNotListOwner)
	require.Equal(t, 0, counting.count("DeleteList"), "rejected delete must not touch the store")

	lists, err := r.GetUserBookLists(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, lists, 1, "list must survive an unauthorized delete")

	require.NoError(t, r.DeleteBookList(ctx, list.ID, "owner"))
	lists, err = r.GetUserBookLists(ctx, "owner")
	require.NoError(t, err)
	require.Empty(t, lists)

	err = r.DeleteBookList(ctx, list.ID, "owner")
	require.ErrorIs(t, err, ErrListNotFound)
}

func TestSaveReviewUpserts(t *testing.T) {
	ctx := context.Background()
	mem, _, r := seedCatalog(t)
	require.NoError(t, mem.InsertUser(ctx, domain.User{ID: "u1", Username: "ada", Email: "ada@example.com"}))

	require.NoError(t, r.SaveReview(ctx, domain.Review{BookID: "book1", UserID: "u1", Rating: 3, Text: "fine"}))
	require.NoError(t, r.SaveReview(ctx, domain.Review{BookID: "book1", UserID: "u1", Rating: 5, Text: "grew on me"}))

	book, err := r.GetBookByID(ctx, "book1")
	require.NoError(t, err)
	require.Len(t, book.Reviews, 1, "second save must overwrite, not duplicate")
	require.Equal(t, 5, book.Reviews[0].Rating)
	require.Equal(t, "grew on me", book.Reviews[0].Text)
	require.Equal(t, "ada", book.Reviews[0].Username)
	require.Equal(t, 5.0, book.AverageRating())
}

func TestSaveReviewFillsIDAndTimestamp(t *testing.T) {
	ctx := context.Background()
	_, _, r := seedCatalog(t)

	require.NoError(t, r.SaveReview(ctx, domain.Review{BookID: "book7", UserID: "u1", Rating: 4}))
	review, ok, err := r.GetUserReview(ctx, "book7", "u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, review.ID)
	require.WithinDuration(t, time.Now().UTC(), review.CreatedAt, time.Minute)
}

func TestGetBookByIDNotFound(t *testing.T) {
	_, _, r := seedCatalog(t)
	_, err := r.GetBookByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrBookNotFound)
}
