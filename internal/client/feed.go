package client

import (
	"context"
	"errors"
	"slices"
	"sync"

	"Quillpad/internal/core/posts"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// FeedPageSize is the number of posts fetched per LoadMore
	FeedPageSize = 10

	// seenCacheSize bounds how many posts are remembered for bookmark lookups
	seenCacheSize = 1024
)

// ErrLoadInProgress is returned by LoadMore while another page fetch is outstanding
var ErrLoadInProgress = errors.New("a page is already loading")

// PostAPI is the subset of Client the feed needs
type PostAPI interface {
	ListPosts(ctx context.Context, page, limit int) ([]posts.Post, error)
	CreatePost(ctx context.Context, draft Draft) (*posts.Post, error)
	UpdatePost(ctx context.Context, id string, draft Draft) (*posts.Post, error)
	DeletePost(ctx context.Context, id string) error
}

// EntryState tracks an optimistic creation
type EntryState int

const (
	// EntryPending is shown before the server has answered
	EntryPending EntryState = iota
	// EntryConfirmed holds the server's record
	EntryConfirmed
	// EntryFailed is reported for a creation the server rejected; it is
	// never kept in the feed
	EntryFailed
)

func (s EntryState) String() string {
	switch s {
	case EntryPending:
		return "pending"
	case EntryConfirmed:
		return "confirmed"
	case EntryFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Entry is one row of the feed
type Entry struct {
	Err     error
	LocalID string
	Post    posts.Post
	State   EntryState
}

// Feed is the client-side list of the user's posts, newest first
type Feed struct {
	api       PostAPI
	seen      *lru.Cache[string, posts.Post]
	entries   []*Entry
	page      int
	exhausted bool
	loading   bool
	mu        sync.Mutex
}

// NewFeed creates an empty feed
func NewFeed(api PostAPI) (*Feed, error) {
	seen, err := lru.New[string, posts.Post](seenCacheSize)
	if err != nil {
		return nil, err
	}
	return &Feed{api: api, seen: seen}, nil
}

// Entries returns a snapshot of the feed
func (f *Feed) Entries() []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Entry, len(f.entries))
	for i, e := range f.entries {
		out[i] = *e
	}
	return out
}

// Exhausted reports whether an empty page has been seen
func (f *Feed) Exhausted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exhausted
}

// LoadMore fetches the next page and appends it. It returns the number of
// posts added. A call made while another fetch is outstanding returns
// ErrLoadInProgress. On failure the feed and page counter are unchanged.
func (f *Feed) LoadMore(ctx context.Context) (int, error) {
	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		return 0, ErrLoadInProgress
	}
	if f.exhausted {
		f.mu.Unlock()
		return 0, nil
	}
	f.loading = true
	next := f.page + 1
	f.mu.Unlock()

	page, err := f.api.ListPosts(ctx, next, FeedPageSize)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false
	if err != nil {
		return 0, err
	}

	f.page = next
	if len(page) == 0 {
		f.exhausted = true
		return 0, nil
	}

	added := 0
	for _, p := range page {
		f.seen.Add(p.ID, p)
		// Posts created locally shift the server's offsets, so a page can
		// repeat a post that is already shown
		if f.indexOfPost(p.ID) >= 0 {
			continue
		}
		f.entries = append(f.entries, &Entry{LocalID: p.ID, Post: p, State: EntryConfirmed})
		added++
	}
	return added, nil
}

// Submit creates a post optimistically. A pending entry is shown at the head
// of the feed until the server answers; on success it is replaced by the
// server's record, on failure it is removed and the error returned.
func (f *Feed) Submit(ctx context.Context, draft Draft) (Entry, error) {
	localID := f.insertPending(draft)
	result := f.reconcile(ctx, localID, draft)
	return result, result.Err
}

// SubmitAsync is Submit without waiting. The pending entry is in the feed
// when it returns; the final Entry (EntryConfirmed or EntryFailed) is
// delivered on the channel.
func (f *Feed) SubmitAsync(ctx context.Context, draft Draft) (string, <-chan Entry) {
	localID := f.insertPending(draft)
	done := make(chan Entry, 1)
	go func() {
		done <- f.reconcile(ctx, localID, draft)
		close(done)
	}()
	return localID, done
}

// Update edits a post on the server, then replaces its entry
func (f *Feed) Update(ctx context.Context, id string, draft Draft) (*posts.Post, error) {
	updated, err := f.api.UpdatePost(ctx, id, draft)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.indexOfPost(id); i >= 0 {
		f.entries[i].Post = *updated
	}
	f.seen.Add(updated.ID, *updated)
	return updated, nil
}

// Delete removes a post on the server, then drops its entry
func (f *Feed) Delete(ctx context.Context, id string) error {
	if err := f.api.DeletePost(ctx, id); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.indexOfPost(id); i >= 0 {
		f.entries = slices.Delete(f.entries, i, i+1)
	}
	f.seen.Remove(id)
	return nil
}

// Bookmarked resolves the session's bookmarks against posts this feed has
// seen. Bookmarks with no known post are skipped.
func (f *Feed) Bookmarked(session *Session) []posts.Post {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []posts.Post
	for _, id := range session.Bookmarks() {
		if p, ok := f.seen.Get(id); ok {
			out = append(out, p)
		}
	}
	return out
}

func (f *Feed) insertPending(draft Draft) string {
	localID := "local-" + uuid.NewString()
	entry := &Entry{
		LocalID: localID,
		State:   EntryPending,
		Post: posts.Post{
			Title:   draft.Title,
			Content: draft.Content,
		},
	}

	f.mu.Lock()
	f.entries = append([]*Entry{entry}, f.entries...)
	f.mu.Unlock()
	return localID
}

// reconcile performs the server call for a pending entry and settles it by local id
func (f *Feed) reconcile(ctx context.Context, localID string, draft Draft) Entry {
	created, err := f.api.CreatePost(ctx, draft)

	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.indexOfLocal(localID)
	if err != nil {
		failed := Entry{LocalID: localID, State: EntryFailed, Err: err}
		if i >= 0 {
			failed.Post = f.entries[i].Post
			f.entries = slices.Delete(f.entries, i, i+1)
		}
		return failed
	}

	f.seen.Add(created.ID, *created)

	// A LoadMore that ran while the create was in flight may already show the post
	if j := f.indexOfPost(created.ID); j >= 0 {
		f.entries[j].Post = *created
		if i >= 0 {
			f.entries = slices.Delete(f.entries, i, i+1)
		}
		return Entry{LocalID: localID, Post: *created, State: EntryConfirmed}
	}

	confirmed := &Entry{LocalID: localID, Post: *created, State: EntryConfirmed}
	if i >= 0 {
		f.entries[i] = confirmed
	} else {
		f.entries = append([]*Entry{confirmed}, f.entries...)
	}
	return *confirmed
}

func (f *Feed) indexOfLocal(localID string) int {
	return slices.IndexFunc(f.entries, func(e *Entry) bool { return e.LocalID == localID })
}

func (f *Feed) indexOfPost(id string) int {
	return slices.IndexFunc(f.entries, func(e *Entry) bool {
		return e.State == EntryConfirmed && e.Post.ID == id
	})
}
