package book

import (
	"context"
	"fmt"
	"relay-story-server/internal/domain"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
)

// fakeRepository keeps books and sentences in memory. Transaction holds a
// single lock for its whole duration, standing in for the book row lock, and
// rolls back on error.
type fakeRepository struct {
	txMu sync.Mutex
	mu   sync.Mutex

	categories     map[string]bool
	books          map[uint64]domain.Book
	sentences      map[uint64]domain.Sentence
	nextBookID     uint64
	nextSentenceID uint64
}

func newFakeRepository(categories ...string) *fakeRepository {
	r := &fakeRepository{
		categories: map[string]bool{},
		books:      map[uint64]domain.Book{},
		sentences:  map[uint64]domain.Sentence{},
	}
	for _, c := range categories {
		r.categories[c] = true
	}
	return r
}

func (r *fakeRepository) Transaction(ctx context.Context, fn func(repo Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	books := make(map[uint64]domain.Book, len(r.books))
	for k, v := range r.books {
		books[k] = v
	}
	sentences := make(map[uint64]domain.Sentence, len(r.sentences))
	for k, v := range r.sentences {
		sentences[k] = v
	}
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.books = books
		r.sentences = sentences
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *fakeRepository) CategoryExists(_ context.Context, categoryID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.categories[categoryID], nil
}

func (r *fakeRepository) CreateBook(_ context.Context, book *domain.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextBookID++
	book.ID = r.nextBookID
	book.CreatedAt = time.Now().UTC()
	book.UpdatedAt = book.CreatedAt
	for i := range book.Sentences {
		r.nextSentenceID++
		book.Sentences[i].ID = r.nextSentenceID
		book.Sentences[i].BookID = book.ID
		r.sentences[r.nextSentenceID] = book.Sentences[i]
	}

	stored := *book
	stored.Sentences = nil
	r.books[book.ID] = stored
	return nil
}

func (r *fakeRepository) FindBook(_ context.Context, id uint64) (*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	book, ok := r.books[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if book.LastWriterUserID != nil {
		writer := *book.LastWriterUserID
		book.LastWriterUserID = &writer
	}
	return &book, nil
}

func (r *fakeRepository) FindBookForUpdate(ctx context.Context, id uint64) (*domain.Book, error) {
	return r.FindBook(ctx, id)
}

func (r *fakeRepository) SaveBookState(_ context.Context, book *domain.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.books[book.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Status = book.Status
	stored.CurrentSequence = book.CurrentSequence
	stored.LastWriterUserID = nil
	if book.LastWriterUserID != nil {
		writer := *book.LastWriterUserID
		stored.LastWriterUserID = &writer
	}
	r.books[book.ID] = stored
	return nil
}

func (r *fakeRepository) UpdateTitle(_ context.Context, id uint64, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	book, ok := r.books[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	book.Title = title
	r.books[id] = book
	return nil
}

func (r *fakeRepository) DeleteBook(_ context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.books[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.books, id)
	for sid, s := range r.sentences {
		if s.BookID == id {
			delete(r.sentences, sid)
		}
	}
	return nil
}

func (r *fakeRepository) CreateSentence(_ context.Context, sentence *domain.Sentence) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sentences {
		if s.BookID == sentence.BookID && s.SequenceNo == sentence.SequenceNo {
			return fmt.Errorf("duplicate key (book_id, sequence_no)=(%d, %d)", s.BookID, s.SequenceNo)
		}
	}
	r.nextSentenceID++
	sentence.ID = r.nextSentenceID
	sentence.CreatedAt = time.Now().UTC()
	sentence.UpdatedAt = sentence.CreatedAt
	r.sentences[sentence.ID] = *sentence
	return nil
}

func (r *fakeRepository) FindSentence(_ context.Context, id uint64) (*domain.Sentence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sentences[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r *fakeRepository) FindSentenceBySequence(_ context.Context, bookID uint64, sequenceNo int) (*domain.Sentence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sentences {
		if s.BookID == bookID && s.SequenceNo == sequenceNo {
			return &s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) ListSentences(_ context.Context, bookID uint64) ([]domain.Sentence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Sentence
	for _, s := range r.sentences {
		if s.BookID == bookID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNo < out[j].SequenceNo })
	return out, nil
}

func (r *fakeRepository) UpdateLastSentenceContent(_ context.Context, bookID, id uint64, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sentences[id]
	book, found := r.books[bookID]
	if !ok || !found || s.BookID != bookID || s.SequenceNo != book.LastSequenceNo() {
		return ErrNotLastSentence
	}
	s.Content = content
	r.sentences[id] = s
	return nil
}

func (r *fakeRepository) DeleteSentence(_ context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sentences[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.sentences, id)
	return nil
}

func (r *fakeRepository) ShiftSequencesAfter(_ context.Context, bookID uint64, sequenceNo int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.sentences {
		if s.BookID == bookID && s.SequenceNo > sequenceNo {
			s.SequenceNo--
			r.sentences[id] = s
		}
	}
	return nil
}

type stubNicknames struct{}

func (stubNicknames) Nickname(_ context.Context, userID uint64) string {
	return fmt.Sprintf("writer-%d", userID)
}

func (stubNicknames) Nicknames(_ context.Context, userIDs []uint64) map[uint64]string {
	out := make(map[uint64]string, len(userIDs))
	for _, id := range userIDs {
		out[id] = fmt.Sprintf("writer-%d", id)
	}
	return out
}

type stubVotes struct {
	counts domain.VoteCounts
}

func (s stubVotes) CountVotes(context.Context, domain.Target) (domain.VoteCounts, error) {
	return s.counts, nil
}

type published struct {
	topic   string
	payload any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []published
}

func (n *recordingNotifier) Notify(topic string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, published{topic: topic, payload: payload})
}

func (n *recordingNotifier) all() []published {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]published(nil), n.events...)
}
