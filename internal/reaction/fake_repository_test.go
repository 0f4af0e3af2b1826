package reaction

import (
	"context"
	"fmt"
	"relay-story-server/internal/domain"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
)

type voteKey struct {
	target  domain.Target
	voterID uint64
}

// fakeRepository is an in-memory vote and comment store. Votes are keyed by
// (target, voter) so at most one row can exist per key, as with the unique
// index in postgres.
type fakeRepository struct {
	mu sync.Mutex

	books     map[uint64]bool
	sentences map[uint64]bool

	votes      map[voteKey]domain.Vote
	nextVoteID uint64

	comments      map[uint64]domain.Comment
	nextCommentID uint64
	clock         time.Time
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		books:     map[uint64]bool{},
		sentences: map[uint64]bool{},
		votes:     map[voteKey]domain.Vote{},
		comments:  map[uint64]domain.Comment{},
		clock:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *fakeRepository) BookExists(_ context.Context, bookID uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.books[bookID], nil
}

func (r *fakeRepository) SentenceExists(_ context.Context, sentenceID uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sentences[sentenceID], nil
}

func (r *fakeRepository) FindVote(_ context.Context, target domain.Target, voterID uint64) (*domain.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	vote, ok := r.votes[voteKey{target, voterID}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &vote, nil
}

func (r *fakeRepository) UpsertVote(_ context.Context, target domain.Target, voterID uint64, voteType domain.VoteType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := voteKey{target, voterID}
	vote, ok := r.votes[key]
	if !ok {
		r.nextVoteID++
		vote = domain.Vote{ID: r.nextVoteID, TargetID: target.ID, VoterID: voterID}
	}
	vote.VoteType = voteType
	r.votes[key] = vote
	return nil
}

func (r *fakeRepository) DeleteVote(_ context.Context, target domain.Target, voterID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := voteKey{target, voterID}
	if _, ok := r.votes[key]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.votes, key)
	return nil
}

func (r *fakeRepository) CountVotes(_ context.Context, target domain.Target) (domain.VoteCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var counts domain.VoteCounts
	for key, vote := range r.votes {
		if key.target != target {
			continue
		}
		switch vote.VoteType {
		case domain.VoteLike:
			counts.LikeCount++
		case domain.VoteDislike:
			counts.DislikeCount++
		}
	}
	return counts, nil
}

func (r *fakeRepository) CreateComment(_ context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextCommentID++
	r.clock = r.clock.Add(time.Second)
	comment.ID = r.nextCommentID
	comment.CreatedAt = r.clock
	comment.UpdatedAt = r.clock
	r.comments[comment.ID] = *comment
	return nil
}

func (r *fakeRepository) FindComment(_ context.Context, id uint64) (*domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.comments[id]
	if !ok || c.DeletedAt.Valid {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *fakeRepository) ListComments(_ context.Context, bookID uint64) ([]domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Comment
	for _, c := range r.comments {
		if c.BookID == bookID && !c.DeletedAt.Valid {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepository) UpdateCommentContent(_ context.Context, id uint64, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.comments[id]
	if !ok || c.DeletedAt.Valid {
		return gorm.ErrRecordNotFound
	}
	c.Content = content
	r.comments[id] = c
	return nil
}

func (r *fakeRepository) DeleteComment(_ context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.comments[id]
	if !ok || c.DeletedAt.Valid {
		return gorm.ErrRecordNotFound
	}
	c.DeletedAt = gorm.DeletedAt{Time: r.clock, Valid: true}
	r.comments[id] = c
	return nil
}

type stubBooks struct {
	bookIDs map[uint64]uint64
	err     error
}

func (s stubBooks) BookIDForSentence(_ context.Context, sentenceID uint64) (uint64, error) {
	if s.err != nil {
		return 0, s.err
	}
	bookID, ok := s.bookIDs[sentenceID]
	if !ok {
		return 0, fmt.Errorf("sentence %d not found", sentenceID)
	}
	return bookID, nil
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
