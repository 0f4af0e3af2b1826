package member

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"relay-story-server/redis"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisLib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newMemberServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	members := map[string]Info{
		"1": {UserID: 1, Nickname: "alice", Role: "USER"},
		"2": {UserID: 2, Nickname: "bob", Role: "ADMIN"},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/internal/members/batch", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "1,2,3", r.URL.Query().Get("userIds"))
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"members": []Info{members["1"], members["2"]}},
		})
	})
	mux.HandleFunc("/internal/members/{id}", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		m, ok := members[r.PathValue("id")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"member not found"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"data": m})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_FetchMember(t *testing.T) {
	var calls atomic.Int32
	srv := newMemberServer(t, &calls)
	client := NewClient(srv.URL+"/", "secret")

	info, err := client.FetchMember(context.Background(), 2)

	require.NoError(t, err)
	assert.Equal(t, "bob", info.Nickname)
	assert.Equal(t, "ADMIN", info.Role)
}

func TestClient_FetchMember_NotFound(t *testing.T) {
	var calls atomic.Int32
	srv := newMemberServer(t, &calls)
	client := NewClient(srv.URL, "secret")

	_, err := client.FetchMember(context.Background(), 99)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=404")
}

func TestClient_FetchMembers(t *testing.T) {
	var calls atomic.Int32
	srv := newMemberServer(t, &calls)
	client := NewClient(srv.URL, "secret")

	infos, err := client.FetchMembers(context.Background(), []uint64{1, 2, 3})

	require.NoError(t, err)
	assert.Len(t, infos, 2)
}

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) FetchMember(ctx context.Context, userID uint64) (*Info, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Info), args.Error(1)
}

func (m *mockDirectory) FetchMembers(ctx context.Context, userIDs []uint64) ([]Info, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Info), args.Error(1)
}

func newCache(t *testing.T) *redis.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisLib.NewClient(&redisLib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return redis.NewCache(client)
}

func TestResolver_NicknameCachesResult(t *testing.T) {
	dir := new(mockDirectory)
	dir.On("FetchMember", mock.Anything, uint64(1)).Return(&Info{UserID: 1, Nickname: "alice"}, nil).Once()
	r := NewResolver(dir, newCache(t), time.Minute)
	ctx := context.Background()

	assert.Equal(t, "alice", r.Nickname(ctx, 1))
	assert.Equal(t, "alice", r.Nickname(ctx, 1))
	dir.AssertExpectations(t)
}

func TestResolver_NicknameFallback(t *testing.T) {
	dir := new(mockDirectory)
	dir.On("FetchMember", mock.Anything, uint64(5)).Return(nil, errors.New("connection refused"))
	r := NewResolver(dir, redis.NewCache(nil), time.Minute)

	assert.Equal(t, UnknownWriter, r.Nickname(context.Background(), 5))
}

func TestResolver_NicknameOutlivesCanceledCaller(t *testing.T) {
	dir := new(mockDirectory)
	live := mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })
	dir.On("FetchMember", live, uint64(1)).Return(&Info{UserID: 1, Nickname: "alice"}, nil).Once()
	r := NewResolver(dir, redis.NewCache(nil), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, "alice", r.Nickname(ctx, 1))
	dir.AssertExpectations(t)
}

func TestResolver_NicknamesUsesCacheThenBatch(t *testing.T) {
	cache := newCache(t)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, cacheKey(1), "alice", time.Minute))

	dir := new(mockDirectory)
	dir.On("FetchMembers", mock.Anything, []uint64{2, 3}).
		Return([]Info{{UserID: 2, Nickname: "bob"}}, nil).Once()
	r := NewResolver(dir, cache, time.Minute)

	names := r.Nicknames(ctx, []uint64{1, 2, 3, 2})

	assert.Equal(t, map[uint64]string{1: "alice", 2: "bob", 3: UnknownWriter}, names)
	dir.AssertExpectations(t)

	var cached string
	found, err := cache.Get(ctx, cacheKey(2), &cached)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "bob", cached)
}

func TestResolver_NicknamesDirectoryDown(t *testing.T) {
	dir := new(mockDirectory)
	dir.On("FetchMembers", mock.Anything, []uint64{7, 8}).Return(nil, errors.New("timeout"))
	r := NewResolver(dir, redis.NewCache(nil), time.Minute)

	names := r.Nicknames(context.Background(), []uint64{7, 8})

	assert.Equal(t, map[uint64]string{7: UnknownWriter, 8: UnknownWriter}, names)
}

func TestResolver_NicknamesEmpty(t *testing.T) {
	r := NewResolver(new(mockDirectory), redis.NewCache(nil), time.Minute)
	assert.Empty(t, r.Nicknames(context.Background(), nil))
}

func TestResolver_AgainstHTTPDirectory(t *testing.T) {
	var calls atomic.Int32
	srv := newMemberServer(t, &calls)
	r := NewResolver(NewClient(srv.URL, "secret"), newCache(t), time.Minute)
	ctx := context.Background()

	assert.Equal(t, "alice", r.Nickname(ctx, 1))
	assert.Equal(t, UnknownWriter, r.Nickname(ctx, 42))
	assert.Equal(t, "alice", r.Nickname(ctx, 1))
	assert.Equal(t, int32(2), calls.Load())
}
