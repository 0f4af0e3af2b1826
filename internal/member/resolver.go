package member

import (
	"context"
	"fmt"
	"relay-story-server/redis"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const UnknownWriter = "Unknown Writer"

// lookupTimeout bounds a shared directory lookup, which outlives any single
// caller's context.
const lookupTimeout = 3 * time.Second

// Directory is the member lookup the resolver depends on.
type Directory interface {
	FetchMember(ctx context.Context, userID uint64) (*Info, error)
	FetchMembers(ctx context.Context, userIDs []uint64) ([]Info, error)
}

// Resolver turns writer ids into display names. It never fails: members the
// directory cannot resolve get the fallback name.
type Resolver struct {
	directory Directory
	cache     *redis.Cache
	ttl       time.Duration
	fallback  string
	group     singleflight.Group
}

func NewResolver(directory Directory, cache *redis.Cache, ttl time.Duration) *Resolver {
	return &Resolver{
		directory: directory,
		cache:     cache,
		ttl:       ttl,
		fallback:  UnknownWriter,
	}
}

func cacheKey(userID uint64) string {
	return fmt.Sprintf("member:%d:nickname", userID)
}

func (r *Resolver) Nickname(ctx context.Context, userID uint64) string {
	var name string
	if found, _ := r.cache.Get(ctx, cacheKey(userID), &name); found {
		return name
	}

	v, err, _ := r.group.Do(strconv.FormatUint(userID, 10), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		info, err := r.directory.FetchMember(fetchCtx, userID)
		if err != nil {
			return nil, err
		}
		return info.Nickname, nil
	})
	if err != nil {
		log.Warn().Err(err).Uint64("user_id", userID).Msg("member lookup failed, using fallback nickname")
		return r.fallback
	}

	name = v.(string)
	if err := r.cache.Set(ctx, cacheKey(userID), name, r.ttl); err != nil {
		log.Debug().Err(err).Msg("nickname cache write failed")
	}
	return name
}

// Nicknames resolves every id in one directory round trip for the ids the
// cache does not hold. Every requested id is present in the result.
func (r *Resolver) Nicknames(ctx context.Context, userIDs []uint64) map[uint64]string {
	result := make(map[uint64]string, len(userIDs))
	if len(userIDs) == 0 {
		return result
	}

	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, cacheKey(id))
	}
	cached, err := redis.MGet[string](ctx, r.cache, keys)
	if err != nil {
		log.Debug().Err(err).Msg("nickname cache read failed")
	}

	var missing []uint64
	for _, id := range userIDs {
		if name, ok := cached[cacheKey(id)]; ok {
			result[id] = name
			continue
		}
		if _, seen := result[id]; !seen {
			missing = append(missing, id)
			result[id] = r.fallback
		}
	}
	if len(missing) == 0 {
		return result
	}

	members, err := r.directory.FetchMembers(ctx, missing)
	if err != nil {
		log.Warn().Err(err).Int("count", len(missing)).Msg("member batch lookup failed, using fallback nicknames")
		return result
	}
	for _, m := range members {
		result[m.UserID] = m.Nickname
		if err := r.cache.Set(ctx, cacheKey(m.UserID), m.Nickname, r.ttl); err != nil {
			log.Debug().Err(err).Msg("nickname cache write failed")
		}
	}
	return result
}
