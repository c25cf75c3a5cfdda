package comments

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/example/art-portfolio/internal/docstore"
	"github.com/example/art-portfolio/internal/platform/analytics"
)

// maxLikeAttempts bounds retries when a concurrent toggle from the same
// session flips membership between our read and our write.
const maxLikeAttempts = 3

// ErrLikeContention is wrapped in a StorageError when every attempt lost
// the race.
var ErrLikeContention = errors.New("like toggle contention")

type LikeResult struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}

// ToggleLike flips the like state of commentID for sessionID.
//
// The current state is read from the store, then changed with one
// conditional atomic delta: increment plus array union guarded by
// "session not in likedBy", or decrement plus array remove guarded by
// "session in likedBy". Concurrent toggles from different sessions never
// overwrite each other and likes stays equal to len(likedBy).
func (s *Service) ToggleLike(ctx context.Context, commentID, sessionID string) (LikeResult, error) {
	commentID = strings.TrimSpace(commentID)
	sessionID = strings.TrimSpace(sessionID)
	if commentID == "" {
		return LikeResult{}, invalid("commentId", "is required")
	}
	if sessionID == "" {
		return LikeResult{}, invalid("sessionId", "is required")
	}

	for attempt := 1; attempt <= maxLikeAttempts; attempt++ {
		cur, err := s.store.Get(ctx, Collection, commentID)
		if err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				return LikeResult{}, ErrNotFound
			}
			observeOp("like", err)
			return LikeResult{}, storageErr("like", err)
		}

		liked := Decode(cur).LikedBySession(sessionID)
		var ops []docstore.Op
		var cond docstore.Cond
		if liked {
			ops = []docstore.Op{
				docstore.Increment(FieldLikes, -1),
				docstore.ArrayRemove(FieldLikedBy, sessionID),
			}
			cond = docstore.ArrayContains(FieldLikedBy, sessionID)
		} else {
			ops = []docstore.Op{
				docstore.Increment(FieldLikes, 1),
				docstore.ArrayUnion(FieldLikedBy, sessionID),
			}
			cond = docstore.ArrayNotContains(FieldLikedBy, sessionID)
		}

		updated, err := s.store.Update(ctx, Collection, commentID, ops, cond)
		switch {
		case err == nil:
			c := Decode(updated)
			res := LikeResult{Liked: !liked, Likes: c.Likes}
			observeOp("like", nil)
			s.publish(analytics.SubjectCommentLiked, "comment_liked", sessionID, map[string]any{
				"comment_id": commentID,
				"liked":      res.Liked,
				"likes":      res.Likes,
			})
			return res, nil
		case errors.Is(err, docstore.ErrConditionFailed):
			s.log.Debug("like toggle raced, retrying",
				zap.String("comment_id", commentID), zap.Int("attempt", attempt))
			continue
		case errors.Is(err, docstore.ErrNotFound):
			return LikeResult{}, ErrNotFound
		default:
			observeOp("like", err)
			return LikeResult{}, storageErr("like", err)
		}
	}
	observeOp("like", ErrLikeContention)
	return LikeResult{}, storageErr("like", ErrLikeContention)
}
