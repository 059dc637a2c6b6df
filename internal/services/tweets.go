package services

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/chirp-backend/internal/apperr"
	"github.com/AnshRaj112/chirp-backend/internal/models"
	"github.com/AnshRaj112/chirp-backend/internal/repository"
)

var (
	ErrTweetNotFound = apperr.NotFound("Tweet not found")
)

// TweetInput is a decoded create-tweet request.
type TweetInput struct {
	Type     models.TweetType
	Audience models.TweetAudience
	Content  string
	ParentID *primitive.ObjectID
	Hashtags []string
	Mentions []primitive.ObjectID
	Medias   []models.Media
}

// Validate applies the per-type rules: plain tweets have no parent, every
// other type needs one; retweets carry no content; other types need content
// unless they carry hashtags or mentions.
func (in TweetInput) Validate() error {
	fields := map[string]string{}

	if in.Type < models.TweetTypeTweet || in.Type > models.TweetTypeQuoteTweet {
		fields["type"] = "Invalid type"
	}
	if in.Audience != models.AudienceEveryone && in.Audience != models.AudienceTwitterCircle {
		fields["audience"] = "Invalid audience"
	}

	switch in.Type {
	case models.TweetTypeTweet:
		if in.ParentID != nil {
			fields["parent_id"] = "Parent id must be null"
		}
	case models.TweetTypeRetweet, models.TweetTypeComment, models.TweetTypeQuoteTweet:
		if in.ParentID == nil || in.ParentID.IsZero() {
			fields["parent_id"] = "Parent id must be a valid tweet id"
		}
	}

	if in.Type == models.TweetTypeRetweet {
		if in.Content != "" {
			fields["content"] = "Content must be empty string"
		}
	} else if strings.TrimSpace(in.Content) == "" && len(in.Hashtags) == 0 && len(in.Mentions) == 0 {
		fields["content"] = "Content must be a non-empty string"
	}

	for _, h := range in.Hashtags {
		if strings.TrimSpace(h) == "" {
			fields["hashtags"] = "Hashtags must be an array of non-empty strings"
			break
		}
	}
	for _, m := range in.Medias {
		if m.URL == "" || m.Type < models.MediaImage || m.Type > models.MediaHLS {
			fields["medias"] = "Medias must be an array of media objects"
			break
		}
	}

	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}

type TweetService struct {
	tweets   repository.TweetStore
	hashtags repository.HashtagStore
}

func NewTweetService(tweets repository.TweetStore, hashtags repository.HashtagStore) *TweetService {
	return &TweetService{tweets: tweets, hashtags: hashtags}
}

// Create upserts the tweet's hashtags and stores it.
func (s *TweetService) Create(ctx context.Context, userID primitive.ObjectID, in TweetInput) (*models.Tweet, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.ParentID != nil {
		if _, err := s.tweets.FindByID(ctx, *in.ParentID); err != nil {
			return nil, notFoundOr(err, ErrTweetNotFound)
		}
	}

	names := normalizeHashtags(in.Hashtags)
	hashtagIDs, err := s.hashtags.Upsert(ctx, names)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	t := &models.Tweet{
		UserID:   userID,
		Type:     in.Type,
		Audience: in.Audience,
		Content:  in.Content,
		ParentID: in.ParentID,
		Hashtags: hashtagIDs,
		Mentions: in.Mentions,
		Medias:   in.Medias,
	}
	if err := s.tweets.Create(ctx, t); err != nil {
		return nil, apperr.Internal(err)
	}
	return t, nil
}

func (s *TweetService) Get(ctx context.Context, id primitive.ObjectID) (*models.Tweet, error) {
	t, err := s.tweets.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrTweetNotFound)
	}
	return t, nil
}

// RecordView counts a read by a guest (viewer == nil) or a signed-in user.
func (s *TweetService) RecordView(ctx context.Context, id primitive.ObjectID, viewer *primitive.ObjectID) (*models.Tweet, error) {
	t, err := s.tweets.IncrementViews(ctx, id, viewer == nil)
	if err != nil {
		return nil, notFoundOr(err, ErrTweetNotFound)
	}
	return t, nil
}

func normalizeHashtags(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, h := range in {
		h = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "#"))
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

type BookmarkService struct {
	bookmarks repository.BookmarkStore
	tweets    repository.TweetStore
}

func NewBookmarkService(bookmarks repository.BookmarkStore, tweets repository.TweetStore) *BookmarkService {
	return &BookmarkService{bookmarks: bookmarks, tweets: tweets}
}

// Create bookmarks tweetID for userID. Repeating it returns the same bookmark.
func (s *BookmarkService) Create(ctx context.Context, userID, tweetID primitive.ObjectID) (*models.Bookmark, error) {
	if _, err := s.tweets.FindByID(ctx, tweetID); err != nil {
		return nil, notFoundOr(err, ErrTweetNotFound)
	}
	b, err := s.bookmarks.Save(ctx, userID, tweetID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return b, nil
}

func (s *BookmarkService) Delete(ctx context.Context, userID, tweetID primitive.ObjectID) (bool, error) {
	removed, err := s.bookmarks.Delete(ctx, userID, tweetID)
	if err != nil {
		return false, apperr.Internal(err)
	}
	return removed, nil
}
