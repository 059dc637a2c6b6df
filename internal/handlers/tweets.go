package handlers

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/chirp-backend/internal/middleware"
	"github.com/AnshRaj112/chirp-backend/internal/models"
	"github.com/AnshRaj112/chirp-backend/internal/services"
	"github.com/AnshRaj112/chirp-backend/pkg/utils"
)

// Tweets is implemented by *services.TweetService.
type Tweets interface {
	Create(ctx context.Context, userID primitive.ObjectID, in services.TweetInput) (*models.Tweet, error)
	RecordView(ctx context.Context, id primitive.ObjectID, viewer *primitive.ObjectID) (*models.Tweet, error)
}

// Bookmarks is implemented by *services.BookmarkService.
type Bookmarks interface {
	Create(ctx context.Context, userID, tweetID primitive.ObjectID) (*models.Bookmark, error)
	Delete(ctx context.Context, userID, tweetID primitive.ObjectID) (bool, error)
}

type TweetHandler struct {
	tweets    Tweets
	bookmarks Bookmarks
}

func NewTweetHandler(tweets Tweets, bookmarks Bookmarks) *TweetHandler {
	return &TweetHandler{tweets: tweets, bookmarks: bookmarks}
}

type CreateTweetRequest struct {
	Type     models.TweetType     `json:"type"`
	Audience models.TweetAudience `json:"audience"`
	Content  string               `json:"content"`
	ParentID *string              `json:"parent_id"`
	Hashtags []string             `json:"hashtags"`
	Mentions []string             `json:"mentions"`
	Medias   []models.Media       `json:"medias"`
}

type BookmarkRequest struct {
	TweetID string `json:"tweet_id"`
}

func (req *CreateTweetRequest) input() (services.TweetInput, error) {
	in := services.TweetInput{
		Type:     req.Type,
		Audience: req.Audience,
		Content:  req.Content,
		Hashtags: req.Hashtags,
		Medias:   req.Medias,
	}
	if req.ParentID != nil {
		id, err := parseObjectID("parent_id", *req.ParentID)
		if err != nil {
			return in, err
		}
		in.ParentID = &id
	}
	for _, hex := range req.Mentions {
		id, err := parseObjectID("mentions", hex)
		if err != nil {
			return in, err
		}
		in.Mentions = append(in.Mentions, id)
	}
	return in, nil
}

// Create handles POST /api/tweets.
func (h *TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var req CreateTweetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	tweet, err := h.tweets.Create(r.Context(), userID, in)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Create tweet success", tweet)
}

// Get handles GET /api/tweets/{tweet_id}. The audience middleware has
// already loaded and authorized the tweet.
func (h *TweetHandler) Get(w http.ResponseWriter, r *http.Request) {
	tweet, ok := middleware.TweetFromContext(r.Context())
	if !ok {
		utils.WriteError(w, r, middleware.ErrTweetNotFound)
		return
	}
	var viewer *primitive.ObjectID
	if id, ok := middleware.UserIDFromContext(r.Context()); ok {
		viewer = &id
	}
	updated, err := h.tweets.RecordView(r.Context(), tweet.ID, viewer)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Get tweet success", updated)
}

// Bookmark handles POST /api/bookmarks.
func (h *TweetHandler) Bookmark(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var req BookmarkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	tweetID, err := parseObjectID("tweet_id", req.TweetID)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	b, err := h.bookmarks.Create(r.Context(), userID, tweetID)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Bookmark success", b)
}

// Unbookmark handles DELETE /api/bookmarks/tweets/{tweet_id}.
func (h *TweetHandler) Unbookmark(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	tweetID, err := objectIDParam(r, "tweet_id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if _, err := h.bookmarks.Delete(r.Context(), userID, tweetID); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Unbookmark success", nil)
}
