package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/chirp-backend/internal/apperr"
	"github.com/AnshRaj112/chirp-backend/internal/models"
)

func TestTweetInput_Validate(t *testing.T) {
	parent := primitive.NewObjectID()
	cases := []struct {
		name  string
		in    TweetInput
		field string
	}{
		{"plain tweet", TweetInput{Content: "hi"}, ""},
		{"hashtag only", TweetInput{Hashtags: []string{"go"}}, ""},
		{"empty tweet", TweetInput{Content: "  "}, "content"},
		{"tweet with parent", TweetInput{Content: "hi", ParentID: &parent}, "parent_id"},
		{"comment without parent", TweetInput{Type: models.TweetTypeComment, Content: "hi"}, "parent_id"},
		{"retweet with content", TweetInput{Type: models.TweetTypeRetweet, ParentID: &parent, Content: "x"}, "content"},
		{"retweet", TweetInput{Type: models.TweetTypeRetweet, ParentID: &parent}, ""},
		{"bad audience", TweetInput{Content: "hi", Audience: 7}, "audience"},
		{"bad type", TweetInput{Content: "hi", Type: 9}, "type"},
		{"bad media", TweetInput{Content: "hi", Medias: []models.Media{{URL: "", Type: models.MediaImage}}}, "medias"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Validate()
			if tc.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			e := apperr.From(err)
			assert.Equal(t, apperr.KindValidation, e.Kind)
			assert.Contains(t, e.Fields, tc.field)
		})
	}
}

func TestTweetService_Create(t *testing.T) {
	tweets := newMemTweets()
	tags := &memHashtags{}
	s := NewTweetService(tweets, tags)
	ctx := context.Background()
	author := primitive.NewObjectID()

	tw, err := s.Create(ctx, author, TweetInput{
		Content:  "hello #go",
		Audience: models.AudienceTwitterCircle,
		Hashtags: []string{"#Go", "go", "mongo"},
	})
	require.NoError(t, err)
	assert.Equal(t, author, tw.UserID)
	assert.Len(t, tw.Hashtags, 2)
	assert.Equal(t, tags.byName["go"], tw.Hashtags[0])

	missing := primitive.NewObjectID()
	_, err = s.Create(ctx, author, TweetInput{Type: models.TweetTypeComment, ParentID: &missing, Content: "x"})
	assert.ErrorIs(t, err, ErrTweetNotFound)

	got, err := s.RecordView(ctx, tw.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, got.GuestViews)
	got, err = s.RecordView(ctx, tw.ID, &author)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UserViews)
}

func TestBookmarkService(t *testing.T) {
	tweets := newMemTweets()
	s := NewBookmarkService(newMemEdges(), tweets)
	ctx := context.Background()
	user := primitive.NewObjectID()
	tw := &models.Tweet{Content: "x"}
	require.NoError(t, tweets.Create(ctx, tw))

	b1, err := s.Create(ctx, user, tw.ID)
	require.NoError(t, err)
	b2, err := s.Create(ctx, user, tw.ID)
	require.NoError(t, err)
	assert.Equal(t, b1.ID, b2.ID)

	_, err = s.Create(ctx, user, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrTweetNotFound)

	removed, err := s.Delete(ctx, user, tw.ID)
	require.NoError(t, err)
	assert.True(t, removed)
}
