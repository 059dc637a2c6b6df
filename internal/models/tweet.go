package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TweetType int

const (
	TweetTypeTweet TweetType = iota
	TweetTypeRetweet
	TweetTypeComment
	TweetTypeQuoteTweet
)

type TweetAudience int

const (
	AudienceEveryone TweetAudience = iota
	AudienceTwitterCircle
)

type MediaType int

const (
	MediaImage MediaType = iota
	MediaVideo
	MediaHLS
)

type Media struct {
	URL  string    `bson:"url" json:"url"`
	Type MediaType `bson:"type" json:"type"`
}

type Tweet struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID   `bson:"user_id" json:"user_id"`
	Type       TweetType            `bson:"type" json:"type"`
	Audience   TweetAudience        `bson:"audience" json:"audience"`
	Content    string               `bson:"content" json:"content"`
	ParentID   *primitive.ObjectID  `bson:"parent_id" json:"parent_id"`
	Hashtags   []primitive.ObjectID `bson:"hashtags" json:"hashtags"`
	Mentions   []primitive.ObjectID `bson:"mentions" json:"mentions"`
	Medias     []Media              `bson:"medias" json:"medias"`
	GuestViews int                  `bson:"guest_views" json:"guest_views"`
	UserViews  int                  `bson:"user_views" json:"user_views"`
	CreatedAt  time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time            `bson:"updated_at" json:"updated_at"`
}

type Hashtag struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

type Bookmark struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	TweetID   primitive.ObjectID `bson:"tweet_id" json:"tweet_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

type Follower struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID `bson:"user_id" json:"user_id"`
	FollowedUserID primitive.ObjectID `bson:"followed_user_id" json:"followed_user_id"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}
