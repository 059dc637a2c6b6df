package services

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/chirp-backend/internal/models"
	"github.com/AnshRaj112/chirp-backend/internal/repository"
)

// memUsers mirrors the conditional-update semantics of repository.MongoUsers.
type memUsers struct {
	mu    sync.Mutex
	byID  map[primitive.ObjectID]*models.User
	fails error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[primitive.ObjectID]*models.User{}}
}

func (s *memUsers) get(id primitive.ObjectID) (*models.User, bool) {
	u, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	cp := *u
	cp.TwitterCircle = append([]primitive.ObjectID(nil), u.TwitterCircle...)
	return &cp, true
}

func (s *memUsers) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.byID {
		if other.Email == u.Email || other.Username == u.Username {
			return repository.ErrDuplicateKey
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	cp := *u
	s.byID[u.ID] = &cp
	return nil
}

func (s *memUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails != nil {
		return nil, s.fails
	}
	u, ok := s.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (s *memUsers) findBy(match func(*models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.byID {
		if match(u) {
			cp, _ := s.get(id)
			return cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return s.findBy(func(u *models.User) bool { return u.Email == email })
}

func (s *memUsers) FindByUsername(_ context.Context, username string) (*models.User, error) {
	return s.findBy(func(u *models.User) bool { return u.Username == username })
}

func (s *memUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := s.FindByEmail(ctx, email)
	return err == nil, nil
}

func (s *memUsers) MarkVerified(_ context.Context, id primitive.ObjectID, token string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok || u.Verify != models.Unverified || u.EmailVerifyToken != token {
		return nil, repository.ErrNotFound
	}
	u.Verify = models.Verified
	u.EmailVerifyToken = ""
	cp, _ := s.get(id)
	return cp, nil
}

func (s *memUsers) update(id primitive.ObjectID, cond func(*models.User) bool, apply func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok || (cond != nil && !cond(u)) {
		return repository.ErrNotFound
	}
	apply(u)
	u.UpdatedAt = time.Now()
	return nil
}

func (s *memUsers) SetEmailVerifyToken(_ context.Context, id primitive.ObjectID, token string) error {
	return s.update(id, nil, func(u *models.User) { u.EmailVerifyToken = token })
}

func (s *memUsers) SetForgotPasswordToken(_ context.Context, id primitive.ObjectID, token string) error {
	return s.update(id, nil, func(u *models.User) { u.ForgotPasswordToken = token })
}

func (s *memUsers) ResetPassword(_ context.Context, id primitive.ObjectID, token, hash string) error {
	return s.update(id,
		func(u *models.User) bool { return u.ForgotPasswordToken == token },
		func(u *models.User) { u.Password, u.ForgotPasswordToken = hash, "" },
	)
}

func (s *memUsers) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string) error {
	return s.update(id, nil, func(u *models.User) { u.Password = hash })
}

func (s *memUsers) UpdateProfile(_ context.Context, id primitive.ObjectID, p models.ProfilePatch) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.Username != nil {
		for otherID, other := range s.byID {
			if otherID != id && other.Username == *p.Username {
				return nil, repository.ErrDuplicateKey
			}
		}
		u.Username = *p.Username
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Location != nil {
		u.Location = *p.Location
	}
	if p.Website != nil {
		u.Website = *p.Website
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.CoverPhoto != nil {
		u.CoverPhoto = *p.CoverPhoto
	}
	if p.DateOfBirth != nil {
		u.DateOfBirth = *p.DateOfBirth
	}
	cp, _ := s.get(id)
	return cp, nil
}

func (s *memUsers) SetCircle(_ context.Context, id primitive.ObjectID, members []primitive.ObjectID) error {
	return s.update(id, nil, func(u *models.User) { u.TwitterCircle = members })
}

// memRefreshTokens mirrors repository.MongoRefreshTokens, including the
// atomic rotate and the exp filter on lookups.
type memRefreshTokens struct {
	mu      sync.Mutex
	byToken map[string]models.RefreshTokenRecord
}

func newMemRefreshTokens() *memRefreshTokens {
	return &memRefreshTokens{byToken: map[string]models.RefreshTokenRecord{}}
}

func (s *memRefreshTokens) Insert(_ context.Context, rec *models.RefreshTokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byToken[rec.Token]; ok {
		return repository.ErrDuplicateToken
	}
	rec.ID = primitive.NewObjectID()
	s.byToken[rec.Token] = *rec
	return nil
}

func (s *memRefreshTokens) FindByToken(_ context.Context, token string) (*models.RefreshTokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byToken[token]
	if !ok || !rec.ExpiresAt.After(time.Now()) {
		return nil, repository.ErrNotFound
	}
	return &rec, nil
}

func (s *memRefreshTokens) DeleteByToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byToken, token)
	return nil
}

func (s *memRefreshTokens) Rotate(_ context.Context, oldToken string, rec *models.RefreshTokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.byToken[oldToken]
	if !ok || !old.ExpiresAt.After(time.Now()) {
		return repository.ErrNotFound
	}
	delete(s.byToken, oldToken)
	rec.ID = old.ID
	s.byToken[rec.Token] = *rec
	return nil
}

func (s *memRefreshTokens) DeleteByUser(_ context.Context, userID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for tok, rec := range s.byToken {
		if rec.UserID == userID {
			delete(s.byToken, tok)
			n++
		}
	}
	return n, nil
}

func (s *memRefreshTokens) countFor(userID primitive.ObjectID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.byToken {
		if rec.UserID == userID {
			n++
		}
	}
	return n
}

type sentMail struct {
	kind  string
	to    string
	token string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) SendVerifyEmail(_ context.Context, to, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{"verify", to, token})
	return f.err
}

func (f *fakeMailer) SendForgotPasswordEmail(_ context.Context, to, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{"forgot", to, token})
	return f.err
}

func (f *fakeMailer) last(kind string) sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].kind == kind {
			return f.sent[i]
		}
	}
	return sentMail{}
}

type memTweets struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.Tweet
}

func newMemTweets() *memTweets {
	return &memTweets{byID: map[primitive.ObjectID]*models.Tweet{}}
}

func (s *memTweets) Create(_ context.Context, t *models.Tweet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	cp := *t
	s.byID[t.ID] = &cp
	return nil
}

func (s *memTweets) FindByID(_ context.Context, id primitive.ObjectID) (*models.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memTweets) IncrementViews(_ context.Context, id primitive.ObjectID, guest bool) (*models.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if guest {
		t.GuestViews++
	} else {
		t.UserViews++
	}
	cp := *t
	return &cp, nil
}

type memHashtags struct {
	byName map[string]primitive.ObjectID
}

func (s *memHashtags) Upsert(_ context.Context, names []string) ([]primitive.ObjectID, error) {
	if s.byName == nil {
		s.byName = map[string]primitive.ObjectID{}
	}
	ids := make([]primitive.ObjectID, 0, len(names))
	for _, n := range names {
		id, ok := s.byName[n]
		if !ok {
			id = primitive.NewObjectID()
			s.byName[n] = id
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type edge struct{ a, b primitive.ObjectID }

type memEdges struct {
	set map[edge]primitive.ObjectID
}

func newMemEdges() *memEdges { return &memEdges{set: map[edge]primitive.ObjectID{}} }

func (s *memEdges) Follow(_ context.Context, a, b primitive.ObjectID) (bool, error) {
	if _, ok := s.set[edge{a, b}]; ok {
		return false, nil
	}
	s.set[edge{a, b}] = primitive.NewObjectID()
	return true, nil
}

func (s *memEdges) Unfollow(_ context.Context, a, b primitive.ObjectID) (bool, error) {
	_, ok := s.set[edge{a, b}]
	delete(s.set, edge{a, b})
	return ok, nil
}

func (s *memEdges) Save(_ context.Context, userID, tweetID primitive.ObjectID) (*models.Bookmark, error) {
	id, ok := s.set[edge{userID, tweetID}]
	if !ok {
		id = primitive.NewObjectID()
		s.set[edge{userID, tweetID}] = id
	}
	return &models.Bookmark{ID: id, UserID: userID, TweetID: tweetID}, nil
}

func (s *memEdges) Delete(ctx context.Context, userID, tweetID primitive.ObjectID) (bool, error) {
	return s.Unfollow(ctx, userID, tweetID)
}

type invalidations struct{ ids []primitive.ObjectID }

func (i *invalidations) Invalidate(_ context.Context, id primitive.ObjectID) error {
	i.ids = append(i.ids, id)
	return nil
}
