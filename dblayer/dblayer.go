// Package dblayer packages up most actual firestore accesses.
package dblayer

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"flowerpress/dbtypes"
	"flowerpress/gallery"

	"cloud.google.com/go/firestore"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/iterator"
)

const (
	flowersCollection  = "Flowers"
	usersCollection    = "Users"
	sessionsCollection = "Sessions"
)

const sessionLifetime = 18 * time.Hour

type DB struct {
	firestoreClient     *firestore.Client
	googleOAuthClientID string
}

func New(firestoreClient *firestore.Client, googleOAuthClientID string) *DB {
	return &DB{
		firestoreClient:     firestoreClient,
		googleOAuthClientID: googleOAuthClientID,
	}
}

var (
	ErrEmailMustNotBeEmpty        = errors.New("email must not be empty")
	ErrPasswordMustNotBeEmpty     = errors.New("password must not be empty")
	ErrUnknownUserOrWrongPassword = errors.New("unknown user or wrong password")
	ErrPermissionDenied           = errors.New("permission denied")
	ErrFlowerNotFound             = errors.New("no flower with that ID")
)

// ListFlowers returns one page of a user's flowers ordered by dateTaken
// descending, plus an opaque cursor continuing the listing.
//
// Implements gallery.RecordStore.
func (db *DB) ListFlowers(ctx context.Context, q gallery.ListQuery) ([]*dbtypes.Flower, string, error) {
	query := db.firestoreClient.Collection(flowersCollection).Where("userId", "==", q.UserID)
	if q.Category != "" {
		query = query.Where("category", "==", string(q.Category))
	}
	query = query.OrderBy("dateTaken", firestore.Desc)
	if q.Cursor != "" {
		after, err := decodeCursor(q.Cursor)
		if err != nil {
			return nil, "", fmt.Errorf("while decoding cursor: %w", err)
		}
		query = query.StartAfter(after)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	flowers := []*dbtypes.Flower{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, "", fmt.Errorf("while listing flowers for user %s: %w", q.UserID, err)
		}

		flower := &dbtypes.Flower{}
		if err := snap.DataTo(flower); err != nil {
			return nil, "", fmt.Errorf("while unmarshaling flower %s: %w", snap.Ref.ID, err)
		}
		flower.ID = snap.Ref.ID
		normalizeFlower(flower)
		flowers = append(flowers, flower)
	}

	next := ""
	if len(flowers) > 0 {
		next = encodeCursor(flowers[len(flowers)-1].DateTaken)
	}
	return flowers, next, nil
}

// GetFlower retrieves a single flower, enforcing that userID owns it.
func (db *DB) GetFlower(ctx context.Context, userID, id string) (*dbtypes.Flower, error) {
	snap, err := db.firestoreClient.Collection(flowersCollection).Doc(id).Get(ctx)
	if snap != nil && !snap.Exists() {
		return nil, ErrFlowerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("while retrieving flower %s: %w", id, err)
	}

	flower := &dbtypes.Flower{}
	if err := snap.DataTo(flower); err != nil {
		return nil, fmt.Errorf("while unmarshaling flower %s: %w", id, err)
	}
	flower.ID = snap.Ref.ID
	normalizeFlower(flower)

	if flower.UserID != userID {
		return nil, ErrPermissionDenied
	}

	return flower, nil
}

// CreateFlower stores a new flower record and returns its assigned ID.
func (db *DB) CreateFlower(ctx context.Context, flower *dbtypes.Flower) (string, error) {
	ref := db.firestoreClient.Collection(flowersCollection).NewDoc()
	flower.ID = ref.ID
	if _, err := ref.Create(ctx, flower); err != nil {
		return "", fmt.Errorf("while creating flower: %w", err)
	}
	return ref.ID, nil
}

// UpdateFlower applies a field-wise patch to a flower owned by userID.
func (db *DB) UpdateFlower(ctx context.Context, userID, id string, patch gallery.FlowerPatch) error {
	ref := db.firestoreClient.Collection(flowersCollection).Doc(id)
	snap, err := ref.Get(ctx)
	if snap != nil && !snap.Exists() {
		return ErrFlowerNotFound
	}
	if err != nil {
		return fmt.Errorf("while retrieving flower %s: %w", id, err)
	}

	flower := &dbtypes.Flower{}
	if err := snap.DataTo(flower); err != nil {
		return fmt.Errorf("while unmarshaling flower %s: %w", id, err)
	}
	if flower.UserID != userID {
		return ErrPermissionDenied
	}

	updates := []firestore.Update{}
	if patch.Note != nil {
		updates = append(updates, firestore.Update{Path: "note", Value: *patch.Note})
	}
	if patch.Category != nil {
		updates = append(updates, firestore.Update{Path: "category", Value: string(*patch.Category)})
	}
	if patch.DateTaken != nil {
		updates = append(updates, firestore.Update{Path: "dateTaken", Value: *patch.DateTaken})
	}
	if patch.ImageURL != nil {
		updates = append(updates, firestore.Update{Path: "imageUrl", Value: *patch.ImageURL})
	}
	if patch.Background != nil {
		updates = append(updates, firestore.Update{Path: "background", Value: *patch.Background})
	}
	if patch.AspectRatio != nil {
		updates = append(updates, firestore.Update{Path: "aspectRatio", Value: *patch.AspectRatio})
	}
	if len(updates) == 0 {
		return nil
	}
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: firestore.ServerTimestamp})

	_, err = ref.Update(ctx, updates, firestore.LastUpdateTime(snap.UpdateTime))
	if err != nil {
		return fmt.Errorf("while updating flower %s: %w", id, err)
	}
	return nil
}

// DeleteFlower removes a flower owned by userID.
func (db *DB) DeleteFlower(ctx context.Context, userID, id string) error {
	ref := db.firestoreClient.Collection(flowersCollection).Doc(id)
	snap, err := ref.Get(ctx)
	if snap != nil && !snap.Exists() {
		return ErrFlowerNotFound
	}
	if err != nil {
		return fmt.Errorf("while retrieving flower %s: %w", id, err)
	}

	flower := &dbtypes.Flower{}
	if err := snap.DataTo(flower); err != nil {
		return fmt.Errorf("while unmarshaling flower %s: %w", id, err)
	}
	if flower.UserID != userID {
		return ErrPermissionDenied
	}

	if _, err := ref.Delete(ctx, firestore.LastUpdateTime(snap.UpdateTime)); err != nil {
		return fmt.Errorf("while deleting flower %s: %w", id, err)
	}
	return nil
}

// UpsertUserProfile creates the user's profile on first sign-in, and
// otherwise refreshes the profile fields and lastLoginAt.
func (db *DB) UpsertUserProfile(ctx context.Context, profile *dbtypes.UserProfile) error {
	ref := db.firestoreClient.Collection(usersCollection).Doc(profile.ID)
	snap, err := ref.Get(ctx)
	if snap != nil && !snap.Exists() {
		profile.CreatedAt = time.Now()
		profile.LastLoginAt = time.Now()
		if _, err := ref.Create(ctx, profile); err != nil {
			return fmt.Errorf("while creating user profile %s: %w", profile.ID, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("while retrieving user profile %s: %w", profile.ID, err)
	}

	updates := []firestore.Update{
		{Path: "lastLoginAt", Value: time.Now()},
	}
	if profile.Email != "" {
		updates = append(updates, firestore.Update{Path: "email", Value: profile.Email})
	}
	if profile.DisplayName != "" {
		updates = append(updates, firestore.Update{Path: "displayName", Value: profile.DisplayName})
	}
	if profile.PhotoURL != "" {
		updates = append(updates, firestore.Update{Path: "photoURL", Value: profile.PhotoURL})
	}

	if _, err := ref.Update(ctx, updates); err != nil {
		return fmt.Errorf("while updating user profile %s: %w", profile.ID, err)
	}
	return nil
}

// GetUserProfile looks up a profile by identity ID.  A missing profile is
// (nil, nil).
func (db *DB) GetUserProfile(ctx context.Context, id string) (*dbtypes.UserProfile, error) {
	snap, err := db.firestoreClient.Collection(usersCollection).Doc(id).Get(ctx)
	if snap != nil && !snap.Exists() {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("while retrieving user profile %s: %w", id, err)
	}

	profile := &dbtypes.UserProfile{}
	if err := snap.DataTo(profile); err != nil {
		return nil, fmt.Errorf("while unmarshaling user profile %s: %w", id, err)
	}
	profile.ID = snap.Ref.ID
	return profile, nil
}

// SessionFromPassword runs the password-based login process for a given
// user, returning a session or an error.
func (db *DB) SessionFromPassword(ctx context.Context, email, password string) (*dbtypes.Session, error) {
	if email == "" {
		return nil, ErrEmailMustNotBeEmpty
	}
	if password == "" {
		return nil, ErrPasswordMustNotBeEmpty
	}

	var userSnapshot *firestore.DocumentSnapshot
	userIter := db.firestoreClient.Collection(usersCollection).Where("email", "==", email).Documents(ctx)
	defer userIter.Stop()
	for {
		var err error
		userSnapshot, err = userIter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("while looking up user with email %q: %w", email, err)
		}

		// We only consider a single user.
		break
	}

	if userSnapshot == nil {
		return nil, ErrUnknownUserOrWrongPassword
	}

	user := &dbtypes.UserProfile{}
	if err := userSnapshot.DataTo(user); err != nil {
		return nil, fmt.Errorf("while unmarshaling user %q: %w", email, err)
	}
	user.ID = userSnapshot.Ref.ID

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrUnknownUserOrWrongPassword
	}

	if err := db.UpsertUserProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("while refreshing user profile: %w", err)
	}

	return db.newSession(ctx, user.ID)
}

// SessionFromGoogleFederation signs in a user based on a Google identity
// token returned from the "Sign in with Google" process.  The user's
// profile is created or refreshed on every successful sign-in.
func (db *DB) SessionFromGoogleFederation(ctx context.Context, idToken string) (*dbtypes.Session, error) {
	payload, err := idtoken.Validate(ctx, idToken, db.googleOAuthClientID)
	if err != nil {
		return nil, fmt.Errorf("while validating ID token: %w", err)
	}

	profile := &dbtypes.UserProfile{ID: payload.Subject}
	if email, ok := payload.Claims["email"].(string); ok {
		profile.Email = email
	}
	if name, ok := payload.Claims["name"].(string); ok {
		profile.DisplayName = name
	}
	if picture, ok := payload.Claims["picture"].(string); ok {
		profile.PhotoURL = picture
	}

	if err := db.UpsertUserProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("while upserting user profile: %w", err)
	}

	return db.newSession(ctx, profile.ID)
}

func (db *DB) newSession(ctx context.Context, userID string) (*dbtypes.Session, error) {
	sessionCookieBytes := make([]byte, 32)
	if _, err := rand.Read(sessionCookieBytes); err != nil {
		return nil, fmt.Errorf("while generating session cookie: %w", err)
	}

	session := &dbtypes.Session{
		Cookie:  base64.StdEncoding.EncodeToString(sessionCookieBytes),
		UserID:  userID,
		Expires: time.Now().Add(sessionLifetime),
	}
	if _, _, err := db.firestoreClient.Collection(sessionsCollection).Add(ctx, session); err != nil {
		return nil, fmt.Errorf("while storing session cookie: %w", err)
	}

	return session, nil
}

// DeleteSession deletes a session by its cookie.
func (db *DB) DeleteSession(ctx context.Context, cookie string) error {
	sessionIter := db.firestoreClient.Collection(sessionsCollection).Where("cookie", "==", cookie).Documents(ctx)
	defer sessionIter.Stop()
	for {
		sessionSnapshot, err := sessionIter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("while looking up session: %w", err)
		}

		_, err = sessionSnapshot.Ref.Delete(ctx, firestore.LastUpdateTime(sessionSnapshot.UpdateTime))
		if err != nil {
			return fmt.Errorf("while deleting session: %w", err)
		}
	}

	return nil
}

// UserFromSessionCookie looks up a session from its cookie, and then
// returns the corresponding user profile.
func (db *DB) UserFromSessionCookie(ctx context.Context, cookie string) (*dbtypes.UserProfile, error) {
	var sessionSnapshot *firestore.DocumentSnapshot
	sessionIter := db.firestoreClient.Collection(sessionsCollection).Where("cookie", "==", cookie).Documents(ctx)
	defer sessionIter.Stop()
	for {
		var err error
		sessionSnapshot, err = sessionIter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("while looking up session: %w", err)
		}

		// We only consider a single session.
		break
	}
	if sessionSnapshot == nil {
		// Session object must have been cleaned up due to expiration; user is not logged in.
		slog.InfoContext(ctx, "No logged-in user because there was no session object corresponding to the cookie in the database.")
		return nil, nil
	}

	session := &dbtypes.Session{}
	if err := sessionSnapshot.DataTo(session); err != nil {
		return nil, fmt.Errorf("while unmarshaling session: %w", err)
	}

	if session.Expires.Before(time.Now()) {
		// Session object is expired; user is not logged in.
		slog.InfoContext(ctx, "No logged-in user because the session object in the database was expired.")
		return nil, nil
	}

	return db.GetUserProfile(ctx, session.UserID)
}

// normalizeFlower converts stored timestamps to UTC and applies defaults at
// the adapter boundary, so the rest of the system only sees concrete dates.
func normalizeFlower(f *dbtypes.Flower) {
	f.DateTaken = f.DateTaken.UTC()
	f.CreatedAt = f.CreatedAt.UTC()
	f.UpdatedAt = f.UpdatedAt.UTC()
	if f.AspectRatio <= 0 {
		f.AspectRatio = dbtypes.DefaultAspectRatio
	}
}

// encodeCursor packs the dateTaken of the last record of a page into an
// opaque continuation token.
func encodeCursor(dateTaken time.Time) string {
	return base64.URLEncoding.EncodeToString([]byte(dateTaken.UTC().Format(time.RFC3339Nano)))
}

func decodeCursor(cursor string) (time.Time, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, fmt.Errorf("while base64-decoding cursor: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("while parsing cursor timestamp: %w", err)
	}
	return t, nil
}
