// Package webui serves the FlowerPress web interface.
package webui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"image"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"flowerpress/bgremoval"
	"flowerpress/dblayer"
	"flowerpress/dbtypes"
	"flowerpress/feedback"
	"flowerpress/gallery"
	"flowerpress/pressing"
	"flowerpress/webui/uitemplates"

	"github.com/golang/glog"
)

const sessionCookieName = "FlowerPress-Session"

// placeholderImage is used when a flower is added without a photo upload
// surviving to the record.
const placeholderImage = "/placeholder.svg"

const maxUploadBytes = 32 << 20

// galleryEntry pairs a user's gallery engine session with its expiry, so
// entries can be pruned alongside their login sessions.
type galleryEntry struct {
	mu      sync.Mutex
	session *gallery.Session
	expires time.Time
}

type WebUI struct {
	db                  *dblayer.DB
	blobs               gallery.BlobStore
	bgRemover           *bgremoval.Client
	feedbackMailer      *feedback.Mailer
	googleOAuthClientID string

	mu        sync.Mutex
	galleries map[string]*galleryEntry
}

// New assembles the web UI from its collaborators.  bgRemover and
// feedbackMailer may be nil, which disables the corresponding features.
func New(db *dblayer.DB, blobs gallery.BlobStore, bgRemover *bgremoval.Client, feedbackMailer *feedback.Mailer, googleOAuthClientID string) *WebUI {
	return &WebUI{
		db:                  db,
		blobs:               blobs,
		bgRemover:           bgRemover,
		feedbackMailer:      feedbackMailer,
		googleOAuthClientID: googleOAuthClientID,
		galleries:           map[string]*galleryEntry{},
	}
}

func (u *WebUI) Register(m *http.ServeMux) {
	m.HandleFunc("/", u.homeHandler)
	m.HandleFunc("/log-in", u.logInHandler)
	m.HandleFunc("/log-in-google", u.logInGoogleHandler)
	m.HandleFunc("/log-out", u.logOutHandler)
	m.HandleFunc("/gallery", u.galleryHandler)
	m.HandleFunc("/add-flower", u.addFlowerHandler)
	m.HandleFunc("/edit-flower", u.editFlowerHandler)
	m.HandleFunc("/delete-flower", u.deleteFlowerHandler)
	m.HandleFunc("/feedback", u.feedbackHandler)
}

// getLoggedInUser loads the user associated with the session cookie in the
// request, if it exists.
func (u *WebUI) getLoggedInUser(ctx context.Context, r *http.Request) (*dbtypes.UserProfile, string, error) {
	var sessionCookie *http.Cookie
	for _, cookie := range r.Cookies() {
		if cookie.Name == sessionCookieName {
			sessionCookie = cookie
		}
	}
	if sessionCookie == nil {
		// No session cookie; user is not logged in.
		glog.Infof("No logged-in user because there was no session cookie.")
		return nil, "", nil
	}

	user, err := u.db.UserFromSessionCookie(ctx, sessionCookie.Value)
	if err != nil {
		return nil, "", fmt.Errorf("while looking up session user: %w", err)
	}
	return user, sessionCookie.Value, nil
}

// gallerySession returns the gallery engine session for a login cookie,
// creating it on first use and pruning expired entries.
func (u *WebUI) gallerySession(cookie, userID string) *galleryEntry {
	u.mu.Lock()
	defer u.mu.Unlock()

	for c, e := range u.galleries {
		if time.Now().After(e.expires) {
			delete(u.galleries, c)
		}
	}

	e, ok := u.galleries[cookie]
	if !ok {
		e = &galleryEntry{
			session: gallery.New(u.db, u.blobs, userID, gallery.Options{}),
			expires: time.Now().Add(18 * time.Hour),
		}
		u.galleries[cookie] = e
	}
	return e
}

func (u *WebUI) dropGallerySession(cookie string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.galleries, cookie)
}

func (u *WebUI) servePage(w http.ResponseWriter, content []byte, err error) {
	if err != nil {
		glog.Errorf("Error while executing template: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}
	if _, err := io.Copy(w, bytes.NewReader(content)); err != nil {
		// It's too late to write an error to the HTTP response.
		glog.Errorf("Error while writing output: %v", err)
	}
}

// homeHandler renders the welcome page.
func (u *WebUI) homeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	params := &uitemplates.HomeParams{}

	user, _, err := u.getLoggedInUser(r.Context(), r)
	if err != nil {
		glog.Errorf("Error while getting logged-in user: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}
	if user != nil {
		params.ActiveUser = activeUserParams(user)
	}

	content := bytes.Buffer{}
	if err := uitemplates.HomeTemplate.Execute(&content, params); err != nil {
		glog.Errorf("Error while executing template: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	if _, err := io.Copy(w, &content); err != nil {
		// It's too late to write an error to the HTTP response.
		glog.Errorf("Error while writing output: %v", err)
		return
	}
}

func activeUserParams(user *dbtypes.UserProfile) uitemplates.ActiveUserParams {
	name := user.DisplayName
	if name == "" {
		name = user.Email
	}
	return uitemplates.ActiveUserParams{
		LoggedIn:    true,
		DisplayName: name,
	}
}

func (u *WebUI) logInHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		u.renderLogIn(w, "")
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		u.renderLogIn(w, "Could not parse form")
		return
	}

	session, err := u.db.SessionFromPassword(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"))
	switch {
	case errors.Is(err, dblayer.ErrEmailMustNotBeEmpty),
		errors.Is(err, dblayer.ErrPasswordMustNotBeEmpty),
		errors.Is(err, dblayer.ErrUnknownUserOrWrongPassword):
		u.renderLogIn(w, err.Error())
		return
	case err != nil:
		glog.Errorf("Error while logging in: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	u.finishLogIn(w, r, session.Cookie, session.Expires)
}

func (u *WebUI) renderLogIn(w http.ResponseWriter, userError string) {
	params := &uitemplates.LogInParams{
		UserError:           userError,
		GoogleOAuthClientID: u.googleOAuthClientID,
	}
	content := bytes.Buffer{}
	if err := uitemplates.LogInTemplate.Execute(&content, params); err != nil {
		glog.Errorf("Error while executing template: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}
	if _, err := io.Copy(w, &content); err != nil {
		glog.Errorf("Error while writing output: %v", err)
	}
}

// logInGoogleHandler receives the credential POST from the Sign in with
// Google button.
func (u *WebUI) logInGoogleHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		u.renderLogIn(w, "Could not parse form")
		return
	}

	session, err := u.db.SessionFromGoogleFederation(r.Context(), r.PostFormValue("credential"))
	if err != nil {
		glog.Errorf("Error while logging in with Google: %v", err)
		u.renderLogIn(w, "Sign in with Google failed")
		return
	}

	u.finishLogIn(w, r, session.Cookie, session.Expires)
}

func (u *WebUI) finishLogIn(w http.ResponseWriter, r *http.Request, cookie string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    cookie,
		Expires:  expires,
		Path:     "/",
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/gallery", http.StatusSeeOther)
}

func (u *WebUI) logOutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		content, err := uitemplates.LogOutPage(&uitemplates.LogOutParams{})
		u.servePage(w, content, err)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	_, cookie, err := u.getLoggedInUser(r.Context(), r)
	if err != nil {
		glog.Errorf("Error while getting logged-in user: %v", err)
	}
	if cookie != "" {
		if err := u.db.DeleteSession(r.Context(), cookie); err != nil {
			glog.Errorf("Error while deleting session: %v", err)
		}
		u.dropGallerySession(cookie)
	}

	http.SetCookie(w, &http.Cookie{
		Name:    sessionCookieName,
		Value:   "",
		Expires: time.Unix(0, 0),
		Path:    "/",
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (u *WebUI) galleryHandler(w http.ResponseWriter, r *http.Request) {
	user, cookie, err := u.getLoggedInUser(r.Context(), r)
	if err != nil {
		glog.Errorf("Error while getting logged-in user: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Redirect(w, r, "/log-in", http.StatusSeeOther)
		return
	}

	searchText := strings.TrimSpace(r.URL.Query().Get("q"))

	category := dbtypes.Category(r.URL.Query().Get("category"))
	if category != "" && !dbtypes.ValidCategory(category) {
		category = ""
	}

	var stage *pressing.Stage
	if stageText := r.URL.Query().Get("stage"); stageText != "" {
		if parsed, err := pressing.ParseStage(stageText); err == nil {
			stage = &parsed
		}
	}

	entry := u.gallerySession(cookie, user.ID)
	entry.mu.Lock()
	if r.URL.Query().Get("more") == "1" {
		entry.session.LoadMore(r.Context())
	} else {
		entry.session.Load(r.Context(), gallery.LoadOptions{
			Search:   searchText,
			Category: category,
			Stage:    stage,
			Reset:    true,
		})
	}

	params := &uitemplates.GalleryParams{
		ActiveUser: activeUserParams(user),
		SearchText: searchText,
		Category:   string(category),
		Categories: categoryNames(),
		Stages:     stageNames(),
		HasMore:    entry.session.HasMore,
	}
	params.LoadError = entry.session.Err
	if stage != nil {
		params.Stage = stage.String()
	}

	now := time.Now()
	for _, f := range entry.session.Items {
		params.Cards = append(params.Cards, flowerCard(f, now))
	}
	entry.mu.Unlock()

	if params.HasMore {
		q := url.Values{}
		if searchText != "" {
			q.Set("q", searchText)
		}
		if category != "" {
			q.Set("category", string(category))
		}
		if stage != nil {
			q.Set("stage", stage.String())
		}
		q.Set("more", "1")
		params.LoadMoreLink = "/gallery?" + q.Encode()
	}

	content, err := uitemplates.GalleryPage(params)
	u.servePage(w, content, err)
}

func categoryNames() []string {
	names := []string{}
	for _, c := range dbtypes.Categories {
		names = append(names, string(c))
	}
	return names
}

func stageNames() []string {
	return []string{
		pressing.Fresh.String(),
		pressing.Pressing.String(),
		pressing.Pressed.String(),
		pressing.Preserved.String(),
	}
}

// stageBadgeClass maps a pressing stage to the badge styling used on
// gallery cards.
func stageBadgeClass(s pressing.Stage) string {
	switch s {
	case pressing.Fresh:
		return "text-bg-success"
	case pressing.Pressing:
		return "text-bg-warning"
	case pressing.Pressed:
		return "text-bg-danger"
	case pressing.Preserved:
		return "text-bg-secondary"
	}
	return "text-bg-light"
}

// flowerCard computes the aged rendering of one flower for display.
func flowerCard(f *dbtypes.Flower, now time.Time) uitemplates.GalleryCard {
	days := pressing.DaysElapsed(now, f.DateTaken)
	stage := pressing.ClassifyStage(days)
	p := pressing.Params(days)

	card := uitemplates.GalleryCard{
		ID:              f.ID,
		Note:            f.Note,
		ImageURL:        f.ImageURL,
		Category:        string(f.Category),
		DateTaken:       f.DateTaken.Format("2006-01-02"),
		StageName:       stage.DisplayName(),
		BadgeClass:      stageBadgeClass(stage),
		ProgressPercent: pressing.ProgressPercent(days),
		EditLink:        "/edit-flower?flower=" + url.QueryEscape(f.ID),
	}

	card.AgingStyle = template.CSS(fmt.Sprintf(
		"filter: %s; transform: %s; opacity: %.4g;",
		p.CSSFilter(), p.CSSTransform(), p.Opacity))

	switch f.Background.Type {
	case dbtypes.BackgroundPreset:
		if path, ok := dbtypes.PresetBackgrounds[f.Background.Value]; ok {
			card.BackgroundStyle = backgroundStyle(path)
		}
	case dbtypes.BackgroundCustom:
		if f.Background.Value != "" {
			card.BackgroundStyle = backgroundStyle(f.Background.Value)
		}
	}

	return card
}

func backgroundStyle(imageURL string) template.CSS {
	return template.CSS(fmt.Sprintf("background-image: url('%s'); background-size: cover;", imageURL))
}

func (u *WebUI) addFlowerHandler(w http.ResponseWriter, r *http.Request) {
	user, cookie, err := u.getLoggedInUser(r.Context(), r)
	if err != nil {
		glog.Errorf("Error while getting logged-in user: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Redirect(w, r, "/log-in", http.StatusSeeOther)
		return
	}

	if r.Method == http.MethodGet {
		u.renderAddFlower(w, "")
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		u.renderAddFlower(w, "Could not parse upload")
		return
	}

	note := strings.TrimSpace(r.PostFormValue("note"))
	if note == "" {
		u.renderAddFlower(w, "Note must not be empty")
		return
	}

	dateTaken, err := time.Parse("2006-01-02", r.PostFormValue("date-taken"))
	if err != nil {
		u.renderAddFlower(w, "Could not parse the date taken")
		return
	}

	category := dbtypes.Category(r.PostFormValue("category"))
	if !dbtypes.ValidCategory(category) {
		u.renderAddFlower(w, "Unknown category")
		return
	}

	background, err := parseBackgroundChoice(r.PostFormValue("background-type"))
	if err != nil {
		u.renderAddFlower(w, err.Error())
		return
	}

	imageUpload, err := formUpload(r, "image")
	if err != nil {
		u.renderAddFlower(w, "Could not read the photo upload")
		return
	}
	if imageUpload == nil {
		u.renderAddFlower(w, "A photo is required")
		return
	}

	if r.PostFormValue("remove-background") != "" && u.bgRemover != nil {
		processed, err := u.bgRemover.Remove(r.Context(), imageUpload.Data)
		if err != nil {
			// Removal failure is non-fatal; keep the original photo.
			glog.Warningf("Background removal failed, keeping original image: %v", err)
		} else {
			imageUpload.Data = processed
			imageUpload.ContentType = "image/png"
		}
	}

	var backgroundUpload *gallery.Upload
	if background.Type == dbtypes.BackgroundCustom {
		backgroundUpload, err = formUpload(r, "background-image")
		if err != nil {
			u.renderAddFlower(w, "Could not read the background upload")
			return
		}
	}

	flower := &dbtypes.Flower{
		ImageURL:    placeholderImage,
		Note:        note,
		DateTaken:   dateTaken,
		Category:    category,
		AspectRatio: imageAspectRatio(imageUpload.Data),
		Background:  background,
	}

	entry := u.gallerySession(cookie, user.ID)
	entry.mu.Lock()
	_, err = entry.session.AddFlower(r.Context(), flower, imageUpload, backgroundUpload)
	entry.mu.Unlock()
	if err != nil {
		glog.Errorf("Error while adding flower: %v", err)
		u.renderAddFlower(w, fmt.Sprintf("Could not add the flower: %v", err))
		return
	}

	http.Redirect(w, r, "/gallery", http.StatusSeeOther)
}

func (u *WebUI) renderAddFlower(w http.ResponseWriter, userError string) {
	params := &uitemplates.AddFlowerParams{
		UserError:  userError,
		Today:      time.Now().Format("2006-01-02"),
		Categories: categoryNames(),
		Presets:    presetOptions(),
	}
	content, err := uitemplates.AddFlowerPage(params)
	u.servePage(w, content, err)
}

func presetOptions() []uitemplates.PresetOption {
	keys := []string{}
	for key := range dbtypes.PresetBackgrounds {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	options := []uitemplates.PresetOption{}
	for _, key := range keys {
		options = append(options, uitemplates.PresetOption{
			Key:     key,
			Preview: dbtypes.PresetBackgrounds[key],
		})
	}
	return options
}

// parseBackgroundChoice decodes the background radio value: "none",
// "preset:<key>", or "custom".
func parseBackgroundChoice(value string) (dbtypes.Background, error) {
	switch {
	case value == "" || value == "none":
		return dbtypes.Background{Type: dbtypes.BackgroundNone}, nil
	case value == "custom":
		return dbtypes.Background{Type: dbtypes.BackgroundCustom}, nil
	case strings.HasPrefix(value, "preset:"):
		key := strings.TrimPrefix(value, "preset:")
		if _, ok := dbtypes.PresetBackgrounds[key]; !ok {
			return dbtypes.Background{}, fmt.Errorf("unknown background preset %q", key)
		}
		return dbtypes.Background{Type: dbtypes.BackgroundPreset, Value: key}, nil
	}
	return dbtypes.Background{}, fmt.Errorf("unknown background choice %q", value)
}

// formUpload pulls one file out of a multipart form.  A missing file is
// (nil, nil).
func formUpload(r *http.Request, field string) (*gallery.Upload, error) {
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("while opening form file %q: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("while reading form file %q: %w", field, err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &gallery.Upload{
		Name:        header.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

// imageAspectRatio decodes just the image header to compute width/height,
// falling back to the default ratio for undecodable uploads.
func imageAspectRatio(data []byte) float64 {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return dbtypes.DefaultAspectRatio
	}
	return float64(cfg.Width) / float64(cfg.Height)
}

func (u *WebUI) editFlowerHandler(w http.ResponseWriter, r *http.Request) {
	user, cookie, err := u.getLoggedInUser(r.Context(), r)
	if err != nil {
		glog.Errorf("Error while getting logged-in user: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Redirect(w, r, "/log-in", http.StatusSeeOther)
		return
	}

	if r.Method == http.MethodGet {
		id := r.URL.Query().Get("flower")
		flower, err := u.db.GetFlower(r.Context(), user.ID, id)
		if errors.Is(err, dblayer.ErrFlowerNotFound) || errors.Is(err, dblayer.ErrPermissionDenied) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		if err != nil {
			glog.Errorf("Error while retrieving flower: %v", err)
			http.Error(w, "Internal Error", http.StatusInternalServerError)
			return
		}

		content, err := uitemplates.EditFlowerPage(&uitemplates.EditFlowerParams{
			ID:         flower.ID,
			Note:       flower.Note,
			DateTaken:  flower.DateTaken.Format("2006-01-02"),
			Category:   string(flower.Category),
			ImageURL:   flower.ImageURL,
			Categories: categoryNames(),
		})
		u.servePage(w, content, err)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	id := r.PostFormValue("flower")

	patch := gallery.FlowerPatch{}
	if note := strings.TrimSpace(r.PostFormValue("note")); note != "" {
		patch.Note = &note
	}
	if dateText := r.PostFormValue("date-taken"); dateText != "" {
		dateTaken, err := time.Parse("2006-01-02", dateText)
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		patch.DateTaken = &dateTaken
	}
	if category := dbtypes.Category(r.PostFormValue("category")); category != "" {
		if !dbtypes.ValidCategory(category) {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		patch.Category = &category
	}

	newImage, err := formUpload(r, "image")
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if newImage != nil {
		ratio := imageAspectRatio(newImage.Data)
		patch.AspectRatio = &ratio
	}

	entry := u.gallerySession(cookie, user.ID)
	entry.mu.Lock()
	err = entry.session.UpdateFlower(r.Context(), id, patch, newImage)
	entry.mu.Unlock()
	if err != nil {
		glog.Errorf("Error while updating flower: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/gallery", http.StatusSeeOther)
}

func (u *WebUI) deleteFlowerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	user, cookie, err := u.getLoggedInUser(r.Context(), r)
	if err != nil {
		glog.Errorf("Error while getting logged-in user: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Redirect(w, r, "/log-in", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	entry := u.gallerySession(cookie, user.ID)
	entry.mu.Lock()
	err = entry.session.DeleteFlower(r.Context(), r.PostFormValue("flower"))
	entry.mu.Unlock()
	if err != nil {
		glog.Errorf("Error while deleting flower: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/gallery", http.StatusSeeOther)
}

func (u *WebUI) feedbackHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		u.renderFeedback(w, &uitemplates.FeedbackParams{})
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		u.renderFeedback(w, &uitemplates.FeedbackParams{UserError: "Could not parse form"})
		return
	}

	params := &uitemplates.FeedbackParams{
		FromName:  strings.TrimSpace(r.PostFormValue("from-name")),
		FromEmail: strings.TrimSpace(r.PostFormValue("from-email")),
		Subject:   strings.TrimSpace(r.PostFormValue("subject")),
		Message:   strings.TrimSpace(r.PostFormValue("message")),
	}
	if params.FromName == "" || params.FromEmail == "" || params.Subject == "" || params.Message == "" {
		params.UserError = "All fields are required"
		u.renderFeedback(w, params)
		return
	}

	if u.feedbackMailer == nil {
		params.UserError = "Feedback is not configured on this server"
		u.renderFeedback(w, params)
		return
	}

	err := u.feedbackMailer.Send(r.Context(), &feedback.Submission{
		FromName:  params.FromName,
		FromEmail: params.FromEmail,
		Subject:   params.Subject,
		Message:   params.Message,
		Timestamp: time.Now(),
	})
	if err != nil {
		glog.Errorf("Error while sending feedback: %v", err)
		params.UserError = "Could not send your feedback right now, please try again"
		u.renderFeedback(w, params)
		return
	}

	u.renderFeedback(w, &uitemplates.FeedbackParams{Sent: true})
}

func (u *WebUI) renderFeedback(w http.ResponseWriter, params *uitemplates.FeedbackParams) {
	content, err := uitemplates.FeedbackPage(params)
	u.servePage(w, content, err)
}
