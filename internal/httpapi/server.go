// Package httpapi exposes the community platform over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/ViveCali/community_layer/internal/errors"
	"github.com/ViveCali/community_layer/internal/httputil"
	"github.com/ViveCali/community_layer/internal/metrics"
	"github.com/ViveCali/community_layer/internal/middleware"
	"github.com/ViveCali/community_layer/pkg/logger"
	"github.com/ViveCali/community_layer/services/content"
	"github.com/ViveCali/community_layer/services/engagement"
	"github.com/ViveCali/community_layer/services/session"
	"github.com/ViveCali/community_layer/supabase/client"
)

// AuthService is the slice of the auth client the API proxies.
type AuthService interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*client.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*client.Session, error)
	RecoverPassword(ctx context.Context, email, redirectTo string) error
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	auth       AuthService
	profiles   session.ProfileStore
	roles      session.RoleStore
	content    *content.Service
	engagement *engagement.Service
	log        *logger.Logger

	resetRedirectURL string
}

// NewServer constructs the API server.
func NewServer(auth AuthService, store session.Store, contentSvc *content.Service,
	engagementSvc *engagement.Service, resetRedirectURL string, log *logger.Logger) *Server {
	return &Server{
		auth:             auth,
		profiles:         store,
		roles:            store,
		content:          contentSvc,
		engagement:       engagementSvc,
		log:              log,
		resetRedirectURL: resetRedirectURL,
	}
}

// Routes builds the router with the given middleware.
func (s *Server) Routes(authmw *middleware.Auth, limiter *middleware.RateLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger(s.log))
	r.Use(middleware.Metrics)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(limiter.Handler)

		r.Post("/auth/signup", s.handleSignUp)
		r.Post("/auth/signin", s.handleSignIn)
		r.Post("/auth/reset-password", s.handleResetPassword)

		r.Get("/events", s.handleListEvents)
		r.Get("/communities", s.handleListCommunities)
		r.Get("/places", s.handleListPlaces)

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireAuth)

			r.Get("/profile", s.handleGetProfile)
			r.Patch("/profile", s.handleUpdateProfile)

			r.Post("/events", s.handleCreateEvent)
			r.Post("/communities", s.handleCreateCommunity)
			r.Post("/places", s.handleCreatePlace)

			r.Get("/rewards", s.handleGetRewards)
			r.Post("/rewards", s.handleAddReward)
			r.Get("/mood", s.handleGetMood)
			r.Put("/mood", s.handleUpdateMood)

			r.Group(func(r chi.Router) {
				r.Use(authmw.RequireAdmin)
				r.Get("/admin/pending", s.handlePendingContent)
				r.Post("/admin/{kind}/{id}/approve", s.handleApprove)
				r.Post("/admin/{kind}/{id}/reject", s.handleReject)
			})
		})
	})

	return r
}

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteError(w, apperrors.MissingFields("email", "password"))
		return
	}

	sess, err := s.auth.SignUp(r.Context(), req.Email, req.Password,
		map[string]any{"display_name": req.DisplayName})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	sess, err := s.auth.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Email == "" {
		httputil.WriteError(w, apperrors.MissingFields("email"))
		return
	}

	if err := s.auth.RecoverPassword(r.Context(), req.Email, s.resetRedirectURL); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	profile, err := s.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

type profileUpdateRequest struct {
	DisplayName *string   `json:"display_name"`
	Interests   *[]string `json:"interests"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req profileUpdateRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	update, err := session.ProfileUpdate{
		DisplayName: req.DisplayName,
		Interests:   req.Interests,
	}.Normalize()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if update.Empty() {
		httputil.WriteError(w, apperrors.InvalidInput("no valid changes to apply"))
		return
	}

	profile, err := s.profiles.UpdateProfile(r.Context(), userID, update)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := eventFilterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := s.content.LoadEvents(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, events)
}

func (s *Server) handleListCommunities(w http.ResponseWriter, r *http.Request) {
	communities, err := s.content.LoadCommunities(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, communities)
}

func (s *Server) handleListPlaces(w http.ResponseWriter, r *http.Request) {
	places, err := s.content.LoadPlaces(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, places)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var event content.Event
	if err := decode(r, &event); err != nil {
		httputil.WriteError(w, err)
		return
	}
	userID, _ := middleware.UserID(r.Context())
	event.CreatedBy = userID

	created, err := s.content.CreateEvent(r.Context(), event)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (s *Server) handleCreateCommunity(w http.ResponseWriter, r *http.Request) {
	var community content.Community
	if err := decode(r, &community); err != nil {
		httputil.WriteError(w, err)
		return
	}
	userID, _ := middleware.UserID(r.Context())
	community.CreatedBy = userID

	created, err := s.content.CreateCommunity(r.Context(), community)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (s *Server) handleCreatePlace(w http.ResponseWriter, r *http.Request) {
	var place content.Place
	if err := decode(r, &place); err != nil {
		httputil.WriteError(w, err)
		return
	}
	userID, _ := middleware.UserID(r.Context())
	place.CreatedBy = userID

	created, err := s.content.CreatePlace(r.Context(), place)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetRewards(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	total, err := s.engagement.LoadUserRewards(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"points": total})
}

type rewardRequest struct {
	EventID string `json:"event_id"`
	Amount  int64  `json:"amount"`
}

func (s *Server) handleAddReward(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	userID, _ := middleware.UserID(r.Context())

	entry, err := s.engagement.AddReward(r.Context(), userID, req.EventID, req.Amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	metrics.RewardPointsTotal.Add(float64(entry.Points))
	httputil.WriteJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleGetMood(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	mood, err := s.engagement.LoadUserMood(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"mood": string(mood)})
}

type moodRequest struct {
	Mood string `json:"mood"`
}

func (s *Server) handleUpdateMood(w http.ResponseWriter, r *http.Request) {
	var req moodRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	userID, _ := middleware.UserID(r.Context())

	if err := s.engagement.UpdateUserMood(r.Context(), userID, engagement.Mood(req.Mood)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"mood": req.Mood})
}

func (s *Server) handlePendingContent(w http.ResponseWriter, r *http.Request) {
	set, err := s.content.LoadPendingContent(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, set)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	kind := content.Kind(chi.URLParam(r, "kind"))
	id := chi.URLParam(r, "id")

	if err := s.content.Approve(r.Context(), kind, id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	metrics.ModerationDecisionsTotal.WithLabelValues(string(kind), "approve").Inc()
	w.WriteHeader(http.StatusNoContent)
}

type rejectRequest struct {
	Comment string `json:"comment"`
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	kind := content.Kind(chi.URLParam(r, "kind"))
	id := chi.URLParam(r, "id")

	var req rejectRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := s.content.Reject(r.Context(), kind, id, req.Comment); err != nil {
		httputil.WriteError(w, err)
		return
	}
	metrics.ModerationDecisionsTotal.WithLabelValues(string(kind), "reject").Inc()
	w.WriteHeader(http.StatusNoContent)
}

// eventFilterFromQuery reads this_month, category, and the inclusive
// from/to date bounds. Bounds accept RFC 3339 or plain dates; a plain
// "to" date covers the whole day.
func eventFilterFromQuery(r *http.Request) (content.EventFilter, error) {
	q := r.URL.Query()
	filter := content.EventFilter{
		ThisMonth: q.Get("this_month") == "true",
		Category:  q.Get("category"),
	}

	if raw := q.Get("from"); raw != "" {
		from, _, err := parseDateBound(raw)
		if err != nil {
			return content.EventFilter{}, apperrors.InvalidInput("invalid from date: " + raw)
		}
		filter.From = from
	}
	if raw := q.Get("to"); raw != "" {
		to, dateOnly, err := parseDateBound(raw)
		if err != nil {
			return content.EventFilter{}, apperrors.InvalidInput("invalid to date: " + raw)
		}
		if dateOnly {
			to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		filter.To = to
	}
	return filter, nil
}

func parseDateBound(raw string) (t time.Time, dateOnly bool, err error) {
	if t, err = time.Parse(time.RFC3339, raw); err == nil {
		return t, false, nil
	}
	t, err = time.Parse("2006-01-02", raw)
	return t, true, err
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.InvalidInput("malformed request body")
	}
	return nil
}
