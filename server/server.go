// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/poiesic/rapport/core"
	"github.com/poiesic/rapport/matching"
	"github.com/poiesic/rapport/signup"
	"github.com/poiesic/rapport/storage"
)

const (
	defaultRequestTimeout = 30 * time.Second
	shutdownTimeout       = 10 * time.Second
	maxBodyBytes          = 64 << 10
)

// Matcher finds the best match for a user.
type Matcher interface {
	FindBestMatch(ctx context.Context, userID string) (*matching.Outcome, error)
}

// ProfileCreator stores new survey submissions.
type ProfileCreator interface {
	CreateProfile(ctx context.Context, sub signup.Submission) (*core.UserProfile, error)
}

// Server exposes matching and signup over HTTP.
type Server struct {
	matcher        Matcher
	creator        ProfileCreator
	matches        storage.MatchRepository
	requestTimeout time.Duration
	origins        []string
	logger         *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithRequestTimeout bounds each request; work still in flight when it
// expires is abandoned. Default is 30s.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithAllowedOrigins enables CORS for the given origins ("*" for any).
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Server.
func New(matcher Matcher, creator ProfileCreator, matches storage.MatchRepository, opts ...Option) (*Server, error) {
	if matcher == nil || creator == nil || matches == nil {
		return nil, errors.New("server: matcher, profile creator and match repository are required")
	}
	s := &Server{
		matcher:        matcher,
		creator:        creator,
		matches:        matches,
		requestTimeout: defaultRequestTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")
	return s, nil
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/match", s.handleMatch)
	mux.HandleFunc("POST /api/users", s.handleCreateUser)
	mux.HandleFunc("GET /api/users/{id}/matches", s.handleListMatches)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	var h http.Handler = mux
	if len(s.origins) > 0 {
		h = withCORS(s.origins, h)
	}
	return s.withTimeout(h)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	outcome, err := s.matcher.FindBestMatch(r.Context(), userID)
	if err != nil {
		s.fail(w, "match request failed", err, "user", userID)
		return
	}
	writeJSON(w, http.StatusOK, newMatchResponse(outcome))
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	profile, err := s.creator.CreateProfile(r.Context(), signup.Submission{
		Name:       req.Name,
		Email:      req.Email,
		Profession: req.Profession,
		Location:   req.Location,
		Answers:    [core.FieldCount]string{req.Answer1, req.Answer2, req.Answer3},
	})
	if err != nil {
		s.fail(w, "create user failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, createUserResponse{
		Message: "User created successfully",
		UserID:  profile.UserID,
	})
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if err := core.ValidateUserID(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	edges, err := s.matches.ListMatches(r.Context(), userID)
	if err != nil {
		s.fail(w, "list matches failed", fmt.Errorf("%w: %w", core.ErrDependency, err), "user", userID)
		return
	}
	writeJSON(w, http.StatusOK, newEdgesResponse(edges))
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error, attrs ...any) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, append(attrs, "status", status, "err", err)...)
	} else {
		s.logger.Debug(msg, append(attrs, "status", status, "err", err)...)
	}
	writeError(w, status, publicMessage(err))
}
