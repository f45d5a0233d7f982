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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/poiesic/rapport"
	"github.com/poiesic/rapport/config"
	"github.com/poiesic/rapport/core"
	"github.com/poiesic/rapport/matching"
	"github.com/poiesic/rapport/reembed"
	"github.com/poiesic/rapport/server"
	"github.com/poiesic/rapport/signup"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "rapport",
		Usage: "Survey-based user matching",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file (default: ./rapport.yaml)",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Database path (badger) or DSN (sqlite, postgres); overrides the config file",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "Emit logs as JSON",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address; overrides server.addr",
					},
					&cli.StringSliceFlag{
						Name:  "allow-origin",
						Usage: "Allowed CORS origin (repeatable)",
					},
				},
			},
			{
				Name:   "match",
				Usage:  "Find, record and explain the best match for a user",
				Action: matchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "Requesting user ID",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "trace",
						Usage: "Print matching progress to stderr",
					},
					&cli.BoolFlag{
						Name:  "no-explain",
						Usage: "Skip the narrative explanation",
					},
				},
			},
			{
				Name:   "matches",
				Usage:  "List recorded matches for a user",
				Action: matchesCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "Source user ID",
						Required: true,
					},
				},
			},
			{
				Name:   "signup",
				Usage:  "Create a profile from survey answers",
				Action: signupCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Display name", Required: true},
					&cli.StringFlag{Name: "email", Usage: "Email address", Required: true},
					&cli.StringFlag{Name: "profession", Usage: "Profession"},
					&cli.StringFlag{Name: "location", Usage: "Location or postal code"},
					&cli.StringFlag{Name: "answer1", Usage: core.SurveyQuestions[0], Required: true},
					&cli.StringFlag{Name: "answer2", Usage: core.SurveyQuestions[1], Required: true},
					&cli.StringFlag{Name: "answer3", Usage: core.SurveyQuestions[2], Required: true},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Recompute embeddings for every stored profile",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of profiles to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N profiles",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}
}

// loadConfig reads the config file and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("db") {
		if cfg.Storage.Backend == config.BackendBadger {
			cfg.Storage.Path = c.String("db")
		} else {
			cfg.Storage.DSN = c.String("db")
		}
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-json") {
		cfg.Log.JSON = c.Bool("log-json")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

// openDatabase loads configuration, configures logging and opens the database.
func openDatabase(c *cli.Context) (*rapport.Database, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	logger, err := setupLogger(cfg.Log, c.App.ErrWriter)
	if err != nil {
		return nil, nil, err
	}
	db, err := rapport.Open(c.Context, cfg, rapport.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, cfg, nil
}

func serveCommand(c *cli.Context) error {
	db, cfg, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	engine, err := db.NewEngine()
	if err != nil {
		return err
	}
	defer engine.Release()

	signups, err := db.NewSignupService()
	if err != nil {
		return err
	}

	srv, err := server.New(engine, signups, db.MatchRepository(),
		server.WithRequestTimeout(cfg.Server.RequestTimeout),
		server.WithAllowedOrigins(c.StringSlice("allow-origin")...),
		server.WithLogger(slog.Default()))
	if err != nil {
		return err
	}

	addr := cfg.Server.Addr
	if c.IsSet("addr") {
		addr = c.String("addr")
	}
	return srv.ListenAndServe(c.Context, addr)
}

type matchOutput struct {
	UserID        string               `json:"userId"`
	MatchUserID   string               `json:"matchUserId"`
	MatchName     string               `json:"matchName"`
	MatchScore    int                  `json:"matchScore"`
	FieldScores   [core.FieldCount]int `json:"fieldScores"`
	Auxiliary     *int                 `json:"auxiliaryScore,omitempty"`
	Explanation   *core.Explanation    `json:"explanation,omitempty"`
	Persisted     bool                 `json:"persisted"`
	Warning       string               `json:"warning,omitempty"`
	PolicyVersion string               `json:"policyVersion"`
}

func matchCommand(c *cli.Context) error {
	db, cfg, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if c.Bool("no-explain") {
		cfg.Matching.Explain = false
	}
	var opts []matching.Option
	if c.Bool("trace") {
		opts = append(opts, matching.WithMonitor(newTraceMonitor(c.App.ErrWriter)))
	}
	engine, err := db.NewEngine(opts...)
	if err != nil {
		return err
	}
	defer engine.Release()

	outcome, err := engine.FindBestMatch(c.Context, c.String("user"))
	if err != nil {
		return err
	}

	return writeJSON(c.App.Writer, matchOutput{
		UserID:        outcome.Requester.UserID,
		MatchUserID:   outcome.Candidate.UserID,
		MatchName:     outcome.Candidate.Name,
		MatchScore:    outcome.Match.CompositeScore,
		FieldScores:   outcome.Match.PerFieldScores,
		Auxiliary:     outcome.Match.AuxiliaryScore,
		Explanation:   outcome.Explanation,
		Persisted:     outcome.Persisted,
		Warning:       outcome.Warning,
		PolicyVersion: outcome.PolicyVersion,
	})
}

func matchesCommand(c *cli.Context) error {
	db, _, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	userID := c.String("user")
	if err := core.ValidateUserID(userID); err != nil {
		return err
	}
	edges, err := db.MatchRepository().ListMatches(c.Context, userID)
	if err != nil {
		return err
	}
	for _, edge := range edges {
		fmt.Fprintf(c.App.Writer, "%s\t%d\t%s\n",
			edge.TargetUserID, edge.CompositeScore, edge.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func signupCommand(c *cli.Context) error {
	db, _, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := db.NewSignupService()
	if err != nil {
		return err
	}
	profile, err := svc.CreateProfile(c.Context, signup.Submission{
		Name:       c.String("name"),
		Email:      c.String("email"),
		Profession: c.String("profession"),
		Location:   c.String("location"),
		Answers: [core.FieldCount]string{
			c.String("answer1"),
			c.String("answer2"),
			c.String("answer3"),
		},
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, profile.UserID)
	return nil
}

func reembedCommand(c *cli.Context) error {
	db, _, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	r, err := db.NewReembedder(cfg, reembed.WithProgress(c.App.ErrWriter))
	if err != nil {
		return fmt.Errorf("failed to create reembedder: %w", err)
	}

	stats, err := r.Run(c.Context)
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Reembedded %d profiles (%d texts) in %s\n",
		stats.Profiles, stats.Texts, stats.Elapsed.Round(time.Millisecond))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// traceMonitor prints engine events as they happen.
type traceMonitor struct {
	mu    sync.Mutex
	w     io.Writer
	start time.Time
}

func newTraceMonitor(w io.Writer) *traceMonitor {
	return &traceMonitor{w: w}
}

var _ matching.Monitor = (*traceMonitor)(nil)

func (m *traceMonitor) printf(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintf(m.w, "[%8s] "+format+"\n", append([]any{time.Since(m.start).Round(time.Microsecond)}, args...)...)
}

func (m *traceMonitor) Start(userID string) {
	m.start = time.Now()
	m.printf("matching %s", userID)
}

func (m *traceMonitor) AfterCandidatesLoaded(requester *core.UserProfile, candidates int) {
	m.printf("loaded %s (%s), %d candidates", requester.UserID, requester.Name, candidates)
}

func (m *traceMonitor) Embedded(inputs int) {
	m.printf("embedded %d texts", inputs)
}

func (m *traceMonitor) CandidateScored(score core.MatchCandidateScore) {
	m.printf("  %s: %d %v", score.CandidateUserID, score.CompositeScore, score.PerFieldScores)
}

func (m *traceMonitor) Selected(best core.MatchCandidateScore) {
	m.printf("selected %s with %d", best.CandidateUserID, best.CompositeScore)
}

func (m *traceMonitor) Persisted(edge *core.MatchEdge, err error) {
	if err != nil {
		m.printf("persist failed: %v", err)
		return
	}
	m.printf("stored %s -> %s", edge.SourceUserID, edge.TargetUserID)
}

func (m *traceMonitor) Finish(err error) {
	if err != nil {
		m.printf("failed: %v", err)
		return
	}
	m.printf("done")
}
