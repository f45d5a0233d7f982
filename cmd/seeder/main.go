package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/rapport"
	"github.com/poiesic/rapport/config"
	"github.com/poiesic/rapport/signup"
)

// seedRecord is one line of a seed file.
type seedRecord struct {
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Profession string    `json:"profession"`
	Location   string    `json:"location"`
	Answers    [3]string `json:"answers"`
}

func (r seedRecord) submission() signup.Submission {
	return signup.Submission{
		Name:       r.Name,
		Email:      r.Email,
		Profession: r.Profession,
		Location:   r.Location,
		Answers:    r.Answers,
	}
}

var people = []seedRecord{
	{"Ada Park", "ada@example.com", "Software Engineer", "Portland, OR",
		[3]string{"Tracking down a race condition in our cache layer", "Hiking the Columbia Gorge", "I pair up and talk it through"}},
	{"Sam Ortiz", "sam@example.com", "Data Scientist", "Austin, TX",
		[3]string{"Shipping a churn model that actually moved retention", "Long bike rides", "I write everything down and sleep on it"}},
	{"Priya Nair", "priya@example.com", "Product Designer", "Seattle, WA",
		[3]string{"Redesigning onboarding with real user interviews", "Pottery on weekends", "Sketch first, then ask for feedback"}},
	{"Jonas Weber", "jonas@example.com", "Site Reliability Engineer", "Berlin",
		[3]string{"Cutting our pager volume in half", "Climbing gyms", "Break it into the smallest failing piece"}},
	{"Mei Chen", "mei@example.com", "Teacher", "Vancouver, BC",
		[3]string{"Getting a shy student to present at the science fair", "Reading by the ocean", "Ask a colleague who has seen it before"}},
	{"Tom Reilly", "tom@example.com", "Chef", "Chicago, IL",
		[3]string{"Running a kitchen through a power outage", "Farmers markets", "Stay calm and work the list"}},
	{"Lena Kovacs", "lena@example.com", "Backend Engineer", "Budapest",
		[3]string{"Migrating a monolith to services without downtime", "Trail running", "Whiteboard it with the team"}},
	{"Omar Haddad", "omar@example.com", "Nurse", "Toronto, ON",
		[3]string{"Coordinating care for a complex patient", "Cooking for friends", "Follow the checklist, then improvise"}},
}

var (
	seedFileName = flag.String("src", "", "file of seed profiles, one JSON object per line")
	configFile   = flag.String("config", "", "path to configuration file")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

// recordsFromFile returns an iterator over the JSON lines of a file.
// Blank lines are skipped; a malformed line stops iteration with an error.
func recordsFromFile(filename string) (iter.Seq2[seedRecord, error], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(seedRecord, error) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		line := 0
		for scanner.Scan() {
			line++
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			var rec seedRecord
			if err := json.Unmarshal([]byte(text), &rec); err != nil {
				yield(rec, fmt.Errorf("%s:%d: %w", filename, line, err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(seedRecord{}, err)
		}
	}, nil
}

// recordsFromSlice returns an iterator over a slice of records.
func recordsFromSlice(records []seedRecord) iter.Seq2[seedRecord, error] {
	return func(yield func(seedRecord, error) bool) {
		for _, rec := range records {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// seed creates a profile for every record and returns the new user IDs.
func seed(ctx context.Context, svc *signup.Service, source iter.Seq2[seedRecord, error]) ([]string, error) {
	var ids []string
	for rec, err := range source {
		if err != nil {
			return ids, err
		}
		profile, err := svc.CreateProfile(ctx, rec.submission())
		if err != nil {
			return ids, fmt.Errorf("seeding %s: %w", rec.Email, err)
		}
		slog.Info("seeded profile", "user_id", profile.UserID, "name", profile.Name)
		ids = append(ids, profile.UserID)
	}
	return ids, nil
}

func main() {
	flag.Parse()
	ctx := context.Background()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(err)
	}
	db, err := rapport.Open(ctx, cfg)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	svc, err := db.NewSignupService()
	if err != nil {
		panic(err)
	}

	// Determine source of seed data
	var source iter.Seq2[seedRecord, error]
	if *seedFileName != "" {
		source, err = recordsFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	} else {
		source = recordsFromSlice(people)
	}

	ids, err := seed(ctx, svc, source)
	if err != nil {
		panic(err)
	}
	slog.Info("seeding complete", "profiles", len(ids))
}
