package seed

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"warbler/internal/credentials"
	"warbler/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// Counts sizes a generated fixture set.
type Counts struct {
	Users    int
	Messages int
	Follows  int
	// Seed makes the output reproducible when non-zero.
	Seed int64
}

// DefaultCounts matches the size of the stock fixture files.
var DefaultCounts = Counts{Users: 300, Messages: 1000, Follows: 5000}

// Factory produces fake Warbler rows with gofakeit.
type Factory struct {
	faker *gofakeit.Faker
	seen  map[string]struct{}
}

// NewFactory returns a Factory. seed 0 picks a random seed.
func NewFactory(seed int64) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{faker: gofakeit.New(seed), seen: make(map[string]struct{})}
}

// User builds an unsaved user with a unique username and email. password is
// stored as given, so pass a hash.
func (f *Factory) User(password string) models.User {
	username := f.unique(func() string {
		return strings.ToLower(f.faker.Username())
	})
	email := f.unique(func() string {
		return strings.ToLower(f.faker.Email())
	})

	user := models.User{
		Username: username,
		Email:    email,
		Password: password,
		Bio:      truncate(f.faker.Sentence(8), 200),
		Location: f.faker.City() + ", " + f.faker.StateAbr(),
	}
	if f.faker.Bool() {
		user.ImageURL = fmt.Sprintf("https://randomuser.me/api/portraits/lego/%d.jpg", f.faker.Number(0, 9))
	}
	user.ApplyImageDefaults()
	return user
}

// Message builds an unsaved message for userID within the last year.
func (f *Factory) Message(userID uint) models.Message {
	return models.Message{
		Text:      truncate(f.faker.HipsterSentence(f.faker.Number(4, 14)), models.MaxMessageLength),
		Timestamp: f.faker.DateRange(time.Now().AddDate(-1, 0, 0), time.Now()).UTC(),
		UserID:    userID,
	}
}

func (f *Factory) unique(gen func() string) string {
	for i := 0; i < 10; i++ {
		v := gen()
		if _, dup := f.seen[v]; !dup {
			f.seen[v] = struct{}{}
			return v
		}
	}
	v := gen() + strconv.Itoa(len(f.seen))
	f.seen[v] = struct{}{}
	return v
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

// GenerateFixtures writes users.csv, messages.csv and follows.csv into dir.
// Every generated user gets the hash of SamplePassword. User ids are written
// explicitly so the other files can reference them.
func GenerateFixtures(dir string, counts Counts, hasher credentials.Hasher) error {
	return generateFixtures(map[string]string{
		"users":    filepath.Join(dir, "users.csv"),
		"messages": filepath.Join(dir, "messages.csv"),
		"follows":  filepath.Join(dir, "follows.csv"),
	}, counts, hasher)
}

// generateFixtures writes the users, messages and follows tables to the paths
// keyed by table name.
func generateFixtures(paths map[string]string, counts Counts, hasher credentials.Hasher) error {
	if counts.Users <= 0 {
		return fmt.Errorf("generate fixtures: need at least one user")
	}

	hash, err := hasher.Hash(SamplePassword)
	if err != nil {
		return fmt.Errorf("generate fixtures: hash password: %w", err)
	}
	f := NewFactory(counts.Seed)

	users := [][]string{{"id", "email", "username", "image_url", "password", "bio", "header_image_url", "location"}}
	for i := 1; i <= counts.Users; i++ {
		u := f.User(hash)
		users = append(users, []string{
			strconv.Itoa(i), u.Email, u.Username, u.ImageURL, u.Password, u.Bio, u.HeaderImageURL, u.Location,
		})
	}

	messages := [][]string{{"text", "timestamp", "user_id"}}
	for i := 0; i < counts.Messages; i++ {
		m := f.Message(uint(f.faker.Number(1, counts.Users)))
		messages = append(messages, []string{
			m.Text, m.Timestamp.Format("2006-01-02 15:04:05.999999"), strconv.FormatUint(uint64(m.UserID), 10),
		})
	}

	follows := [][]string{{"user_being_followed_id", "user_following_id"}}
	maxEdges := counts.Users * (counts.Users - 1)
	want := counts.Follows
	if want > maxEdges {
		want = maxEdges
	}
	edges := make(map[[2]int]struct{}, want)
	for len(edges) < want {
		followee := f.faker.Number(1, counts.Users)
		follower := f.faker.Number(1, counts.Users)
		if followee == follower {
			continue
		}
		key := [2]int{followee, follower}
		if _, dup := edges[key]; dup {
			continue
		}
		edges[key] = struct{}{}
		follows = append(follows, []string{strconv.Itoa(followee), strconv.Itoa(follower)})
	}

	files := map[string][][]string{
		"users":    users,
		"messages": messages,
		"follows":  follows,
	}
	for name, rows := range files {
		path := paths[name]
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("generate fixtures: %w", err)
		}
		if err := writeCSV(path, rows); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(file)
	if err := w.WriteAll(rows); err != nil {
		_ = file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}
