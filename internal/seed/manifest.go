// Package seed loads sample Warbler data from CSV fixtures and generates new ones.
package seed

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"warbler/internal/credentials"

	"gopkg.in/yaml.v3"
)

// SamplePassword is the placeholder password of the sample accounts.
const SamplePassword = "password"

// SampleAccount is an account created through signup after the bulk load.
type SampleAccount struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	ImageURL string `yaml:"image_url"`
}

// Manifest names the fixture files and the sample accounts to create.
type Manifest struct {
	Users          string          `yaml:"users"`
	Messages       string          `yaml:"messages"`
	Follows        string          `yaml:"follows"`
	SampleAccounts []SampleAccount `yaml:"sample_accounts"`

	baseDir string
}

// DefaultManifest reads users.csv, messages.csv and follows.csv from dir and
// adds testuser1 and testuser2.
func DefaultManifest(dir string) *Manifest {
	m := &Manifest{baseDir: dir}
	m.applyDefaults()
	return m
}

// LoadManifest parses a YAML manifest. Relative CSV paths resolve against the
// manifest's directory. A missing file yields DefaultManifest of that directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultManifest(filepath.Dir(path)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	m.baseDir = filepath.Dir(path)
	m.applyDefaults()

	for i, acct := range m.SampleAccounts {
		if acct.Username == "" || acct.Email == "" {
			return nil, fmt.Errorf("sample account %d: username and email are required", i)
		}
		if acct.Password == "" {
			m.SampleAccounts[i].Password = SamplePassword
		}
	}
	return m, nil
}

func (m *Manifest) applyDefaults() {
	if m.Users == "" {
		m.Users = "users.csv"
	}
	if m.Messages == "" {
		m.Messages = "messages.csv"
	}
	if m.Follows == "" {
		m.Follows = "follows.csv"
	}
	if m.SampleAccounts == nil {
		m.SampleAccounts = []SampleAccount{
			{Username: "testuser1", Email: "test1@test.com", Password: SamplePassword},
			{Username: "testuser2", Email: "test2@test.com", Password: SamplePassword},
		}
	}
}

// Path resolves a manifest entry to a filesystem path.
func (m *Manifest) Path(name string) string {
	if filepath.IsAbs(name) || m.baseDir == "" {
		return name
	}
	return filepath.Join(m.baseDir, name)
}

// MissingFixtures lists the CSV paths named by m that do not exist yet.
func (m *Manifest) MissingFixtures() []string {
	var missing []string
	for _, name := range []string{m.Users, m.Messages, m.Follows} {
		path := m.Path(name)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			missing = append(missing, path)
		}
	}
	return missing
}

// Generate writes fake fixtures to the CSV paths named by m.
func (m *Manifest) Generate(counts Counts, hasher credentials.Hasher) error {
	return generateFixtures(map[string]string{
		"users":    m.Path(m.Users),
		"messages": m.Path(m.Messages),
		"follows":  m.Path(m.Follows),
	}, counts, hasher)
}
