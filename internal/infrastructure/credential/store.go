package credential

import (
	"context"
	"fmt"
	"os"
	"strings"

	"session-relay/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Record is one identity entry of the credential file.
type Record struct {
	ID           string `yaml:"id"`
	Email        string `yaml:"email"`
	FirstName    string `yaml:"firstName"`
	LastName     string `yaml:"lastName"`
	Role         string `yaml:"role"`
	PasswordHash string `yaml:"passwordHash"`
}

type fileFormat struct {
	Identities []Record `yaml:"identities"`
}

type entry struct {
	identity domain.Identity
	hash     []byte
}

// Store verifies credentials against bcrypt hashes held in memory.
// Implements domain.CredentialVerifier.
type Store struct {
	byEmail   map[string]entry
	dummyHash []byte
}

// NewStore builds a store from records. Records without an ID get a random UUID.
// The hash used for unknown emails is generated at the highest cost found
// among the records.
func NewStore(records []Record) (*Store, error) {
	s := &Store{byEmail: make(map[string]entry, len(records))}

	dummyCost := bcrypt.DefaultCost
	if len(records) > 0 {
		dummyCost = bcrypt.MinCost
	}

	for i, r := range records {
		email := normalizeEmail(r.Email)
		if email == "" {
			return nil, fmt.Errorf("identity %d: email is required", i)
		}
		cost, err := bcrypt.Cost([]byte(r.PasswordHash))
		if err != nil {
			return nil, fmt.Errorf("identity %q: invalid password hash: %w", email, err)
		}
		if _, dup := s.byEmail[email]; dup {
			return nil, fmt.Errorf("identity %q: duplicate email", email)
		}
		dummyCost = max(dummyCost, cost)

		id := r.ID
		if id == "" {
			id = uuid.NewString()
		}

		s.byEmail[email] = entry{
			identity: domain.Identity{
				ID:        id,
				Email:     email,
				FirstName: r.FirstName,
				LastName:  r.LastName,
				Role:      domain.ParseRole(r.Role),
			},
			hash: []byte(r.PasswordHash),
		}
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), dummyCost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}
	s.dummyHash = dummy

	return s, nil
}

// LoadFile reads a YAML credential file.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credential file: %w", err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse credential file: %w", err)
	}
	return NewStore(f.Identities)
}

// NewDemoStore seeds the two demo accounts, both with password "password".
func NewDemoStore(cost int) (*Store, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), cost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	return NewStore([]Record{
		{
			Email:        "user@example.com",
			FirstName:    "Demo",
			LastName:     "Reader",
			Role:         string(domain.RoleRegular),
			PasswordHash: string(hash),
		},
		{
			Email:        "admin@example.com",
			FirstName:    "Demo",
			LastName:     "Librarian",
			Role:         string(domain.RoleAdministrator),
			PasswordHash: string(hash),
		},
	})
}

// Verify checks the password for email. Unknown emails still pay for a bcrypt
// comparison so both failure paths take about the same time.
func (s *Store) Verify(_ context.Context, email, password string) (*domain.Identity, error) {
	e, found := s.byEmail[normalizeEmail(email)]
	if !found {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(e.hash, []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	identity := e.identity
	return &identity, nil
}

// Len returns the number of known identities.
func (s *Store) Len() int {
	return len(s.byEmail)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
