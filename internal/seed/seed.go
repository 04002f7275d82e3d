package seed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/senyabanana/tender-engine/internal/auth"
	"github.com/senyabanana/tender-engine/internal/models"
	"github.com/senyabanana/tender-engine/internal/repository"
	"github.com/senyabanana/tender-engine/internal/services"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// idNamespace делает ID пользователя из email стабильным между запусками.
var idNamespace = uuid.MustParse("6f0f4c1e-3b7a-4c55-9a59-2b0d7f1c9e11")

// Fixture - набор пользователей и тендеров для локальной среды.
type Fixture struct {
	Users   []User   `yaml:"users"`
	Tenders []Tender `yaml:"tenders"`
}

// User - пользователь фикстуры.
type User struct {
	ID            string      `yaml:"id,omitempty"`
	Name          string      `yaml:"name"`
	Email         string      `yaml:"email"`
	Organization  string      `yaml:"organization,omitempty"`
	WalletAddress string      `yaml:"wallet_address,omitempty"`
	Role          models.Role `yaml:"role"`
	Verified      bool        `yaml:"verified,omitempty"`
}

// Tender - тендер фикстуры; создаётся от имени пользователя с email Creator.
type Tender struct {
	Creator           string `yaml:"creator"`
	Title             string `yaml:"title"`
	Description       string `yaml:"description"`
	Budget            string `yaml:"budget"`
	DaysUntilDeadline int    `yaml:"days_until_deadline"`
	MaxBids           *int   `yaml:"max_bids,omitempty"`
}

// Token - токен разработчика для созданного пользователя.
type Token struct {
	Email string
	Role  models.Role
	Token string
}

// Load читает фикстуру в формате YAML.
func Load(r io.Reader) (*Fixture, error) {
	var fixture Fixture
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&fixture); err != nil {
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}

	for i := range fixture.Users {
		user := &fixture.Users[i]
		if user.Email == "" || !user.Role.Valid() {
			return nil, fmt.Errorf("user %d must have an email and a known role", i+1)
		}
		if user.ID == "" {
			user.ID = uuid.NewSHA1(idNamespace, []byte(user.Email)).String()
		} else if _, err := uuid.Parse(user.ID); err != nil {
			return nil, fmt.Errorf("user %s has invalid id: %w", user.Email, err)
		}
	}
	return &fixture, nil
}

// Apply сохраняет пользователей и тендеры и возвращает токены для пользователей.
func Apply(ctx context.Context, fixture *Fixture, contractors repository.ContractorRepository, tenders repository.TenderRepository, secret []byte, ttl time.Duration) ([]Token, error) {
	now := time.Now()
	principals := make(map[string]models.Principal, len(fixture.Users))
	tokens := make([]Token, 0, len(fixture.Users))

	for _, user := range fixture.Users {
		contractor := &models.Contractor{
			ID:            user.ID,
			Name:          user.Name,
			Email:         user.Email,
			Organization:  user.Organization,
			WalletAddress: user.WalletAddress,
			Role:          user.Role,
			IsVerified:    user.Verified,
			CreatedAt:     now,
		}
		if user.Verified {
			contractor.VerifiedAt = &now
		}
		if err := contractors.CreateContractor(ctx, contractor); err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", user.Email, err)
		}

		principal := models.Principal{ID: user.ID, Role: user.Role, IsVerified: user.Verified}
		principals[user.Email] = principal

		token, err := auth.NewToken(secret, principal, ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to issue token for %s: %w", user.Email, err)
		}
		tokens = append(tokens, Token{Email: user.Email, Role: user.Role, Token: token})
	}

	tenderService := services.NewTenderService(tenders, nil, nil, nil, 1)
	for _, t := range fixture.Tenders {
		creator, ok := principals[t.Creator]
		if !ok {
			return nil, fmt.Errorf("tender %q references unknown creator %s", t.Title, t.Creator)
		}
		_, err := tenderService.CreateTender(ctx, creator, models.TenderRequest{
			Title:             t.Title,
			Description:       t.Description,
			Budget:            t.Budget,
			DaysUntilDeadline: t.DaysUntilDeadline,
			MaxBids:           t.MaxBids,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create tender %q: %w", t.Title, err)
		}
	}
	return tokens, nil
}
