package newsletter

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/alexandria-backend/pkg/db"
	"github.com/angelmondragon/alexandria-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/alexandria-backend/pkg/errors"
	"github.com/angelmondragon/alexandria-backend/pkg/logger"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const defaultSource = "site"

// SignupInput is a newsletter signup as submitted by the storefront.
type SignupInput struct {
	Email     string
	FirstName string
	Source    string
}

// Subscriber is the public view of a signup.
type Subscriber struct {
	Email     string    `json:"email"`
	FirstName *string   `json:"first_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository stores newsletter subscribers.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, sub *models.NewsletterSubscriber) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.NewsletterSubscriber, error) {
	var sub models.NewsletterSubscriber
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

type store interface {
	Create(ctx context.Context, sub *models.NewsletterSubscriber) error
	FindByEmail(ctx context.Context, email string) (*models.NewsletterSubscriber, error)
}

// Service records signups. Repeating a signup returns the original subscriber.
type Service struct {
	repo     store
	validate *validator.Validate
	logg     *logger.Logger
}

func NewService(repo store, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "newsletter repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{repo: repo, validate: validator.New(), logg: logg}, nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Subscribe returns the subscriber and whether this call created it.
func (s *Service) Subscribe(ctx context.Context, input SignupInput) (*Subscriber, bool, error) {
	email := NormalizeEmail(input.Email)
	if err := s.validate.Var(email, "required,email,max=254"); err != nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required").
			WithDetails(pkgerrors.Violations{{Field: "email", Message: "must be a valid email address"}})
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		return toSubscriber(existing), false, nil
	}
	if !db.IsNotFound(err) {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "lookup subscriber")
	}

	record := &models.NewsletterSubscriber{Email: email, Source: strings.TrimSpace(input.Source)}
	if record.Source == "" {
		record.Source = defaultSource
	}
	if first := strings.TrimSpace(input.FirstName); first != "" {
		record.FirstName = &first
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if db.IsUniqueViolation(err, "") {
			winner, findErr := s.repo.FindByEmail(ctx, email)
			if findErr == nil {
				return toSubscriber(winner), false, nil
			}
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "create subscriber")
	}
	s.logg.Info(s.logg.WithField(ctx, "source", record.Source), "newsletter signup")
	return toSubscriber(record), true, nil
}

func toSubscriber(record *models.NewsletterSubscriber) *Subscriber {
	return &Subscriber{Email: record.Email, FirstName: record.FirstName, CreatedAt: record.CreatedAt.UTC()}
}
