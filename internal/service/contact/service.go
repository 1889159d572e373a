package contact

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kvetinski/phonebook/internal/domain"
)

// Store is a contact backend. Implementations return domain.ErrContactNotFound
// for unknown ids and wrap every other failure in *domain.StorageError.
type Store interface {
	List(ctx context.Context) ([]domain.Contact, error)
	Get(ctx context.Context, id string) (domain.Contact, error)
	// Insert assigns the identity and returns the stored contact.
	Insert(ctx context.Context, c domain.Contact) (domain.Contact, error)
	Update(ctx context.Context, c domain.Contact) (domain.Contact, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
}

type Option func(*Service)

// WithClock overrides the time source used for createdAt and updatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type Service struct {
	store  Store
	now    func() time.Time
	tracer trace.Tracer
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		now:    time.Now,
		tracer: otel.Tracer("github.com/kvetinski/phonebook/internal/service/contact"),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) List(ctx context.Context) (_ []domain.Contact, err error) {
	ctx, span := s.tracer.Start(ctx, "contact.List")
	defer func() { endSpan(span, err) }()

	contacts, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = []domain.Contact{}
	}

	return contacts, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (_ domain.Contact, err error) {
	ctx, span := s.tracer.Start(ctx, "contact.GetByID", trace.WithAttributes(attribute.String("contact.id", id)))
	defer func() { endSpan(span, err) }()

	return s.store.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in domain.ContactInput) (_ domain.Contact, err error) {
	ctx, span := s.tracer.Start(ctx, "contact.Create")
	defer func() { endSpan(span, err) }()

	c := normalize(domain.Contact{
		Username: in.Username,
		Email:    in.Email,
		Telephone: domain.Telephone{
			Mobile: in.Telephone.Mobile,
			Home:   in.Telephone.Home,
		},
	})
	if err = validateContact(c); err != nil {
		return domain.Contact{}, err
	}

	now := s.timestamp()
	c.CreatedAt = now
	c.UpdatedAt = now

	return s.store.Insert(ctx, c)
}

// Update merges the supplied fields over the stored contact. Absent fields
// keep their value; telephone numbers are only replaced by non-empty ones.
func (s *Service) Update(ctx context.Context, id string, patch domain.ContactPatch) (_ domain.Contact, err error) {
	ctx, span := s.tracer.Start(ctx, "contact.Update", trace.WithAttributes(attribute.String("contact.id", id)))
	defer func() { endSpan(span, err) }()

	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.Contact{}, err
	}

	merged := normalize(merge(existing, patch))
	if err = validateContact(merged); err != nil {
		return domain.Contact{}, err
	}

	if sameFields(existing, merged) {
		return existing, nil
	}

	merged.UpdatedAt = s.timestamp()
	return s.store.Update(ctx, merged)
}

func (s *Service) Delete(ctx context.Context, id string) (_ domain.DeleteResult, err error) {
	ctx, span := s.tracer.Start(ctx, "contact.Delete", trace.WithAttributes(attribute.String("contact.id", id)))
	defer func() { endSpan(span, err) }()

	if err = s.store.Delete(ctx, id); err != nil {
		return domain.DeleteResult{}, err
	}

	return domain.DeleteResult{ID: id}, nil
}

func (s *Service) DeleteAll(ctx context.Context) (_ int, err error) {
	ctx, span := s.tracer.Start(ctx, "contact.DeleteAll")
	defer func() { endSpan(span, err) }()

	return s.store.DeleteAll(ctx)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// Seed creates each input through Create and stops at the first failure.
func (s *Service) Seed(ctx context.Context, inputs ...domain.ContactInput) error {
	for _, in := range inputs {
		if _, err := s.Create(ctx, in); err != nil {
			return err
		}
	}

	return nil
}

// timestamp is truncated to what the SQL backends can round-trip.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func merge(c domain.Contact, patch domain.ContactPatch) domain.Contact {
	if patch.Username != nil {
		c.Username = *patch.Username
	}
	if patch.Email != nil {
		c.Email = *patch.Email
	}
	if tel := patch.Telephone; tel != nil {
		if tel.Mobile != nil && *tel.Mobile != "" {
			c.Telephone.Mobile = *tel.Mobile
		}
		if tel.Home != nil && *tel.Home != "" {
			c.Telephone.Home = *tel.Home
		}
	}

	return c
}

func sameFields(a, b domain.Contact) bool {
	return a.Username == b.Username && a.Email == b.Email && a.Telephone == b.Telephone
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, domain.ErrContactNotFound) && !errors.Is(err, domain.ErrInvalidContact) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
