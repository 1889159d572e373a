package contact_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kvetinski/phonebook/internal/adapters/memory"
	"github.com/kvetinski/phonebook/internal/domain"
	contactsvc "github.com/kvetinski/phonebook/internal/service/contact"
)

type fakeStore struct {
	listFn      func(ctx context.Context) ([]domain.Contact, error)
	getFn       func(ctx context.Context, id string) (domain.Contact, error)
	insertFn    func(ctx context.Context, c domain.Contact) (domain.Contact, error)
	updateFn    func(ctx context.Context, c domain.Contact) (domain.Contact, error)
	deleteFn    func(ctx context.Context, id string) error
	deleteAllFn func(ctx context.Context) (int, error)
	countFn     func(ctx context.Context) (int, error)
}

func (f fakeStore) List(ctx context.Context) ([]domain.Contact, error) { return f.listFn(ctx) }

func (f fakeStore) Get(ctx context.Context, id string) (domain.Contact, error) {
	return f.getFn(ctx, id)
}

func (f fakeStore) Insert(ctx context.Context, c domain.Contact) (domain.Contact, error) {
	return f.insertFn(ctx, c)
}

func (f fakeStore) Update(ctx context.Context, c domain.Contact) (domain.Contact, error) {
	return f.updateFn(ctx, c)
}

func (f fakeStore) Delete(ctx context.Context, id string) error { return f.deleteFn(ctx, id) }

func (f fakeStore) DeleteAll(ctx context.Context) (int, error) { return f.deleteAllFn(ctx) }

func (f fakeStore) Count(ctx context.Context) (int, error) { return f.countFn(ctx) }

var fixedNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) *contactsvc.Service {
	t.Helper()
	return contactsvc.New(memory.New(1), contactsvc.WithClock(func() time.Time { return fixedNow }))
}

func validInput() domain.ContactInput {
	return domain.ContactInput{
		Username:  "A",
		Email:     "a@b.com",
		Telephone: domain.TelephoneInput{Mobile: "123"},
	}
}

func ptr(s string) *string { return &s }

func mustCount(t *testing.T, svc *contactsvc.Service) int {
	t.Helper()
	n, err := svc.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestCreateAssignsIdentityAndDefaultsHome(t *testing.T) {
	svc := newService(t)

	c, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.ID != "1" {
		t.Fatalf("expected id 1, got %q", c.ID)
	}
	if c.Telephone.Home != "" {
		t.Fatalf("expected empty home, got %q", c.Telephone.Home)
	}
	if !c.CreatedAt.Equal(fixedNow) || !c.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("expected timestamps %v, got %v / %v", fixedNow, c.CreatedAt, c.UpdatedAt)
	}
}

func TestCreateThenGetReturnsSameContact(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	in := validInput()
	in.Username = "  Jane  "
	in.Telephone.Home = "555-0100"

	created, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Username != "Jane" {
		t.Fatalf("expected trimmed username, got %q", created.Username)
	}

	got, err := svc.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got != created {
		t.Fatalf("expected %+v, got %+v", created, got)
	}
}

func TestCreateRejectsInvalidPayloadWithoutStoring(t *testing.T) {
	tests := []struct {
		name  string
		in    domain.ContactInput
		field string
	}{
		{name: "empty username", in: domain.ContactInput{Email: "a@b.com", Telephone: domain.TelephoneInput{Mobile: "1"}}, field: "username"},
		{name: "missing email", in: domain.ContactInput{Username: "A", Telephone: domain.TelephoneInput{Mobile: "1"}}, field: "email"},
		{name: "malformed email", in: domain.ContactInput{Username: "A", Email: "not-an-email", Telephone: domain.TelephoneInput{Mobile: "1"}}, field: "email"},
		{name: "missing mobile", in: domain.ContactInput{Username: "A", Email: "a@b.com"}, field: "telephone.mobile"},
		{name: "invalid home", in: domain.ContactInput{Username: "A", Email: "a@b.com", Telephone: domain.TelephoneInput{Mobile: "1", Home: "x"}}, field: "telephone.home"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(t)

			_, err := svc.Create(context.Background(), tt.in)

			var vErr *domain.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.field {
				t.Fatalf("expected field %s, got %s", tt.field, vErr.Field)
			}
			if n := mustCount(t, svc); n != 0 {
				t.Fatalf("expected empty store, got %d contacts", n)
			}
		})
	}
}

func TestCreateDoesNotCallStoreOnValidationFailure(t *testing.T) {
	svc := contactsvc.New(fakeStore{})

	_, err := svc.Create(context.Background(), domain.ContactInput{})
	if !errors.Is(err, domain.ErrInvalidContact) {
		t.Fatalf("expected ErrInvalidContact, got %v", err)
	}
}

func TestUpdateWithEmptyPatchLeavesContactUnchanged(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := svc.Update(ctx, created.ID, domain.ContactPatch{})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated != created {
		t.Fatalf("expected unchanged contact %+v, got %+v", created, updated)
	}
}

func TestUpdateMergesOnlySuppliedFields(t *testing.T) {
	later := fixedNow.Add(time.Hour)
	now := fixedNow
	svc := contactsvc.New(memory.New(1), contactsvc.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	now = later
	updated, err := svc.Update(ctx, created.ID, domain.ContactPatch{
		Telephone: &domain.TelephonePatch{Home: ptr("555")},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if updated.Telephone.Home != "555" {
		t.Fatalf("expected home 555, got %q", updated.Telephone.Home)
	}
	if updated.Username != created.Username || updated.Email != created.Email || updated.Telephone.Mobile != created.Telephone.Mobile {
		t.Fatalf("expected other fields unchanged, got %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("expected createdAt %v, got %v", created.CreatedAt, updated.CreatedAt)
	}
	if !updated.UpdatedAt.Equal(later) {
		t.Fatalf("expected updatedAt %v, got %v", later, updated.UpdatedAt)
	}
}

func TestUpdateIgnoresEmptyTelephoneValues(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	in := validInput()
	in.Telephone.Home = "999"
	created, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := svc.Update(ctx, created.ID, domain.ContactPatch{
		Telephone: &domain.TelephonePatch{Mobile: ptr(""), Home: ptr("")},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Telephone != created.Telephone {
		t.Fatalf("expected telephone %+v, got %+v", created.Telephone, updated.Telephone)
	}
}

func TestUpdateRejectsInvalidMerge(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err = svc.Update(ctx, created.ID, domain.ContactPatch{Email: ptr("broken")})
	if !errors.Is(err, domain.ErrInvalidContact) {
		t.Fatalf("expected ErrInvalidContact, got %v", err)
	}

	got, err := svc.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Email != created.Email {
		t.Fatalf("expected stored email %q, got %q", created.Email, got.Email)
	}
}

func TestUpdateMissingContactIsNotFoundRegardlessOfPayload(t *testing.T) {
	svc := newService(t)

	for _, patch := range []domain.ContactPatch{
		{},
		{Username: ptr("valid")},
		{Email: ptr("broken")},
	} {
		_, err := svc.Update(context.Background(), "42", patch)
		if !errors.Is(err, domain.ErrContactNotFound) {
			t.Fatalf("expected ErrContactNotFound for %+v, got %v", patch, err)
		}
	}
}

func TestDeleteReturnsIDAndRemovesContact(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	res, err := svc.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if res.ID != created.ID {
		t.Fatalf("expected id %s, got %s", created.ID, res.ID)
	}

	if _, err = svc.GetByID(ctx, created.ID); !errors.Is(err, domain.ErrContactNotFound) {
		t.Fatalf("expected ErrContactNotFound after delete, got %v", err)
	}
}

func TestDeleteMissingContactLeavesStoreUnchanged(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, validInput()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err := svc.Delete(ctx, "nonexistent")
	if !errors.Is(err, domain.ErrContactNotFound) {
		t.Fatalf("expected ErrContactNotFound, got %v", err)
	}
	if n := mustCount(t, svc); n != 1 {
		t.Fatalf("expected 1 contact, got %d", n)
	}
}

func TestDeleteAllResetsIdentitySequence(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	if err := svc.Seed(ctx, validInput(), validInput(), validInput()); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	n, err := svc.DeleteAll(ctx)
	if err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 deleted, got %d", n)
	}

	fresh, err := newService(t).Create(ctx, validInput())
	if err != nil {
		t.Fatalf("Create on fresh service failed: %v", err)
	}

	c, err := svc.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("Create after DeleteAll failed: %v", err)
	}
	if c.ID != fresh.ID {
		t.Fatalf("expected id %s after reset, got %s", fresh.ID, c.ID)
	}
}

func TestListNeverReturnsNil(t *testing.T) {
	svc := contactsvc.New(fakeStore{
		listFn: func(context.Context) ([]domain.Contact, error) { return nil, nil },
	})

	contacts, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if contacts == nil {
		t.Fatal("expected empty slice, got nil")
	}
}

func TestStorageErrorsPropagate(t *testing.T) {
	storageErr := &domain.StorageError{Op: "get contact", Err: errors.New("connection refused")}
	svc := contactsvc.New(fakeStore{
		getFn: func(context.Context, string) (domain.Contact, error) { return domain.Contact{}, storageErr },
	})

	_, err := svc.Update(context.Background(), "1", domain.ContactPatch{})

	var got *domain.StorageError
	if !errors.As(err, &got) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if errors.Is(err, domain.ErrContactNotFound) || errors.Is(err, domain.ErrInvalidContact) {
		t.Fatalf("storage error must not be classified, got %v", err)
	}
}

func TestUpdatePassesMergedContactToStore(t *testing.T) {
	stored := domain.Contact{
		ID:        "7",
		Username:  "Old",
		Email:     "old@example.com",
		Telephone: domain.Telephone{Mobile: "111", Home: "222"},
		CreatedAt: fixedNow,
		UpdatedAt: fixedNow,
	}

	var written domain.Contact
	svc := contactsvc.New(fakeStore{
		getFn: func(_ context.Context, id string) (domain.Contact, error) {
			if id != stored.ID {
				t.Fatalf("expected id %s, got %s", stored.ID, id)
			}
			return stored, nil
		},
		updateFn: func(_ context.Context, c domain.Contact) (domain.Contact, error) {
			written = c
			return c, nil
		},
	}, contactsvc.WithClock(func() time.Time { return fixedNow.Add(time.Minute) }))

	_, err := svc.Update(context.Background(), "7", domain.ContactPatch{
		Username:  ptr("New"),
		Telephone: &domain.TelephonePatch{Mobile: ptr("333")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if written.Username != "New" || written.Email != stored.Email {
		t.Fatalf("unexpected merge: %+v", written)
	}
	if written.Telephone.Mobile != "333" || written.Telephone.Home != "222" {
		t.Fatalf("unexpected telephone merge: %+v", written.Telephone)
	}
}
