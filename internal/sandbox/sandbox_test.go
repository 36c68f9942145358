package sandbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tellme/internal/core"
	"tellme/internal/tokens"
)

func seededStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	require.NoError(t, Seed(s))
	return s
}

func TestStore_RegisterAndAuthenticate(t *testing.T) {
	s := NewStore()

	u, err := s.Register("ana", "Ana@Example.com", "98765", "secret")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)

	_, err = s.Register("ana2", "ana@example.com", "", "other")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = s.Register("x", "", "", "pw")
	assert.ErrorIs(t, err, ErrMissingRegistration)

	got, err := s.Authenticate("ana@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Authenticate("ana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Authenticate("nobody@example.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestStore_UpdateProfile(t *testing.T) {
	s := NewStore()
	u, err := s.Register("ana", "ana@example.com", "", "secret")
	require.NoError(t, err)

	city := "Pune"
	updated, err := s.UpdateProfile(u.ID, ProfileUpdate{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Pune", updated.City)
	assert.Equal(t, "ana", updated.Username)

	_, err = s.UpdateProfile(999, ProfileUpdate{})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStore_SlotsAndBooking(t *testing.T) {
	s := seededStore(t)
	views := s.OfferingsBySlug("car-wash")
	require.Len(t, views, 2)

	o := views[0].Offering
	slots, err := s.Slots(o.ProviderID, o.ID, "2025-03-10")
	require.NoError(t, err)
	require.Len(t, slots, len(DayWindows()))
	assert.Equal(t, Window{Start: "09:00:00", End: "10:00:00"}, slots[0])

	_, err = s.Slots(o.ProviderID+100, o.ID, "2025-03-10")
	assert.ErrorIs(t, err, ErrProviderMismatch)
	_, err = s.Slots(o.ProviderID, o.ID, "tomorrow")
	assert.ErrorIs(t, err, core.ErrInvalidDate)

	in := BookingInput{ServiceID: o.ID, Date: "2025-03-10", StartTime: "09:00:00", EndTime: "10:00:00"}
	b, err := s.Book(1, in)
	require.NoError(t, err)
	assert.Equal(t, o.ProviderID, b.ProviderID)
	assert.Equal(t, "pending", b.Status)

	_, err = s.Book(1, in)
	assert.ErrorIs(t, err, ErrSlotTaken)

	slots, err = s.Slots(o.ProviderID, o.ID, "2025-03-10")
	require.NoError(t, err)
	assert.Len(t, slots, len(DayWindows())-1)

	other := in
	other.StartTime, other.EndTime = "13:00:00", "14:00:00"
	_, err = s.Book(1, other)
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	wrongProvider := in
	wrongProvider.Date = "2025-03-11"
	wrongProvider.ProviderID = o.ProviderID + 100
	_, err = s.Book(1, wrongProvider)
	assert.ErrorIs(t, err, ErrProviderMismatch)

	assert.Len(t, s.Bookings(1), 1)
	assert.Empty(t, s.Bookings(2))
}

func TestStore_ToggleSaved(t *testing.T) {
	s := seededStore(t)
	o := s.OfferingsBySlug("plumbing")[0].Offering

	saved, err := s.ToggleSaved(1, o.ID)
	require.NoError(t, err)
	assert.True(t, saved)
	require.Len(t, s.Saved(1), 1)

	saved, err = s.ToggleSaved(1, o.ID)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Empty(t, s.Saved(1))

	_, err = s.ToggleSaved(1, 9999)
	assert.ErrorIs(t, err, ErrOfferingNotFound)
}

func TestStore_Orders(t *testing.T) {
	s := NewStore()
	order := s.CreateOrder(Order{UserID: 1, Type: "home", OwnerName: "Ana"})
	assert.Equal(t, "pending_payment", order.Status)
	assert.Equal(t, BarcodePrice, order.Amount)

	_, err := s.StartPayment(2, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	started, err := s.StartPayment(1, order.ID)
	require.NoError(t, err)
	assert.Regexp(t, `^order_`, started.GatewayOrderID)

	again, err := s.StartPayment(1, order.ID)
	require.NoError(t, err)
	assert.Equal(t, started.GatewayOrderID, again.GatewayOrderID)

	_, err = s.CompletePayment(1, order.ID, "order_other", "pay_1")
	assert.ErrorIs(t, err, ErrPaymentMismatch)

	paid, err := s.CompletePayment(1, order.ID, started.GatewayOrderID, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, "paid", paid.Status)
}

func TestIssuer(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	issuer := NewIssuer(IssuerConfig{Secret: "s3cret", AccessTTL: time.Minute, RefreshTTL: time.Hour, Now: clock})

	creds, err := issuer.Issue(42)
	require.NoError(t, err)

	userID, err := issuer.Verify(creds.AccessToken, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)

	_, err = issuer.Verify(creds.RefreshToken, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	info, err := tokens.Inspect(creds.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "42", info.UserID)
	assert.False(t, info.Expired(now))

	now = now.Add(2 * time.Minute)
	_, err = issuer.Verify(creds.AccessToken, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	fresh, err := issuer.Refresh(creds.RefreshToken)
	require.NoError(t, err)
	_, err = issuer.Verify(fresh, TokenTypeAccess)
	assert.NoError(t, err)

	other := NewIssuer(IssuerConfig{Secret: "different", Now: clock})
	_, err = other.Verify(fresh, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
