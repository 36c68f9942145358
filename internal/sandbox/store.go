// Package sandbox is an in-memory stand-in for the storefront backend, used
// for local development and end-to-end tests of the client.
package sandbox

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tellme/internal/core"
	"tellme/internal/idgen"
)

var (
	ErrEmailTaken          = errors.New("a user with this email already exists")
	ErrInvalidCredentials  = errors.New("no active account found with the given credentials")
	ErrUserNotFound        = errors.New("user not found")
	ErrOfferingNotFound    = errors.New("service not found")
	ErrProviderMismatch    = errors.New("provider does not offer this service")
	ErrSlotUnavailable     = errors.New("selected slot is not available")
	ErrSlotTaken           = errors.New("slot already booked")
	ErrOrderNotFound       = errors.New("order not found")
	ErrPaymentMismatch     = errors.New("payment does not match the order")
	ErrMissingRegistration = errors.New("email and password are required")
	ErrNotProvider         = errors.New("account is not a provider")
	ErrProviderExists      = errors.New("provider profile already exists")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrInvalidProvider     = errors.New("invalid provider profile")
)

// BarcodePrice is the barcode fee in the smallest currency unit
const BarcodePrice int64 = 20000

type User struct {
	ID       int64
	Username string
	Email    string
	Mobile   string
	Phone    string
	City     string
	State    string
	Pincode  string

	// IsProvider marks vendor accounts, which may create a provider profile
	IsProvider bool

	passwordHash []byte
}

type Provider struct {
	ID      int64
	Name    string
	Logo    string
	Address string

	// Set for providers created through vendor onboarding
	OwnerID      int64
	CategoryID   int64
	Lat          string
	Lng          string
	OpenTime     string
	CloseTime    string
	SlotInterval int
	OpenDays     []time.Weekday
	Charges      string
	Description  string
}

// Offering is one provider's listing of a service
type Offering struct {
	ID         int64
	Slug       string
	Title      string
	Price      string
	ProviderID int64
	Windows    []Window

	// Days limits the offering to these weekdays; empty means every day
	Days []time.Weekday
}

// Window is a bookable "HH:MM:SS" range offered every day
type Window struct {
	Start string
	End   string
}

type Booking struct {
	ID         int64
	UserID     int64
	ServiceID  int64
	ProviderID int64
	Date       string
	StartTime  string
	EndTime    string
	Notes      string
	Status     string
	CreatedAt  time.Time
}

// BookingInput is a booking as received, before validation
type BookingInput struct {
	ServiceID  int64
	ProviderID int64
	Date       string
	StartTime  string
	EndTime    string
	Notes      string
}

type Order struct {
	ID             int64
	UserID         int64
	Type           string
	Company        string
	Model          string
	OwnerName      string
	Price          string
	Notifications  string
	Details        map[string]string
	HasImage       bool
	Status         string
	GatewayOrderID string
	PaymentID      string
	Amount         int64
}

// ProfileUpdate holds the fields a PUT /accounts/profile/ may change
type ProfileUpdate struct {
	Username *string
	Phone    *string
	City     *string
	State    *string
	Pincode  *string
}

// Store is the sandbox's whole world, guarded by one mutex
type Store struct {
	mu         sync.RWMutex
	nextID     int64
	users      map[int64]*User
	emails     map[string]int64
	providers  map[int64]*Provider
	offerings  map[int64]*Offering
	bookings   []*Booking
	saved      map[int64]map[int64]bool
	orders     map[int64]*Order
	categories map[int64]*Category
	resets     map[string]string
	now        func() time.Time
}

func NewStore() *Store {
	return &Store{
		nextID:     1,
		users:      make(map[int64]*User),
		emails:     make(map[string]int64),
		providers:  make(map[int64]*Provider),
		offerings:  make(map[int64]*Offering),
		saved:      make(map[int64]map[int64]bool),
		orders:     make(map[int64]*Order),
		categories: make(map[int64]*Category),
		resets:     make(map[string]string),
		now:        time.Now,
	}
}

func (s *Store) id() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// Registration is a sign-up form as received
type Registration struct {
	Username   string
	Email      string
	Mobile     string
	Password   string
	Phone      string
	City       string
	State      string
	Pincode    string
	IsProvider bool
}

// Register creates a customer with a bcrypt-hashed password
func (s *Store) Register(username, email, mobile, password string) (*User, error) {
	return s.RegisterAccount(Registration{Username: username, Email: email, Mobile: mobile, Password: password})
}

// RegisterAccount creates a customer or vendor account
func (s *Store) RegisterAccount(r Registration) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(r.Email))
	if email == "" || r.Password == "" {
		return nil, ErrMissingRegistration
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.emails[email]; exists {
		return nil, ErrEmailTaken
	}
	phone := r.Phone
	if phone == "" {
		phone = r.Mobile
	}
	u := &User{
		ID:           s.id(),
		Username:     r.Username,
		Email:        email,
		Mobile:       r.Mobile,
		Phone:        phone,
		City:         r.City,
		State:        r.State,
		Pincode:      r.Pincode,
		IsProvider:   r.IsProvider,
		passwordHash: hash,
	}
	s.users[u.ID] = u
	s.emails[email] = u.ID
	return copyUser(u), nil
}

// Authenticate checks an email and password
func (s *Store) Authenticate(email, password string) (*User, error) {
	s.mu.RLock()
	id, ok := s.emails[strings.ToLower(strings.TrimSpace(email))]
	var u *User
	if ok {
		u = s.users[id]
	}
	s.mu.RUnlock()

	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return copyUser(u), nil
}

func (s *Store) User(id int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyUser(u), nil
}

// UpdateProfile applies the non-nil fields of upd
func (s *Store) UpdateProfile(id int64, upd ProfileUpdate) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&u.Username, upd.Username)
	set(&u.Phone, upd.Phone)
	set(&u.City, upd.City)
	set(&u.State, upd.State)
	set(&u.Pincode, upd.Pincode)
	return copyUser(u), nil
}

// AddProvider registers a provider and returns its id
func (s *Store) AddProvider(p Provider) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.id()
	s.providers[p.ID] = &p
	return p.ID
}

// AddOffering registers an offering and returns its id
func (s *Store) AddOffering(o Offering) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.providers[o.ProviderID]; !ok {
		return 0, fmt.Errorf("provider %d: %w", o.ProviderID, ErrProviderMismatch)
	}
	o.ID = s.id()
	o.Windows = append([]Window(nil), o.Windows...)
	o.Days = append([]time.Weekday(nil), o.Days...)
	s.offerings[o.ID] = &o
	return o.ID, nil
}

// OfferingsBySlug returns every offering of a service with its provider
func (s *Store) OfferingsBySlug(slug string) []OfferingView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []OfferingView
	for _, o := range s.offerings {
		if o.Slug != slug {
			continue
		}
		out = append(out, OfferingView{Offering: *o, Provider: *s.providers[o.ProviderID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Offering.ID < out[j].Offering.ID })
	return out
}

// OfferingView joins an offering with its provider
type OfferingView struct {
	Offering Offering
	Provider Provider
}

// Slots returns the open windows of an offering on date
func (s *Store) Slots(providerID, serviceID int64, date string) ([]Window, error) {
	day, err := core.ParseDate(date)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.offerings[serviceID]
	if !ok {
		return nil, ErrOfferingNotFound
	}
	if o.ProviderID != providerID {
		return nil, ErrProviderMismatch
	}

	open := make([]Window, 0, len(o.Windows))
	if !o.openOn(day.Weekday()) {
		return open, nil
	}
	for _, w := range o.Windows {
		if !s.bookedLocked(serviceID, date, w.Start) {
			open = append(open, w)
		}
	}
	return open, nil
}

// Book reserves a window. A zero ProviderID means "the offering's provider".
func (s *Store) Book(userID int64, in BookingInput) (*Booking, error) {
	day, err := core.ParseDate(in.Date)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.offerings[in.ServiceID]
	if !ok {
		return nil, ErrOfferingNotFound
	}
	if in.ProviderID != 0 && in.ProviderID != o.ProviderID {
		return nil, ErrProviderMismatch
	}

	var window *Window
	for i := range o.Windows {
		if o.Windows[i].Start == in.StartTime && o.Windows[i].End == in.EndTime {
			window = &o.Windows[i]
			break
		}
	}
	if window == nil || !o.openOn(day.Weekday()) {
		return nil, ErrSlotUnavailable
	}
	if s.bookedLocked(in.ServiceID, in.Date, in.StartTime) {
		return nil, ErrSlotTaken
	}

	b := &Booking{
		ID:         s.id(),
		UserID:     userID,
		ServiceID:  in.ServiceID,
		ProviderID: o.ProviderID,
		Date:       in.Date,
		StartTime:  in.StartTime,
		EndTime:    in.EndTime,
		Notes:      in.Notes,
		Status:     "pending",
		CreatedAt:  s.now(),
	}
	s.bookings = append(s.bookings, b)
	out := *b
	return &out, nil
}

func (o *Offering) openOn(day time.Weekday) bool {
	if len(o.Days) == 0 {
		return true
	}
	for _, d := range o.Days {
		if d == day {
			return true
		}
	}
	return false
}

func (s *Store) bookedLocked(serviceID int64, date, start string) bool {
	for _, b := range s.bookings {
		if b.ServiceID == serviceID && b.Date == date && b.StartTime == start {
			return true
		}
	}
	return false
}

// Bookings returns a user's bookings, oldest first
func (s *Store) Bookings(userID int64) []Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Booking
	for _, b := range s.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out
}

// CompletePast marks pending bookings whose window ended before now as
// completed and returns how many changed
func (s *Store) CompletePast(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, b := range s.bookings {
		if b.Status != "pending" {
			continue
		}
		end, err := time.ParseInLocation(core.DateLayout+" 15:04:05", b.Date+" "+b.EndTime, now.Location())
		if err != nil || end.After(now) {
			continue
		}
		b.Status = "completed"
		changed++
	}
	return changed
}

// ToggleSaved flips a saved service and returns the new flag
func (s *Store) ToggleSaved(userID, serviceID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.offerings[serviceID]; !ok {
		return false, ErrOfferingNotFound
	}
	set, ok := s.saved[userID]
	if !ok {
		set = make(map[int64]bool)
		s.saved[userID] = set
	}
	if set[serviceID] {
		delete(set, serviceID)
		return false, nil
	}
	set[serviceID] = true
	return true, nil
}

// Saved returns a user's saved offerings ordered by id
func (s *Store) Saved(userID int64) []OfferingView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []OfferingView
	for id := range s.saved[userID] {
		o, ok := s.offerings[id]
		if !ok {
			continue
		}
		out = append(out, OfferingView{Offering: *o, Provider: *s.providers[o.ProviderID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Offering.ID < out[j].Offering.ID })
	return out
}

// CreateOrder stores a barcode order awaiting payment
func (s *Store) CreateOrder(o Order) *Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	o.ID = s.id()
	o.Status = "pending_payment"
	o.Amount = BarcodePrice
	s.orders[o.ID] = &o
	out := o
	return &out
}

// StartPayment assigns a gateway order id to a user's order
func (s *Store) StartPayment(userID, orderID int64) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, ErrOrderNotFound
	}
	if o.GatewayOrderID == "" {
		o.GatewayOrderID = idgen.NewGatewayOrder()
	}
	out := *o
	return &out, nil
}

// CompletePayment marks an order paid once its callback has been verified
func (s *Store) CompletePayment(userID, orderID int64, gatewayOrderID, paymentID string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, ErrOrderNotFound
	}
	if o.GatewayOrderID == "" || o.GatewayOrderID != gatewayOrderID {
		return nil, ErrPaymentMismatch
	}
	o.PaymentID = paymentID
	o.Status = "paid"
	out := *o
	return &out, nil
}

func copyUser(u *User) *User {
	c := *u
	return &c
}
