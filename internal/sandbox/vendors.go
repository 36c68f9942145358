package sandbox

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tellme/internal/idgen"
	"tellme/internal/timefmt"
)

// Category groups providers in the vendor directory. Its slug is the
// service slug customers browse by.
type Category struct {
	ID   int64
	Name string
	Slug string
}

// ProviderInput is a vendor's provider profile as received
type ProviderInput struct {
	CategoryID   int64
	Name         string
	Logo         string
	Address      string
	Lat          string
	Lng          string
	OpenTime     string
	CloseTime    string
	SlotInterval int
	OpenDays     []string
	Charges      string
	Description  string
}

// AddCategory registers a category and returns its id
func (s *Store) AddCategory(c Category) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = s.id()
	s.categories[c.ID] = &c
	return c.ID
}

// Categories returns every category ordered by id
func (s *Store) Categories() []Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RequestPasswordReset issues a reset token for a registered email. The
// sandbox sends no mail; the token is kept for inspection.
func (s *Store) RequestPasswordReset(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.emails[email]; !ok {
		return "", ErrUserNotFound
	}
	token := idgen.New()
	s.resets[email] = token
	return token, nil
}

// ResetToken returns the last reset token issued for email
func (s *Store) ResetToken(email string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.resets[strings.ToLower(strings.TrimSpace(email))]
	return token, ok
}

// CreateProvider stores the provider profile of a vendor account. When the
// profile names a category, the provider also gets an offering under that
// category's slug with windows cut from its opening hours.
func (s *Store) CreateProvider(userID int64, in ProviderInput) (*Provider, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidProvider)
	}
	days, err := timefmt.ParseDays(in.OpenDays)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProvider, err)
	}
	ranges, err := timefmt.Windows(in.OpenTime, in.CloseTime, in.SlotInterval)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProvider, err)
	}
	windows := make([]Window, len(ranges))
	for i, r := range ranges {
		windows[i] = Window{Start: r.Start, End: r.End}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	if !u.IsProvider {
		return nil, ErrNotProvider
	}
	for _, p := range s.providers {
		if p.OwnerID == userID {
			return nil, ErrProviderExists
		}
	}

	var category *Category
	if in.CategoryID != 0 {
		if category, ok = s.categories[in.CategoryID]; !ok {
			return nil, ErrCategoryNotFound
		}
	}

	p := &Provider{
		ID:           s.id(),
		Name:         strings.TrimSpace(in.Name),
		Logo:         in.Logo,
		Address:      in.Address,
		OwnerID:      userID,
		CategoryID:   in.CategoryID,
		Lat:          in.Lat,
		Lng:          in.Lng,
		OpenTime:     ranges[0].Start,
		CloseTime:    ranges[len(ranges)-1].End,
		SlotInterval: in.SlotInterval,
		OpenDays:     days,
		Charges:      in.Charges,
		Description:  in.Description,
	}
	s.providers[p.ID] = p

	if category != nil {
		o := &Offering{
			ID:         s.id(),
			Slug:       category.Slug,
			Title:      category.Name,
			Price:      in.Charges,
			ProviderID: p.ID,
			Windows:    windows,
			Days:       append([]time.Weekday(nil), days...),
		}
		s.offerings[o.ID] = o
	}

	out := *p
	out.OpenDays = append([]time.Weekday(nil), p.OpenDays...)
	return &out, nil
}
