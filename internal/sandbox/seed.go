package sandbox

import (
	"fmt"
)

// DemoEmail and DemoPassword sign in to the seeded account
const (
	DemoEmail    = "demo@tellme.local"
	DemoPassword = "demo1234"
)

// DayWindows are hourly windows from 9 AM to 6 PM with a 1 PM break
func DayWindows() []Window {
	var out []Window
	for h := 9; h < 18; h++ {
		if h == 13 {
			continue
		}
		out = append(out, Window{
			Start: fmt.Sprintf("%02d:00:00", h),
			End:   fmt.Sprintf("%02d:00:00", h+1),
		})
	}
	return out
}

type seedService struct {
	slug, title, price string
}

// Seed fills the store with a demo account and a few providers per service
func Seed(s *Store) error {
	if _, err := s.Register("demo", DemoEmail, "9000000000", DemoPassword); err != nil {
		return fmt.Errorf("failed to seed demo user: %w", err)
	}

	providers := []Provider{
		{Name: "Shine Auto Care", Logo: "/media/providers/shine.png", Address: "MG Road, Pune"},
		{Name: "FixIt Home Services", Logo: "/media/providers/fixit.png", Address: "Baner, Pune"},
		{Name: "CarePlus Clinic", Logo: "/media/providers/careplus.png", Address: "Kothrud, Pune"},
	}
	services := map[int][]seedService{
		0: {{"car-wash", "Foam Car Wash", "499.00"}, {"bike-wash", "Bike Wash", "199.00"}},
		1: {{"plumbing", "Leak Repair", "349.00"}, {"cleaning", "Deep Home Cleaning", "1499.00"}, {"car-wash", "Doorstep Car Wash", "599.00"}},
		2: {{"healthcare", "General Consultation", "300.00"}},
	}

	for i, p := range providers {
		id := s.AddProvider(p)
		for _, svc := range services[i] {
			if _, err := s.AddOffering(Offering{
				Slug:       svc.slug,
				Title:      svc.title,
				Price:      svc.price,
				ProviderID: id,
				Windows:    DayWindows(),
			}); err != nil {
				return fmt.Errorf("failed to seed %s: %w", svc.slug, err)
			}
		}
	}

	for _, c := range SeedCategories() {
		s.AddCategory(c)
	}
	return nil
}

// SeedCategories are the directory categories vendors can list under
func SeedCategories() []Category {
	return []Category{
		{Name: "Car Wash", Slug: "car-wash"},
		{Name: "Bike Wash", Slug: "bike-wash"},
		{Name: "Plumbing", Slug: "plumbing"},
		{Name: "Home Cleaning", Slug: "cleaning"},
		{Name: "Healthcare", Slug: "healthcare"},
	}
}
