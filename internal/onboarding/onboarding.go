// Package onboarding lists a vendor's provider profile: it fetches the
// directory categories and submits the profile form with logo and hours.
package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"tellme/internal/apiclient"
	"tellme/internal/core"
	"tellme/internal/timefmt"
)

const (
	categoriesPath     = "/categories/"
	createProviderPath = "/providers/create/"
)

// Defaults the profile form starts from
const (
	DefaultOpenTime     = "09:00"
	DefaultCloseTime    = "18:00"
	DefaultSlotInterval = 30
)

var (
	ErrInvalidProfile    = errors.New("invalid provider profile")
	ErrMissingProviderID = errors.New("provider creation returned no id")
)

// Doer performs a backend request; *apiclient.Client satisfies it
type Doer interface {
	Do(ctx context.Context, req apiclient.Request) (*apiclient.Response, error)
}

// Category is a directory category a provider lists under
type Category struct {
	ID   core.ID `json:"id"`
	Name string  `json:"name"`
	Slug string  `json:"slug"`
}

// Logo is the provider's uploaded logo
type Logo struct {
	Filename string
	Data     []byte
}

// ProfileForm is the provider profile a vendor fills in after registering
type ProfileForm struct {
	CategoryID   core.ID
	Name         string
	Address      string
	Lat          string
	Lng          string
	OpenTime     string
	CloseTime    string
	SlotInterval int // minutes
	OpenDays     []string
	Charges      string
	Description  string
	Logo         *Logo
}

// NewProfileForm returns a form with the usual opening hours filled in
func NewProfileForm() ProfileForm {
	return ProfileForm{
		OpenTime:     DefaultOpenTime,
		CloseTime:    DefaultCloseTime,
		SlotInterval: DefaultSlotInterval,
	}
}

// Validate checks the form the way the backend will, so a bad profile fails
// before upload
func (f ProfileForm) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if _, err := timefmt.ParseDays(f.OpenDays); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if _, err := timefmt.Windows(f.OpenTime, f.CloseTime, f.SlotInterval); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	return nil
}

func (f ProfileForm) multipart() (*apiclient.Multipart, error) {
	days := f.OpenDays
	if days == nil {
		days = []string{}
	}
	openDays, err := json.Marshal(days)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal open days: %w", err)
	}

	form := &apiclient.Multipart{}
	if f.CategoryID != "" {
		form.Add("category_id", f.CategoryID.String())
	}
	form.Add("name", strings.TrimSpace(f.Name))
	if f.Logo != nil {
		form.AddFile("logo", f.Logo.Filename, f.Logo.Data)
	}
	form.Add("address", f.Address)
	form.Add("lat", f.Lat)
	form.Add("lng", f.Lng)
	form.Add("open_time", f.OpenTime)
	form.Add("close_time", f.CloseTime)
	form.Add("slot_interval", strconv.Itoa(f.SlotInterval))
	form.Add("open_days", string(openDays))
	if f.Charges != "" {
		form.Add("charges", f.Charges)
	}
	form.Add("description", f.Description)
	return form, nil
}

// Provider is the created provider profile
type Provider struct {
	ID           core.ID  `json:"id"`
	CategoryID   core.ID  `json:"category_id"`
	Name         string   `json:"name"`
	Logo         string   `json:"logo"`
	Address      string   `json:"address"`
	OpenTime     string   `json:"open_time"`
	CloseTime    string   `json:"close_time"`
	SlotInterval int      `json:"slot_interval"`
	OpenDays     []string `json:"open_days"`
	Charges      string   `json:"charges"`
}

// Client talks to the vendor onboarding endpoints
type Client struct {
	api    Doer
	logger *slog.Logger
}

func NewClient(api Doer, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{api: api, logger: logger.With("component", "onboarding")}
}

// Categories lists the directory categories. The listing is public.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	resp, err := c.api.Do(ctx, apiclient.Request{
		Method: http.MethodGet,
		Path:   categoriesPath,
		Auth:   apiclient.AuthNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	var cats []Category
	if err := json.Unmarshal(resp.Body, &cats); err != nil {
		var page struct {
			Results []Category `json:"results"`
		}
		if err := json.Unmarshal(resp.Body, &page); err != nil {
			return nil, fmt.Errorf("failed to decode categories: %w", err)
		}
		cats = page.Results
	}

	out := cats[:0]
	for _, cat := range cats {
		if cat.ID != "" {
			out = append(out, cat)
		}
	}
	return out, nil
}

// CategoryBySlug finds a category by slug or case-insensitive name
func CategoryBySlug(cats []Category, key string) (Category, bool) {
	for _, cat := range cats {
		if cat.Slug == key || strings.EqualFold(cat.Name, key) {
			return cat, true
		}
	}
	return Category{}, false
}

// CreateProvider uploads the signed-in vendor's profile as multipart
func (c *Client) CreateProvider(ctx context.Context, form ProfileForm) (*Provider, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	body, err := form.multipart()
	if err != nil {
		return nil, err
	}

	resp, err := c.api.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   createProviderPath,
		Form:   body,
		Auth:   apiclient.AuthRequired,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	var provider Provider
	if err := resp.Decode(&provider); err != nil {
		return nil, fmt.Errorf("failed to decode provider: %w", err)
	}
	if provider.ID == "" {
		return nil, fmt.Errorf("failed to create provider: %w", ErrMissingProviderID)
	}

	c.logger.Info("provider created", "provider_id", provider.ID, "category_id", form.CategoryID)
	return &provider, nil
}
