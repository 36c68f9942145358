package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tellme/internal/apiclient"
	"tellme/internal/onboarding"
)

var errUnknownCategory = errors.New("unknown category")

const vendorUsage = "vendor <register|reset-password|categories|create-profile> [flags]"

// vendor groups the provider onboarding commands
func (a *app) vendor(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: usage: %s", errUnknownCommand, vendorUsage)
	}
	sub := map[string]func(context.Context, []string) error{
		"register":       a.vendorRegister,
		"reset-password": a.vendorResetPassword,
		"categories":     a.vendorCategories,
		"create-profile": a.vendorCreateProfile,
	}
	cmd, ok := sub[args[0]]
	if !ok {
		return fmt.Errorf("%w: vendor %q", errUnknownCommand, args[0])
	}
	return cmd(ctx, args[1:])
}

func (a *app) vendorRegister(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("vendor register", flag.ContinueOnError)
	username := fs.String("username", "", "Business contact name")
	email := fs.String("email", "", "Email address (required)")
	password := fs.String("password", "", "Password (required)")
	phone := fs.String("phone", "", "Phone number")
	city := fs.String("city", "", "City")
	state := fs.String("state", "", "State")
	pincode := fs.String("pincode", "", "Pincode")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := a.client.RegisterVendor(ctx, apiclient.RegisterRequest{
		Username: *username,
		Email:    *email,
		Password: *password,
		Phone:    *phone,
		City:     *city,
		State:    *state,
		Pincode:  *pincode,
	}); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered vendor %s; create your provider profile next\n", *email)
	return nil
}

func (a *app) vendorResetPassword(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("vendor reset-password", flag.ContinueOnError)
	email := fs.String("email", "", "Email address (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.client.PasswordReset(ctx, *email); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Password reset link sent to %s\n", strings.TrimSpace(*email))
	return nil
}

func (a *app) vendorCategories(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("vendor categories", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cats, err := a.onboarding.Categories(ctx)
	if err != nil {
		return err
	}
	if len(cats) == 0 {
		fmt.Fprintln(a.out, "No categories")
		return nil
	}
	for _, c := range cats {
		fmt.Fprintf(a.out, "%s  %-12s %s\n", c.ID, c.Slug, c.Name)
	}
	return nil
}

func (a *app) vendorCreateProfile(ctx context.Context, args []string) error {
	form := onboarding.NewProfileForm()

	fs := flag.NewFlagSet("vendor create-profile", flag.ContinueOnError)
	category := fs.String("category", "", "Category slug or name, see vendor categories")
	fs.StringVar(&form.Name, "name", "", "Business name (required)")
	fs.StringVar(&form.Address, "address", "", "Address")
	fs.StringVar(&form.Lat, "lat", "", "Latitude")
	fs.StringVar(&form.Lng, "lng", "", "Longitude")
	fs.StringVar(&form.OpenTime, "open", form.OpenTime, "Opening time, HH:MM")
	fs.StringVar(&form.CloseTime, "close", form.CloseTime, "Closing time, HH:MM")
	fs.IntVar(&form.SlotInterval, "interval", form.SlotInterval, "Slot length in minutes")
	days := fs.String("days", "", "Open days, comma separated, e.g. Mon,Tue,Wed")
	fs.StringVar(&form.Charges, "charges", "", "Charges per slot")
	fs.StringVar(&form.Description, "description", "", "Description")
	logo := fs.String("logo", "", "Optional logo image")
	if err := fs.Parse(args); err != nil {
		return err
	}

	for _, d := range strings.Split(*days, ",") {
		if d = strings.TrimSpace(d); d != "" {
			form.OpenDays = append(form.OpenDays, d)
		}
	}
	if *category != "" {
		cats, err := a.onboarding.Categories(ctx)
		if err != nil {
			return err
		}
		cat, ok := onboarding.CategoryBySlug(cats, *category)
		if !ok {
			return fmt.Errorf("%w: %q", errUnknownCategory, *category)
		}
		form.CategoryID = cat.ID
	}
	if *logo != "" {
		data, err := os.ReadFile(*logo)
		if err != nil {
			return fmt.Errorf("failed to read logo: %w", err)
		}
		form.Logo = &onboarding.Logo{Filename: filepath.Base(*logo), Data: data}
	}

	provider, err := a.onboarding.CreateProvider(ctx, form)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Provider %s created: %s, open %s-%s every %d minutes\n",
		provider.ID, provider.Name, provider.OpenTime, provider.CloseTime, provider.SlotInterval)
	return nil
}
