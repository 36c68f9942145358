package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tellme/internal/apiclient"
	"tellme/internal/core"
	"tellme/internal/payments"
	"tellme/internal/tokens"
)

var errUnknownCommand = errors.New("unknown command")

func (a *app) dispatch(ctx context.Context, name string, args []string) error {
	commands := map[string]func(context.Context, []string) error{
		"register":  a.register,
		"login":     a.login,
		"logout":    a.logout,
		"whoami":    a.whoami,
		"providers": a.providers,
		"slots":     a.listSlots,
		"book":      a.book,
		"bookings":  a.listBookings,
		"saved":     a.saved,
		"save":      a.save,
		"profile":   a.profile,
		"barcode":   a.barcode,
		"vendor":    a.vendor,
	}
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownCommand, name)
	}
	return cmd(ctx, args)
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	username := fs.String("username", "", "Display name")
	email := fs.String("email", "", "Email address (required)")
	mobile := fs.String("mobile", "", "Mobile number")
	password := fs.String("password", "", "Password (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := a.client.Register(ctx, apiclient.RegisterRequest{
		Username: *username,
		Email:    *email,
		Mobile:   *mobile,
		Password: *password,
	}); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered and signed in as %s\n", *email)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "Email address (required)")
	password := fs.String("password", "", "Password (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := a.client.Login(ctx, *email, *password); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s\n", *email)
	return nil
}

func (a *app) logout(ctx context.Context, args []string) error {
	a.client.Logout(ctx)
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *app) whoami(ctx context.Context, args []string) error {
	creds := a.tokens.Get(ctx)
	if !creds.HasAccess() {
		return core.ErrNotAuthenticated
	}

	info, err := tokens.Inspect(creds.AccessToken)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "user_id: %s\n", info.UserID)
	if info.ExpiresAt != nil {
		state := "valid"
		if info.Expired(time.Now()) {
			state = "expired, refreshed on next request"
		}
		fmt.Fprintf(a.out, "access expires: %s (%s)\n", info.ExpiresAt.Local().Format(time.RFC1123), state)
	}
	fmt.Fprintf(a.out, "refresh token: %t\n", creds.HasRefresh())
	return nil
}

func (a *app) providers(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("providers", flag.ContinueOnError)
	slug := fs.String("slug", "", "Service slug, e.g. car-wash (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	offerings, err := a.catalog.ProvidersByService(ctx, *slug)
	if err != nil {
		return err
	}
	if len(offerings) == 0 {
		fmt.Fprintln(a.out, "No providers offer this service")
		return nil
	}
	for _, o := range offerings {
		fmt.Fprintf(a.out, "service %s  provider %s  %s by %s  ₹%s\n", o.ID, o.ProviderID, o.Title, o.ProviderName, o.Price)
		if o.Address != "" {
			fmt.Fprintf(a.out, "    %s\n", o.Address)
		}
	}
	return nil
}

// offeringFlags registers the flags that identify one provider's offering
func offeringFlags(fs *flag.FlagSet) (provider, service, date *string) {
	provider = fs.String("provider", "", "Provider id (required)")
	service = fs.String("service", "", "Service id (required)")
	date = fs.String("date", time.Now().Format(core.DateLayout), "Date, YYYY-MM-DD")
	return provider, service, date
}

func (a *app) listSlots(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("slots", flag.ContinueOnError)
	provider, service, date := offeringFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := core.ParseDate(*date); err != nil {
		return err
	}

	slots := a.slots.ListSlots(ctx, core.ID(*provider), core.ID(*service), *date)
	if len(slots) == 0 {
		fmt.Fprintln(a.out, "No slots available")
		return nil
	}
	for _, s := range slots {
		fmt.Fprintln(a.out, s.Label)
	}
	return nil
}

func (a *app) book(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("book", flag.ContinueOnError)
	provider, service, date := offeringFlags(fs)
	slot := fs.String("slot", "", "Slot label as listed by 'slots', e.g. \"9:00 AM - 10:00 AM\" (required)")
	notes := fs.String("notes", "", "Notes for the provider")
	if err := fs.Parse(args); err != nil {
		return err
	}

	session, err := a.session(core.ServiceOffering{ID: core.ID(*service), ProviderID: core.ID(*provider)})
	if err != nil {
		return err
	}
	if _, err := session.SelectDate(ctx, *date); err != nil {
		return err
	}
	if err := session.SelectSlotLabel(*slot); err != nil {
		return err
	}

	outcome, err := session.Submit(ctx, *notes)
	if err != nil {
		return err
	}
	if outcome.Failure != nil {
		return errors.New(outcome.Failure.Message())
	}

	fmt.Fprintf(a.out, "Booked %s on %s (booking %s, %s)\n", *slot, *date, outcome.Confirmation.ID, outcome.Confirmation.Status)
	if outcome.Confirmation.ProviderOmitted {
		fmt.Fprintln(a.out, "The backend assigned the provider itself")
	}
	return nil
}

func (a *app) listBookings(ctx context.Context, args []string) error {
	records, err := a.booker.List(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(a.out, "No bookings yet")
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(a.out, "#%s  %s %s-%s  service %s  %s\n", r.ID, r.Date, r.StartTime, r.EndTime, r.ServiceID, r.Status)
	}
	return nil
}

func (a *app) saved(ctx context.Context, args []string) error {
	items, err := a.favorites.List(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No saved services")
		return nil
	}
	for _, item := range items {
		fmt.Fprintf(a.out, "service %s  %s  %s\n", item.ServiceID, item.Name, item.Company)
	}
	return nil
}

func (a *app) save(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("save", flag.ContinueOnError)
	service := fs.String("service", "", "Service id to save or unsave (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Toggle flips the local flag, so start from the server's list
	if err := a.favorites.Load(ctx); err != nil {
		return err
	}
	saved, err := a.toggler.Toggle(ctx, core.ID(*service))
	if err != nil {
		return err
	}
	if saved {
		fmt.Fprintf(a.out, "Saved service %s\n", *service)
	} else {
		fmt.Fprintf(a.out, "Removed service %s from saved\n", *service)
	}
	return nil
}

func (a *app) profile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	username := fs.String("username", "", "New display name")
	phone := fs.String("phone", "", "New phone number")
	city := fs.String("city", "", "New city")
	state := fs.String("state", "", "New state")
	pincode := fs.String("pincode", "", "New pincode")
	if err := fs.Parse(args); err != nil {
		return err
	}

	current, err := a.client.Profile(ctx)
	if err != nil {
		return err
	}

	desired := *current
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&desired.Username, *username)
	set(&desired.Phone, *phone)
	set(&desired.City, *city)
	set(&desired.State, *state)
	set(&desired.Pincode, *pincode)

	updated, err := a.client.UpdateProfile(ctx, *current, desired)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "username: %s\nemail:    %s\nphone:    %s\ncity:     %s\nstate:    %s\npincode:  %s\n",
		updated.Username, updated.Email, updated.Phone, updated.City, updated.State, updated.Pincode)
	return nil
}

func (a *app) barcode(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("barcode", flag.ContinueOnError)
	assetType := fs.String("type", string(payments.AssetOther), "Asset type: home, property, electronic, car, bike, other")
	owner := fs.String("owner", "", "Owner name (required)")
	company := fs.String("company", "", "Manufacturer or company")
	model := fs.String("model", "", "Model")
	phone := fs.String("phone", "", "Contact phone when scanned")
	email := fs.String("email", "", "Contact email when scanned")
	address := fs.String("address", "", "Address (home and property)")
	serial := fs.String("serial", "", "Serial number (electronic and other)")
	image := fs.String("image", "", "Optional photo of the asset")
	if err := fs.Parse(args); err != nil {
		return err
	}

	form := payments.OrderForm{
		Type:      payments.AssetType(*assetType),
		Company:   *company,
		Model:     *model,
		OwnerName: *owner,
		Notifications: payments.Notifications{
			Purpose: "lost and found",
			Phone:   *phone,
			Email:   *email,
		},
	}
	switch form.Type {
	case payments.AssetHome, payments.AssetProperty:
		form.Details = payments.HomeDetails(*address, string(form.Type), "")
	case payments.AssetElectronic, payments.AssetOther:
		form.Details = payments.ElectronicDetails(*serial, "", "")
	}
	if *image != "" {
		data, err := os.ReadFile(*image)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		form.Image = &payments.Image{Filename: filepath.Base(*image), Data: data}
	}

	if a.cfg.Sandbox.GatewaySecret == "" {
		return errors.New("no gateway secret configured; payments can only be simulated against the sandbox")
	}
	receipt, err := a.payments.Pay(ctx, form, payments.SimulatedGateway{Secret: a.cfg.Sandbox.GatewaySecret})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Order %s: %s (paid %d.%02d %s, payment %s)\n",
		receipt.Order.ID,
		receipt.Verification.Status,
		receipt.Checkout.Amount/100, receipt.Checkout.Amount%100,
		receipt.Checkout.Currency,
		receipt.Callback.PaymentID,
	)
	return nil
}
