package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-predify/components/dashboard"
	"github.com/goliatone/go-predify/pkg/backend"
	"github.com/goliatone/go-predify/pkg/config"
)

var errNoAccessToken = errors.New("predify: an access token is required (--access-token or PREDIFY_ACCESS_TOKEN)")

// backendFlags select the backend the one-shot commands talk to.
type backendFlags struct {
	AccessToken string `name:"access-token" env:"PREDIFY_ACCESS_TOKEN" help:"Access token issued by login."`
	Demo        bool   `help:"Use the built-in fixtures instead of the analytics backend."`
	Format      string `short:"f" enum:"json,yaml" default:"json" help:"Output format (json or yaml)."`
}

// staticToken serves one access token for every request.
type staticToken string

func (t staticToken) AccessToken(context.Context) (string, error) {
	if t == "" {
		return "", errNoAccessToken
	}
	return string(t), nil
}

func (staticToken) Invalidate(context.Context) error { return nil }

func (f backendFlags) client(root *cli) (backend.Client, error) {
	if f.Demo {
		return backend.NewMockClient(backend.DemoData(time.Now())), nil
	}
	cfg, err := config.Load(root.Config, root.EnvFile...)
	if err != nil {
		return nil, err
	}
	return backend.NewHTTPClient(backend.HTTPConfig{
		BaseURL: cfg.Backend.BaseURL,
		Tokens:  staticToken(strings.TrimSpace(f.AccessToken)),
		Timeout: cfg.Backend.Timeout,
	})
}

func (f backendFlags) print(out io.Writer, v any) error {
	if f.Format == "yaml" {
		// Round-trip through JSON so YAML keys follow the API field names.
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(doc)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type loginCmd struct {
	backendFlags
	SellerToken string `name:"seller-token" required:"" env:"PREDIFY_SELLER_TOKEN" help:"Seller token issued by the marketplace."`
}

func (cmd *loginCmd) Run(ctx context.Context, root *cli) error {
	client, err := cmd.client(root)
	if err != nil {
		return err
	}
	result, err := client.Login(ctx, cmd.SellerToken)
	if err != nil {
		return fmt.Errorf("login: %s", backend.ErrorMessage(err))
	}
	return cmd.print(os.Stdout, result)
}

type insightsCmd struct {
	backendFlags
	SKU string `name:"sku" help:"Product id (defaults to the first product)."`
}

func (cmd *insightsCmd) Run(ctx context.Context, root *cli) error {
	client, err := cmd.client(root)
	if err != nil {
		return err
	}
	sku := strings.TrimSpace(cmd.SKU)
	if sku == "" {
		products, err := client.Products(ctx)
		if err != nil {
			return fmt.Errorf("products: %s", backend.ErrorMessage(err))
		}
		if sku = dashboard.DefaultSKU(products); sku == "" {
			return errors.New("insights: the seller has no products")
		}
	}
	set, err := dashboard.LoadInsightSet(ctx, client, sku)
	if err != nil {
		return fmt.Errorf("insights %s: %s", sku, backend.ErrorMessage(err))
	}
	return cmd.print(os.Stdout, set)
}

type settingsCmd struct {
	Show settingsShowCmd `cmd:"" default:"1" help:"Print the current settings."`
	Set  settingsSetCmd  `cmd:"" help:"Update one or more settings."`
}

type settingsShowCmd struct {
	backendFlags
}

func (cmd *settingsShowCmd) Run(ctx context.Context, root *cli) error {
	client, err := cmd.client(root)
	if err != nil {
		return err
	}
	settings, err := client.Settings(ctx)
	if err != nil {
		return fmt.Errorf("settings: %s", backend.ErrorMessage(err))
	}
	return cmd.print(os.Stdout, settings)
}

type settingsSetCmd struct {
	backendFlags
	ExtraCostPct       *float64 `name:"extra-cost-pct" help:"Extra cost percentage added to every sale."`
	SlowMoverMinSpeed  *float64 `name:"slow-mover-min-speed" help:"Weekly sales below which a product is a slow mover."`
	SlowMoverMinMargin *float64 `name:"slow-mover-min-margin" help:"Margin percentage below which a product is a slow mover."`
	LeadTimeDays       *float64 `name:"lead-time-days" help:"Supplier lead time in days."`
}

func (cmd *settingsSetCmd) Run(ctx context.Context, root *cli) error {
	patch := dashboard.SettingsPatch{
		ExtraCostPct:       cmd.ExtraCostPct,
		SlowMoverMinSpeed:  cmd.SlowMoverMinSpeed,
		SlowMoverMinMargin: cmd.SlowMoverMinMargin,
		LeadTimeDays:       cmd.LeadTimeDays,
	}
	if patch.Empty() {
		return errors.New("settings: nothing to update")
	}
	client, err := cmd.client(root)
	if err != nil {
		return err
	}
	validator := dashboard.NewJSONSchemaValidator()
	if err := validator.Validate(dashboard.SettingsDefinition(), patchPayload(patch)); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	saved, err := client.UpdateSettings(ctx, patch)
	if err != nil {
		return fmt.Errorf("settings: %s", backend.ErrorMessage(err))
	}
	fmt.Fprintf(os.Stderr, "saved: extra cost %s%%, lead time %s days\n",
		humanize.Ftoa(saved.ExtraCostPct), humanize.Ftoa(saved.LeadTimeDays))
	return cmd.print(os.Stdout, saved)
}

func patchPayload(patch dashboard.SettingsPatch) map[string]any {
	payload := map[string]any{}
	if patch.ExtraCostPct != nil {
		payload["extra_cost_pct"] = *patch.ExtraCostPct
	}
	if patch.SlowMoverMinSpeed != nil {
		payload["slow_mover_min_speed"] = *patch.SlowMoverMinSpeed
	}
	if patch.SlowMoverMinMargin != nil {
		payload["slow_mover_min_margin"] = *patch.SlowMoverMinMargin
	}
	if patch.LeadTimeDays != nil {
		payload["lead_time_days"] = *patch.LeadTimeDays
	}
	return payload
}
