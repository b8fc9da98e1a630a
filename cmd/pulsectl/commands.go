package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/brandpulse/internal/apikey"
	"github.com/kiranshivaraju/brandpulse/internal/config"
	"github.com/kiranshivaraju/brandpulse/internal/store"
	"github.com/kiranshivaraju/brandpulse/pkg/models"
)

// --- migrate ---

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := databaseURL(cmd)
		if err != nil {
			return err
		}
		dir, _ := cmd.Flags().GetString("dir")

		if err := store.RunMigrations(url, dir); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "migrations in %s applied\n", dir)
		return nil
	},
}

func init() {
	migrateCmd.Flags().String("dir", envOr("MIGRATIONS_DIR", "migrations"), "migrations directory")
}

// --- brands ---

var brandsCmd = &cobra.Command{
	Use:   "brands",
	Short: "Manage brands",
}

var brandsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a brand",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("--name is required")
		}

		s, closeStore, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		now := time.Now().UTC()
		brand := &models.Brand{ID: uuid.New(), Name: name, CreatedAt: now, UpdatedAt: now}
		if err := s.CreateBrand(cmd.Context(), brand); err != nil {
			return fmt.Errorf("create brand %q: %w", name, err)
		}
		return printJSON(cmd, brand)
	},
}

func init() {
	brandsCreateCmd.Flags().String("name", "", "brand name")
	brandsCmd.AddCommand(brandsCreateCmd)
}

// --- keys ---

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an API key and print it once",
	Long: `Create an API key for a brand. The raw key is printed once and cannot be
recovered later; only its hash is stored.

Examples:
  pulsectl keys create --name bootstrap --scopes admin,read,ingest
  pulsectl keys create --brand 6f1c... --name dashboard --scopes read`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		brandRef, _ := cmd.Flags().GetString("brand")
		scopesStr, _ := cmd.Flags().GetString("scopes")

		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("--name is required")
		}
		scopes := apikey.ParseScopes(scopesStr)
		if err := apikey.ValidateScopes(scopes); err != nil {
			return err
		}

		s, closeStore, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		brand, err := resolveBrand(cmd.Context(), s, brandRef)
		if err != nil {
			return err
		}

		gen, err := apikey.Generate(brand.ID, strings.TrimSpace(name), scopes)
		if err != nil {
			return err
		}
		if err := s.CreateAPIKey(cmd.Context(), gen.Key); err != nil {
			return fmt.Errorf("store api key: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "brand:  %s (%s)\n", brand.Name, brand.ID)
		fmt.Fprintf(out, "key id: %s\n", gen.Key.ID)
		fmt.Fprintf(out, "scopes: %s\n", strings.Join(scopes, ","))
		fmt.Fprintf(out, "key:    %s\n", gen.Raw)
		fmt.Fprintln(cmd.ErrOrStderr(), "Store this key now. It will not be shown again.")
		return nil
	},
}

func init() {
	keysCreateCmd.Flags().String("brand", store.DefaultBrandName, `brand ID, or "default"`)
	keysCreateCmd.Flags().String("name", "", "key name")
	keysCreateCmd.Flags().String("scopes", models.ScopeRead, "comma-separated scopes: ingest, read, admin")
	keysCmd.AddCommand(keysCreateCmd)
}

// resolveBrand accepts a brand ID or the default brand's name.
func resolveBrand(ctx context.Context, s store.Store, ref string) (*models.Brand, error) {
	if ref == "" || ref == store.DefaultBrandName {
		b, err := s.GetDefaultBrand(ctx)
		if err != nil {
			return nil, fmt.Errorf("default brand: %w", err)
		}
		return b, nil
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("--brand must be a brand ID or %q", store.DefaultBrandName)
	}
	b, err := s.GetBrand(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("brand %s: %w", id, err)
	}
	return b, nil
}

// --- helpers ---

func databaseURL(cmd *cobra.Command) (string, error) {
	url, _ := cmd.Flags().GetString("database-url")
	if url == "" {
		return "", fmt.Errorf("--database-url or DATABASE_URL is required")
	}
	return url, nil
}

func openStore(cmd *cobra.Command) (store.Store, func(), error) {
	url, err := databaseURL(cmd)
	if err != nil {
		return nil, nil, err
	}

	pool, err := store.Connect(cmd.Context(), config.DatabaseConfig{
		URL:             url,
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		return nil, nil, err
	}
	return store.NewPostgresStore(pool), pool.Close, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
