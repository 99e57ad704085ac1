// Command cartctl keeps a lab-test cart on the local machine and submits it to the API.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"labcommerce/internal/apiclient"
	cartrepo "labcommerce/internal/repository/cart"
	cartsvc "labcommerce/internal/service/cart"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultCartPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "labcart", "cart.db")
}

func rootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("LAB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "cartctl",
		Short:         "Manage a lab-test cart and check it out",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("api", "http://localhost:8080", "Lab API base URL (LAB_API)")
	root.PersistentFlags().String("token", "", "Bearer token (LAB_TOKEN)")
	root.PersistentFlags().String("cart-db", defaultCartPath(), "Cart database file (LAB_CART_DB)")
	root.PersistentFlags().String("profile", "default", "Cart profile name (LAB_PROFILE)")
	root.PersistentFlags().Bool("verbose", false, "Log cart storage problems")
	_ = v.BindPFlags(root.PersistentFlags())

	env := &cliEnv{v: v}
	root.PersistentPostRunE = func(*cobra.Command, []string) error { return env.close() }
	root.AddCommand(
		catalogCmd(env),
		addCmd(env),
		removeCmd(env),
		setCmd(env),
		showCmd(env),
		clearCmd(env),
		checkoutCmd(env),
	)
	return root
}

// cliEnv resolves settings lazily so flags are parsed before use.
type cliEnv struct {
	v  *viper.Viper
	db *gorm.DB
}

func (e *cliEnv) client() *apiclient.Client {
	return apiclient.New(e.v.GetString("api"), e.v.GetString("token"))
}

func (e *cliEnv) logger() zerolog.Logger {
	lvl := zerolog.ErrorLevel
	if e.v.GetBool("verbose") {
		lvl = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

func (e *cliEnv) session(cmd *cobra.Command) (*cartsvc.Session, error) {
	db, err := cartrepo.Open(e.v.GetString("cart-db"))
	if err != nil {
		return nil, err
	}
	e.db = db
	store := cartrepo.NewSQLite(db, e.v.GetString("profile"))
	return cartsvc.Open(cmd.Context(), store, e.logger()), nil
}

func (e *cliEnv) close() error {
	if e.db == nil {
		return nil
	}
	sqlDB, err := e.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
