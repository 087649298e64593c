// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xataio/gqlmirror/cmd/flags"
	"github.com/xataio/gqlmirror/pkg/gqlschema"
	"github.com/xataio/gqlmirror/pkg/mirror"
	"github.com/xataio/gqlmirror/pkg/store"
)

// Version is the gqlmirror version
var Version = "development"

func init() {
	viper.SetEnvPrefix("GQLMIRROR")
	viper.AutomaticEnv()

	flags.MirrorFlags(rootCmd)

	rootCmd.PersistentFlags().String("endpoint", "", "GraphQL HTTP endpoint to post update queries to")
	rootCmd.PersistentFlags().String("token", "", "Bearer token used to authenticate against --endpoint")
	viper.BindPFlag("ENDPOINT", rootCmd.PersistentFlags().Lookup("endpoint"))
	viper.BindPFlag("TOKEN", rootCmd.PersistentFlags().Lookup("token"))
}

var rootCmd = &cobra.Command{
	Use:          "gqlmirror",
	SilenceUsage: true,
	Version:      Version,
}

// errSchemaRequired is returned when a command needs --schema but none was given.
var errSchemaRequired = fmt.Errorf("a --schema file is required")

// loadSchema reads and decodes the JSON-encoded gqlschema.Schema named by
// --schema.
func loadSchema() (gqlschema.Schema, error) {
	path := flags.SchemaPath()
	if path == "" {
		return gqlschema.Schema{}, errSchemaRequired
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return gqlschema.Schema{}, fmt.Errorf("reading schema file %q: %w", path, err)
	}

	var schema gqlschema.Schema
	if err := json.Unmarshal(b, &schema); err != nil {
		return gqlschema.Schema{}, fmt.Errorf("decoding schema file %q: %w", path, err)
	}
	return schema, nil
}

// NewMirror opens the SQLite store at --db and constructs a Mirror compiled
// against the schema at --schema, initializing on-disk tables as needed.
func NewMirror(ctx context.Context) (*mirror.Mirror, error) {
	schema, err := loadSchema()
	if err != nil {
		return nil, err
	}

	db, err := store.Open(flags.DBPath())
	if err != nil {
		return nil, fmt.Errorf("opening store %q: %w", flags.DBPath(), err)
	}

	m, err := mirror.New(ctx, db, schema, mirror.Options{}, mirror.NewLogger())
	if err != nil {
		db.Close()
		return nil, err
	}

	return m, nil
}

func limitsFromFlags() mirror.Limits {
	return mirror.Limits{
		NodesLimit:         flags.NodesLimit(),
		NodesOfTypeLimit:   flags.NodesOfTypeLimit(),
		ConnectionLimit:    flags.ConnectionLimit(),
		ConnectionPageSize: flags.ConnectionPageSize(),
	}
}

// Execute executes the root command.
func Execute() error {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(registerCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(extractCmd())

	return rootCmd.Execute()
}
