// SPDX-License-Identifier: Apache-2.0

package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// DBPath returns the path to the SQLite file backing the mirror's store.
func DBPath() string {
	return viper.GetString("DB_PATH")
}

// SchemaPath returns the path to the JSON-encoded gqlschema.Schema describing
// the remote graph.
func SchemaPath() string {
	return viper.GetString("SCHEMA_PATH")
}

// Endpoint returns the GraphQL HTTP endpoint to post update queries to.
func Endpoint() string {
	return viper.GetString("ENDPOINT")
}

// Token returns the bearer token used to authenticate against Endpoint.
func Token() string {
	return viper.GetString("TOKEN")
}

func NodesLimit() int         { return viper.GetInt("NODES_LIMIT") }
func NodesOfTypeLimit() int   { return viper.GetInt("NODES_OF_TYPE_LIMIT") }
func ConnectionLimit() int    { return viper.GetInt("CONNECTION_LIMIT") }
func ConnectionPageSize() int { return viper.GetInt("CONNECTION_PAGE_SIZE") }

// MirrorFlags registers the flag set every mirror subcommand shares: store
// location, schema location, and update-loop limits. Mirrors pgroll's
// cmd/flags.PgConnectionFlags shape.
func MirrorFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("db", "mirror.sqlite", "Path to the SQLite file backing the mirror's store")
	cmd.PersistentFlags().String("schema", "", "Path to the JSON-encoded GraphQL schema descriptor")
	cmd.PersistentFlags().Int("nodes-limit", 200, "Cap on objects scheduled per update step")
	cmd.PersistentFlags().Int("nodes-of-type-limit", 50, "Cap on objects per nodes(ids:...) selection")
	cmd.PersistentFlags().Int("connection-limit", 50, "Cap on connections scheduled per update step")
	cmd.PersistentFlags().Int("connection-page-size", 50, "first: argument used for each connection query")

	viper.BindPFlag("DB_PATH", cmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("SCHEMA_PATH", cmd.PersistentFlags().Lookup("schema"))
	viper.BindPFlag("NODES_LIMIT", cmd.PersistentFlags().Lookup("nodes-limit"))
	viper.BindPFlag("NODES_OF_TYPE_LIMIT", cmd.PersistentFlags().Lookup("nodes-of-type-limit"))
	viper.BindPFlag("CONNECTION_LIMIT", cmd.PersistentFlags().Lookup("connection-limit"))
	viper.BindPFlag("CONNECTION_PAGE_SIZE", cmd.PersistentFlags().Lookup("connection-page-size"))
}
