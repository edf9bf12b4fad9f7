// Command lifeplanner is a terminal client for the Life-Planner backend:
// authentication, activity category management, custom fields, and filtered
// exercise listings.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"example.com/lifeplanner/internal/apiclient"
	"example.com/lifeplanner/internal/config"
	"example.com/lifeplanner/internal/query"
	"example.com/lifeplanner/internal/registry"
	"example.com/lifeplanner/internal/session"
)

type app struct {
	cfg      config.Config
	manager  *session.Manager
	client   *apiclient.Client
	registry *registry.Registry
	engine   *query.Engine
}

func newApp() *app {
	cfg := config.Load()

	store := session.NewFileStore(cfg.TokenPath)
	renewer := apiclient.NewAuthRenewer(cfg.APIBaseURL, nil)
	manager := session.NewManager(store, renewer, session.WithOnSessionEnd(func() {
		fmt.Fprintln(os.Stderr, "session ended, please log in again")
	}))
	client := apiclient.New(cfg.APIBaseURL, manager)

	return &app{
		cfg:      cfg,
		manager:  manager,
		client:   client,
		registry: registry.New(client),
		engine:   query.NewEngine(cfg.Locale),
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "lifeplanner",
		Short:         "Life-Planner workout client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newCategoriesCmd(a),
		newFieldsCmd(a),
		newExercisesCmd(a),
	)
	return root
}

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
