package main

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/trezcool/daftari/storage/database"
)

var (
	// mockable
	gooseRunFunc = goose.Run
	migrateFunc  = database.Migrate
)

func (cli *commandLine) migrate(args []string) error {
	return gooseRunFunc(args[0], cli.db.DB, database.MigrationsDir, args[1:]...)
}

// initialize migrates the database and creates the configured default admin
// unless an admin already exists.
func (cli *commandLine) initialize(ctx context.Context) error {
	if err := migrateFunc(cli.db); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "database migrated")

	admin := cli.conf.DefaultAdmin
	if admin.Password == "" {
		cli.logger.Warn("default admin password not set", map[string]interface{}{"username": admin.Username})
		fmt.Fprintln(cli.out, "no default admin password configured, skipping admin creation")
		return nil
	}
	created, err := cli.usrSvc.EnsureAdmin(ctx, admin.Username, admin.Password)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(cli.out, "admin %q created\n", admin.Username)
	}
	return nil
}
