package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	config "github.com/anjiri1684/academy_billing/configs"
	"github.com/anjiri1684/academy_billing/database"
	"github.com/anjiri1684/academy_billing/notifications"
	"github.com/anjiri1684/academy_billing/services"
	"github.com/pkg/errors"
)

func main() {
	log.SetPrefix("ADMIN : ")

	database.ConnectDB()

	alerts := notifications.NewRollbarReporter(config.Config("ROLLBAR_TOKEN"), config.Config("APP_ENV"), config.Config("CODE_VERSION"))

	packages := database.NewPackageStore(database.DB)
	dispatcher := notifications.NewDispatcher(
		packages,
		database.NewActivityLogStore(database.DB),
		services.NewBillingService(database.NewBillStore(database.DB)),
		nil,
	)

	cli := commandLine{
		svc:     services.NewReallocationService(database.NewTransactor(database.DB), packages, dispatcher, alerts),
		classes: database.NewClassRegistry(database.DB),
		migrate: func() error { return database.Migrate(database.DB) },
		out:     os.Stdout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.run(ctx, os.Args)
	stop()
	alerts.Close()
	if err != nil {
		if !errors.Is(err, errHelp) {
			log.Printf("🔥 error: %s", err)
		}
		os.Exit(1)
	}
}
