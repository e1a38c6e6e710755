package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/waynerigley/migslist/core"
	"github.com/waynerigley/migslist/core/finance"
	"github.com/waynerigley/migslist/core/union"
	"github.com/waynerigley/migslist/core/user"
	emailsvc "github.com/waynerigley/migslist/services/email"
	logsvc "github.com/waynerigley/migslist/services/logger"
	"github.com/waynerigley/migslist/storage/database"
	sqlxrepos "github.com/waynerigley/migslist/storage/database/sqlx"
)

// reminders runs the scheduled email jobs. Meant for cron:
//
//	reminders trial   - daily; trial expiry warnings at 15 and 5 days
//	reminders monthly - monthly; expiring expense digest to the operator
func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "REMINDERS : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  reminders trial   - send trial expiry warnings")
		fmt.Println("  reminders monthly - send the expiring expense digest")
		os.Exit(1)
	}

	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer db.Close()
	dbx := sqlx.NewDb(db, conf.Database.Engine)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	job := job{
		conf:       conf,
		logger:     logger,
		mailSvc:    mailSvc,
		userSvc:    user.NewService(conf, sqlxrepos.NewUserRepository(dbx), mailSvc),
		unionSvc:   union.NewService(conf, sqlxrepos.NewUnionRepository(dbx)),
		financeSvc: finance.NewService(sqlxrepos.NewFinanceRepository(dbx)),
	}

	switch os.Args[1] {
	case "trial":
		err = job.runTrialReminders()
	case "monthly":
		err = job.runMonthlyDigest()
	default:
		logger.Fatal(fmt.Sprintf("unknown job %q", os.Args[1]))
	}
	if err != nil {
		logger.Fatal(fmt.Sprintf("job %q failed: %v", os.Args[1], err), err)
	}
}

type job struct {
	conf       *core.Config
	logger     core.Logger
	mailSvc    core.EmailService
	userSvc    user.ServiceInterface
	unionSvc   union.ServiceInterface
	financeSvc finance.ServiceInterface
}
