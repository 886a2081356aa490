package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/wahajws/amast-crm-sub001/config"
	"github.com/wahajws/amast-crm-sub001/internal/database"
	"github.com/wahajws/amast-crm-sub001/internal/enum"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
	"github.com/wahajws/amast-crm-sub001/server"
)

func main() {
	app := &cli.App{
		Name:  "crm-mailsync",
		Usage: "CRM email sync, entity matching and campaign tracking",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "with-directory",
						Usage: "also migrate the contact and account tables (local development)",
					},
				},
				Action: func(c *cli.Context) error {
					_, db, err := setup()
					if err != nil {
						return err
					}
					if err := database.MigrateDB(db, c.Bool("with-directory")); err != nil {
						return cli.Exit("Database migration failed: "+err.Error(), 1)
					}
					log.Println("Database migration completed successfully")
					return nil
				},
			},
			{
				Name:  "server",
				Usage: "Start the API server and scheduled sync",
				Action: func(c *cli.Context) error {
					cfg, db, err := setup()
					if err != nil {
						return err
					}

					log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
					log.Println("crm-mailsync starting up...")

					srv, err := server.NewServer(cfg, db)
					if err != nil {
						return cli.Exit("Server setup failed: "+err.Error(), 1)
					}
					if err := srv.Run(); err != nil {
						return cli.Exit("Server startup failed: "+err.Error(), 1)
					}
					log.Println("Shutdown complete")
					return nil
				},
			},
			{
				Name:  "sync",
				Usage: "Sync every syncing label of one user and exit",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "user id", Required: true},
				},
				Action: func(c *cli.Context) error {
					cfg, db, err := setup()
					if err != nil {
						return err
					}

					worker, err := server.NewWorker(cfg, db)
					if err != nil {
						return cli.Exit("Worker setup failed: "+err.Error(), 1)
					}
					defer worker.Close()

					userID := c.String("user")
					ctx := utils.WithCustomContext(context.Background(), &utils.CustomContext{
						AppSource: cfg.AppConfig.AppSource,
						UserId:    userID,
					})
					result, err := worker.Services().SyncService.SyncAllLabels(ctx, userID, enum.SyncTriggerManual)
					if err != nil {
						return cli.Exit("Sync failed: "+err.Error(), 1)
					}
					for _, label := range result.Results {
						log.Printf("%s: success=%t synced=%d skipped=%d failed=%d %s",
							label.LabelID, label.Success, label.EmailsSynced, label.EmailsSkipped, label.EmailsFailed, label.Error)
					}
					log.Printf("Synced %d emails across %d labels", result.TotalSynced(), len(result.Results))
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setup() (*config.Config, *gorm.DB, error) {
	cfg, err := config.InitConfig()
	if err != nil {
		return nil, nil, cli.Exit("Config initialization failed: "+err.Error(), 1)
	}

	db, err := database.InitCRMDatabase(&database.DatabaseConfig{
		DBName:          cfg.CRMDatabaseConfig.DBName,
		Host:            cfg.CRMDatabaseConfig.Host,
		Port:            cfg.CRMDatabaseConfig.Port,
		User:            cfg.CRMDatabaseConfig.User,
		Password:        cfg.CRMDatabaseConfig.Password,
		MaxConn:         cfg.CRMDatabaseConfig.MaxConn,
		MaxIdleConn:     cfg.CRMDatabaseConfig.MaxIdleConn,
		ConnMaxLifetime: cfg.CRMDatabaseConfig.ConnMaxLifetime,
		LogLevel:        cfg.CRMDatabaseConfig.LogLevel,
		SSLMode:         cfg.CRMDatabaseConfig.SSLMode,
	})
	if err != nil {
		return nil, nil, cli.Exit("CRM database initialization failed: "+err.Error(), 1)
	}
	return cfg, db, nil
}
