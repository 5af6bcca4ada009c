package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gitlab.com/dirk.krummacker/contacts-converter/internal/config"
	"gitlab.com/dirk.krummacker/contacts-converter/internal/service"
	"gitlab.com/dirk.krummacker/contacts-converter/internal/store"
)

// Usage example on the command line:
// > PORT=8080 DBUSER=dirk DBPWD=bullo92 OWNER_ID=7614202330 GIN_MODE=release GIN_LOGGING=OFF go run main.go
// > DBDRIVER=sqlite3 DBPATH=contacts.db OWNER_ID=7614202330 go run main.go
func main() {
	configFile := flag.String("config", "", "the YAML config file (default: ./contacts-converter.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not load configuration:", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	var log *zap.Logger
	if cfg.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not create logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	sqlDB, err := store.CreateDatabase(cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Fatal("could not open database", zap.Error(err))
	}
	if cfg.DBDriver == store.DriverSQLite {
		// An embedded database is created on the fly, MySQL is set up by the migration tool.
		if err := store.Migrate(sqlDB, cfg.DBDriver); err != nil {
			log.Fatal("could not create tables", zap.Error(err))
		}
	}
	st, err := store.Setup(sqlDB, cfg.DBDriver, cfg.OwnerId, log)
	if err != nil {
		log.Fatal("could not prepare statements", zap.Error(err))
	}
	defer st.Close()
	if err := st.EnsureOwner(); err != nil {
		log.Fatal("could not authorize owner", zap.Error(err))
	}
	if cfg.RetentionDays > 0 {
		if _, err := st.CleanupOldRecords(cfg.RetentionDays); err != nil {
			log.Warn("could not clean up old file operations", zap.Error(err))
		}
	}

	router := service.New(st, log, service.Options{
		MaxFileSize: cfg.MaxFileSize,
		Encodings:   cfg.Encodings,
		GinLogging:  cfg.GinLogging,
	}).SetupHttpRouter()
	log.Info("starting contacts converter",
		zap.String("port", cfg.Port),
		zap.String("driver", cfg.DBDriver),
		zap.Strings("encodings", cfg.Encodings))
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
