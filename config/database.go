package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mmdatafocus/pitix_pos/utils"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func init() {
	// Load env from .env
	godotenv.Load()
}

// OpenDatabase opens the terminal's durable store and returns the handle for
// injection into the service layer.
//
// DB_DRIVER selects the backend:
//   - "sqlite" (default): embedded file database, the normal till setup.
//     POS_DB_PATH overrides the file location.
//   - "mysql": hosted store-server setup, configured like the cloud backend
//     (DB_USER / DB_PASSWORD / DB_HOST / DB_PORT / DB_NAME).
//
// A failure to open is wrapped as utils.ErrStorageUnavailable: fatal for a
// till (nothing can function without local persistence), retryable for a
// hosted store server (see OpenDatabaseWithRetry).
func OpenDatabase() (*gorm.DB, error) {
	driver := strings.ToLower(strings.TrimSpace(os.Getenv("DB_DRIVER")))

	var dialector gorm.Dialector
	switch driver {
	case "", "sqlite":
		path := strings.TrimSpace(os.Getenv("POS_DB_PATH"))
		if path == "" {
			path = "pitix_pos.db"
		}
		// WAL keeps reads available while the sync driver writes.
		dialector = sqlite.Open(path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?multiStatements=true&parseTime=true",
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_HOST"),
			os.Getenv("DB_PORT"),
			os.Getenv("DB_NAME"),
		)
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", driver)
	}

	db, err := gorm.Open(dialector, initConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrStorageUnavailable, err)
	}

	if sqlDB, derr := db.DB(); derr == nil && sqlDB != nil {
		maxOpen := utils.IntFromEnv("DB_MAX_OPEN_CONNS", 10)
		maxIdle := utils.IntFromEnv("DB_MAX_IDLE_CONNS", 5)
		if driver == "" || driver == "sqlite" {
			// SQLite serializes writers; one connection avoids SQLITE_BUSY
			// churn under the sync driver + action layer interleaving.
			maxOpen = 1
			maxIdle = 1
		}
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetMaxIdleConns(maxIdle)
		sqlDB.SetConnMaxLifetime(time.Duration(utils.IntFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second)
	}

	if pluginErr := db.Use(otelgorm.NewPlugin()); pluginErr != nil {
		log.Printf("db opened but failed to install otelgorm plugin: %v", pluginErr)
	}

	return db, nil
}

// OpenDatabaseWithRetry keeps retrying with capped exponential backoff.
// Meant for hosted store servers where the database is a separate process
// that may come up after us.
func OpenDatabaseWithRetry() *gorm.DB {
	var attempt int
	for {
		attempt++
		db, err := OpenDatabase()
		if err == nil {
			log.Printf("connected to database (attempt=%d)", attempt)
			return db
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to open database (attempt=%d): %v; retrying in %s", attempt, err, sleep)
		time.Sleep(sleep)
	}
}

func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         initLog(),
		NamingStrategy: initNamingStrategy(),
	}
}

func initLog() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			Colorful:      false,
			LogLevel:      logger.Error,
			SlowThreshold: time.Second,
		},
	)
}

func initNamingStrategy() *schema.NamingStrategy {
	return &schema.NamingStrategy{
		SingularTable: false,
		TablePrefix:   "",
	}
}
