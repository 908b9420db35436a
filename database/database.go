package database

import (
	"log"
	"os"
	"time"

	config "github.com/anjiri1684/academy_billing/configs"
	"github.com/anjiri1684/academy_billing/models"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

func ConnectDB() {
	db, err := Open(config.Config("DATABASE_URL"))
	if err != nil {
		log.Fatalf("🔥 Failed to connect to database: %v", err)
	}
	DB = db
	log.Println("✅ Database connected successfully")
}

func Open(dsn string) (*gorm.DB, error) {
	level := gormlogger.Warn
	if config.Bool("DB_DEBUG") {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger: gormlogger.New(log.New(os.Stdout, "", log.LstdFlags), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Student{},
		&models.Teacher{},
		&models.Package{},
		&models.ClassInstance{},
		&models.Bill{},
		&models.ActivityLog{},
	)
	if err != nil {
		return errors.Wrap(err, "migrating database")
	}
	log.Println("✅ Database migration successful")
	return nil
}
