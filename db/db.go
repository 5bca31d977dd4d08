package db

import (
	"devicepool/models"
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDB() *gorm.DB {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	err = Migrate(DB)
	if err != nil {
		log.Fatal("Failed to migrate models: ", err)
	}
	log.Println("Database connected")
	return DB
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Loan{}, &models.TransitionLog{}); err != nil {
		return err
	}

	// 同一设备最多一条 Approved/Collected
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_active_per_device
	  ON %s (device_id)
	  WHERE status IN ('Approved', 'Collected');
	`, models.LoanTable, models.LoanTable)).Error; err != nil {
		return err
	}

	// 查询等候名单更快
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_waitlist_members
	  ON %s USING GIN (waitlist);
	`, models.LoanTable, models.LoanTable)).Error; err != nil {
		return err
	}

	return nil
}
