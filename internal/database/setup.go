package database

import (
	"chatapp-client/internal/models"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

func setPragmaValues(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return err
	}

	// these next 2 extremely speed up performance of sqlite
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return err
	}

	if _, err := db.Exec("PRAGMA synchronous = normal"); err != nil {
		return err
	}

	return nil
}

func readPragmaValues(db *sql.DB, sugar *zap.SugaredLogger) error {
	var foreignKeysValue bool
	err := db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeysValue)
	if err != nil {
		return err
	}

	var journalModeValue string
	err = db.QueryRow("PRAGMA journal_mode").Scan(&journalModeValue)
	if err != nil {
		return err
	}

	var synchronousValue int
	err = db.QueryRow("PRAGMA synchronous").Scan(&synchronousValue)
	if err != nil {
		return err
	}

	var synchronousValueStr string
	switch synchronousValue {
	case 0:
		synchronousValueStr = "off"
	case 1:
		synchronousValueStr = "normal"
	case 2:
		synchronousValueStr = "full"
	case 3:
		synchronousValueStr = "extra"
	default:
		return fmt.Errorf("synchronous value is unsupported")
	}

	sugar.Debugf("sqlite PRAGMA foreign_keys: %t, journal_mode: %s, synchronous: %s", foreignKeysValue, journalModeValue, synchronousValueStr)
	return nil
}

// Setup opens the archive database: sqlite at path when self-contained,
// mysql/mariadb from the config otherwise.
func Setup(cfg *models.ConfigFile, path string, sugar *zap.SugaredLogger) (*sql.DB, error) {
	var db *sql.DB
	var err error

	if cfg.SelfContained {
		sugar.Infof("Connecting to database sqlite at %s...", path)

		db, err = sql.Open("sqlite", path)
		if err != nil {
			return db, err
		}

		// there can be sqlite busy errors if this is not set to 1
		db.SetMaxOpenConns(1)

		err = setPragmaValues(db)
		if err != nil {
			return db, err
		}

		err = readPragmaValues(db, sugar)
		if err != nil {
			return db, err
		}
	} else {
		sugar.Info("Connecting to database mysql/mariadb...")

		db, err = sql.Open("mysql", fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&timeout=10s", cfg.DbUser, cfg.DbPassword, cfg.DbAddress, cfg.DbPort, cfg.DbDatabase))
		if err != nil {
			return db, err
		}

		db.SetMaxOpenConns(10)
	}

	err = setupTables(db)
	if err != nil {
		return db, err
	}

	return db, nil
}

func setupTables(db *sql.DB) error {
	var err error

	_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS users (
				id BIGINT UNSIGNED PRIMARY KEY,
				username VARCHAR(32) NOT NULL,
				discriminator VARCHAR(8) NOT NULL,
				avatar TEXT
			);
		`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS messages (
				id BIGINT UNSIGNED PRIMARY KEY,
				channel_id BIGINT UNSIGNED NOT NULL,
				user_id BIGINT UNSIGNED NOT NULL,
				message TEXT NOT NULL,
				attachments TEXT,
				edited BOOLEAN NOT NULL
			);
		`)
	if err != nil {
		return err
	}

	return nil
}
