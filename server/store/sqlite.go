package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	sqliteEncrypt "github.com/Daskott/gorm-sqlite-cipher"
	"github.com/Daskott/enablex/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"
)

const DB_NAME = "enablex.db"

// Entry is a single key/value pair in the local store
type Entry struct {
	Key       string `gorm:"primarykey"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

// SqliteKV persists entries in an encrypted sqlite db on the device
type SqliteKV struct {
	db *gorm.DB
}

// NewSqliteKV opens (or creates) the encrypted db in '<dbRootDir>/db'
// & auto-migrates the schema
func NewSqliteKV(passPhrase string, dbRootDir string) (*SqliteKV, error) {
	db, err := openDB(passPhrase, dbRootDir)
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&Entry{})
	if err != nil {
		return nil, fmt.Errorf("NewSqliteKV: %v", err)
	}

	return &SqliteKV{db: db}, nil
}

func (kv *SqliteKV) Get(key string) (string, bool, error) {
	entry := Entry{}
	err := kv.db.First(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}

	if err != nil {
		return "", false, err
	}

	return entry.Value, true, nil
}

func (kv *SqliteKV) Set(key, value string) error {
	return kv.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&Entry{Key: key, Value: value}).Error
}

func (kv *SqliteKV) Delete(key string) error {
	return kv.db.Delete(&Entry{}, "key = ?", key).Error
}

// Close closes the underlying db connection
func (kv *SqliteKV) Close() error {
	sqlDB, err := kv.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func openDB(passPhrase string, dbRootDir string) (*gorm.DB, error) {
	dbDSNVal, err := dbDSN(passPhrase, dbRootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to set sqlite DSN: %v", err)
	}

	db, err := gorm.Open(sqliteEncrypt.Open(dbDSNVal), &gorm.Config{
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				LogLevel:                  gormLogger.Silent,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %v", err)
	}

	return db, nil
}

func dbDSN(passPhrase string, dbRootDir string) (string, error) {
	dbDir, err := DbDirectory(dbRootDir)
	if err != nil {
		return "", err
	}

	dbFilePath := filepath.Join(dbDir, DB_NAME)
	dbName := fmt.Sprintf("file:%v", dbFilePath)

	return fmt.Sprintf(
		"%v?_pragma_key=%s&_pragma_cipher_page_size=4096&_journal_mode=WAL",
		dbName,
		passPhrase,
	), nil
}

func DbDirectory(dbRootDir string) (string, error) {
	dbDir := filepath.Join(dbRootDir, "db")

	err := utils.CreateDirIfNotExist(dbDir)
	if err != nil {
		return "", err
	}

	return dbDir, nil
}
