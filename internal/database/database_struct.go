package database

import (
	"github.com/thereayou/roomline/internal/chat"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

var _ chat.Store = (*Database)(nil)
