package database

import (
	"github.com/google/uuid"
	"github.com/thereayou/roomline/internal/models"
)

func (d *Database) SaveUser(user *models.User) error {
	return d.db.Create(user).Error
}

func (d *Database) GetUser(id uuid.UUID) (*models.User, error) {
	user := models.User{}
	if err := d.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user "+id.String())
	}
	return &user, nil
}

func (d *Database) FindUserByEmail(email string) (*models.User, error) {
	user := models.User{}
	if err := d.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err, "user "+email)
	}
	return &user, nil
}
