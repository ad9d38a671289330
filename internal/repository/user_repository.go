package repository

import (
	"lms_support_backend/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindAdmins returns admin users, optionally filtered by admin type.
func (r *UserRepository) FindAdmins(adminType model.AdminType) ([]model.User, error) {
	var admins []model.User
	q := r.DB.Where("role = ?", model.Admin)
	if adminType != "" {
		q = q.Where("admin_type = ?", adminType)
	}
	err := q.Order("id").Find(&admins).Error
	return admins, err
}
