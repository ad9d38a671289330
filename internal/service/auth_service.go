package service

import (
	"errors"
	"strconv"

	"lms_support_backend/internal/config"
	"lms_support_backend/internal/model"
	"lms_support_backend/internal/repository"
	"lms_support_backend/internal/util"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type AuthService struct {
	users *repository.UserRepository
	cfg   *config.Config
}

func NewAuthService(users *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{users: users, cfg: cfg}
}

type RegisterRequest struct {
	Email          string          `json:"email" binding:"required,email"`
	Password       string          `json:"password" binding:"required,min=8"`
	Role           model.UserRole  `json:"role" binding:"required"`
	AdminType      model.AdminType `json:"adminType,omitempty"`
	CourseCategory string          `json:"courseCategory,omitempty"`
	CourseName     string          `json:"courseName,omitempty"`
}

func (s *AuthService) Register(req *RegisterRequest) (*model.User, error) {
	if req.Role != model.Student && req.Role != model.Admin {
		return nil, util.NewValidationError("role", "role must be student or admin")
	}
	if req.Role == model.Admin && req.AdminType != model.AdminTypeEC && req.AdminType != model.AdminTypeIA {
		return nil, util.NewValidationError("adminType", "admin type must be EC or IA")
	}

	if _, err := s.users.FindByEmail(req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
	}
	if req.Role == model.Admin {
		user.AdminType = req.AdminType
	} else {
		user.CourseCategory = req.CourseCategory
		user.CourseName = req.CourseName
	}
	if err := s.users.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Profile returns the user row behind a set of verified claims.
func (s *AuthService) Profile(userID uint) (*model.User, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.NewNotFoundError("user", strconv.FormatUint(uint64(userID), 10))
		}
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a signed token.
func (s *AuthService) Login(email, password string) (string, *model.User, error) {
	user, err := s.users.FindByEmail(email)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.cfg.JWT.Secret, s.cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}
