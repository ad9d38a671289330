package model

type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)

// AdminType 管理员分组：EC 负责课程运营，IA 负责教学支持
type AdminType string

const (
	AdminTypeEC AdminType = "EC"
	AdminTypeIA AdminType = "IA"
)

// swagger:model User
type User struct {
	BaseModel
	Email        string   `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string   `gorm:"size:255;not null" json:"-"`
	Role         UserRole `gorm:"type:varchar(20);not null" json:"role"`

	// 仅管理员：所属分组
	AdminType AdminType `gorm:"type:varchar(10)" json:"adminType,omitempty"`

	// 仅学生：所属课程信息，作为检索提示传给自动应答服务
	CourseCategory string `gorm:"size:100" json:"courseCategory,omitempty"`
	CourseName     string `gorm:"size:100" json:"courseName,omitempty"`
}

func (User) TableName() string {
	return "users"
}
