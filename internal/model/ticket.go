package model

import "encoding/json"

type TicketStatus string

const (
	StatusOpen                  TicketStatus = "Open"
	StatusWIP                   TicketStatus = "Work in Progress"
	StatusStudentActionRequired TicketStatus = "Student Action Required"
	StatusAdminActionRequired   TicketStatus = "Admin Action Required"
	StatusResolved              TicketStatus = "Resolved"
	StatusClosed                TicketStatus = "Closed"
)

// Valid reports whether s is one of the known ticket statuses.
func (s TicketStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusWIP, StatusStudentActionRequired,
		StatusAdminActionRequired, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// AcceptsMessages 判断工单当前状态是否还接受新消息。
// Resolved 和 Closed 均为消息终止状态，必须先重新打开。
func (s TicketStatus) AcceptsMessages() bool {
	return s != StatusResolved && s != StatusClosed
}

// IsResolvedLike groups Resolved and Closed for list filtering. Only
// Resolved unlocks rating; the two statuses are otherwise kept distinct.
func (s TicketStatus) IsResolvedLike() bool {
	return s == StatusResolved || s == StatusClosed
}

type TicketCategory string

const (
	CategoryProductSupport        TicketCategory = "Product Support"
	CategoryLeave                 TicketCategory = "Leave"
	CategoryAttendanceCounselling TicketCategory = "Attendance/Counselling Support"
	CategoryReferral              TicketCategory = "Referral"
	CategoryEvaluationScore       TicketCategory = "Evaluation Score"
	CategoryCourseQuery           TicketCategory = "Course Query"
	CategoryOtherCourseQuery      TicketCategory = "Other Course Query"
	CategoryCodeReview            TicketCategory = "Code Review"
	CategoryPersonalQuery         TicketCategory = "Personal Query"
	CategoryNBFCISA               TicketCategory = "NBFC/ISA"
	CategoryIASupport             TicketCategory = "IA Support"
	CategoryMissedEvaluation      TicketCategory = "Missed Evaluation Submission"
	CategoryRevision              TicketCategory = "Revision"
	CategoryMAC                   TicketCategory = "MAC"
	CategoryWithdrawal            TicketCategory = "Withdrawal"
	CategoryLateEvaluation        TicketCategory = "Late Evaluation Submission"
	CategoryFeedback              TicketCategory = "Feedback"
	CategoryPlacementSupport      TicketCategory = "Placement Support - Placements"
	CategoryOfferStage            TicketCategory = "Offer Stage- Placements"
	CategoryISAEMINBFCGlide       TicketCategory = "ISA/EMI/NBFC/Glide Related - Placements"
	CategorySessionSupport        TicketCategory = "Session Support - Placement"
)

var ticketCategories = map[TicketCategory]bool{
	CategoryProductSupport:        true,
	CategoryLeave:                 true,
	CategoryAttendanceCounselling: true,
	CategoryReferral:              true,
	CategoryEvaluationScore:       true,
	CategoryCourseQuery:           true,
	CategoryOtherCourseQuery:      true,
	CategoryCodeReview:            true,
	CategoryPersonalQuery:         true,
	CategoryNBFCISA:               true,
	CategoryIASupport:             true,
	CategoryMissedEvaluation:      true,
	CategoryRevision:              true,
	CategoryMAC:                   true,
	CategoryWithdrawal:            true,
	CategoryLateEvaluation:        true,
	CategoryFeedback:              true,
	CategoryPlacementSupport:      true,
	CategoryOfferStage:            true,
	CategoryISAEMINBFCGlide:       true,
	CategorySessionSupport:        true,
}

func (c TicketCategory) Valid() bool {
	return ticketCategories[c]
}

// TicketCategories lists the selectable categories in display order.
func TicketCategories() []TicketCategory {
	return []TicketCategory{
		CategoryProductSupport, CategoryLeave, CategoryAttendanceCounselling,
		CategoryReferral, CategoryEvaluationScore, CategoryCourseQuery,
		CategoryOtherCourseQuery, CategoryCodeReview, CategoryPersonalQuery,
		CategoryNBFCISA, CategoryIASupport, CategoryMissedEvaluation,
		CategoryRevision, CategoryMAC, CategoryWithdrawal,
		CategoryLateEvaluation, CategoryFeedback, CategoryPlacementSupport,
		CategoryOfferStage, CategoryISAEMINBFCGlide, CategorySessionSupport,
	}
}

// swagger:model Ticket
type Ticket struct {
	BaseModel
	UserID   uint           `gorm:"index;not null" json:"userId"`
	Category TicketCategory `gorm:"type:varchar(64);not null" json:"category"`
	Status   TicketStatus   `gorm:"type:varchar(32);not null;default:'Open'" json:"status"`
	Title    string         `gorm:"size:255;not null" json:"title"`
	Message  string         `gorm:"type:text;not null" json:"message"`

	// 分类相关的附加字段，如 product_type/issue_type/leave_type
	SubcategoryData json.RawMessage `gorm:"type:json" json:"subcategoryData,omitempty"`

	// 请假类工单的起止日期
	FromDate string `gorm:"size:20" json:"fromDate,omitempty"`
	ToDate   string `gorm:"size:20" json:"toDate,omitempty"`

	Attachments json.RawMessage `gorm:"type:json" json:"attachments,omitempty"`

	AssignedTo *uint    `gorm:"index" json:"assignedTo,omitempty"`
	Rating     *int     `json:"rating,omitempty"`
	User       User     `gorm:"foreignKey:UserID" json:"-"`
	Assignee   *User    `gorm:"foreignKey:AssignedTo" json:"-"`
}

func (Ticket) TableName() string {
	return "tickets"
}
