package repository

import (
	"time"

	"lms_support_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TicketRepository struct {
	DB *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{DB: db}
}

func (r *TicketRepository) Create(tx *gorm.DB, ticket *model.Ticket) error {
	return tx.Create(ticket).Error
}

func (r *TicketRepository) FindByID(id uint) (*model.Ticket, error) {
	var ticket model.Ticket
	err := r.DB.First(&ticket, id).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// LockByID loads a ticket with a FOR UPDATE row lock. Every status
// transition and every message append goes through this lock so that
// concurrent writers on the same ticket serialize and exactly one wins.
func (r *TicketRepository) LockByID(tx *gorm.DB, id uint) (*model.Ticket, error) {
	var ticket model.Ticket
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ticket, id).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// UpdateStatus writes the new status (and optional assignment) of a locked
// ticket and bumps updated_at.
func (r *TicketRepository) UpdateStatus(tx *gorm.DB, ticket *model.Ticket, status model.TicketStatus, assignTo *uint) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if assignTo != nil {
		updates["assigned_to"] = *assignTo
	}
	if err := tx.Model(ticket).Updates(updates).Error; err != nil {
		return err
	}
	ticket.Status = status
	if assignTo != nil {
		ticket.AssignedTo = assignTo
	}
	return nil
}

// SetRating overwrites the rating of a locked ticket（last-write-wins）.
func (r *TicketRepository) SetRating(tx *gorm.DB, ticket *model.Ticket, rating int) error {
	if err := tx.Model(ticket).Updates(map[string]interface{}{
		"rating":     rating,
		"updated_at": time.Now(),
	}).Error; err != nil {
		return err
	}
	ticket.Rating = &rating
	return nil
}

// Touch bumps updated_at after a message append.
func (r *TicketRepository) Touch(tx *gorm.DB, id uint) error {
	return tx.Model(&model.Ticket{}).Where("id = ?", id).
		Update("updated_at", time.Now()).Error
}

// ListForStudent returns the student's own tickets, newest first.
func (r *TicketRepository) ListForStudent(userID uint) ([]model.Ticket, error) {
	var tickets []model.Ticket
	err := r.DB.Where("user_id = ?", userID).Order("created_at desc").Find(&tickets).Error
	return tickets, err
}

// ListForAdmin returns tickets assigned to the admin plus unassigned ones.
// statusFilter: "resolved" keeps Resolved/Closed, "unresolved" the rest,
// empty keeps everything.
func (r *TicketRepository) ListForAdmin(adminID uint, statusFilter string) ([]model.Ticket, error) {
	q := r.DB.Where("assigned_to = ? OR assigned_to IS NULL", adminID)
	switch statusFilter {
	case "resolved":
		q = q.Where("status IN ?", []model.TicketStatus{model.StatusResolved, model.StatusClosed})
	case "unresolved":
		q = q.Where("status NOT IN ?", []model.TicketStatus{model.StatusResolved, model.StatusClosed})
	}
	var tickets []model.Ticket
	err := q.Order("created_at desc").Find(&tickets).Error
	return tickets, err
}
