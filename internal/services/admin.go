package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"hazacheck/internal/domain"
	"hazacheck/internal/metrics"
	"hazacheck/internal/notify"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100

	// keeps (page-1)*limit inside a 32-bit int
	maxPage = math.MaxInt32 / maxPageLimit
)

// AdminService implements the staff triage operations
type AdminService struct {
	db       *gorm.DB
	notifier notify.Notifier
	opts     Options
	log      *zap.Logger
	now      func() time.Time
}

// NewAdminService creates a new admin service
func NewAdminService(db *gorm.DB, notifier notify.Notifier, opts Options, log *zap.Logger) *AdminService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &AdminService{
		db:       db,
		notifier: notifier,
		opts:     opts,
		log:      log.Named("admin"),
		now:      time.Now,
	}
}

// ListQuery carries the raw list query parameters
type ListQuery struct {
	Page   string
	Limit  string
	Status string
	Search string
}

// Pagination describes the returned page
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewPagination derives page counts from a total row count
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// ListResult is one page of inquiries
type ListResult struct {
	Inquiries  []domain.Inquiry `json:"inquiries"`
	Pagination Pagination       `json:"pagination"`
}

// List returns a filtered, newest-first page of inquiries
func (s *AdminService) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	page := parseBounded(q.Page, 1, maxPage)
	limit := parseBounded(q.Limit, defaultPageLimit, maxPageLimit)

	var status domain.Status
	if raw := strings.TrimSpace(q.Status); raw != "" && raw != "all" {
		status = domain.Status(raw)
		if !status.Valid() {
			return nil, ErrInvalidStatus
		}
	}
	search := strings.ToLower(strings.TrimSpace(q.Search))

	filters := func(db *gorm.DB) *gorm.DB {
		if status != "" {
			db = db.Where("status = ?", status)
		}
		if search != "" {
			pattern := "%" + escapeLike(search) + "%"
			db = db.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(apartment) LIKE ? ESCAPE '\' OR LOWER(phone) LIKE ? ESCAPE '\')`,
				pattern, pattern, pattern)
		}
		return db
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.Inquiry{}).Scopes(filters).Count(&total).Error; err != nil {
		s.log.Error("list count failed", zap.Error(err))
		return nil, internalError(msgAdminFailed, err)
	}

	inquiries := []domain.Inquiry{}
	err := s.db.WithContext(ctx).Scopes(filters).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&inquiries).Error
	if err != nil {
		s.log.Error("list failed", zap.Error(err))
		return nil, internalError(msgAdminFailed, err)
	}

	s.log.Debug("list", zap.Int("page", page), zap.Int("limit", limit), zap.Int64("total", total))
	return &ListResult{Inquiries: inquiries, Pagination: NewPagination(page, limit, total)}, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// UpdateResult is the row summary returned after a status change
type UpdateResult struct {
	ID        uint          `json:"id"`
	Name      string        `json:"name"`
	Apartment string        `json:"apartment"`
	Status    domain.Status `json:"status"`
	AdminNote *string       `json:"admin_note"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// UpdateStatus sets status and note. Staff are notified only when the status changes.
func (s *AdminService) UpdateStatus(ctx context.Context, p UpdatePayload) (*UpdateResult, error) {
	if p.ID == 0 || strings.TrimSpace(p.Status) == "" {
		return nil, ErrMissingIDOrStatus
	}
	status := domain.Status(strings.TrimSpace(p.Status))
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var existing domain.Inquiry
	err := s.db.WithContext(ctx).Select("id", "name", "apartment", "status").First(&existing, uint(p.ID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInquiryNotFound
	}
	if err != nil {
		s.log.Error("update lookup failed", zap.Uint("id", uint(p.ID)), zap.Error(err))
		return nil, internalError(msgAdminFailed, err)
	}

	var note *string
	if p.AdminNote != nil && *p.AdminNote != "" {
		n := *p.AdminNote
		note = &n
	}
	now := s.now().UTC()

	res := s.db.WithContext(ctx).Model(&domain.Inquiry{}).
		Where("id = ?", existing.ID).
		Updates(map[string]any{
			"status":     status,
			"admin_note": note,
			"updated_at": now,
		})
	if res.Error != nil {
		s.log.Error("update failed", zap.Uint("id", existing.ID), zap.Error(res.Error))
		return nil, internalError(msgAdminFailed, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrInquiryNotFound
	}

	oldStatus := existing.Status
	s.log.Info("status updated",
		zap.Uint("id", existing.ID),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(status)))

	if oldStatus != status {
		metrics.RecordStatusChange(string(oldStatus), string(status))
		e := notify.Event{
			Kind:      notify.EventStatusChanged,
			InquiryID: existing.ID,
			OldStatus: oldStatus,
			NewStatus: status,
			At:        now,
		}
		if note != nil {
			e.Note = *note
		}
		s.notifier.Notify(e)
	}

	return &UpdateResult{
		ID:        existing.ID,
		Name:      existing.Name,
		Apartment: existing.Apartment,
		Status:    status,
		AdminNote: note,
		UpdatedAt: now,
	}, nil
}

// Delete removes an inquiry by the raw id query parameter
func (s *AdminService) Delete(ctx context.Context, rawID string) error {
	id, ok := ParseID(rawID)
	if !ok {
		return ErrMissingID
	}

	res := s.db.WithContext(ctx).Delete(&domain.Inquiry{}, id)
	if res.Error != nil {
		s.log.Error("delete failed", zap.Uint("id", id), zap.Error(res.Error))
		return internalError(msgAdminFailed, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInquiryNotFound
	}

	s.log.Info("inquiry deleted", zap.Uint("id", id))
	return nil
}
