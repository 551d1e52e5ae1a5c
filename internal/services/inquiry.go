package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"hazacheck/internal/database"
	"hazacheck/internal/domain"
	"hazacheck/internal/metrics"
	"hazacheck/internal/notify"
	"hazacheck/internal/util"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultRecentLimit = 5
	maxRecentLimit     = 50

	customerTimeLayout = "2006-01-02 15:04"
	feedDateLayout     = "2006-01-02"
)

// Lookup modes, also used as metric labels
const (
	LookupRecent   = "recent"
	LookupPhone    = "phone"
	LookupPhonePIN = "phone_pin"
)

// Options configures the inquiry and admin services
type Options struct {
	Capabilities database.Capabilities
	PINHashCost  int
	Location     *time.Location
}

// InquiryService handles customer intake and lookup
type InquiryService struct {
	db       *gorm.DB
	notifier notify.Notifier
	opts     Options
	log      *zap.Logger
	now      func() time.Time
}

// NewInquiryService creates a new inquiry service
func NewInquiryService(db *gorm.DB, notifier notify.Notifier, opts Options, log *zap.Logger) *InquiryService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &InquiryService{
		db:       db,
		notifier: notifier,
		opts:     opts,
		log:      log.Named("inquiry"),
		now:      time.Now,
	}
}

// Submit validates and stores a new inquiry, then notifies staff
func (s *InquiryService) Submit(ctx context.Context, p SubmitPayload) (*domain.Inquiry, error) {
	if err := p.Validate(); err != nil {
		s.log.Info("submit rejected", zap.Error(err))
		return nil, err
	}

	now := s.now().UTC()
	phone := strings.TrimSpace(p.Phone)
	inquiry := &domain.Inquiry{
		Name:           strings.TrimSpace(p.Name),
		Phone:          phone,
		PhoneDigits:    util.NormalizePhone(phone),
		Email:          optionalString(p.Email),
		Apartment:      strings.TrimSpace(p.Apartment),
		Size:           strings.TrimSpace(p.Size),
		ApartmentUnit:  optionalString(p.ApartmentUnit),
		MoveInDate:     strings.TrimSpace(p.MoveInDate),
		PreferredTime:  optionalString(p.PreferredTime),
		Message:        strings.TrimSpace(p.Message),
		Options:        cleanOptions(p.Options),
		AgreePrivacy:   true,
		AgreeMarketing: p.AgreeMarketing,
		Status:         domain.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tx := s.db.WithContext(ctx)
	var omit []string
	if s.opts.Capabilities.HasPIN {
		hash, err := util.HashPIN(p.Password, s.opts.PINHashCost)
		if err != nil {
			return nil, internalError(msgSubmitFailed, err)
		}
		inquiry.Password = &hash
	} else {
		omit = append(omit, "Password")
	}
	if !s.opts.Capabilities.HasPhoneDigits {
		omit = append(omit, "PhoneDigits")
	}
	if len(omit) > 0 {
		tx = tx.Omit(omit...)
	}

	if err := tx.Create(inquiry).Error; err != nil {
		s.log.Error("submit failed", zap.Error(err))
		return nil, internalError(msgSubmitFailed, err)
	}

	s.log.Info("inquiry submitted", zap.Uint("id", inquiry.ID), zap.String("apartment", inquiry.Apartment))
	metrics.RecordInquirySubmitted()

	s.notifier.Notify(notify.Event{
		Kind:    notify.EventInquiryCreated,
		Inquiry: *inquiry,
		At:      now,
	})

	return inquiry, nil
}

// LookupQuery carries the raw lookup query parameters
type LookupQuery struct {
	Phone    string
	Password string
	Limit    string
}

// RecentInquiry is a masked row of the public feed
type RecentInquiry struct {
	ID        uint          `json:"id"`
	Name      string        `json:"name"`
	Apartment string        `json:"apartment"`
	Size      string        `json:"size"`
	Status    domain.Status `json:"status"`
	CreatedAt string        `json:"created_at"`
}

// CustomerInquiry is a row returned to the customer who submitted it
type CustomerInquiry struct {
	ID            uint           `json:"id"`
	Name          string         `json:"name"`
	Phone         string         `json:"phone"`
	Email         *string        `json:"email"`
	Apartment     string         `json:"apartment"`
	Size          string         `json:"size"`
	ApartmentUnit *string        `json:"apartment_unit"`
	MoveInDate    string         `json:"move_in_date"`
	PreferredTime *string        `json:"preferred_time"`
	Options       domain.Options `json:"options"`
	Message       string         `json:"message"`
	Status        domain.Status  `json:"status"`
	AdminResponse *string        `json:"admin_response"`
	CreatedAt     string         `json:"created_at"`
	UpdatedAt     string         `json:"updated_at"`
}

// LookupResult holds either the recent feed or a customer's own rows
type LookupResult struct {
	Mode      string
	Recent    []RecentInquiry
	Inquiries []CustomerInquiry
}

// Lookup serves the recent feed, a phone-only lookup or a phone+PIN lookup
func (s *InquiryService) Lookup(ctx context.Context, q LookupQuery) (*LookupResult, error) {
	phone := strings.TrimSpace(q.Phone)
	if phone == "" {
		return s.recent(ctx, parseBounded(q.Limit, defaultRecentLimit, maxRecentLimit))
	}

	digits := util.NormalizePhone(phone)
	if !util.ValidPhone(digits) {
		return nil, ErrInvalidPhone
	}

	if q.Password != "" {
		if !util.ValidPIN(q.Password) {
			return nil, ErrInvalidPin
		}
		return s.lookupWithPIN(ctx, phone, digits, q.Password)
	}
	return s.lookupByPhone(ctx, phone, digits)
}

func (s *InquiryService) recent(ctx context.Context, limit int) (*LookupResult, error) {
	var rows []domain.Inquiry
	err := s.db.WithContext(ctx).
		Select("id", "name", "apartment", "size", "status", "created_at").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		s.log.Error("recent feed failed", zap.Error(err))
		return nil, internalError(msgLookupFailed, err)
	}

	feed := make([]RecentInquiry, 0, len(rows))
	for _, r := range rows {
		feed = append(feed, RecentInquiry{
			ID:        r.ID,
			Name:      MaskName(r.Name),
			Apartment: TruncateApartment(r.Apartment),
			Size:      r.Size,
			Status:    r.Status,
			CreatedAt: r.CreatedAt.In(s.opts.Location).Format(feedDateLayout),
		})
	}
	metrics.RecordLookup(LookupRecent)
	return &LookupResult{Mode: LookupRecent, Recent: feed}, nil
}

// phoneScope matches rows stored under the raw or digit-only form of a phone
func (s *InquiryService) phoneScope(phone, digits string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if s.opts.Capabilities.HasPhoneDigits {
			return db.Where("phone_digits = ?", digits)
		}
		return db.Where("phone IN ?", []string{phone, digits})
	}
}

func (s *InquiryService) lookupByPhone(ctx context.Context, phone, digits string) (*LookupResult, error) {
	tx := s.db.WithContext(ctx).Scopes(s.phoneScope(phone, digits))
	if s.opts.Capabilities.HasPIN {
		tx = tx.Where("password IS NULL OR password = ''")
	}
	rows, err := s.findCustomerRows(tx)
	if err != nil {
		return nil, err
	}
	metrics.RecordLookup(LookupPhone)
	return &LookupResult{Mode: LookupPhone, Inquiries: rows}, nil
}

func (s *InquiryService) lookupWithPIN(ctx context.Context, phone, digits, pin string) (*LookupResult, error) {
	if s.opts.Capabilities.HasPIN {
		var protected []domain.Inquiry
		err := s.db.WithContext(ctx).
			Scopes(s.phoneScope(phone, digits)).
			Select("id", "password").
			Where("password IS NOT NULL AND password <> ''").
			Find(&protected).Error
		if err != nil {
			s.log.Error("pin lookup failed", zap.Error(err))
			return nil, internalError(msgLookupFailed, err)
		}
		if !anyPINMatches(protected, pin) {
			s.log.Info("pin lookup rejected", zap.Int("candidates", len(protected)))
			return nil, ErrPinMismatch
		}
	}

	rows, err := s.findCustomerRows(s.db.WithContext(ctx).Scopes(s.phoneScope(phone, digits)))
	if err != nil {
		return nil, err
	}
	metrics.RecordLookup(LookupPhonePIN)
	return &LookupResult{Mode: LookupPhonePIN, Inquiries: rows}, nil
}

func anyPINMatches(rows []domain.Inquiry, pin string) bool {
	for _, r := range rows {
		if r.Password != nil && util.CheckPIN(pin, *r.Password) {
			return true
		}
	}
	return false
}

func (s *InquiryService) findCustomerRows(tx *gorm.DB) ([]CustomerInquiry, error) {
	var rows []domain.Inquiry
	if err := tx.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		s.log.Error("phone lookup failed", zap.Error(err))
		return nil, internalError(msgLookupFailed, err)
	}

	out := make([]CustomerInquiry, 0, len(rows))
	for _, r := range rows {
		out = append(out, CustomerInquiry{
			ID:            r.ID,
			Name:          r.Name,
			Phone:         r.Phone,
			Email:         r.Email,
			Apartment:     r.Apartment,
			Size:          r.Size,
			ApartmentUnit: r.ApartmentUnit,
			MoveInDate:    r.MoveInDate,
			PreferredTime: r.PreferredTime,
			Options:       r.Options,
			Message:       r.Message,
			Status:        r.Status,
			AdminResponse: r.AdminNote,
			CreatedAt:     r.CreatedAt.In(s.opts.Location).Format(customerTimeLayout),
			UpdatedAt:     r.UpdatedAt.In(s.opts.Location).Format(customerTimeLayout),
		})
	}
	return out, nil
}

// MaskName keeps the first character and replaces the rest with "**"
func MaskName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if size == 0 || r == utf8.RuneError {
		return "**"
	}
	return string(r) + "**"
}

// TruncateApartment keeps at most four characters, appending "..." when cut
func TruncateApartment(apartment string) string {
	if utf8.RuneCountInString(apartment) <= 4 {
		return apartment
	}
	return string([]rune(apartment)[:4]) + "..."
}
