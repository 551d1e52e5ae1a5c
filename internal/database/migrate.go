package database

import (
	"database/sql"
	"fmt"
	"strings"

	"hazacheck/internal/domain"
	"hazacheck/internal/util"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Capabilities describes optional columns the deployed schema may lack.
// It is resolved once at startup and never re-probed per request.
type Capabilities struct {
	HasPIN         bool
	HasPhoneDigits bool
}

// FullCapabilities is what a freshly migrated schema provides
var FullCapabilities = Capabilities{HasPIN: true, HasPhoneDigits: true}

// MigrationReport counts the rows touched by the legacy normalization steps
type MigrationReport struct {
	OptionsNormalized int
	PINsHashed        int
	PINsSkipped       int
	PhoneDigitsFilled int
}

// Migrate brings the schema up to date when autoMigrate is set and reports
// which optional columns are available.
func Migrate(db *gorm.DB, autoMigrate bool, pinCost int, log *zap.Logger) (Capabilities, error) {
	if !autoMigrate {
		caps := DetectCapabilities(db)
		log.Info("auto-migrate disabled, using detected schema",
			zap.Bool("has_pin", caps.HasPIN), zap.Bool("has_phone_digits", caps.HasPhoneDigits))
		if caps.HasPIN {
			warnUnhashedPINs(db, log)
		}
		return caps, nil
	}

	log.Info("running database migrations")
	report, err := MigrateSchema(db, pinCost)
	if err != nil {
		return Capabilities{}, err
	}
	log.Info("database migrated",
		zap.Int("options_normalized", report.OptionsNormalized),
		zap.Int("pins_hashed", report.PINsHashed),
		zap.Int("pins_skipped", report.PINsSkipped),
		zap.Int("phone_digits_filled", report.PhoneDigitsFilled))

	return FullCapabilities, nil
}

// MigrateSchema creates or alters the inquiries table, then rewrites legacy rows
func MigrateSchema(db *gorm.DB, pinCost int) (MigrationReport, error) {
	if err := db.AutoMigrate(&domain.Inquiry{}); err != nil {
		return MigrationReport{}, fmt.Errorf("failed to migrate database: %w", err)
	}
	return NormalizeLegacy(db, pinCost)
}

// Plaintext PINs never match a bcrypt compare, so PIN lookups on those rows fail
func warnUnhashedPINs(db *gorm.DB, log *zap.Logger) {
	n, err := CountUnhashedPINs(db)
	if err != nil {
		log.Warn("could not inspect stored PINs", zap.Error(err))
		return
	}
	if n > 0 {
		log.Warn("stored PINs are not bcrypt hashes; PIN lookups on these rows will fail until `hazactl migrate` is run",
			zap.Int("rows", n))
	}
}

// CountUnhashedPINs counts non-empty stored PINs that are not bcrypt hashes
func CountUnhashedPINs(db *gorm.DB) (int, error) {
	var rows []pinRow
	if err := db.Table("inquiries").Select("id, password").
		Where("password IS NOT NULL AND password <> ''").Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("failed to read pins: %w", err)
	}
	n := 0
	for _, r := range rows {
		if !util.IsPINHash(r.Password.String) {
			n++
		}
	}
	return n, nil
}

// DetectCapabilities inspects the inquiries table for optional columns
func DetectCapabilities(db *gorm.DB) Capabilities {
	m := db.Migrator()
	return Capabilities{
		HasPIN:         m.HasColumn(&domain.Inquiry{}, "password"),
		HasPhoneDigits: m.HasColumn(&domain.Inquiry{}, "phone_digits"),
	}
}

// NormalizeLegacy runs every legacy rewrite step in order
func NormalizeLegacy(db *gorm.DB, pinCost int) (MigrationReport, error) {
	var report MigrationReport
	var err error

	if report.OptionsNormalized, err = NormalizeLegacyOptions(db); err != nil {
		return report, err
	}
	if report.PINsHashed, report.PINsSkipped, err = HashLegacyPINs(db, pinCost); err != nil {
		return report, err
	}
	if report.PhoneDigitsFilled, err = BackfillPhoneDigits(db); err != nil {
		return report, err
	}
	return report, nil
}

type optionsRow struct {
	ID      uint
	Options sql.NullString
}

// NormalizeLegacyOptions rewrites comma-joined option strings into JSON arrays
func NormalizeLegacyOptions(db *gorm.DB) (int, error) {
	var rows []optionsRow
	if err := db.Table("inquiries").Select("id, options").Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("failed to read options: %w", err)
	}

	n := 0
	for _, r := range rows {
		raw := strings.TrimSpace(r.Options.String)
		if r.Options.Valid && strings.HasPrefix(raw, "[") {
			continue
		}
		canonical, err := domain.ParseLegacyOptions(raw).Value()
		if err != nil {
			return n, err
		}
		if err := db.Table("inquiries").Where("id = ?", r.ID).
			UpdateColumn("options", canonical).Error; err != nil {
			return n, fmt.Errorf("failed to normalize options of inquiry %d: %w", r.ID, err)
		}
		n++
	}
	return n, nil
}

type pinRow struct {
	ID       uint
	Password sql.NullString
}

// HashLegacyPINs replaces plaintext PINs with bcrypt hashes. Stored values that
// are neither a hash nor a 4-digit PIN are left untouched and counted as skipped.
func HashLegacyPINs(db *gorm.DB, cost int) (hashed, skipped int, err error) {
	var rows []pinRow
	if err := db.Table("inquiries").Select("id, password").
		Where("password IS NOT NULL AND password <> ''").Find(&rows).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to read pins: %w", err)
	}

	for _, r := range rows {
		if util.IsPINHash(r.Password.String) {
			continue
		}
		if !util.ValidPIN(r.Password.String) {
			skipped++
			continue
		}
		hash, err := util.HashPIN(r.Password.String, cost)
		if err != nil {
			return hashed, skipped, err
		}
		if err := db.Table("inquiries").Where("id = ?", r.ID).
			UpdateColumn("password", hash).Error; err != nil {
			return hashed, skipped, fmt.Errorf("failed to hash pin of inquiry %d: %w", r.ID, err)
		}
		hashed++
	}
	return hashed, skipped, nil
}

type phoneRow struct {
	ID    uint
	Phone string
}

// BackfillPhoneDigits derives phone_digits for rows written before the column existed
func BackfillPhoneDigits(db *gorm.DB) (int, error) {
	var rows []phoneRow
	if err := db.Table("inquiries").Select("id, phone").
		Where("phone_digits IS NULL OR phone_digits = ''").Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("failed to read phones: %w", err)
	}

	n := 0
	for _, r := range rows {
		digits := util.NormalizePhone(r.Phone)
		if digits == "" {
			continue
		}
		if err := db.Table("inquiries").Where("id = ?", r.ID).
			UpdateColumn("phone_digits", digits).Error; err != nil {
			return n, fmt.Errorf("failed to backfill phone of inquiry %d: %w", r.ID, err)
		}
		n++
	}
	return n, nil
}
