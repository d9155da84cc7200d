package store

import (
	"context"
	"database/sql"
	"fmt"

	"rental-genie/internal/models"
)

// PostgresRepository persists profiles in the tenant_profiles table, one
// row per session, upserted on every sync.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const loadProfileQuery = `
	SELECT age, sex, occupation, move_in_date, rental_duration,
	       guarantor_status, guarantor_details, viewing_interest,
	       availability, language_preference, status, property_interest,
	       notes, created_at, last_updated, conversation_turns
	FROM tenant_profiles
	WHERE session_id = $1`

const saveProfileQuery = `
	INSERT INTO tenant_profiles (
		session_id, age, sex, occupation, move_in_date, rental_duration,
		guarantor_status, guarantor_details, viewing_interest, availability,
		language_preference, status, property_interest, notes,
		created_at, last_updated, conversation_turns
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	ON CONFLICT (session_id) DO UPDATE SET
		age = EXCLUDED.age,
		sex = EXCLUDED.sex,
		occupation = EXCLUDED.occupation,
		move_in_date = EXCLUDED.move_in_date,
		rental_duration = EXCLUDED.rental_duration,
		guarantor_status = EXCLUDED.guarantor_status,
		guarantor_details = EXCLUDED.guarantor_details,
		viewing_interest = EXCLUDED.viewing_interest,
		availability = EXCLUDED.availability,
		language_preference = EXCLUDED.language_preference,
		status = EXCLUDED.status,
		property_interest = EXCLUDED.property_interest,
		notes = EXCLUDED.notes,
		last_updated = EXCLUDED.last_updated,
		conversation_turns = EXCLUDED.conversation_turns`

func (r *PostgresRepository) Load(ctx context.Context, sessionID string) (*models.TenantProfile, error) {
	var (
		profile         models.TenantProfile
		status          string
		viewingInterest sql.NullBool
	)

	err := r.db.QueryRowContext(ctx, loadProfileQuery, sessionID).Scan(
		&profile.Age,
		&profile.Sex,
		&profile.Occupation,
		&profile.MoveInDate,
		&profile.RentalDuration,
		&profile.GuarantorStatus,
		&profile.GuarantorDetails,
		&viewingInterest,
		&profile.Availability,
		&profile.LanguagePreference,
		&status,
		&profile.PropertyInterest,
		&profile.Notes,
		&profile.CreatedAt,
		&profile.LastUpdated,
		&profile.ConversationTurns,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile for session %s: %w", sessionID, err)
	}

	profile.Status = models.TenantStatus(status)
	if viewingInterest.Valid {
		v := viewingInterest.Bool
		profile.ViewingInterest = &v
	}
	return &profile, nil
}

func (r *PostgresRepository) Save(ctx context.Context, sessionID string, profile *models.TenantProfile) error {
	var viewingInterest sql.NullBool
	if profile.ViewingInterest != nil {
		viewingInterest = sql.NullBool{Bool: *profile.ViewingInterest, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, saveProfileQuery,
		sessionID,
		profile.Age,
		profile.Sex,
		profile.Occupation,
		profile.MoveInDate,
		profile.RentalDuration,
		profile.GuarantorStatus,
		profile.GuarantorDetails,
		viewingInterest,
		profile.Availability,
		profile.LanguagePreference,
		string(profile.Status),
		profile.PropertyInterest,
		profile.Notes,
		profile.CreatedAt,
		profile.LastUpdated,
		profile.ConversationTurns,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile for session %s: %w", sessionID, err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tenant_profiles WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete profile for session %s: %w", sessionID, err)
	}
	return nil
}
