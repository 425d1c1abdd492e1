package welfare

import (
	"context"
	"errors"
	"time"

	"ongon.org/internal/apperr"
	"ongon.org/internal/auth"
	"ongon.org/internal/ledger"
)

// DonorProfile describes a user's giving preferences.
type DonorProfile struct {
	ID                int64        `json:"id"`
	UserID            string       `json:"user_id"`
	DonorType         string       `json:"donor_type"`
	OrganizationName  string       `json:"organization_name,omitempty"`
	TaxID             string       `json:"tax_id,omitempty"`
	PreferredCauses   []string     `json:"preferred_causes"`
	DonationFrequency string       `json:"donation_frequency,omitempty"`
	TotalDonated      ledger.Money `json:"total_donated"`
	IsAnonymous       bool         `json:"is_anonymous"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// DonorProfileInput creates or updates a donor profile. Nil fields are
// left unchanged on update.
type DonorProfileInput struct {
	DonorType         *string  `json:"donor_type" validate:"omitempty,oneof=individual corporate foundation"`
	OrganizationName  *string  `json:"organization_name"`
	TaxID             *string  `json:"tax_id"`
	PreferredCauses   []string `json:"preferred_causes"`
	DonationFrequency *string  `json:"donation_frequency" validate:"omitempty,oneof=one-time monthly quarterly yearly"`
	IsAnonymous       *bool    `json:"is_anonymous"`
}

// VolunteerProfile lists a volunteer's skills and availability.
type VolunteerProfile struct {
	ID                    int64     `json:"id"`
	UserID                string    `json:"user_id"`
	Skills                []string  `json:"skills"`
	AvailabilityDays      []string  `json:"availability_days"`
	AvailabilityHours     string    `json:"availability_hours,omitempty"`
	ExperienceYears       *int      `json:"experience_years"`
	LanguagesSpoken       []string  `json:"languages_spoken"`
	EmergencyContactName  string    `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone string    `json:"emergency_contact_phone,omitempty"`
	BackgroundCheckStatus string    `json:"background_check_status"`
	TotalHoursVolunteered float64   `json:"total_hours_volunteered"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// VolunteerProfileInput creates or updates a volunteer profile.
type VolunteerProfileInput struct {
	Skills                []string `json:"skills"`
	AvailabilityDays      []string `json:"availability_days"`
	AvailabilityHours     *string  `json:"availability_hours" validate:"omitempty,oneof=morning afternoon evening flexible"`
	ExperienceYears       *int     `json:"experience_years" validate:"omitempty,min=0"`
	LanguagesSpoken       []string `json:"languages_spoken"`
	EmergencyContactName  *string  `json:"emergency_contact_name"`
	EmergencyContactPhone *string  `json:"emergency_contact_phone"`
}

// BeneficiaryProfile records a household's situation and needs.
type BeneficiaryProfile struct {
	ID                  int64         `json:"id"`
	UserID              string        `json:"user_id"`
	HouseholdSize       *int          `json:"household_size"`
	MonthlyIncome       *ledger.Money `json:"monthly_income"`
	EmploymentStatus    string        `json:"employment_status,omitempty"`
	EducationLevel      string        `json:"education_level,omitempty"`
	HealthConditions    []string      `json:"health_conditions"`
	AssistanceNeeded    []string      `json:"assistance_needed"`
	EligibilityVerified bool          `json:"eligibility_verified"`
	VerifiedBy          *string       `json:"verified_by"`
	VerifiedAt          *time.Time    `json:"verified_at"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// BeneficiaryProfileInput creates or updates a beneficiary profile.
type BeneficiaryProfileInput struct {
	HouseholdSize    *int          `json:"household_size" validate:"omitempty,min=1"`
	MonthlyIncome    *ledger.Money `json:"monthly_income" validate:"omitempty,min=0"`
	EmploymentStatus *string       `json:"employment_status"`
	EducationLevel   *string       `json:"education_level"`
	HealthConditions []string      `json:"health_conditions"`
	AssistanceNeeded []string      `json:"assistance_needed"`
}

// ProfileStore persists the per-user profiles. Each user has at most one
// profile of each kind; a second insert is apperr.ErrConflict.
type ProfileStore interface {
	CreateDonorProfile(ctx context.Context, userID string, in DonorProfileInput) (DonorProfile, error)
	GetDonorProfile(ctx context.Context, userID string) (DonorProfile, error)
	UpdateDonorProfile(ctx context.Context, userID string, in DonorProfileInput) (DonorProfile, error)

	CreateVolunteerProfile(ctx context.Context, userID string, in VolunteerProfileInput) (VolunteerProfile, error)
	GetVolunteerProfile(ctx context.Context, userID string) (VolunteerProfile, error)
	UpdateVolunteerProfile(ctx context.Context, userID string, in VolunteerProfileInput) (VolunteerProfile, error)

	CreateBeneficiaryProfile(ctx context.Context, userID string, in BeneficiaryProfileInput) (BeneficiaryProfile, error)
	GetBeneficiaryProfile(ctx context.Context, userID string) (BeneficiaryProfile, error)
	UpdateBeneficiaryProfile(ctx context.Context, userID string, in BeneficiaryProfileInput) (BeneficiaryProfile, error)
	VerifyBeneficiary(ctx context.Context, userID, verifierID string, at time.Time) (BeneficiaryProfile, error)
}

// Profiles manages donor, volunteer and beneficiary profiles.
type Profiles struct {
	*base
	store ProfileStore
}

// createProfile inserts a profile and grants its role in one unit of work.
func createProfile[T any](ctx context.Context, b *base, userID string, role auth.RoleName, kind string, get func(context.Context) (T, error), create func(context.Context) (T, error)) (T, error) {
	var out T
	err := b.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := get(txCtx); err == nil {
			return apperr.Conflict("%s profile already exists", kind)
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		created, err := create(txCtx)
		if err != nil {
			if err == apperr.ErrConflict {
				return apperr.Conflict("%s profile already exists", kind)
			}
			return err
		}
		if err := b.roles.GrantRole(txCtx, userID, role); err != nil {
			return err
		}
		out = created
		return nil
	})
	return out, err
}

// CreateDonorProfile creates the caller's donor profile and grants the donor role.
func (s *Profiles) CreateDonorProfile(ctx context.Context, p auth.Principal, in DonorProfileInput) (DonorProfile, error) {
	if in.DonorType == nil || *in.DonorType == "" {
		individual := "individual"
		in.DonorType = &individual
	}
	return createProfile(ctx, s.base, p.ID(), auth.RoleDonor, "Donor",
		func(c context.Context) (DonorProfile, error) { return s.store.GetDonorProfile(c, p.ID()) },
		func(c context.Context) (DonorProfile, error) { return s.store.CreateDonorProfile(c, p.ID(), in) })
}

// DonorProfile returns the caller's donor profile.
func (s *Profiles) DonorProfile(ctx context.Context, p auth.Principal) (DonorProfile, error) {
	return s.store.GetDonorProfile(ctx, p.ID())
}

// UpdateDonorProfile patches the caller's donor profile.
func (s *Profiles) UpdateDonorProfile(ctx context.Context, p auth.Principal, in DonorProfileInput) (DonorProfile, error) {
	return s.store.UpdateDonorProfile(ctx, p.ID(), in)
}

// CreateVolunteerProfile creates the caller's volunteer profile and grants the volunteer role.
func (s *Profiles) CreateVolunteerProfile(ctx context.Context, p auth.Principal, in VolunteerProfileInput) (VolunteerProfile, error) {
	if err := nonNegative("experience_years", in.ExperienceYears); err != nil {
		return VolunteerProfile{}, err
	}
	return createProfile(ctx, s.base, p.ID(), auth.RoleVolunteer, "Volunteer",
		func(c context.Context) (VolunteerProfile, error) { return s.store.GetVolunteerProfile(c, p.ID()) },
		func(c context.Context) (VolunteerProfile, error) { return s.store.CreateVolunteerProfile(c, p.ID(), in) })
}

// VolunteerProfile returns the caller's volunteer profile.
func (s *Profiles) VolunteerProfile(ctx context.Context, p auth.Principal) (VolunteerProfile, error) {
	return s.store.GetVolunteerProfile(ctx, p.ID())
}

// UpdateVolunteerProfile patches the caller's volunteer profile.
func (s *Profiles) UpdateVolunteerProfile(ctx context.Context, p auth.Principal, in VolunteerProfileInput) (VolunteerProfile, error) {
	if err := nonNegative("experience_years", in.ExperienceYears); err != nil {
		return VolunteerProfile{}, err
	}
	return s.store.UpdateVolunteerProfile(ctx, p.ID(), in)
}

// CreateBeneficiaryProfile creates the caller's beneficiary profile.
func (s *Profiles) CreateBeneficiaryProfile(ctx context.Context, p auth.Principal, in BeneficiaryProfileInput) (BeneficiaryProfile, error) {
	if in.MonthlyIncome != nil && *in.MonthlyIncome < 0 {
		return BeneficiaryProfile{}, apperr.Validation("monthly_income cannot be negative")
	}
	return createProfile(ctx, s.base, p.ID(), auth.RoleBeneficiary, "Beneficiary",
		func(c context.Context) (BeneficiaryProfile, error) { return s.store.GetBeneficiaryProfile(c, p.ID()) },
		func(c context.Context) (BeneficiaryProfile, error) { return s.store.CreateBeneficiaryProfile(c, p.ID(), in) })
}

// BeneficiaryProfile returns the caller's beneficiary profile.
func (s *Profiles) BeneficiaryProfile(ctx context.Context, p auth.Principal) (BeneficiaryProfile, error) {
	return s.store.GetBeneficiaryProfile(ctx, p.ID())
}

// UpdateBeneficiaryProfile patches the caller's beneficiary profile.
func (s *Profiles) UpdateBeneficiaryProfile(ctx context.Context, p auth.Principal, in BeneficiaryProfileInput) (BeneficiaryProfile, error) {
	if in.MonthlyIncome != nil && *in.MonthlyIncome < 0 {
		return BeneficiaryProfile{}, apperr.Validation("monthly_income cannot be negative")
	}
	return s.store.UpdateBeneficiaryProfile(ctx, p.ID(), in)
}

// VerifyBeneficiary marks a beneficiary's eligibility as verified.
func (s *Profiles) VerifyBeneficiary(ctx context.Context, p auth.Principal, userID string) (BeneficiaryProfile, error) {
	if !p.HasPermission(auth.PermUserManagement) {
		return BeneficiaryProfile{}, apperr.Forbidden("Insufficient permissions")
	}
	return s.store.VerifyBeneficiary(ctx, userID, p.ID(), s.clock())
}
