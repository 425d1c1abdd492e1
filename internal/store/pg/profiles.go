package pg

import (
	"context"
	"time"

	"ongon.org/internal/welfare"
)

const donorColumns = `id, user_id, donor_type, organization_name, tax_id, preferred_causes,
	donation_frequency, total_donated, is_anonymous, created_at, updated_at`

func scanDonor(row scanner) (welfare.DonorProfile, error) {
	var (
		p      welfare.DonorProfile
		causes texts
	)
	err := row.Scan(&p.ID, &p.UserID, &p.DonorType, &p.OrganizationName, &p.TaxID, &causes,
		&p.DonationFrequency, &p.TotalDonated, &p.IsAnonymous, &p.CreatedAt, &p.UpdatedAt)
	p.PreferredCauses = causes
	return p, mapError(err, "Donor profile")
}

func (s *Store) CreateDonorProfile(ctx context.Context, userID string, in welfare.DonorProfileInput) (welfare.DonorProfile, error) {
	return scanDonor(s.conn(ctx).QueryRowContext(ctx, `
		insert into donor_profiles (user_id, donor_type, organization_name, tax_id, preferred_causes,
			donation_frequency, is_anonymous)
		values ($1, coalesce($2, 'individual'), coalesce($3, ''), coalesce($4, ''), $5, coalesce($6, ''), coalesce($7, false))
		returning `+donorColumns,
		userID, in.DonorType, in.OrganizationName, in.TaxID, jsonList(in.PreferredCauses), in.DonationFrequency, in.IsAnonymous))
}

func (s *Store) GetDonorProfile(ctx context.Context, userID string) (welfare.DonorProfile, error) {
	return scanDonor(s.conn(ctx).QueryRowContext(ctx,
		`select `+donorColumns+` from donor_profiles where user_id = $1`, userID))
}

func (s *Store) UpdateDonorProfile(ctx context.Context, userID string, in welfare.DonorProfileInput) (welfare.DonorProfile, error) {
	var set setter
	setIf(&set, "donor_type", in.DonorType)
	setIf(&set, "organization_name", in.OrganizationName)
	setIf(&set, "tax_id", in.TaxID)
	if in.PreferredCauses != nil {
		set.set("preferred_causes", jsonList(in.PreferredCauses))
	}
	setIf(&set, "donation_frequency", in.DonationFrequency)
	setIf(&set, "is_anonymous", in.IsAnonymous)
	if err := s.update(ctx, &set, "donor_profiles", userID, "Donor profile"); err != nil {
		return welfare.DonorProfile{}, err
	}
	return s.GetDonorProfile(ctx, userID)
}

const volunteerColumns = `id, user_id, skills, availability_days, availability_hours, experience_years,
	languages_spoken, emergency_contact_name, emergency_contact_phone, background_check_status,
	total_hours_volunteered, created_at, updated_at`

func scanVolunteer(row scanner) (welfare.VolunteerProfile, error) {
	var (
		p                  welfare.VolunteerProfile
		skills, days, lang texts
	)
	err := row.Scan(&p.ID, &p.UserID, &skills, &days, &p.AvailabilityHours, &p.ExperienceYears,
		&lang, &p.EmergencyContactName, &p.EmergencyContactPhone, &p.BackgroundCheckStatus,
		&p.TotalHoursVolunteered, &p.CreatedAt, &p.UpdatedAt)
	p.Skills, p.AvailabilityDays, p.LanguagesSpoken = skills, days, lang
	return p, mapError(err, "Volunteer profile")
}

func (s *Store) CreateVolunteerProfile(ctx context.Context, userID string, in welfare.VolunteerProfileInput) (welfare.VolunteerProfile, error) {
	return scanVolunteer(s.conn(ctx).QueryRowContext(ctx, `
		insert into volunteer_profiles (user_id, skills, availability_days, availability_hours, experience_years,
			languages_spoken, emergency_contact_name, emergency_contact_phone)
		values ($1, $2, $3, coalesce($4, ''), $5, $6, coalesce($7, ''), coalesce($8, ''))
		returning `+volunteerColumns,
		userID, jsonList(in.Skills), jsonList(in.AvailabilityDays), in.AvailabilityHours, in.ExperienceYears,
		jsonList(in.LanguagesSpoken), in.EmergencyContactName, in.EmergencyContactPhone))
}

func (s *Store) GetVolunteerProfile(ctx context.Context, userID string) (welfare.VolunteerProfile, error) {
	return scanVolunteer(s.conn(ctx).QueryRowContext(ctx,
		`select `+volunteerColumns+` from volunteer_profiles where user_id = $1`, userID))
}

func (s *Store) UpdateVolunteerProfile(ctx context.Context, userID string, in welfare.VolunteerProfileInput) (welfare.VolunteerProfile, error) {
	var set setter
	if in.Skills != nil {
		set.set("skills", jsonList(in.Skills))
	}
	if in.AvailabilityDays != nil {
		set.set("availability_days", jsonList(in.AvailabilityDays))
	}
	setIf(&set, "availability_hours", in.AvailabilityHours)
	setIf(&set, "experience_years", in.ExperienceYears)
	if in.LanguagesSpoken != nil {
		set.set("languages_spoken", jsonList(in.LanguagesSpoken))
	}
	setIf(&set, "emergency_contact_name", in.EmergencyContactName)
	setIf(&set, "emergency_contact_phone", in.EmergencyContactPhone)
	if err := s.update(ctx, &set, "volunteer_profiles", userID, "Volunteer profile"); err != nil {
		return welfare.VolunteerProfile{}, err
	}
	return s.GetVolunteerProfile(ctx, userID)
}

const beneficiaryColumns = `id, user_id, household_size, monthly_income, employment_status, education_level,
	health_conditions, assistance_needed, eligibility_verified, verified_by, verified_at, created_at, updated_at`

func scanBeneficiary(row scanner) (welfare.BeneficiaryProfile, error) {
	var (
		p              welfare.BeneficiaryProfile
		health, assist texts
	)
	err := row.Scan(&p.ID, &p.UserID, &p.HouseholdSize, &p.MonthlyIncome, &p.EmploymentStatus, &p.EducationLevel,
		&health, &assist, &p.EligibilityVerified, &p.VerifiedBy, &p.VerifiedAt, &p.CreatedAt, &p.UpdatedAt)
	p.HealthConditions, p.AssistanceNeeded = health, assist
	return p, mapError(err, "Beneficiary profile")
}

func (s *Store) CreateBeneficiaryProfile(ctx context.Context, userID string, in welfare.BeneficiaryProfileInput) (welfare.BeneficiaryProfile, error) {
	return scanBeneficiary(s.conn(ctx).QueryRowContext(ctx, `
		insert into beneficiary_profiles (user_id, household_size, monthly_income, employment_status,
			education_level, health_conditions, assistance_needed)
		values ($1, $2, $3, coalesce($4, ''), coalesce($5, ''), $6, $7)
		returning `+beneficiaryColumns,
		userID, in.HouseholdSize, in.MonthlyIncome, in.EmploymentStatus, in.EducationLevel,
		jsonList(in.HealthConditions), jsonList(in.AssistanceNeeded)))
}

func (s *Store) GetBeneficiaryProfile(ctx context.Context, userID string) (welfare.BeneficiaryProfile, error) {
	return scanBeneficiary(s.conn(ctx).QueryRowContext(ctx,
		`select `+beneficiaryColumns+` from beneficiary_profiles where user_id = $1`, userID))
}

func (s *Store) UpdateBeneficiaryProfile(ctx context.Context, userID string, in welfare.BeneficiaryProfileInput) (welfare.BeneficiaryProfile, error) {
	var set setter
	setIf(&set, "household_size", in.HouseholdSize)
	setIf(&set, "monthly_income", in.MonthlyIncome)
	setIf(&set, "employment_status", in.EmploymentStatus)
	setIf(&set, "education_level", in.EducationLevel)
	if in.HealthConditions != nil {
		set.set("health_conditions", jsonList(in.HealthConditions))
	}
	if in.AssistanceNeeded != nil {
		set.set("assistance_needed", jsonList(in.AssistanceNeeded))
	}
	if err := s.update(ctx, &set, "beneficiary_profiles", userID, "Beneficiary profile"); err != nil {
		return welfare.BeneficiaryProfile{}, err
	}
	return s.GetBeneficiaryProfile(ctx, userID)
}

func (s *Store) VerifyBeneficiary(ctx context.Context, userID, verifierID string, at time.Time) (welfare.BeneficiaryProfile, error) {
	return scanBeneficiary(s.conn(ctx).QueryRowContext(ctx, `
		update beneficiary_profiles
		set eligibility_verified = true, verified_by = $2, verified_at = $3, updated_at = now()
		where user_id = $1
		returning `+beneficiaryColumns, userID, verifierID, at))
}

// update applies a per-user profile update.
func (s *Store) update(ctx context.Context, set *setter, table, userID, entity string) error {
	if set.empty() {
		return nil
	}
	set.touch()
	q, args := set.statement(table, "user_id", userID)
	res, err := s.conn(ctx).ExecContext(ctx, q, args...)
	if err != nil {
		return mapError(err, entity)
	}
	return affected(res, entity)
}
