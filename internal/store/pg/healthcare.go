package pg

import (
	"context"
	"time"

	"ongon.org/internal/lifecycle"
	"ongon.org/internal/welfare"
)

const providerSelect = `
	select p.id, p.user_id, trim(u.first_name || ' ' || u.last_name), p.license_number, p.specialization,
		p.qualifications, p.experience_years, p.consultation_fee, p.is_verified, p.verified_by, p.verified_at,
		p.created_at
	from healthcare_providers p
	join users u on u.id = p.user_id`

func scanProvider(row scanner) (welfare.Provider, error) {
	var (
		p     welfare.Provider
		quals texts
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.LicenseNumber, &p.Specialization,
		&quals, &p.ExperienceYears, &p.ConsultationFee, &p.IsVerified, &p.VerifiedBy, &p.VerifiedAt,
		&p.CreatedAt)
	p.Qualifications = quals
	return p, mapError(err, "Provider")
}

func (s *Store) ListProviders(ctx context.Context, verifiedOnly bool, specialization string, pg welfare.Page) ([]welfare.Provider, int, error) {
	var w filter
	if verifiedOnly {
		w.add("p.is_verified")
	}
	if specialization != "" {
		w.add("p.specialization ilike ?", like(specialization))
	}
	total, err := s.count(ctx, `select count(*) from healthcare_providers p`+w.where(), w.args...)
	if err != nil {
		return nil, 0, err
	}
	q := providerSelect + w.where() + ` order by p.created_at desc` + w.page(pg.Limit(), pg.Offset())
	rows, err := s.conn(ctx).QueryContext(ctx, q, w.args...)
	items, err := collect(rows, err, scanProvider)
	return items, total, err
}

func (s *Store) GetProvider(ctx context.Context, id int64) (welfare.Provider, error) {
	return scanProvider(s.conn(ctx).QueryRowContext(ctx, providerSelect+` where p.id = $1`, id))
}

func (s *Store) GetProviderByUser(ctx context.Context, userID string) (welfare.Provider, error) {
	return scanProvider(s.conn(ctx).QueryRowContext(ctx, providerSelect+` where p.user_id = $1`, userID))
}

func (s *Store) CreateProvider(ctx context.Context, userID string, in welfare.ProviderInput) (welfare.Provider, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into healthcare_providers (user_id, license_number, specialization, qualifications,
			experience_years, consultation_fee)
		values ($1, $2, $3, $4, $5, $6)
		returning id
	`, userID, in.LicenseNumber, in.Specialization, jsonList(in.Qualifications),
		in.ExperienceYears, in.ConsultationFee).Scan(&id)
	if err != nil {
		return welfare.Provider{}, mapError(err, "Provider")
	}
	return s.GetProvider(ctx, id)
}

func (s *Store) VerifyProvider(ctx context.Context, id int64, verifierID string, at time.Time) (welfare.Provider, error) {
	res, err := s.conn(ctx).ExecContext(ctx, `
		update healthcare_providers set is_verified = true, verified_by = $2, verified_at = $3 where id = $1
	`, id, verifierID, at)
	if err != nil {
		return welfare.Provider{}, err
	}
	if err := affected(res, "Provider"); err != nil {
		return welfare.Provider{}, err
	}
	return s.GetProvider(ctx, id)
}

func (s *Store) EnsurePatient(ctx context.Context, userID string) error {
	_, err := s.conn(ctx).ExecContext(ctx,
		`insert into patients (user_id) values ($1) on conflict (user_id) do nothing`, userID)
	return mapError(err, "User")
}

const consultationSelect = `
	select c.id, pt.user_id, c.provider_id, hp.user_id, c.consultation_type, c.appointment_date, c.status,
		c.symptoms, c.diagnosis, c.prescription, c.follow_up_date, c.consultation_fee, c.notes, c.created_at
	from consultations c
	join patients pt on pt.id = c.patient_id
	join healthcare_providers hp on hp.id = c.provider_id`

func scanConsultation(row scanner) (welfare.Consultation, error) {
	var c welfare.Consultation
	err := row.Scan(&c.ID, &c.PatientUserID, &c.ProviderID, &c.ProviderUserID, &c.ConsultationType,
		&c.AppointmentDate, &c.Status, &c.Symptoms, &c.Diagnosis, &c.Prescription, &c.FollowUpDate,
		&c.ConsultationFee, &c.Notes, &c.CreatedAt)
	return c, mapError(err, "Consultation")
}

func (s *Store) CreateConsultation(ctx context.Context, c welfare.Consultation) (welfare.Consultation, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into consultations (patient_id, provider_id, consultation_type, appointment_date, status,
			symptoms, consultation_fee)
		select pt.id, $2, coalesce(nullif($3, ''), 'offline'), $4, $5, $6, $7
		from patients pt where pt.user_id = $1
		returning id
	`, c.PatientUserID, c.ProviderID, c.ConsultationType, c.AppointmentDate, c.Status,
		c.Symptoms, c.ConsultationFee).Scan(&id)
	if err != nil {
		return welfare.Consultation{}, mapError(err, "Patient")
	}
	return s.GetConsultation(ctx, id)
}

func (s *Store) GetConsultation(ctx context.Context, id int64) (welfare.Consultation, error) {
	return scanConsultation(s.conn(ctx).QueryRowContext(ctx, consultationSelect+` where c.id = $1`, id))
}

// ListConsultationsByUser returns consultations where the user is the
// patient or the provider.
func (s *Store) ListConsultationsByUser(ctx context.Context, userID string) ([]welfare.Consultation, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, consultationSelect+`
		where pt.user_id = $1 or hp.user_id = $1
		order by c.appointment_date desc nulls last, c.id desc`, userID)
	return collect(rows, err, scanConsultation)
}

func (s *Store) UpdateConsultation(ctx context.Context, id int64, out welfare.ConsultationOutcome) (welfare.Consultation, error) {
	res, err := s.conn(ctx).ExecContext(ctx, `
		update consultations
		set status = $2, diagnosis = $3, prescription = $4, follow_up_date = $5, notes = $6
		where id = $1
	`, id, out.Status, out.Diagnosis, out.Prescription, out.FollowUpDate, out.Notes)
	if err != nil {
		return welfare.Consultation{}, err
	}
	if err := affected(res, "Consultation"); err != nil {
		return welfare.Consultation{}, err
	}
	return s.GetConsultation(ctx, id)
}

const bloodDonorSelect = `
	select d.id, d.user_id, trim(u.first_name || ' ' || u.last_name), u.city, d.blood_group,
		d.last_donation_date, d.health_status, d.medical_conditions, d.is_available, d.total_donations,
		d.created_at
	from blood_donors d
	join users u on u.id = d.user_id`

func scanBloodDonor(row scanner) (welfare.BloodDonor, error) {
	var (
		d          welfare.BloodDonor
		conditions texts
	)
	err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.City, &d.BloodGroup,
		&d.LastDonationDate, &d.HealthStatus, &conditions, &d.IsAvailable, &d.TotalDonations,
		&d.CreatedAt)
	d.MedicalConditions = conditions
	return d, mapError(err, "Blood donor")
}

func (s *Store) CreateBloodDonor(ctx context.Context, userID string, in welfare.BloodDonorInput) (welfare.BloodDonor, error) {
	_, err := s.conn(ctx).ExecContext(ctx, `
		insert into blood_donors (user_id, blood_group, last_donation_date, health_status, medical_conditions,
			is_available)
		values ($1, $2, $3, coalesce(nullif($4, ''), 'eligible'), $5, coalesce($6, true))
	`, userID, in.BloodGroup, in.LastDonationDate, in.HealthStatus, jsonList(in.MedicalConditions), in.IsAvailable)
	if err != nil {
		return welfare.BloodDonor{}, mapError(err, "User")
	}
	return s.GetBloodDonorByUser(ctx, userID)
}

func (s *Store) GetBloodDonorByUser(ctx context.Context, userID string) (welfare.BloodDonor, error) {
	return scanBloodDonor(s.conn(ctx).QueryRowContext(ctx, bloodDonorSelect+` where d.user_id = $1`, userID))
}

func (s *Store) UpdateBloodDonor(ctx context.Context, userID string, upd welfare.BloodDonorUpdate) (welfare.BloodDonor, error) {
	var set setter
	setIf(&set, "last_donation_date", upd.LastDonationDate)
	setIf(&set, "health_status", upd.HealthStatus)
	if upd.MedicalConditions != nil {
		set.set("medical_conditions", jsonList(upd.MedicalConditions))
	}
	setIf(&set, "is_available", upd.IsAvailable)
	setIf(&set, "total_donations", upd.TotalDonations)
	if !set.empty() {
		q, args := set.statement("blood_donors", "user_id", userID)
		res, err := s.conn(ctx).ExecContext(ctx, q, args...)
		if err != nil {
			return welfare.BloodDonor{}, err
		}
		if err := affected(res, "Blood donor"); err != nil {
			return welfare.BloodDonor{}, err
		}
	}
	return s.GetBloodDonorByUser(ctx, userID)
}

func (s *Store) ListAvailableBloodDonors(ctx context.Context, bloodGroup string, p welfare.Page) ([]welfare.BloodDonor, int, error) {
	var w filter
	w.add("d.is_available")
	if bloodGroup != "" {
		w.add("d.blood_group = ?", bloodGroup)
	}
	total, err := s.count(ctx, `select count(*) from blood_donors d`+w.where(), w.args...)
	if err != nil {
		return nil, 0, err
	}
	q := bloodDonorSelect + w.where() + ` order by d.last_donation_date nulls first, d.id` + w.page(p.Limit(), p.Offset())
	rows, err := s.conn(ctx).QueryContext(ctx, q, w.args...)
	items, err := collect(rows, err, scanBloodDonor)
	return items, total, err
}

const bloodRequestColumns = `id, requester_id, patient_name, blood_group, units_needed, urgency_level,
	hospital_name, hospital_address, contact_phone, needed_by_date, status, created_at`

func scanBloodRequest(row scanner) (welfare.BloodRequest, error) {
	var r welfare.BloodRequest
	err := row.Scan(&r.ID, &r.RequesterID, &r.PatientName, &r.BloodGroup, &r.UnitsNeeded, &r.UrgencyLevel,
		&r.HospitalName, &r.HospitalAddress, &r.ContactPhone, &r.NeededByDate, &r.Status, &r.CreatedAt)
	return r, mapError(err, "Blood request")
}

func (s *Store) CreateBloodRequest(ctx context.Context, requesterID string, in welfare.BloodRequestInput) (welfare.BloodRequest, error) {
	return scanBloodRequest(s.conn(ctx).QueryRowContext(ctx, `
		insert into blood_requests (requester_id, patient_name, blood_group, units_needed, urgency_level,
			hospital_name, hospital_address, contact_phone, needed_by_date)
		values ($1, $2, $3, $4, coalesce(nullif($5, ''), 'medium'), $6, $7, $8, $9)
		returning `+bloodRequestColumns,
		requesterID, in.PatientName, in.BloodGroup, in.UnitsNeeded, in.UrgencyLevel,
		in.HospitalName, in.HospitalAddress, in.ContactPhone, in.NeededByDate))
}

func (s *Store) GetBloodRequest(ctx context.Context, id int64) (welfare.BloodRequest, error) {
	return scanBloodRequest(s.conn(ctx).QueryRowContext(ctx,
		`select `+bloodRequestColumns+` from blood_requests where id = $1`, id))
}

// ListActiveBloodRequests orders critical requests first, then by need date.
func (s *Store) ListActiveBloodRequests(ctx context.Context, f welfare.BloodRequestFilter, p welfare.Page) ([]welfare.BloodRequest, int, error) {
	var w filter
	w.add("status = ?", string(lifecycle.StatusActive))
	if f.BloodGroup != "" {
		w.add("blood_group = ?", f.BloodGroup)
	}
	if f.Urgency != "" {
		w.add("urgency_level = ?", f.Urgency)
	}
	total, err := s.count(ctx, `select count(*) from blood_requests`+w.where(), w.args...)
	if err != nil {
		return nil, 0, err
	}
	q := `select ` + bloodRequestColumns + ` from blood_requests` + w.where() + `
		order by case urgency_level when 'critical' then 0 when 'high' then 1 when 'medium' then 2 else 3 end,
			needed_by_date nulls last, created_at` + w.page(p.Limit(), p.Offset())
	rows, err := s.conn(ctx).QueryContext(ctx, q, w.args...)
	items, err := collect(rows, err, scanBloodRequest)
	return items, total, err
}

func (s *Store) SetBloodRequestStatus(ctx context.Context, id int64, status lifecycle.Status) (welfare.BloodRequest, error) {
	return scanBloodRequest(s.conn(ctx).QueryRowContext(ctx,
		`update blood_requests set status = $2 where id = $1 returning `+bloodRequestColumns, id, status))
}

const bloodStockColumns = `id, blood_group, units_available, expiry_date, blood_bank_location, last_updated`

func scanBloodStock(row scanner) (welfare.BloodStock, error) {
	var b welfare.BloodStock
	err := row.Scan(&b.ID, &b.BloodGroup, &b.UnitsAvailable, &b.ExpiryDate, &b.BloodBankLocation, &b.LastUpdated)
	return b, mapError(err, "Blood stock")
}

func (s *Store) ListBloodInventory(ctx context.Context, bloodGroup string) ([]welfare.BloodStock, error) {
	var w filter
	if bloodGroup != "" {
		w.add("blood_group = ?", bloodGroup)
	}
	rows, err := s.conn(ctx).QueryContext(ctx,
		`select `+bloodStockColumns+` from blood_inventory`+w.where()+` order by blood_group, expiry_date nulls last`, w.args...)
	return collect(rows, err, scanBloodStock)
}

func (s *Store) AddBloodStock(ctx context.Context, b welfare.BloodStock) (welfare.BloodStock, error) {
	return scanBloodStock(s.conn(ctx).QueryRowContext(ctx, `
		insert into blood_inventory (blood_group, units_available, expiry_date, blood_bank_location)
		values ($1, $2, $3, $4)
		returning `+bloodStockColumns,
		b.BloodGroup, b.UnitsAvailable, b.ExpiryDate, b.BloodBankLocation))
}

const campSelect = `
	select m.id, m.name, m.description, m.location_address, m.start_date, m.end_date, m.services_offered,
		m.organizer_id, m.capacity, m.registration_fee, m.is_active,
		(select count(*) from camp_registrations r where r.camp_id = m.id),
		m.created_at
	from medical_camps m`

func scanCamp(row scanner) (welfare.MedicalCamp, error) {
	var (
		c        welfare.MedicalCamp
		services texts
	)
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.LocationAddress, &c.StartDate, &c.EndDate, &services,
		&c.OrganizerID, &c.Capacity, &c.RegistrationFee, &c.IsActive, &c.RegistrationCount, &c.CreatedAt)
	c.ServicesOffered = services
	return c, mapError(err, "Medical camp")
}

func (s *Store) ListMedicalCamps(ctx context.Context, activeOnly bool, p welfare.Page) ([]welfare.MedicalCamp, int, error) {
	var w filter
	if activeOnly {
		w.add("m.is_active")
	}
	total, err := s.count(ctx, `select count(*) from medical_camps m`+w.where(), w.args...)
	if err != nil {
		return nil, 0, err
	}
	q := campSelect + w.where() + ` order by m.start_date nulls last, m.id` + w.page(p.Limit(), p.Offset())
	rows, err := s.conn(ctx).QueryContext(ctx, q, w.args...)
	items, err := collect(rows, err, scanCamp)
	return items, total, err
}

func (s *Store) GetMedicalCamp(ctx context.Context, id int64) (welfare.MedicalCamp, error) {
	return scanCamp(s.conn(ctx).QueryRowContext(ctx, campSelect+` where m.id = $1`, id))
}

func (s *Store) CreateMedicalCamp(ctx context.Context, organizerID string, in welfare.MedicalCampInput) (welfare.MedicalCamp, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into medical_camps (name, description, location_address, start_date, end_date, services_offered,
			organizer_id, capacity, registration_fee)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		returning id
	`, in.Name, in.Description, in.LocationAddress, in.StartDate, in.EndDate, jsonList(in.ServicesOffered),
		organizerID, in.Capacity, in.RegistrationFee).Scan(&id)
	if err != nil {
		return welfare.MedicalCamp{}, mapError(err, "Medical camp")
	}
	return s.GetMedicalCamp(ctx, id)
}

func (s *Store) CreateCampRegistration(ctx context.Context, r welfare.CampRegistration) (welfare.CampRegistration, error) {
	var services texts
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into camp_registrations (camp_id, user_id, registration_date, services_requested, special_requirements)
		values ($1, $2, $3, $4, $5)
		returning id, camp_id, user_id, registration_date, services_requested, special_requirements, attendance_status
	`, r.CampID, r.UserID, r.RegistrationDate, jsonList(r.ServicesRequested), r.SpecialRequirements).Scan(
		&r.ID, &r.CampID, &r.UserID, &r.RegistrationDate, &services, &r.SpecialRequirements, &r.AttendanceStatus)
	if err != nil {
		return welfare.CampRegistration{}, mapError(err, "Medical camp")
	}
	r.ServicesRequested = services
	return r, nil
}
