package welfare

import (
	"context"
	"errors"
	"strings"
	"time"

	"ongon.org/internal/apperr"
	"ongon.org/internal/auth"
	"ongon.org/internal/ledger"
	"ongon.org/internal/lifecycle"
)

// BloodGroups lists the accepted ABO/Rh groups.
var BloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// Provider is a healthcare professional offering consultations.
type Provider struct {
	ID              int64         `json:"id"`
	UserID          string        `json:"user_id"`
	Name            string        `json:"name,omitempty"`
	LicenseNumber   string        `json:"license_number"`
	Specialization  string        `json:"specialization,omitempty"`
	Qualifications  []string      `json:"qualifications"`
	ExperienceYears *int          `json:"experience_years"`
	ConsultationFee *ledger.Money `json:"consultation_fee"`
	IsVerified      bool          `json:"is_verified"`
	VerifiedBy      *string       `json:"verified_by"`
	VerifiedAt      *time.Time    `json:"verified_at"`
	CreatedAt       time.Time     `json:"created_at"`
}

// ProviderInput registers the caller as a provider.
type ProviderInput struct {
	LicenseNumber   string        `json:"license_number" validate:"required"`
	Specialization  string        `json:"specialization"`
	Qualifications  []string      `json:"qualifications"`
	ExperienceYears *int          `json:"experience_years" validate:"omitempty,min=0"`
	ConsultationFee *ledger.Money `json:"consultation_fee" validate:"omitempty,min=0"`
}

// Consultation is a booked appointment between a patient and a provider.
type Consultation struct {
	ID               int64            `json:"id"`
	PatientUserID    string           `json:"patient_user_id"`
	ProviderID       int64            `json:"provider_id"`
	ProviderUserID   string           `json:"provider_user_id"`
	ConsultationType string           `json:"consultation_type"`
	AppointmentDate  *time.Time       `json:"appointment_date"`
	Status           lifecycle.Status `json:"status"`
	Symptoms         string           `json:"symptoms,omitempty"`
	Diagnosis        string           `json:"diagnosis,omitempty"`
	Prescription     string           `json:"prescription,omitempty"`
	FollowUpDate     lifecycle.Date   `json:"follow_up_date"`
	ConsultationFee  *ledger.Money    `json:"consultation_fee"`
	Notes            string           `json:"notes,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

// ConsultationInput books a consultation.
type ConsultationInput struct {
	ProviderID       int64      `json:"provider_id" validate:"required"`
	ConsultationType string     `json:"consultation_type" validate:"omitempty,oneof=online offline emergency"`
	AppointmentDate  *time.Time `json:"appointment_date"`
	Symptoms         string     `json:"symptoms"`
}

// ConsultationOutcome moves a consultation out of scheduled.
type ConsultationOutcome struct {
	Status       lifecycle.Status `json:"status" validate:"required"`
	Diagnosis    string           `json:"diagnosis"`
	Prescription string           `json:"prescription"`
	FollowUpDate lifecycle.Date   `json:"follow_up_date"`
	Notes        string           `json:"notes"`
}

// BloodDonor is a registered donor. CanDonate and NextEligibleDate are
// derived on read.
type BloodDonor struct {
	ID                int64          `json:"id"`
	UserID            string         `json:"user_id"`
	Name              string         `json:"name,omitempty"`
	City              string         `json:"city,omitempty"`
	BloodGroup        string         `json:"blood_group"`
	LastDonationDate  lifecycle.Date `json:"last_donation_date"`
	HealthStatus      string         `json:"health_status"`
	MedicalConditions []string       `json:"medical_conditions"`
	IsAvailable       bool           `json:"is_available"`
	TotalDonations    int            `json:"total_donations"`
	CanDonate         bool           `json:"can_donate"`
	NextEligibleDate  lifecycle.Date `json:"next_eligible_date"`
	CreatedAt         time.Time      `json:"created_at"`
}

// BloodDonorInput registers the caller as a donor.
type BloodDonorInput struct {
	BloodGroup        string         `json:"blood_group" validate:"required"`
	LastDonationDate  lifecycle.Date `json:"last_donation_date"`
	HealthStatus      string         `json:"health_status" validate:"omitempty,oneof=eligible ineligible temporary_defer"`
	MedicalConditions []string       `json:"medical_conditions"`
	IsAvailable       *bool          `json:"is_available"`
}

// BloodDonorUpdate patches the caller's donor record.
type BloodDonorUpdate struct {
	LastDonationDate  *lifecycle.Date `json:"last_donation_date"`
	HealthStatus      *string         `json:"health_status" validate:"omitempty,oneof=eligible ineligible temporary_defer"`
	MedicalConditions []string        `json:"medical_conditions"`
	IsAvailable       *bool           `json:"is_available"`
	TotalDonations    *int            `json:"total_donations" validate:"omitempty,min=0"`
}

// BloodRequest asks donors for blood. IsUrgent is derived.
type BloodRequest struct {
	ID              int64            `json:"id"`
	RequesterID     string           `json:"requester_id"`
	PatientName     string           `json:"patient_name"`
	BloodGroup      string           `json:"blood_group"`
	UnitsNeeded     int              `json:"units_needed"`
	UrgencyLevel    string           `json:"urgency_level"`
	HospitalName    string           `json:"hospital_name,omitempty"`
	HospitalAddress string           `json:"hospital_address,omitempty"`
	ContactPhone    string           `json:"contact_phone"`
	NeededByDate    lifecycle.Date   `json:"needed_by_date"`
	Status          lifecycle.Status `json:"status"`
	IsUrgent        bool             `json:"is_urgent"`
	CreatedAt       time.Time        `json:"created_at"`
}

// BloodRequestInput files a blood request.
type BloodRequestInput struct {
	PatientName     string         `json:"patient_name" validate:"required"`
	BloodGroup      string         `json:"blood_group" validate:"required"`
	UnitsNeeded     int            `json:"units_needed" validate:"required,min=1"`
	UrgencyLevel    string         `json:"urgency_level" validate:"omitempty,oneof=low medium high critical"`
	HospitalName    string         `json:"hospital_name"`
	HospitalAddress string         `json:"hospital_address"`
	ContactPhone    string         `json:"contact_phone" validate:"required"`
	NeededByDate    lifecycle.Date `json:"needed_by_date"`
}

// BloodRequestFilter narrows blood request listings.
type BloodRequestFilter struct {
	BloodGroup string
	Urgency    string
}

// BloodStock is a blood bank inventory line. IsExpired is derived.
type BloodStock struct {
	ID                int64          `json:"id"`
	BloodGroup        string         `json:"blood_group" validate:"required"`
	UnitsAvailable    int            `json:"units_available" validate:"min=0"`
	ExpiryDate        lifecycle.Date `json:"expiry_date"`
	BloodBankLocation string         `json:"blood_bank_location"`
	IsExpired         bool           `json:"is_expired"`
	LastUpdated       time.Time      `json:"last_updated"`
}

// MedicalCamp is a free health camp with limited registration.
type MedicalCamp struct {
	ID                 int64          `json:"id"`
	Name               string         `json:"name"`
	Description        string         `json:"description,omitempty"`
	LocationAddress    string         `json:"location_address,omitempty"`
	StartDate          lifecycle.Date `json:"start_date"`
	EndDate            lifecycle.Date `json:"end_date"`
	ServicesOffered    []string       `json:"services_offered"`
	OrganizerID        string         `json:"organizer_id"`
	Capacity           *int           `json:"capacity"`
	RegistrationFee    ledger.Money   `json:"registration_fee"`
	IsActive           bool           `json:"is_active"`
	RegistrationCount  int            `json:"registration_count"`
	IsRegistrationOpen bool           `json:"is_registration_open"`
	CreatedAt          time.Time      `json:"created_at"`
}

// Window is the camp's registration window.
func (c MedicalCamp) Window() lifecycle.Window {
	return lifecycle.Window{
		Active:   c.IsActive,
		Capacity: c.Capacity,
		Count:    c.RegistrationCount,
		Deadline: lifecycle.OnDate(c.EndDate),
	}
}

// MedicalCampInput creates a camp.
type MedicalCampInput struct {
	Name            string         `json:"name" validate:"required"`
	Description     string         `json:"description"`
	LocationAddress string         `json:"location_address"`
	StartDate       lifecycle.Date `json:"start_date"`
	EndDate         lifecycle.Date `json:"end_date"`
	ServicesOffered []string       `json:"services_offered"`
	Capacity        *int           `json:"capacity" validate:"omitempty,min=0"`
	RegistrationFee ledger.Money   `json:"registration_fee" validate:"min=0"`
}

// CampRegistration is a user's registration for a camp.
type CampRegistration struct {
	ID                  int64     `json:"id"`
	CampID              int64     `json:"camp_id"`
	UserID              string    `json:"user_id"`
	RegistrationDate    time.Time `json:"registration_date"`
	ServicesRequested   []string  `json:"services_requested"`
	SpecialRequirements string    `json:"special_requirements,omitempty"`
	AttendanceStatus    string    `json:"attendance_status"`
}

// HealthcareStore persists the healthcare module.
type HealthcareStore interface {
	ListProviders(ctx context.Context, verifiedOnly bool, specialization string, p Page) ([]Provider, int, error)
	GetProvider(ctx context.Context, id int64) (Provider, error)
	GetProviderByUser(ctx context.Context, userID string) (Provider, error)
	CreateProvider(ctx context.Context, userID string, in ProviderInput) (Provider, error)
	VerifyProvider(ctx context.Context, id int64, verifierID string, at time.Time) (Provider, error)

	// EnsurePatient creates the user's patient record if it does not exist.
	EnsurePatient(ctx context.Context, userID string) error
	CreateConsultation(ctx context.Context, c Consultation) (Consultation, error)
	GetConsultation(ctx context.Context, id int64) (Consultation, error)
	ListConsultationsByUser(ctx context.Context, userID string) ([]Consultation, error)
	UpdateConsultation(ctx context.Context, id int64, out ConsultationOutcome) (Consultation, error)

	CreateBloodDonor(ctx context.Context, userID string, in BloodDonorInput) (BloodDonor, error)
	GetBloodDonorByUser(ctx context.Context, userID string) (BloodDonor, error)
	UpdateBloodDonor(ctx context.Context, userID string, upd BloodDonorUpdate) (BloodDonor, error)
	ListAvailableBloodDonors(ctx context.Context, bloodGroup string, p Page) ([]BloodDonor, int, error)

	CreateBloodRequest(ctx context.Context, requesterID string, in BloodRequestInput) (BloodRequest, error)
	GetBloodRequest(ctx context.Context, id int64) (BloodRequest, error)
	ListActiveBloodRequests(ctx context.Context, f BloodRequestFilter, p Page) ([]BloodRequest, int, error)
	SetBloodRequestStatus(ctx context.Context, id int64, status lifecycle.Status) (BloodRequest, error)

	ListBloodInventory(ctx context.Context, bloodGroup string) ([]BloodStock, error)
	AddBloodStock(ctx context.Context, s BloodStock) (BloodStock, error)

	ListMedicalCamps(ctx context.Context, activeOnly bool, p Page) ([]MedicalCamp, int, error)
	GetMedicalCamp(ctx context.Context, id int64) (MedicalCamp, error)
	CreateMedicalCamp(ctx context.Context, organizerID string, in MedicalCampInput) (MedicalCamp, error)
	CreateCampRegistration(ctx context.Context, r CampRegistration) (CampRegistration, error)
}

// Healthcare implements providers, consultations, blood donation and camps.
type Healthcare struct {
	*base
	store HealthcareStore
}

func (s *Healthcare) today() lifecycle.Date { return lifecycle.DateOf(s.clock()) }

func validBloodGroup(g string) error {
	for _, bg := range BloodGroups {
		if g == bg {
			return nil
		}
	}
	return apperr.Validation("blood_group must be one of %s", strings.Join(BloodGroups, ", "))
}

func (s *Healthcare) decorateDonor(d BloodDonor) BloodDonor {
	d.CanDonate = lifecycle.CanDonate(d.HealthStatus, d.LastDonationDate, d.IsAvailable, s.today())
	d.NextEligibleDate = lifecycle.NextEligibleDate(d.LastDonationDate)
	if d.MedicalConditions == nil {
		d.MedicalConditions = []string{}
	}
	return d
}

// ListProviders lists verified providers.
func (s *Healthcare) ListProviders(ctx context.Context, specialization string, p Page) (List[Provider], error) {
	items, total, err := s.store.ListProviders(ctx, true, strings.TrimSpace(specialization), p)
	if err != nil {
		return List[Provider]{}, err
	}
	return NewList(items, total, p), nil
}

// RegisterProvider creates the caller's provider profile and grants the
// healthcare_provider role. Providers start unverified.
func (s *Healthcare) RegisterProvider(ctx context.Context, p auth.Principal, in ProviderInput) (Provider, error) {
	in.LicenseNumber = strings.TrimSpace(in.LicenseNumber)
	if err := required("license_number", in.LicenseNumber); err != nil {
		return Provider{}, err
	}
	return createProfile(ctx, s.base, p.ID(), auth.RoleHealthcareProvider, "Provider",
		func(c context.Context) (Provider, error) { return s.store.GetProviderByUser(c, p.ID()) },
		func(c context.Context) (Provider, error) { return s.store.CreateProvider(c, p.ID(), in) })
}

// VerifyProvider marks a provider as verified.
func (s *Healthcare) VerifyProvider(ctx context.Context, p auth.Principal, id int64) (Provider, error) {
	if !p.HasPermission(auth.PermPatientManagement) {
		return Provider{}, apperr.Forbidden("Insufficient permissions")
	}
	return s.store.VerifyProvider(ctx, id, p.ID(), s.clock())
}

// BookConsultation books a consultation for the caller.
func (s *Healthcare) BookConsultation(ctx context.Context, p auth.Principal, in ConsultationInput) (Consultation, error) {
	if in.ConsultationType == "" {
		in.ConsultationType = "online"
	}
	if err := oneOf("consultation_type", in.ConsultationType, "online", "offline", "emergency"); err != nil {
		return Consultation{}, err
	}
	var out Consultation
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		provider, err := s.store.GetProvider(txCtx, in.ProviderID)
		if err != nil {
			return err
		}
		if provider.UserID == p.ID() {
			return apperr.Validation("cannot book a consultation with yourself")
		}
		if err := s.store.EnsurePatient(txCtx, p.ID()); err != nil {
			return err
		}
		out, err = s.store.CreateConsultation(txCtx, Consultation{
			PatientUserID:    p.ID(),
			ProviderID:       provider.ID,
			ConsultationType: in.ConsultationType,
			AppointmentDate:  in.AppointmentDate,
			Status:           lifecycle.ConsultationFlow.Initial(),
			Symptoms:         strings.TrimSpace(in.Symptoms),
			ConsultationFee:  provider.ConsultationFee,
		})
		return err
	})
	return out, err
}

// MyConsultations lists consultations where the caller is patient or provider.
func (s *Healthcare) MyConsultations(ctx context.Context, p auth.Principal) ([]Consultation, error) {
	return s.store.ListConsultationsByUser(ctx, p.ID())
}

// CompleteConsultation records the outcome of a scheduled consultation.
func (s *Healthcare) CompleteConsultation(ctx context.Context, p auth.Principal, id int64, outcome ConsultationOutcome) (Consultation, error) {
	var out Consultation
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		c, err := s.store.GetConsultation(txCtx, id)
		if err != nil {
			return err
		}
		if !p.CanManage(c.ProviderUserID, auth.PermPatientManagement) {
			return apperr.Forbidden("Insufficient permissions")
		}
		if err := lifecycle.ConsultationFlow.Transition(c.Status, outcome.Status); err != nil {
			return err
		}
		out, err = s.store.UpdateConsultation(txCtx, id, outcome)
		return err
	})
	return out, err
}

// RegisterBloodDonor registers the caller as a blood donor.
func (s *Healthcare) RegisterBloodDonor(ctx context.Context, p auth.Principal, in BloodDonorInput) (BloodDonor, error) {
	in.BloodGroup = strings.ToUpper(strings.TrimSpace(in.BloodGroup))
	if err := validBloodGroup(in.BloodGroup); err != nil {
		return BloodDonor{}, err
	}
	if in.HealthStatus == "" {
		in.HealthStatus = lifecycle.HealthEligible
	}
	if !in.LastDonationDate.IsZero() && in.LastDonationDate.After(s.today()) {
		return BloodDonor{}, apperr.Validation("last_donation_date cannot be in the future")
	}
	var out BloodDonor
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.store.GetBloodDonorByUser(txCtx, p.ID()); err == nil {
			return apperr.Conflict("Already registered as blood donor")
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		d, err := s.store.CreateBloodDonor(txCtx, p.ID(), in)
		if err != nil {
			if err == apperr.ErrConflict {
				return apperr.Conflict("Already registered as blood donor")
			}
			return err
		}
		out = s.decorateDonor(d)
		return nil
	})
	return out, err
}

// MyBloodDonor returns the caller's donor record.
func (s *Healthcare) MyBloodDonor(ctx context.Context, p auth.Principal) (BloodDonor, error) {
	d, err := s.store.GetBloodDonorByUser(ctx, p.ID())
	if err != nil {
		return BloodDonor{}, err
	}
	return s.decorateDonor(d), nil
}

// UpdateBloodDonor patches the caller's donor record.
func (s *Healthcare) UpdateBloodDonor(ctx context.Context, p auth.Principal, upd BloodDonorUpdate) (BloodDonor, error) {
	if upd.LastDonationDate != nil && upd.LastDonationDate.After(s.today()) {
		return BloodDonor{}, apperr.Validation("last_donation_date cannot be in the future")
	}
	d, err := s.store.UpdateBloodDonor(ctx, p.ID(), upd)
	if err != nil {
		return BloodDonor{}, err
	}
	return s.decorateDonor(d), nil
}

// BloodDonors lists available donors, optionally of one group.
func (s *Healthcare) BloodDonors(ctx context.Context, bloodGroup string, p Page) (List[BloodDonor], error) {
	bloodGroup = strings.ToUpper(strings.TrimSpace(bloodGroup))
	if bloodGroup != "" {
		if err := validBloodGroup(bloodGroup); err != nil {
			return List[BloodDonor]{}, err
		}
	}
	items, total, err := s.store.ListAvailableBloodDonors(ctx, bloodGroup, p)
	if err != nil {
		return List[BloodDonor]{}, err
	}
	for i := range items {
		items[i] = s.decorateDonor(items[i])
	}
	return NewList(items, total, p), nil
}

// RequestBlood files a blood request.
func (s *Healthcare) RequestBlood(ctx context.Context, p auth.Principal, in BloodRequestInput) (BloodRequest, error) {
	in.BloodGroup = strings.ToUpper(strings.TrimSpace(in.BloodGroup))
	if err := validBloodGroup(in.BloodGroup); err != nil {
		return BloodRequest{}, err
	}
	if err := required("patient_name", in.PatientName); err != nil {
		return BloodRequest{}, err
	}
	if err := required("contact_phone", in.ContactPhone); err != nil {
		return BloodRequest{}, err
	}
	if in.UnitsNeeded <= 0 {
		return BloodRequest{}, apperr.Validation("units_needed must be greater than zero")
	}
	if in.UrgencyLevel == "" {
		in.UrgencyLevel = "medium"
	}
	if err := oneOf("urgency_level", in.UrgencyLevel, "low", "medium", "high", "critical"); err != nil {
		return BloodRequest{}, err
	}
	r, err := s.store.CreateBloodRequest(ctx, p.ID(), in)
	if err != nil {
		return BloodRequest{}, err
	}
	return decorateRequest(r), nil
}

func decorateRequest(r BloodRequest) BloodRequest {
	r.IsUrgent = lifecycle.Urgent(r.UrgencyLevel)
	return r
}

// BloodRequests lists active requests.
func (s *Healthcare) BloodRequests(ctx context.Context, f BloodRequestFilter, p Page) (List[BloodRequest], error) {
	f.BloodGroup = strings.ToUpper(strings.TrimSpace(f.BloodGroup))
	items, total, err := s.store.ListActiveBloodRequests(ctx, f, p)
	if err != nil {
		return List[BloodRequest]{}, err
	}
	for i := range items {
		items[i] = decorateRequest(items[i])
	}
	return NewList(items, total, p), nil
}

// CloseBloodRequest marks a request fulfilled or cancelled.
func (s *Healthcare) CloseBloodRequest(ctx context.Context, p auth.Principal, id int64, status lifecycle.Status) (BloodRequest, error) {
	var out BloodRequest
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		r, err := s.store.GetBloodRequest(txCtx, id)
		if err != nil {
			return err
		}
		if !p.CanManage(r.RequesterID, auth.PermPatientManagement) {
			return apperr.Forbidden("Insufficient permissions")
		}
		if err := lifecycle.BloodRequestFlow.Transition(r.Status, status); err != nil {
			return err
		}
		updated, err := s.store.SetBloodRequestStatus(txCtx, id, status)
		out = decorateRequest(updated)
		return err
	})
	return out, err
}

// BloodInventory lists blood stock, flagging expired lines.
func (s *Healthcare) BloodInventory(ctx context.Context, bloodGroup string) ([]BloodStock, error) {
	items, err := s.store.ListBloodInventory(ctx, strings.ToUpper(strings.TrimSpace(bloodGroup)))
	if err != nil {
		return nil, err
	}
	today := s.today()
	for i := range items {
		items[i].IsExpired = lifecycle.Expired(items[i].ExpiryDate, today)
	}
	return items, nil
}

// AddBloodStock records a blood bank inventory line.
func (s *Healthcare) AddBloodStock(ctx context.Context, p auth.Principal, in BloodStock) (BloodStock, error) {
	if !p.HasPermission(auth.PermPatientManagement) {
		return BloodStock{}, apperr.Forbidden("Insufficient permissions")
	}
	in.BloodGroup = strings.ToUpper(strings.TrimSpace(in.BloodGroup))
	if err := validBloodGroup(in.BloodGroup); err != nil {
		return BloodStock{}, err
	}
	if in.UnitsAvailable < 0 {
		return BloodStock{}, apperr.Validation("units_available cannot be negative")
	}
	out, err := s.store.AddBloodStock(ctx, in)
	if err != nil {
		return BloodStock{}, err
	}
	out.IsExpired = lifecycle.Expired(out.ExpiryDate, s.today())
	return out, nil
}

func (s *Healthcare) decorateCamp(c MedicalCamp) MedicalCamp {
	c.IsRegistrationOpen = c.Window().IsOpen(s.clock())
	if c.ServicesOffered == nil {
		c.ServicesOffered = []string{}
	}
	return c
}

// MedicalCamps lists active camps.
func (s *Healthcare) MedicalCamps(ctx context.Context, p Page) (List[MedicalCamp], error) {
	items, total, err := s.store.ListMedicalCamps(ctx, true, p)
	if err != nil {
		return List[MedicalCamp]{}, err
	}
	for i := range items {
		items[i] = s.decorateCamp(items[i])
	}
	return NewList(items, total, p), nil
}

// CreateMedicalCamp schedules a camp.
func (s *Healthcare) CreateMedicalCamp(ctx context.Context, p auth.Principal, in MedicalCampInput) (MedicalCamp, error) {
	if !p.HasPermission(auth.PermPatientManagement) {
		return MedicalCamp{}, apperr.Forbidden("Insufficient permissions")
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := required("name", in.Name); err != nil {
		return MedicalCamp{}, err
	}
	if err := nonNegative("capacity", in.Capacity); err != nil {
		return MedicalCamp{}, err
	}
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && in.EndDate.Before(in.StartDate) {
		return MedicalCamp{}, apperr.Validation("end_date cannot be before start_date")
	}
	c, err := s.store.CreateMedicalCamp(ctx, p.ID(), in)
	if err != nil {
		return MedicalCamp{}, err
	}
	return s.decorateCamp(c), nil
}

// RegisterForCamp registers the caller for a camp.
func (s *Healthcare) RegisterForCamp(ctx context.Context, p auth.Principal, campID int64, services []string, requirements string) (CampRegistration, error) {
	var out CampRegistration
	err := s.part.join(ctx, ActivityMedicalCamp, campID, p.ID(), func(txCtx context.Context) error {
		r, err := s.store.CreateCampRegistration(txCtx, CampRegistration{
			CampID:              campID,
			UserID:              p.ID(),
			RegistrationDate:    s.clock(),
			ServicesRequested:   services,
			SpecialRequirements: strings.TrimSpace(requirements),
			AttendanceStatus:    "registered",
		})
		out = r
		return err
	})
	return out, err
}
