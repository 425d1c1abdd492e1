package welfare

import (
	"context"
	"strings"
	"time"

	"ongon.org/internal/apperr"
	"ongon.org/internal/auth"
	"ongon.org/internal/ledger"
	"ongon.org/internal/lifecycle"
)

// Farmer is a user's farming profile.
type Farmer struct {
	ID                     int64         `json:"id"`
	UserID                 string        `json:"user_id"`
	FarmSizeAcres          *float64      `json:"farm_size_acres"`
	FarmingExperienceYears *int          `json:"farming_experience_years"`
	PrimaryCrops           []string      `json:"primary_crops"`
	FarmingMethods         []string      `json:"farming_methods"`
	LandOwnership          string        `json:"land_ownership,omitempty"`
	IrrigationAccess       bool          `json:"irrigation_access"`
	AnnualIncome           *ledger.Money `json:"annual_income"`
	CreatedAt              time.Time     `json:"created_at"`
}

// FarmerInput creates the caller's farmer profile.
type FarmerInput struct {
	FarmSizeAcres          *float64      `json:"farm_size_acres" validate:"omitempty,min=0"`
	FarmingExperienceYears *int          `json:"farming_experience_years" validate:"omitempty,min=0"`
	PrimaryCrops           []string      `json:"primary_crops"`
	FarmingMethods         []string      `json:"farming_methods"`
	LandOwnership          string        `json:"land_ownership" validate:"omitempty,oneof=owned leased shared"`
	IrrigationAccess       bool          `json:"irrigation_access"`
	AnnualIncome           *ledger.Money `json:"annual_income" validate:"omitempty,min=0"`
}

// Farm is a plot managed by a farmer.
type Farm struct {
	ID              int64     `json:"id"`
	FarmerID        int64     `json:"farmer_id"`
	OwnerID         string    `json:"owner_id"`
	Name            string    `json:"name" validate:"required"`
	LocationAddress string    `json:"location_address,omitempty"`
	TotalAreaAcres  *float64  `json:"total_area_acres" validate:"omitempty,min=0"`
	SoilType        string    `json:"soil_type,omitempty"`
	WaterSource     string    `json:"water_source,omitempty"`
	Infrastructure  []string  `json:"infrastructure"`
	CreatedAt       time.Time `json:"created_at"`
}

// Crop is a catalog crop.
type Crop struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	ScientificName    string `json:"scientific_name,omitempty"`
	Category          string `json:"category,omitempty"`
	GrowingSeason     string `json:"growing_season,omitempty"`
	MaturityDays      *int   `json:"maturity_days"`
	WaterRequirements string `json:"water_requirements,omitempty"`
}

// CropCycle is one planting of a crop on a farm.
type CropCycle struct {
	ID                  int64            `json:"id"`
	FarmID              int64            `json:"farm_id"`
	OwnerID             string           `json:"-"`
	CropID              *int64           `json:"crop_id"`
	AreaPlantedAcres    *float64         `json:"area_planted_acres"`
	PlantingDate        lifecycle.Date   `json:"planting_date"`
	ExpectedHarvestDate lifecycle.Date   `json:"expected_harvest_date"`
	ActualHarvestDate   lifecycle.Date   `json:"actual_harvest_date"`
	Status              lifecycle.Status `json:"status"`
	Notes               string           `json:"notes,omitempty"`
	IsCompleted         bool             `json:"is_completed"`
	CreatedAt           time.Time        `json:"created_at"`
}

// CropCycleInput plans a crop cycle.
type CropCycleInput struct {
	FarmID           int64          `json:"farm_id" validate:"required"`
	CropID           *int64         `json:"crop_id"`
	AreaPlantedAcres *float64       `json:"area_planted_acres" validate:"omitempty,gt=0"`
	PlantingDate     lifecycle.Date `json:"planting_date"`
	Notes            string         `json:"notes"`
}

// CropCycleProgress advances a crop cycle.
type CropCycleProgress struct {
	Status            lifecycle.Status `json:"status" validate:"required"`
	ActualHarvestDate lifecycle.Date   `json:"actual_harvest_date"`
	Notes             *string          `json:"notes"`
}

// CropYield records a harvest. Profit and ProfitMargin are derived.
type CropYield struct {
	ID                int64          `json:"id"`
	CropCycleID       int64          `json:"crop_cycle_id"`
	QuantityHarvested float64        `json:"quantity_harvested" validate:"gt=0"`
	Unit              string         `json:"unit" validate:"omitempty,oneof=kg ton quintal maund"`
	QualityGrade      string         `json:"quality_grade,omitempty"`
	MarketPrice       ledger.Money   `json:"market_price" validate:"min=0"`
	TotalRevenue      ledger.Money   `json:"total_revenue" validate:"min=0"`
	ProductionCost    ledger.Money   `json:"production_cost" validate:"min=0"`
	Profit            ledger.Money   `json:"profit"`
	ProfitMargin      *float64       `json:"profit_margin"`
	HarvestDate       lifecycle.Date `json:"harvest_date"`
	CreatedAt         time.Time      `json:"created_at"`
}

// Product is produce listed on the marketplace.
type Product struct {
	ID                int64          `json:"id"`
	FarmerID          int64          `json:"farmer_id"`
	OwnerID           string         `json:"owner_id"`
	CropID            *int64         `json:"crop_id"`
	Title             string         `json:"title" validate:"required,max=255"`
	Description       string         `json:"description,omitempty"`
	QuantityAvailable float64        `json:"quantity_available" validate:"min=0"`
	Unit              string         `json:"unit"`
	PricePerUnit      ledger.Money   `json:"price_per_unit" validate:"min=0"`
	QualityGrade      string         `json:"quality_grade,omitempty"`
	HarvestDate       lifecycle.Date `json:"harvest_date"`
	LocationAddress   string         `json:"location_address,omitempty"`
	Images            []string       `json:"images"`
	IsOrganic         bool           `json:"is_organic"`
	IsAvailable       bool           `json:"is_available"`
	CreatedAt         time.Time      `json:"created_at"`
}

// ProductFilter narrows marketplace listings.
type ProductFilter struct {
	CropID    *int64
	Search    string
	IsOrganic *bool
}

// Inquiry is a buyer's offer on a product.
type Inquiry struct {
	ID                int64            `json:"id"`
	ProductID         int64            `json:"product_id"`
	ProductOwnerID    string           `json:"-"`
	BuyerID           string           `json:"buyer_id"`
	QuantityRequested float64          `json:"quantity_requested" validate:"gt=0"`
	OfferedPrice      *ledger.Money    `json:"offered_price" validate:"omitempty,min=0"`
	Message           string           `json:"message,omitempty"`
	Status            lifecycle.Status `json:"status"`
	CreatedAt         time.Time        `json:"created_at"`
}

// Advisory is an agricultural bulletin valid over a date range.
type Advisory struct {
	ID            int64          `json:"id"`
	Title         string         `json:"title" validate:"required"`
	Content       string         `json:"content"`
	AdvisoryType  string         `json:"advisory_type" validate:"omitempty,oneof=weather pest disease market"`
	TargetCrops   []string       `json:"target_crops"`
	TargetRegions []string       `json:"target_regions"`
	SeverityLevel string         `json:"severity_level" validate:"omitempty,oneof=info warning alert"`
	ValidFrom     lifecycle.Date `json:"valid_from"`
	ValidUntil    lifecycle.Date `json:"valid_until"`
	IssuedBy      string         `json:"issued_by"`
	CreatedAt     time.Time      `json:"created_at"`
}

// AgricultureStore persists the agriculture module.
type AgricultureStore interface {
	CreateFarmer(ctx context.Context, userID string, in FarmerInput) (Farmer, error)
	GetFarmerByUser(ctx context.Context, userID string) (Farmer, error)

	ListCrops(ctx context.Context) ([]Crop, error)
	GetCrop(ctx context.Context, id int64) (Crop, error)

	CreateFarm(ctx context.Context, f Farm) (Farm, error)
	GetFarm(ctx context.Context, id int64) (Farm, error)
	ListFarmsByOwner(ctx context.Context, userID string) ([]Farm, error)

	CreateCropCycle(ctx context.Context, c CropCycle) (CropCycle, error)
	GetCropCycle(ctx context.Context, id int64) (CropCycle, error)
	ListCropCycles(ctx context.Context, farmID int64) ([]CropCycle, error)
	UpdateCropCycle(ctx context.Context, id int64, prog CropCycleProgress) (CropCycle, error)
	CreateCropYield(ctx context.Context, y CropYield) (CropYield, error)

	ListProducts(ctx context.Context, f ProductFilter, p Page) ([]Product, int, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	CreateProduct(ctx context.Context, pr Product) (Product, error)
	CreateInquiry(ctx context.Context, in Inquiry) (Inquiry, error)
	GetInquiry(ctx context.Context, id int64) (Inquiry, error)
	SetInquiryStatus(ctx context.Context, id int64, status lifecycle.Status) (Inquiry, error)

	ListAdvisories(ctx context.Context, on lifecycle.Date) ([]Advisory, error)
	CreateAdvisory(ctx context.Context, a Advisory) (Advisory, error)
}

// Agriculture implements farmer profiles, farms, crop cycles, the produce
// marketplace and advisories.
type Agriculture struct {
	*base
	store AgricultureStore
}

func (s *Agriculture) today() lifecycle.Date { return lifecycle.DateOf(s.clock()) }

// RegisterFarmer creates the caller's farmer profile and grants the farmer role.
func (s *Agriculture) RegisterFarmer(ctx context.Context, p auth.Principal, in FarmerInput) (Farmer, error) {
	if err := oneOf("land_ownership", in.LandOwnership, "owned", "leased", "shared"); err != nil {
		return Farmer{}, err
	}
	return createProfile(ctx, s.base, p.ID(), auth.RoleFarmer, "Farmer",
		func(c context.Context) (Farmer, error) { return s.store.GetFarmerByUser(c, p.ID()) },
		func(c context.Context) (Farmer, error) { return s.store.CreateFarmer(c, p.ID(), in) })
}

// FarmerProfile returns the caller's farmer profile.
func (s *Agriculture) FarmerProfile(ctx context.Context, p auth.Principal) (Farmer, error) {
	return s.store.GetFarmerByUser(ctx, p.ID())
}

// Crops lists the crop catalog.
func (s *Agriculture) Crops(ctx context.Context) ([]Crop, error) {
	return cached(ctx, s.cache, CacheKeyCrops, s.store.ListCrops)
}

// Crop returns one crop.
func (s *Agriculture) Crop(ctx context.Context, id int64) (Crop, error) {
	return s.store.GetCrop(ctx, id)
}

// CreateFarm adds a farm to the caller's farmer profile.
func (s *Agriculture) CreateFarm(ctx context.Context, p auth.Principal, f Farm) (Farm, error) {
	f.Name = strings.TrimSpace(f.Name)
	if err := required("name", f.Name); err != nil {
		return Farm{}, err
	}
	farmer, err := s.store.GetFarmerByUser(ctx, p.ID())
	if err != nil {
		return Farm{}, err
	}
	f.FarmerID = farmer.ID
	f.OwnerID = p.ID()
	return s.store.CreateFarm(ctx, f)
}

// MyFarms lists the caller's farms.
func (s *Agriculture) MyFarms(ctx context.Context, p auth.Principal) ([]Farm, error) {
	return s.store.ListFarmsByOwner(ctx, p.ID())
}

func (s *Agriculture) ownFarm(ctx context.Context, p auth.Principal, farmID int64) (Farm, error) {
	farm, err := s.store.GetFarm(ctx, farmID)
	if err != nil {
		return Farm{}, err
	}
	if !p.CanManage(farm.OwnerID, auth.PermFarmManagement) {
		return Farm{}, apperr.Forbidden("Access denied")
	}
	return farm, nil
}

func decorateCycle(c CropCycle) CropCycle {
	c.IsCompleted = c.Status == lifecycle.StatusHarvested
	return c
}

// PlanCropCycle starts a planned crop cycle on one of the caller's farms.
func (s *Agriculture) PlanCropCycle(ctx context.Context, p auth.Principal, in CropCycleInput) (CropCycle, error) {
	farm, err := s.ownFarm(ctx, p, in.FarmID)
	if err != nil {
		return CropCycle{}, err
	}
	cycle := CropCycle{
		FarmID:           farm.ID,
		CropID:           in.CropID,
		AreaPlantedAcres: in.AreaPlantedAcres,
		PlantingDate:     in.PlantingDate,
		Status:           lifecycle.CropCycleFlow.Initial(),
		Notes:            strings.TrimSpace(in.Notes),
	}
	if in.CropID != nil {
		crop, err := s.store.GetCrop(ctx, *in.CropID)
		if err != nil {
			return CropCycle{}, err
		}
		if crop.MaturityDays != nil && !in.PlantingDate.IsZero() {
			cycle.ExpectedHarvestDate = in.PlantingDate.AddDays(*crop.MaturityDays)
		}
	}
	created, err := s.store.CreateCropCycle(ctx, cycle)
	if err != nil {
		return CropCycle{}, err
	}
	return decorateCycle(created), nil
}

// FarmCropCycles lists the crop cycles of one of the caller's farms.
func (s *Agriculture) FarmCropCycles(ctx context.Context, p auth.Principal, farmID int64) ([]CropCycle, error) {
	if _, err := s.ownFarm(ctx, p, farmID); err != nil {
		return nil, err
	}
	cycles, err := s.store.ListCropCycles(ctx, farmID)
	if err != nil {
		return nil, err
	}
	for i := range cycles {
		cycles[i] = decorateCycle(cycles[i])
	}
	return cycles, nil
}

// AdvanceCropCycle moves a crop cycle along planned, planted, growing,
// harvested. Harvesting requires the actual harvest date.
func (s *Agriculture) AdvanceCropCycle(ctx context.Context, p auth.Principal, id int64, prog CropCycleProgress) (CropCycle, error) {
	var out CropCycle
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		cycle, err := s.store.GetCropCycle(txCtx, id)
		if err != nil {
			return err
		}
		if !p.CanManage(cycle.OwnerID, auth.PermFarmManagement) {
			return apperr.Forbidden("Access denied")
		}
		if err := lifecycle.CropCycleFlow.Transition(cycle.Status, prog.Status); err != nil {
			return err
		}
		if prog.Status == lifecycle.StatusHarvested {
			if prog.ActualHarvestDate.IsZero() {
				return apperr.Validation("actual_harvest_date is required when harvested")
			}
			if !cycle.PlantingDate.IsZero() && prog.ActualHarvestDate.Before(cycle.PlantingDate) {
				return apperr.Validation("actual_harvest_date cannot be before planting_date")
			}
		}
		updated, err := s.store.UpdateCropCycle(txCtx, id, prog)
		out = decorateCycle(updated)
		return err
	})
	return out, err
}

// RecordYield records the harvest of a crop cycle.
func (s *Agriculture) RecordYield(ctx context.Context, p auth.Principal, cycleID int64, y CropYield) (CropYield, error) {
	cycle, err := s.store.GetCropCycle(ctx, cycleID)
	if err != nil {
		return CropYield{}, err
	}
	if !p.CanManage(cycle.OwnerID, auth.PermFarmManagement) {
		return CropYield{}, apperr.Forbidden("Access denied")
	}
	if y.QuantityHarvested <= 0 {
		return CropYield{}, apperr.Validation("quantity_harvested must be greater than zero")
	}
	if y.TotalRevenue < 0 || y.ProductionCost < 0 || y.MarketPrice < 0 {
		return CropYield{}, apperr.Validation("amounts cannot be negative")
	}
	if y.Unit == "" {
		y.Unit = "kg"
	}
	if y.HarvestDate.IsZero() {
		y.HarvestDate = cycle.ActualHarvestDate
	}
	y.CropCycleID = cycleID
	y.Profit = y.TotalRevenue - y.ProductionCost
	created, err := s.store.CreateCropYield(ctx, y)
	if err != nil {
		return CropYield{}, err
	}
	created.ProfitMargin = ledger.ProfitMargin(created.TotalRevenue, created.ProductionCost)
	return created, nil
}

// Products lists available produce.
func (s *Agriculture) Products(ctx context.Context, f ProductFilter, p Page) (List[Product], error) {
	f.Search = strings.TrimSpace(f.Search)
	items, total, err := s.store.ListProducts(ctx, f, p)
	if err != nil {
		return List[Product]{}, err
	}
	return NewList(items, total, p), nil
}

// ListProduct puts the caller's produce on the marketplace.
func (s *Agriculture) ListProduct(ctx context.Context, p auth.Principal, pr Product) (Product, error) {
	pr.Title = strings.TrimSpace(pr.Title)
	if err := required("title", pr.Title); err != nil {
		return Product{}, err
	}
	if pr.QuantityAvailable < 0 || pr.PricePerUnit < 0 {
		return Product{}, apperr.Validation("quantity and price cannot be negative")
	}
	farmer, err := s.store.GetFarmerByUser(ctx, p.ID())
	if err != nil {
		return Product{}, err
	}
	pr.FarmerID = farmer.ID
	pr.OwnerID = p.ID()
	pr.IsAvailable = true
	if pr.Unit == "" {
		pr.Unit = "kg"
	}
	return s.store.CreateProduct(ctx, pr)
}

// Inquire sends an offer on someone else's product.
func (s *Agriculture) Inquire(ctx context.Context, p auth.Principal, productID int64, in Inquiry) (Inquiry, error) {
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return Inquiry{}, err
	}
	if product.OwnerID == p.ID() {
		return Inquiry{}, apperr.Validation("cannot inquire about your own product")
	}
	if !product.IsAvailable {
		return Inquiry{}, apperr.Conflict("Product is not available")
	}
	if in.QuantityRequested <= 0 {
		return Inquiry{}, apperr.Validation("quantity_requested must be greater than zero")
	}
	if in.QuantityRequested > product.QuantityAvailable {
		return Inquiry{}, apperr.Validation("quantity_requested exceeds quantity available")
	}
	in.ProductID = productID
	in.BuyerID = p.ID()
	in.Status = lifecycle.ProductInquiryFlow.Initial()
	return s.store.CreateInquiry(ctx, in)
}

// RespondToInquiry lets the product owner accept, reject or complete an inquiry.
func (s *Agriculture) RespondToInquiry(ctx context.Context, p auth.Principal, id int64, status lifecycle.Status) (Inquiry, error) {
	var out Inquiry
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		inq, err := s.store.GetInquiry(txCtx, id)
		if err != nil {
			return err
		}
		if inq.ProductOwnerID != p.ID() {
			return apperr.Forbidden("Access denied")
		}
		if err := lifecycle.ProductInquiryFlow.Transition(inq.Status, status); err != nil {
			return err
		}
		out, err = s.store.SetInquiryStatus(txCtx, id, status)
		return err
	})
	return out, err
}

// Advisories lists advisories valid today.
func (s *Agriculture) Advisories(ctx context.Context) ([]Advisory, error) {
	items, err := s.store.ListAdvisories(ctx, s.today())
	if err != nil {
		return nil, err
	}
	today := s.today()
	active := items[:0]
	for _, a := range items {
		if lifecycle.ValidOn(a.ValidFrom, a.ValidUntil, today) {
			active = append(active, a)
		}
	}
	return active, nil
}

// IssueAdvisory publishes an advisory.
func (s *Agriculture) IssueAdvisory(ctx context.Context, p auth.Principal, a Advisory) (Advisory, error) {
	if !p.HasPermission(auth.PermFarmManagement) {
		return Advisory{}, apperr.Forbidden("Insufficient permissions")
	}
	a.Title = strings.TrimSpace(a.Title)
	if err := required("title", a.Title); err != nil {
		return Advisory{}, err
	}
	if !a.ValidFrom.IsZero() && !a.ValidUntil.IsZero() && a.ValidUntil.Before(a.ValidFrom) {
		return Advisory{}, apperr.Validation("valid_until cannot be before valid_from")
	}
	if a.SeverityLevel == "" {
		a.SeverityLevel = "info"
	}
	a.IssuedBy = p.ID()
	return s.store.CreateAdvisory(ctx, a)
}
