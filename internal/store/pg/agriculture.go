package pg

import (
	"context"

	"ongon.org/internal/lifecycle"
	"ongon.org/internal/welfare"
)

const farmerColumns = `id, user_id, farm_size_acres, farming_experience_years, primary_crops, farming_methods,
	land_ownership, irrigation_access, annual_income, created_at`

func scanFarmer(row scanner) (welfare.Farmer, error) {
	var (
		f              welfare.Farmer
		crops, methods texts
	)
	err := row.Scan(&f.ID, &f.UserID, &f.FarmSizeAcres, &f.FarmingExperienceYears, &crops, &methods,
		&f.LandOwnership, &f.IrrigationAccess, &f.AnnualIncome, &f.CreatedAt)
	f.PrimaryCrops, f.FarmingMethods = crops, methods
	return f, mapError(err, "Farmer")
}

func (s *Store) CreateFarmer(ctx context.Context, userID string, in welfare.FarmerInput) (welfare.Farmer, error) {
	return scanFarmer(s.conn(ctx).QueryRowContext(ctx, `
		insert into farmers (user_id, farm_size_acres, farming_experience_years, primary_crops, farming_methods,
			land_ownership, irrigation_access, annual_income)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning `+farmerColumns,
		userID, in.FarmSizeAcres, in.FarmingExperienceYears, jsonList(in.PrimaryCrops), jsonList(in.FarmingMethods),
		in.LandOwnership, in.IrrigationAccess, in.AnnualIncome))
}

func (s *Store) GetFarmerByUser(ctx context.Context, userID string) (welfare.Farmer, error) {
	return scanFarmer(s.conn(ctx).QueryRowContext(ctx, `select `+farmerColumns+` from farmers where user_id = $1`, userID))
}

const cropColumns = `id, name, scientific_name, category, growing_season, maturity_days, water_requirements`

func scanCrop(row scanner) (welfare.Crop, error) {
	var c welfare.Crop
	err := row.Scan(&c.ID, &c.Name, &c.ScientificName, &c.Category, &c.GrowingSeason, &c.MaturityDays, &c.WaterRequirements)
	return c, mapError(err, "Crop")
}

func (s *Store) ListCrops(ctx context.Context) ([]welfare.Crop, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `select `+cropColumns+` from crops order by name`)
	return collect(rows, err, scanCrop)
}

func (s *Store) GetCrop(ctx context.Context, id int64) (welfare.Crop, error) {
	return scanCrop(s.conn(ctx).QueryRowContext(ctx, `select `+cropColumns+` from crops where id = $1`, id))
}

const farmSelect = `
	select f.id, f.farmer_id, fr.user_id, f.name, f.location_address, f.total_area_acres, f.soil_type,
		f.water_source, f.infrastructure, f.created_at
	from farms f
	join farmers fr on fr.id = f.farmer_id`

func scanFarm(row scanner) (welfare.Farm, error) {
	var (
		f     welfare.Farm
		infra texts
	)
	err := row.Scan(&f.ID, &f.FarmerID, &f.OwnerID, &f.Name, &f.LocationAddress, &f.TotalAreaAcres, &f.SoilType,
		&f.WaterSource, &infra, &f.CreatedAt)
	f.Infrastructure = infra
	return f, mapError(err, "Farm")
}

func (s *Store) CreateFarm(ctx context.Context, f welfare.Farm) (welfare.Farm, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into farms (farmer_id, name, location_address, total_area_acres, soil_type, water_source, infrastructure)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning id
	`, f.FarmerID, f.Name, f.LocationAddress, f.TotalAreaAcres, f.SoilType, f.WaterSource,
		jsonList(f.Infrastructure)).Scan(&id)
	if err != nil {
		return welfare.Farm{}, mapError(err, "Farmer")
	}
	return s.GetFarm(ctx, id)
}

func (s *Store) GetFarm(ctx context.Context, id int64) (welfare.Farm, error) {
	return scanFarm(s.conn(ctx).QueryRowContext(ctx, farmSelect+` where f.id = $1`, id))
}

func (s *Store) ListFarmsByOwner(ctx context.Context, userID string) ([]welfare.Farm, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, farmSelect+` where fr.user_id = $1 order by f.created_at`, userID)
	return collect(rows, err, scanFarm)
}

const cropCycleSelect = `
	select c.id, c.farm_id, fr.user_id, c.crop_id, c.area_planted_acres, c.planting_date,
		c.expected_harvest_date, c.actual_harvest_date, c.status, c.notes, c.created_at
	from crop_cycles c
	join farms f on f.id = c.farm_id
	join farmers fr on fr.id = f.farmer_id`

func scanCropCycle(row scanner) (welfare.CropCycle, error) {
	var c welfare.CropCycle
	err := row.Scan(&c.ID, &c.FarmID, &c.OwnerID, &c.CropID, &c.AreaPlantedAcres, &c.PlantingDate,
		&c.ExpectedHarvestDate, &c.ActualHarvestDate, &c.Status, &c.Notes, &c.CreatedAt)
	return c, mapError(err, "Crop cycle")
}

func (s *Store) CreateCropCycle(ctx context.Context, c welfare.CropCycle) (welfare.CropCycle, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into crop_cycles (farm_id, crop_id, area_planted_acres, planting_date, expected_harvest_date,
			status, notes)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning id
	`, c.FarmID, c.CropID, c.AreaPlantedAcres, c.PlantingDate, c.ExpectedHarvestDate, c.Status, c.Notes).Scan(&id)
	if err != nil {
		return welfare.CropCycle{}, mapError(err, "Farm")
	}
	return s.GetCropCycle(ctx, id)
}

func (s *Store) GetCropCycle(ctx context.Context, id int64) (welfare.CropCycle, error) {
	return scanCropCycle(s.conn(ctx).QueryRowContext(ctx, cropCycleSelect+` where c.id = $1`, id))
}

func (s *Store) ListCropCycles(ctx context.Context, farmID int64) ([]welfare.CropCycle, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		cropCycleSelect+` where c.farm_id = $1 order by c.planting_date desc nulls last, c.id desc`, farmID)
	return collect(rows, err, scanCropCycle)
}

func (s *Store) UpdateCropCycle(ctx context.Context, id int64, prog welfare.CropCycleProgress) (welfare.CropCycle, error) {
	var set setter
	set.set("status", prog.Status)
	if !prog.ActualHarvestDate.IsZero() {
		set.set("actual_harvest_date", prog.ActualHarvestDate)
	}
	setIf(&set, "notes", prog.Notes)
	q, args := set.statement("crop_cycles", "id", id)
	res, err := s.conn(ctx).ExecContext(ctx, q, args...)
	if err != nil {
		return welfare.CropCycle{}, err
	}
	if err := affected(res, "Crop cycle"); err != nil {
		return welfare.CropCycle{}, err
	}
	return s.GetCropCycle(ctx, id)
}

func (s *Store) CreateCropYield(ctx context.Context, y welfare.CropYield) (welfare.CropYield, error) {
	unit := y.Unit
	if unit == "" {
		unit = "kg"
	}
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into crop_yields (crop_cycle_id, quantity_harvested, unit, quality_grade, market_price,
			total_revenue, production_cost, harvest_date)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning id, unit, created_at
	`, y.CropCycleID, y.QuantityHarvested, unit, y.QualityGrade, y.MarketPrice,
		y.TotalRevenue, y.ProductionCost, y.HarvestDate).Scan(&y.ID, &y.Unit, &y.CreatedAt)
	if err != nil {
		return welfare.CropYield{}, mapError(err, "Crop cycle")
	}
	return y, nil
}

const productSelect = `
	select p.id, p.farmer_id, fr.user_id, p.crop_id, p.title, p.description, p.quantity_available, p.unit,
		p.price_per_unit, p.quality_grade, p.harvest_date, p.location_address, p.images, p.is_organic,
		p.is_available, p.created_at
	from products p
	join farmers fr on fr.id = p.farmer_id`

func scanProduct(row scanner) (welfare.Product, error) {
	var (
		p      welfare.Product
		images texts
	)
	err := row.Scan(&p.ID, &p.FarmerID, &p.OwnerID, &p.CropID, &p.Title, &p.Description, &p.QuantityAvailable, &p.Unit,
		&p.PricePerUnit, &p.QualityGrade, &p.HarvestDate, &p.LocationAddress, &images, &p.IsOrganic,
		&p.IsAvailable, &p.CreatedAt)
	p.Images = images
	return p, mapError(err, "Product")
}

func (s *Store) ListProducts(ctx context.Context, f welfare.ProductFilter, pg welfare.Page) ([]welfare.Product, int, error) {
	var w filter
	w.add("p.is_available")
	if f.CropID != nil {
		w.add("p.crop_id = ?", *f.CropID)
	}
	if f.IsOrganic != nil {
		w.add("p.is_organic = ?", *f.IsOrganic)
	}
	if f.Search != "" {
		w.add("(p.title ilike ? or p.description ilike ?)", like(f.Search), like(f.Search))
	}
	total, err := s.count(ctx, `select count(*) from products p`+w.where(), w.args...)
	if err != nil {
		return nil, 0, err
	}
	q := productSelect + w.where() + ` order by p.created_at desc` + w.page(pg.Limit(), pg.Offset())
	rows, err := s.conn(ctx).QueryContext(ctx, q, w.args...)
	items, err := collect(rows, err, scanProduct)
	return items, total, err
}

func (s *Store) GetProduct(ctx context.Context, id int64) (welfare.Product, error) {
	return scanProduct(s.conn(ctx).QueryRowContext(ctx, productSelect+` where p.id = $1`, id))
}

func (s *Store) CreateProduct(ctx context.Context, pr welfare.Product) (welfare.Product, error) {
	unit := pr.Unit
	if unit == "" {
		unit = "kg"
	}
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into products (farmer_id, crop_id, title, description, quantity_available, unit, price_per_unit,
			quality_grade, harvest_date, location_address, images, is_organic)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		returning id
	`, pr.FarmerID, pr.CropID, pr.Title, pr.Description, pr.QuantityAvailable, unit, pr.PricePerUnit,
		pr.QualityGrade, pr.HarvestDate, pr.LocationAddress, jsonList(pr.Images), pr.IsOrganic).Scan(&id)
	if err != nil {
		return welfare.Product{}, mapError(err, "Crop")
	}
	return s.GetProduct(ctx, id)
}

const inquirySelect = `
	select i.id, i.product_id, fr.user_id, i.buyer_id, i.quantity_requested, i.offered_price, i.message,
		i.status, i.created_at
	from product_inquiries i
	join products p on p.id = i.product_id
	join farmers fr on fr.id = p.farmer_id`

func scanInquiry(row scanner) (welfare.Inquiry, error) {
	var in welfare.Inquiry
	err := row.Scan(&in.ID, &in.ProductID, &in.ProductOwnerID, &in.BuyerID, &in.QuantityRequested, &in.OfferedPrice,
		&in.Message, &in.Status, &in.CreatedAt)
	return in, mapError(err, "Inquiry")
}

func (s *Store) CreateInquiry(ctx context.Context, in welfare.Inquiry) (welfare.Inquiry, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into product_inquiries (product_id, buyer_id, quantity_requested, offered_price, message, status)
		values ($1, $2, $3, $4, $5, $6)
		returning id
	`, in.ProductID, in.BuyerID, in.QuantityRequested, in.OfferedPrice, in.Message, in.Status).Scan(&id)
	if err != nil {
		return welfare.Inquiry{}, mapError(err, "Product")
	}
	return s.GetInquiry(ctx, id)
}

func (s *Store) GetInquiry(ctx context.Context, id int64) (welfare.Inquiry, error) {
	return scanInquiry(s.conn(ctx).QueryRowContext(ctx, inquirySelect+` where i.id = $1`, id))
}

func (s *Store) SetInquiryStatus(ctx context.Context, id int64, status lifecycle.Status) (welfare.Inquiry, error) {
	res, err := s.conn(ctx).ExecContext(ctx, `update product_inquiries set status = $2 where id = $1`, id, status)
	if err != nil {
		return welfare.Inquiry{}, err
	}
	if err := affected(res, "Inquiry"); err != nil {
		return welfare.Inquiry{}, err
	}
	return s.GetInquiry(ctx, id)
}

const advisoryColumns = `id, title, content, advisory_type, target_crops, target_regions, severity_level,
	valid_from, valid_until, issued_by, created_at`

func scanAdvisory(row scanner) (welfare.Advisory, error) {
	var (
		a              welfare.Advisory
		crops, regions texts
	)
	err := row.Scan(&a.ID, &a.Title, &a.Content, &a.AdvisoryType, &crops, &regions, &a.SeverityLevel,
		&a.ValidFrom, &a.ValidUntil, &a.IssuedBy, &a.CreatedAt)
	a.TargetCrops, a.TargetRegions = crops, regions
	return a, mapError(err, "Advisory")
}

// ListAdvisories prefilters on the validity range; open ends are kept.
func (s *Store) ListAdvisories(ctx context.Context, on lifecycle.Date) ([]welfare.Advisory, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		select `+advisoryColumns+` from agricultural_advisories
		where (valid_from is null or valid_from <= $1) and (valid_until is null or valid_until >= $1)
		order by created_at desc
	`, on)
	return collect(rows, err, scanAdvisory)
}

func (s *Store) CreateAdvisory(ctx context.Context, a welfare.Advisory) (welfare.Advisory, error) {
	return scanAdvisory(s.conn(ctx).QueryRowContext(ctx, `
		insert into agricultural_advisories (title, content, advisory_type, target_crops, target_regions,
			severity_level, valid_from, valid_until, issued_by)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		returning `+advisoryColumns,
		a.Title, a.Content, a.AdvisoryType, jsonList(a.TargetCrops), jsonList(a.TargetRegions),
		a.SeverityLevel, a.ValidFrom, a.ValidUntil, a.IssuedBy))
}
