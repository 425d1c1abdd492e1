package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ongon.org/internal/welfare"
)

func (a *API) agricultureRoutes(r chi.Router) {
	r.Get("/crops", a.listCrops)
	r.Get("/crops/{id}", a.getCrop)
	r.Get("/products", a.listProducts)
	r.Get("/advisories", a.listAdvisories)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/farmer-profile", a.farmerProfile)
		r.Post("/farmer-profile", a.registerFarmer)
		r.Post("/farms", a.createFarm)
		r.Get("/my-farms", a.myFarms)
		r.Get("/farms/{id}/crop-cycles", a.farmCropCycles)
		r.Post("/crop-cycles", a.planCropCycle)
		r.Post("/crop-cycles/{id}/status", a.advanceCropCycle)
		r.Post("/crop-cycles/{id}/yields", a.recordYield)
		r.Post("/products", a.listProduct)
		r.Post("/products/{id}/inquire", a.inquire)
		r.Post("/inquiries/{id}/status", a.respondToInquiry)
		r.Post("/advisories", a.issueAdvisory)
	})
}

func (a *API) farmerProfile(w http.ResponseWriter, r *http.Request) {
	f, err := a.svc.Agriculture.FarmerProfile(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.farmer_profile", err)
		return
	}
	writeJSON(w, r, http.StatusOK, f)
}

func (a *API) registerFarmer(w http.ResponseWriter, r *http.Request) {
	var in welfare.FarmerInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	f, err := a.svc.Agriculture.RegisterFarmer(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.register_farmer", err)
		return
	}
	a.audit(r, "farmer.registered", "farmer_id", f.ID)
	writeJSON(w, r, http.StatusCreated, f)
}

func (a *API) listCrops(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Agriculture.Crops(r.Context())
	if err != nil {
		writeServiceError(w, r, "httpapi.list_crops", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) getCrop(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := a.svc.Agriculture.Crop(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.get_crop", err)
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

func (a *API) createFarm(w http.ResponseWriter, r *http.Request) {
	var in welfare.Farm
	if !a.decodeJSON(w, r, &in) {
		return
	}
	f, err := a.svc.Agriculture.CreateFarm(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.create_farm", err)
		return
	}
	a.audit(r, "farm.created", "farm_id", f.ID)
	writeJSON(w, r, http.StatusCreated, f)
}

func (a *API) myFarms(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Agriculture.MyFarms(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.my_farms", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) farmCropCycles(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	items, err := a.svc.Agriculture.FarmCropCycles(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.farm_crop_cycles", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) planCropCycle(w http.ResponseWriter, r *http.Request) {
	var in welfare.CropCycleInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	c, err := a.svc.Agriculture.PlanCropCycle(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.plan_crop_cycle", err)
		return
	}
	a.audit(r, "crop_cycle.planned", "crop_cycle_id", c.ID, "farm_id", in.FarmID)
	writeJSON(w, r, http.StatusCreated, c)
}

func (a *API) advanceCropCycle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var prog welfare.CropCycleProgress
	if !a.decodeJSON(w, r, &prog) {
		return
	}
	c, err := a.svc.Agriculture.AdvanceCropCycle(r.Context(), principal(r), id, prog)
	if err != nil {
		writeServiceError(w, r, "httpapi.advance_crop_cycle", err)
		return
	}
	a.audit(r, "crop_cycle.status_changed", "crop_cycle_id", id, "status", string(prog.Status))
	writeJSON(w, r, http.StatusOK, c)
}

func (a *API) recordYield(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var y welfare.CropYield
	if !a.decodeJSON(w, r, &y) {
		return
	}
	out, err := a.svc.Agriculture.RecordYield(r.Context(), principal(r), id, y)
	if err != nil {
		writeServiceError(w, r, "httpapi.record_yield", err)
		return
	}
	a.audit(r, "crop_yield.recorded", "crop_cycle_id", id, "yield_id", out.ID)
	writeJSON(w, r, http.StatusCreated, out)
}

func (a *API) listProducts(w http.ResponseWriter, r *http.Request) {
	f := welfare.ProductFilter{Search: queryText(r, "search")}
	var ok bool
	if f.CropID, ok = queryInt64(w, r, "crop_id"); !ok {
		return
	}
	if f.IsOrganic, ok = queryBool(w, r, "is_organic"); !ok {
		return
	}
	list, err := a.svc.Agriculture.Products(r.Context(), f, a.page(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.list_products", err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (a *API) listProduct(w http.ResponseWriter, r *http.Request) {
	var in welfare.Product
	if !a.decodeJSON(w, r, &in) {
		return
	}
	pr, err := a.svc.Agriculture.ListProduct(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.list_product", err)
		return
	}
	a.audit(r, "product.listed", "product_id", pr.ID)
	writeJSON(w, r, http.StatusCreated, pr)
}

func (a *API) inquire(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in welfare.Inquiry
	if !a.decodeJSON(w, r, &in) {
		return
	}
	inq, err := a.svc.Agriculture.Inquire(r.Context(), principal(r), id, in)
	if err != nil {
		writeServiceError(w, r, "httpapi.inquire", err)
		return
	}
	a.audit(r, "product.inquired", "product_id", id, "inquiry_id", inq.ID)
	writeJSON(w, r, http.StatusCreated, inq)
}

func (a *API) respondToInquiry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	inq, err := a.svc.Agriculture.RespondToInquiry(r.Context(), principal(r), id, req.Status)
	if err != nil {
		writeServiceError(w, r, "httpapi.respond_inquiry", err)
		return
	}
	a.audit(r, "inquiry.status_changed", "inquiry_id", id, "status", string(req.Status))
	writeJSON(w, r, http.StatusOK, inq)
}

func (a *API) listAdvisories(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Agriculture.Advisories(r.Context())
	if err != nil {
		writeServiceError(w, r, "httpapi.list_advisories", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) issueAdvisory(w http.ResponseWriter, r *http.Request) {
	var in welfare.Advisory
	if !a.decodeJSON(w, r, &in) {
		return
	}
	adv, err := a.svc.Agriculture.IssueAdvisory(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.issue_advisory", err)
		return
	}
	a.audit(r, "advisory.issued", "advisory_id", adv.ID)
	writeJSON(w, r, http.StatusCreated, adv)
}
