package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ongon.org/internal/lifecycle"
	"ongon.org/internal/welfare"
)

func (a *API) healthcareRoutes(r chi.Router) {
	r.Get("/providers", a.listProviders)
	r.Get("/blood-requests", a.listBloodRequests)
	r.Get("/blood-inventory", a.bloodInventory)
	r.Get("/medical-camps", a.listMedicalCamps)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/provider-profile", a.registerProvider)
		r.Post("/providers/{id}/verify", a.verifyProvider)
		r.Post("/consultations", a.bookConsultation)
		r.Get("/my-consultations", a.myConsultations)
		r.Post("/consultations/{id}/status", a.completeConsultation)
		r.Get("/blood-donors", a.listBloodDonors)
		r.Post("/blood-donors", a.registerBloodDonor)
		r.Get("/blood-donors/me", a.myBloodDonor)
		r.Put("/blood-donors/me", a.updateBloodDonor)
		r.Post("/blood-requests", a.requestBlood)
		r.Post("/blood-requests/{id}/status", a.closeBloodRequest)
		r.Post("/blood-inventory", a.addBloodStock)
		r.Post("/medical-camps", a.createMedicalCamp)
		r.Post("/medical-camps/{id}/register", a.registerForCamp)
	})
}

type statusRequest struct {
	Status lifecycle.Status `json:"status" validate:"required"`
}

type campRegistrationRequest struct {
	ServicesRequested   []string `json:"services_requested"`
	SpecialRequirements string   `json:"special_requirements"`
}

func (a *API) listProviders(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Healthcare.ListProviders(r.Context(), queryText(r, "specialization"), a.page(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.list_providers", err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (a *API) registerProvider(w http.ResponseWriter, r *http.Request) {
	var in welfare.ProviderInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	prov, err := a.svc.Healthcare.RegisterProvider(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.register_provider", err)
		return
	}
	a.audit(r, "provider.registered", "provider_id", prov.ID)
	writeJSON(w, r, http.StatusCreated, prov)
}

func (a *API) verifyProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	prov, err := a.svc.Healthcare.VerifyProvider(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.verify_provider", err)
		return
	}
	a.audit(r, "provider.verified", "provider_id", id)
	writeJSON(w, r, http.StatusOK, prov)
}

func (a *API) bookConsultation(w http.ResponseWriter, r *http.Request) {
	var in welfare.ConsultationInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	c, err := a.svc.Healthcare.BookConsultation(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.book_consultation", err)
		return
	}
	a.audit(r, "consultation.booked", "consultation_id", c.ID, "provider_id", in.ProviderID)
	writeJSON(w, r, http.StatusCreated, c)
}

func (a *API) myConsultations(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Healthcare.MyConsultations(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.my_consultations", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) completeConsultation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var out welfare.ConsultationOutcome
	if !a.decodeJSON(w, r, &out) {
		return
	}
	c, err := a.svc.Healthcare.CompleteConsultation(r.Context(), principal(r), id, out)
	if err != nil {
		writeServiceError(w, r, "httpapi.complete_consultation", err)
		return
	}
	a.audit(r, "consultation.status_changed", "consultation_id", id, "status", string(out.Status))
	writeJSON(w, r, http.StatusOK, c)
}

func (a *API) listBloodDonors(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Healthcare.BloodDonors(r.Context(), queryText(r, "blood_group"), a.page(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.list_blood_donors", err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (a *API) registerBloodDonor(w http.ResponseWriter, r *http.Request) {
	var in welfare.BloodDonorInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	d, err := a.svc.Healthcare.RegisterBloodDonor(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.register_blood_donor", err)
		return
	}
	a.audit(r, "blood_donor.registered", "blood_donor_id", d.ID)
	writeJSON(w, r, http.StatusCreated, d)
}

func (a *API) myBloodDonor(w http.ResponseWriter, r *http.Request) {
	d, err := a.svc.Healthcare.MyBloodDonor(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.my_blood_donor", err)
		return
	}
	writeJSON(w, r, http.StatusOK, d)
}

func (a *API) updateBloodDonor(w http.ResponseWriter, r *http.Request) {
	var upd welfare.BloodDonorUpdate
	if !a.decodeJSON(w, r, &upd) {
		return
	}
	d, err := a.svc.Healthcare.UpdateBloodDonor(r.Context(), principal(r), upd)
	if err != nil {
		writeServiceError(w, r, "httpapi.update_blood_donor", err)
		return
	}
	a.audit(r, "blood_donor.updated", "blood_donor_id", d.ID)
	writeJSON(w, r, http.StatusOK, d)
}

func (a *API) requestBlood(w http.ResponseWriter, r *http.Request) {
	var in welfare.BloodRequestInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	req, err := a.svc.Healthcare.RequestBlood(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.request_blood", err)
		return
	}
	a.audit(r, "blood_request.created", "blood_request_id", req.ID, "blood_group", in.BloodGroup)
	writeJSON(w, r, http.StatusCreated, req)
}

func (a *API) listBloodRequests(w http.ResponseWriter, r *http.Request) {
	f := welfare.BloodRequestFilter{BloodGroup: queryText(r, "blood_group"), Urgency: queryText(r, "urgency")}
	list, err := a.svc.Healthcare.BloodRequests(r.Context(), f, a.page(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.list_blood_requests", err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (a *API) closeBloodRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	br, err := a.svc.Healthcare.CloseBloodRequest(r.Context(), principal(r), id, req.Status)
	if err != nil {
		writeServiceError(w, r, "httpapi.close_blood_request", err)
		return
	}
	a.audit(r, "blood_request.status_changed", "blood_request_id", id, "status", string(req.Status))
	writeJSON(w, r, http.StatusOK, br)
}

func (a *API) bloodInventory(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Healthcare.BloodInventory(r.Context(), queryText(r, "blood_group"))
	if err != nil {
		writeServiceError(w, r, "httpapi.blood_inventory", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) addBloodStock(w http.ResponseWriter, r *http.Request) {
	var in welfare.BloodStock
	if !a.decodeJSON(w, r, &in) {
		return
	}
	st, err := a.svc.Healthcare.AddBloodStock(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.add_blood_stock", err)
		return
	}
	a.audit(r, "blood_inventory.added", "blood_stock_id", st.ID, "units", st.UnitsAvailable)
	writeJSON(w, r, http.StatusCreated, st)
}

func (a *API) listMedicalCamps(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Healthcare.MedicalCamps(r.Context(), a.page(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.list_medical_camps", err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (a *API) createMedicalCamp(w http.ResponseWriter, r *http.Request) {
	var in welfare.MedicalCampInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	c, err := a.svc.Healthcare.CreateMedicalCamp(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.create_medical_camp", err)
		return
	}
	a.audit(r, "medical_camp.created", "medical_camp_id", c.ID)
	writeJSON(w, r, http.StatusCreated, c)
}

func (a *API) registerForCamp(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req campRegistrationRequest
	if r.ContentLength != 0 && !a.decodeJSON(w, r, &req) {
		return
	}
	reg, err := a.svc.Healthcare.RegisterForCamp(r.Context(), principal(r), id, req.ServicesRequested, req.SpecialRequirements)
	if err != nil {
		writeServiceError(w, r, "httpapi.register_camp", err)
		return
	}
	a.audit(r, "medical_camp.registered", "medical_camp_id", id, "registration_id", reg.ID)
	writeJSON(w, r, http.StatusCreated, reg)
}
