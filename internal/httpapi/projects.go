package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ongon.org/internal/lifecycle"
	"ongon.org/internal/welfare"
)

func (a *API) projectRoutes(r chi.Router) {
	r.Get("/", a.listProjects)
	r.Get("/statistics", a.projectStatistics)
	r.Get("/{id}", a.getProject)
	r.Get("/{id}/donations", a.projectDonations)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", a.createProject)
		r.Put("/{id}", a.updateProject)
		r.Get("/my-projects", a.myProjects)
		r.Get("/my-donations", a.myDonations)
		r.Post("/{id}/donate", a.donate)
		r.Post("/donations/{id}/confirm", a.confirmDonation)
		r.Get("/{id}/expenses", a.projectExpenses)
		r.Post("/{id}/expenses", a.addExpense)
		r.Post("/expenses/{id}/approve", a.approveExpense)
		r.Get("/{id}/reconciliation", a.reconcileProject)
	})
}

func (a *API) listProjects(w http.ResponseWriter, r *http.Request) {
	f := welfare.ProjectFilter{
		Status:   lifecycle.Status(queryText(r, "status")),
		Category: queryText(r, "category"),
	}
	featured, ok := queryBool(w, r, "featured_only")
	if !ok {
		return
	}
	f.FeaturedOnly = featured != nil && *featured
	list, err := a.svc.Projects.List(r.Context(), f, a.page(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.list_projects", err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (a *API) projectStatistics(w http.ResponseWriter, r *http.Request) {
	st, err := a.svc.Projects.Statistics(r.Context())
	if err != nil {
		writeServiceError(w, r, "httpapi.project_statistics", err)
		return
	}
	writeJSON(w, r, http.StatusOK, st)
}

func (a *API) getProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	pr, err := a.svc.Projects.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.get_project", err)
		return
	}
	writeJSON(w, r, http.StatusOK, pr)
}

func (a *API) projectDonations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	d, err := a.svc.Projects.Donations(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.project_donations", err)
		return
	}
	writeJSON(w, r, http.StatusOK, d)
}

func (a *API) createProject(w http.ResponseWriter, r *http.Request) {
	var in welfare.ProjectInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	pr, err := a.svc.Projects.Create(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.create_project", err)
		return
	}
	a.audit(r, "project.created", "project_id", pr.ID, "target_amount", pr.TargetAmount.String())
	writeJSON(w, r, http.StatusCreated, pr)
}

func (a *API) updateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var upd welfare.ProjectUpdate
	if !a.decodeJSON(w, r, &upd) {
		return
	}
	pr, err := a.svc.Projects.Update(r.Context(), principal(r), id, upd)
	if err != nil {
		writeServiceError(w, r, "httpapi.update_project", err)
		return
	}
	a.audit(r, "project.updated", "project_id", id, "status", string(pr.Status))
	writeJSON(w, r, http.StatusOK, pr)
}

func (a *API) myProjects(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Projects.MyProjects(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.my_projects", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) myDonations(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Projects.MyDonations(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.my_donations", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) donate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in welfare.DonationInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	key := idempotencyKey(r)
	d, err := a.svc.Projects.Donate(r.Context(), principal(r), id, in, key)
	if err != nil {
		writeServiceError(w, r, "httpapi.donate", err)
		return
	}
	a.audit(r, "donation.created",
		"project_id", id,
		"donation_id", d.ID,
		"amount", d.Amount.String(),
		"idempotency_key", key,
	)
	writeJSON(w, r, http.StatusCreated, d)
}

func (a *API) confirmDonation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	d, err := a.svc.Projects.ConfirmDonation(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.confirm_donation", err)
		return
	}
	a.audit(r, "donation.confirmed", "donation_id", id, "project_id", d.ProjectID, "amount", d.Amount.String())
	writeJSON(w, r, http.StatusOK, d)
}

func (a *API) projectExpenses(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	items, err := a.svc.Projects.Expenses(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.project_expenses", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) addExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in welfare.ExpenseInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	e, err := a.svc.Projects.AddExpense(r.Context(), principal(r), id, in)
	if err != nil {
		writeServiceError(w, r, "httpapi.add_expense", err)
		return
	}
	a.audit(r, "project_expense.created", "project_id", id, "expense_id", e.ID, "amount", in.Amount.String())
	writeJSON(w, r, http.StatusCreated, e)
}

func (a *API) approveExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	e, err := a.svc.Projects.ApproveExpense(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.approve_expense", err)
		return
	}
	a.audit(r, "project_expense.approved", "expense_id", id)
	writeJSON(w, r, http.StatusOK, e)
}

func (a *API) reconcileProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rec, err := a.svc.Projects.Reconcile(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.reconcile_project", err)
		return
	}
	writeJSON(w, r, http.StatusOK, rec)
}
