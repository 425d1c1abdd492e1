package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ongon.org/internal/lifecycle"
	"ongon.org/internal/welfare"
)

func (a *API) businessRoutes(r chi.Router) {
	r.Get("/loan-products", a.listLoanProducts)
	r.Get("/loan-products/{id}", a.getLoanProduct)
	r.Get("/training-programs", a.listTrainingPrograms)
	r.Get("/training-programs/{id}", a.getTrainingProgram)
	r.Get("/job-categories", a.jobCategories)
	r.Get("/jobs", a.listJobs)
	r.Get("/jobs/{id}", a.getJob)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/loan-applications", a.applyForLoan)
		r.Get("/my-loan-applications", a.myLoanApplications)
		r.Get("/loan-applications", a.listLoanApplications)
		r.Post("/loan-applications/{id}/review", a.reviewLoanApplication)
		r.Post("/loan-applications/{id}/disburse", a.disburseLoan)
		r.Get("/my-loans", a.myLoans)
		r.Post("/loans/{id}/payments", a.recordLoanPayment)
		r.Post("/training-programs", a.createTrainingProgram)
		r.Post("/training-programs/{id}/enroll", a.enrollInTraining)
		r.Get("/my-training-enrollments", a.myTrainingEnrollments)
		r.Post("/jobs", a.postJob)
		r.Post("/jobs/{id}/apply", a.applyForJob)
		r.Get("/my-job-applications", a.myJobApplications)
		r.Get("/my-job-postings", a.myJobPostings)
		r.Post("/job-applications/{id}/status", a.advanceJobApplication)
	})
}

type jobApplicationRequest struct {
	CoverLetter string `json:"cover_letter"`
	ResumeURL   string `json:"resume_url" validate:"omitempty,url"`
}

func (a *API) listLoanProducts(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Business.LoanProducts(r.Context())
	if err != nil {
		writeServiceError(w, r, "httpapi.list_loan_products", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) getLoanProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	lp, err := a.svc.Business.LoanProduct(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.get_loan_product", err)
		return
	}
	writeJSON(w, r, http.StatusOK, lp)
}

func (a *API) applyForLoan(w http.ResponseWriter, r *http.Request) {
	var in welfare.LoanApplicationInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	app, err := a.svc.Business.ApplyForLoan(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.apply_loan", err)
		return
	}
	a.audit(r, "loan_application.created", "application_id", app.ID, "amount", in.RequestedAmount.String())
	writeJSON(w, r, http.StatusCreated, app)
}

func (a *API) myLoanApplications(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Business.MyLoanApplications(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.my_loan_applications", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) listLoanApplications(w http.ResponseWriter, r *http.Request) {
	f := welfare.LoanApplicationFilter{Status: lifecycle.Status(queryText(r, "status"))}
	list, err := a.svc.Business.LoanApplications(r.Context(), principal(r), f, a.page(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.list_loan_applications", err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (a *API) reviewLoanApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var rev welfare.Review
	if !a.decodeJSON(w, r, &rev) {
		return
	}
	app, err := a.svc.Business.ReviewLoanApplication(r.Context(), principal(r), id, rev)
	if err != nil {
		writeServiceError(w, r, "httpapi.review_loan_application", err)
		return
	}
	a.audit(r, "loan_application.reviewed", "application_id", id, "status", string(rev.Status))
	writeJSON(w, r, http.StatusOK, app)
}

func (a *API) disburseLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	loan, err := a.svc.Business.Disburse(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.disburse_loan", err)
		return
	}
	a.audit(r, "loan.disbursed", "application_id", id, "loan_id", loan.ID, "principal", loan.PrincipalAmount.String())
	writeJSON(w, r, http.StatusCreated, loan)
}

func (a *API) myLoans(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Business.MyLoans(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.my_loans", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) recordLoanPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var pay welfare.LoanPayment
	if !a.decodeJSON(w, r, &pay) {
		return
	}
	loan, err := a.svc.Business.RecordPayment(r.Context(), principal(r), id, pay)
	if err != nil {
		writeServiceError(w, r, "httpapi.record_loan_payment", err)
		return
	}
	a.audit(r, "loan.payment_recorded", "loan_id", id, "amount", pay.AmountPaid.String(), "status", string(loan.Status))
	writeJSON(w, r, http.StatusCreated, loan)
}

func (a *API) listTrainingPrograms(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Business.TrainingPrograms(r.Context(), a.page(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.list_training_programs", err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (a *API) getTrainingProgram(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	t, err := a.svc.Business.TrainingProgram(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.get_training_program", err)
		return
	}
	writeJSON(w, r, http.StatusOK, t)
}

func (a *API) createTrainingProgram(w http.ResponseWriter, r *http.Request) {
	var in welfare.TrainingProgramInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	t, err := a.svc.Business.CreateTrainingProgram(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.create_training_program", err)
		return
	}
	a.audit(r, "training_program.created", "program_id", t.ID)
	writeJSON(w, r, http.StatusCreated, t)
}

func (a *API) enrollInTraining(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	e, err := a.svc.Business.EnrollInTraining(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.enroll_training", err)
		return
	}
	a.audit(r, "training_program.enrolled", "program_id", id, "enrollment_id", e.ID)
	writeJSON(w, r, http.StatusCreated, e)
}

func (a *API) myTrainingEnrollments(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Business.MyTrainingEnrollments(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.my_training_enrollments", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) jobCategories(w http.ResponseWriter, r *http.Request) {
	tree, err := a.svc.Business.JobCategoryTree(r.Context())
	if err != nil {
		writeServiceError(w, r, "httpapi.job_categories", err)
		return
	}
	writeJSON(w, r, http.StatusOK, tree)
}

func (a *API) listJobs(w http.ResponseWriter, r *http.Request) {
	f := welfare.JobFilter{
		Location:       queryText(r, "location"),
		EmploymentType: queryText(r, "employment_type"),
		Search:         queryText(r, "search"),
	}
	var ok bool
	if f.CategoryID, ok = queryInt64(w, r, "category_id"); !ok {
		return
	}
	list, err := a.svc.Business.Jobs(r.Context(), f, a.page(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.list_jobs", err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (a *API) getJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	j, err := a.svc.Business.Job(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.get_job", err)
		return
	}
	writeJSON(w, r, http.StatusOK, j)
}

func (a *API) postJob(w http.ResponseWriter, r *http.Request) {
	var in welfare.JobPostingInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	j, err := a.svc.Business.PostJob(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.post_job", err)
		return
	}
	a.audit(r, "job.posted", "job_id", j.ID)
	writeJSON(w, r, http.StatusCreated, j)
}

func (a *API) applyForJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req jobApplicationRequest
	if r.ContentLength != 0 && !a.decodeJSON(w, r, &req) {
		return
	}
	app, err := a.svc.Business.ApplyForJob(r.Context(), principal(r), id, req.CoverLetter, req.ResumeURL)
	if err != nil {
		writeServiceError(w, r, "httpapi.apply_job", err)
		return
	}
	a.audit(r, "job.applied", "job_id", id, "application_id", app.ID)
	writeJSON(w, r, http.StatusCreated, app)
}

func (a *API) myJobApplications(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Business.MyJobApplications(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.my_job_applications", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) myJobPostings(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Business.MyJobPostings(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.my_job_postings", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) advanceJobApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	app, err := a.svc.Business.AdvanceJobApplication(r.Context(), principal(r), id, req.Status)
	if err != nil {
		writeServiceError(w, r, "httpapi.advance_job_application", err)
		return
	}
	a.audit(r, "job_application.status_changed", "application_id", id, "status", string(req.Status))
	writeJSON(w, r, http.StatusOK, app)
}
