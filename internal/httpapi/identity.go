package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ongon.org/internal/auth"
	"ongon.org/internal/welfare"
)

func (a *API) authRoutes(r chi.Router) {
	r.Post("/register", a.register)
	r.Post("/login", a.login)
	r.Post("/refresh", a.refresh)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/me", a.me)
		r.Post("/logout", a.logout)
		r.Post("/change-password", a.changePassword)
	})
}

func (a *API) userRoutes(r chi.Router) {
	r.Use(requireAuth)
	r.Get("/", a.listUsers)

	r.Get("/donor-profile", a.donorProfile)
	r.Post("/donor-profile", a.createDonorProfile)
	r.Put("/donor-profile", a.updateDonorProfile)
	r.Get("/volunteer-profile", a.volunteerProfile)
	r.Post("/volunteer-profile", a.createVolunteerProfile)
	r.Put("/volunteer-profile", a.updateVolunteerProfile)
	r.Get("/beneficiary-profile", a.beneficiaryProfile)
	r.Post("/beneficiary-profile", a.createBeneficiaryProfile)
	r.Put("/beneficiary-profile", a.updateBeneficiaryProfile)

	r.Get("/{id}", a.getUser)
	r.Put("/{id}", a.updateUser)
	r.Delete("/{id}", a.deleteUser)
	r.Post("/{id}/roles", a.assignRole)
	r.Post("/{id}/beneficiary-profile/verify", a.verifyBeneficiary)
}

type sessionResponse struct {
	auth.TokenPair
	User auth.User `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

type roleRequest struct {
	Role string `json:"role" validate:"required"`
}

type meResponse struct {
	auth.User
	Permissions []auth.Permission `json:"permissions"`
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req auth.Registration
	if !a.decodeJSON(w, r, &req) {
		return
	}
	user, pair, err := a.auth.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, "httpapi.register", err)
		return
	}
	a.audit(r, "user.registered", "user_id", user.ID)
	writeJSON(w, r, http.StatusCreated, sessionResponse{TokenPair: pair, User: user})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	user, pair, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, "httpapi.login", err)
		return
	}
	a.audit(r, "user.login", "user_id", user.ID)
	writeJSON(w, r, http.StatusOK, sessionResponse{TokenPair: pair, User: user})
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	pair, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, "httpapi.refresh", err)
		return
	}
	writeJSON(w, r, http.StatusOK, pair)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	writeJSON(w, r, http.StatusOK, meResponse{User: p.User, Permissions: p.PermissionNames()})
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	if err := a.auth.Logout(r.Context(), principal(r)); err != nil {
		writeServiceError(w, r, "httpapi.logout", err)
		return
	}
	a.audit(r, "user.logout")
	writeJSON(w, r, http.StatusOK, messageResponse{Message: "Logged out"})
}

func (a *API) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	if err := a.auth.ChangePassword(r.Context(), principal(r), req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, "httpapi.change_password", err)
		return
	}
	a.audit(r, "user.password_changed")
	writeJSON(w, r, http.StatusOK, messageResponse{Message: "Password updated successfully"})
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	page := a.page(r)
	f := auth.UserFilter{Search: queryText(r, "search"), Limit: page.Limit(), Offset: page.Offset()}
	if raw := queryText(r, "role"); raw != "" {
		role, err := auth.ParseRole(raw)
		if err != nil {
			writeServiceError(w, r, "httpapi.list_users", err)
			return
		}
		f.Role = role
	}
	users, total, err := a.auth.ListUsers(r.Context(), principal(r), f)
	if err != nil {
		writeServiceError(w, r, "httpapi.list_users", err)
		return
	}
	writeJSON(w, r, http.StatusOK, welfare.NewList(users, total, page))
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.auth.GetUser(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "httpapi.get_user", err)
		return
	}
	writeJSON(w, r, http.StatusOK, user)
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request) {
	var upd auth.UserUpdate
	if !a.decodeJSON(w, r, &upd) {
		return
	}
	id := chi.URLParam(r, "id")
	user, err := a.auth.UpdateUser(r.Context(), principal(r), id, upd)
	if err != nil {
		writeServiceError(w, r, "httpapi.update_user", err)
		return
	}
	a.audit(r, "user.updated", "target_user_id", id)
	writeJSON(w, r, http.StatusOK, user)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.auth.DeleteUser(r.Context(), principal(r), id); err != nil {
		writeServiceError(w, r, "httpapi.delete_user", err)
		return
	}
	a.audit(r, "user.deleted", "target_user_id", id)
	writeJSON(w, r, http.StatusOK, messageResponse{Message: "User deleted successfully"})
}

func (a *API) assignRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		writeServiceError(w, r, "httpapi.assign_role", err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := a.auth.AssignRole(r.Context(), principal(r), id, role); err != nil {
		writeServiceError(w, r, "httpapi.assign_role", err)
		return
	}
	a.audit(r, "user.role_assigned", "target_user_id", id, "role", string(role))
	writeJSON(w, r, http.StatusOK, messageResponse{Message: "Role " + strconv.Quote(string(role)) + " assigned"})
}

func (a *API) donorProfile(w http.ResponseWriter, r *http.Request) {
	prof, err := a.svc.Profiles.DonorProfile(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.donor_profile", err)
		return
	}
	writeJSON(w, r, http.StatusOK, prof)
}

func (a *API) createDonorProfile(w http.ResponseWriter, r *http.Request) {
	var in welfare.DonorProfileInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	prof, err := a.svc.Profiles.CreateDonorProfile(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.create_donor_profile", err)
		return
	}
	a.audit(r, "profile.donor_created")
	writeJSON(w, r, http.StatusCreated, prof)
}

func (a *API) updateDonorProfile(w http.ResponseWriter, r *http.Request) {
	var in welfare.DonorProfileInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	prof, err := a.svc.Profiles.UpdateDonorProfile(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.update_donor_profile", err)
		return
	}
	a.audit(r, "profile.donor_updated")
	writeJSON(w, r, http.StatusOK, prof)
}

func (a *API) volunteerProfile(w http.ResponseWriter, r *http.Request) {
	prof, err := a.svc.Profiles.VolunteerProfile(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.volunteer_profile", err)
		return
	}
	writeJSON(w, r, http.StatusOK, prof)
}

func (a *API) createVolunteerProfile(w http.ResponseWriter, r *http.Request) {
	var in welfare.VolunteerProfileInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	prof, err := a.svc.Profiles.CreateVolunteerProfile(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.create_volunteer_profile", err)
		return
	}
	a.audit(r, "profile.volunteer_created")
	writeJSON(w, r, http.StatusCreated, prof)
}

func (a *API) updateVolunteerProfile(w http.ResponseWriter, r *http.Request) {
	var in welfare.VolunteerProfileInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	prof, err := a.svc.Profiles.UpdateVolunteerProfile(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.update_volunteer_profile", err)
		return
	}
	a.audit(r, "profile.volunteer_updated")
	writeJSON(w, r, http.StatusOK, prof)
}

func (a *API) beneficiaryProfile(w http.ResponseWriter, r *http.Request) {
	prof, err := a.svc.Profiles.BeneficiaryProfile(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.beneficiary_profile", err)
		return
	}
	writeJSON(w, r, http.StatusOK, prof)
}

func (a *API) createBeneficiaryProfile(w http.ResponseWriter, r *http.Request) {
	var in welfare.BeneficiaryProfileInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	prof, err := a.svc.Profiles.CreateBeneficiaryProfile(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.create_beneficiary_profile", err)
		return
	}
	a.audit(r, "profile.beneficiary_created")
	writeJSON(w, r, http.StatusCreated, prof)
}

func (a *API) updateBeneficiaryProfile(w http.ResponseWriter, r *http.Request) {
	var in welfare.BeneficiaryProfileInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	prof, err := a.svc.Profiles.UpdateBeneficiaryProfile(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.update_beneficiary_profile", err)
		return
	}
	a.audit(r, "profile.beneficiary_updated")
	writeJSON(w, r, http.StatusOK, prof)
}

func (a *API) verifyBeneficiary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	prof, err := a.svc.Profiles.VerifyBeneficiary(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.verify_beneficiary", err)
		return
	}
	a.audit(r, "profile.beneficiary_verified", "target_user_id", id)
	writeJSON(w, r, http.StatusOK, prof)
}
