package httpapi

import "net/http"

func (a *API) search(w http.ResponseWriter, r *http.Request) {
	res, err := a.svc.Insights.Search(r.Context(), queryText(r, "q"), queryText(r, "category"))
	if err != nil {
		writeServiceError(w, r, "httpapi.search", err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (a *API) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := a.svc.Insights.Dashboard(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.dashboard", err)
		return
	}
	writeJSON(w, r, http.StatusOK, d)
}
