package handle

import (
	"errors"
	"net/http"
	"strings"

	"homework-grader/api/internal/store"
)

type answerResp struct {
	RequestID   string `json:"request_id"`
	ProblemHash string `json:"problem_hash"`
	ProblemID   string `json:"problem_id"`
	Source      string `json:"source"`
	Judge       string `json:"judge"`
	Locale      string `json:"locale"`
	Policy      string `json:"policy"`
	CreatedAt   string `json:"created_at"`
	Result      any    `json:"result"`
}

// Answers: GET /v1/answers?request_id=... | ?hash=...
func (h *Handle) Answers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	if h.answers == nil {
		http.Error(w, "answer log is disabled", http.StatusNotImplemented)
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()

	var (
		recs []*store.GradeRecord
		err  error
	)
	q := r.URL.Query()
	switch {
	case strings.TrimSpace(q.Get("request_id")) != "":
		recs, err = h.answers.FindByRequestID(ctx, strings.TrimSpace(q.Get("request_id")))
	case strings.TrimSpace(q.Get("hash")) != "":
		var rec *store.GradeRecord
		rec, err = h.answers.FindByHash(ctx, strings.TrimSpace(q.Get("hash")), h.maxAge)
		if rec != nil {
			recs = []*store.GradeRecord{rec}
		}
	default:
		http.Error(w, "request_id or hash is required", http.StatusBadRequest)
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("answer lookup", "error", err)
		http.Error(w, "answers: "+err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]answerResp, 0, len(recs))
	for _, rec := range recs {
		out = append(out, answerResp{
			RequestID:   rec.RequestID,
			ProblemHash: rec.ProblemHash,
			ProblemID:   rec.ProblemID,
			Source:      rec.Source,
			Judge:       rec.Judge,
			Locale:      rec.Locale,
			Policy:      rec.Policy,
			CreatedAt:   rec.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			Result:      rec.Result,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
