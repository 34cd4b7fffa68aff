package handle

import (
	"net/http"

	"homework-grader/api/internal/verify"
)

type verifyStepReq struct {
	From string `json:"from" validate:"notblank,max=512"`
	To   string `json:"to" validate:"notblank,max=512"`
}

type verifyStepResp struct {
	Verdict   verify.Verdict        `json:"verdict"`
	Category  *verify.ErrorCategory `json:"category,omitempty"`
	Evidence  string                `json:"evidence,omitempty"`
	FromValue *verify.Number        `json:"from_value,omitempty"`
	ToValue   *verify.Number        `json:"to_value,omitempty"`
	Method    string                `json:"method"`
}

func (h *Handle) VerifyStep(w http.ResponseWriter, r *http.Request) {
	var req verifyStepReq
	if !decodePOST(w, r, &req) {
		return
	}
	check := verify.CheckStep(req.From, req.To)
	out := verifyStepResp{
		Verdict:   check.Verdict,
		FromValue: check.FromValue,
		ToValue:   check.ToValue,
		Method:    check.Method,
	}
	if check.Verdict == verify.Incorrect {
		cls := verify.ClassifyDetail(req.From, req.To)
		out.Category = &cls.Category
		out.Evidence = cls.Evidence
	}
	writeJSON(w, http.StatusOK, out)
}
