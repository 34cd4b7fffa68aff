package handle

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"homework-grader/api/internal/grading"
	"homework-grader/api/internal/ocr"
	"homework-grader/api/internal/util"
	"homework-grader/api/internal/verify"
)

type gradeReq struct {
	LLMName     string                 `json:"llm_name"`
	Judge       bool                   `json:"judge"`
	ProblemID   string                 `json:"problem_id" validate:"max=128"`
	ProblemText string                 `json:"problem_text" validate:"max=2048"`
	Locale      string                 `json:"locale" validate:"max=16"`
	Steps       []*verify.SolutionStep `json:"steps" validate:"max=200"`
}

type gradeResp struct {
	RequestID string                  `json:"request_id"`
	Judge     string                  `json:"judge"`
	Degraded  []string                `json:"degraded,omitempty"`
	Result    verify.ValidationResult `json:"result"`
}

// Grade: POST /v1/grade — шаги уже выделены клиентом.
func (h *Handle) Grade(w http.ResponseWriter, r *http.Request) {
	var req gradeReq
	if !decodePOST(w, r, &req) {
		return
	}
	steps := make([]*verify.SolutionStep, 0, len(req.Steps))
	for i, s := range req.Steps {
		if s == nil {
			http.Error(w, fmt.Sprintf("steps[%d] is null", i), http.StatusBadRequest)
			return
		}
		// клиент задаёт только from, to и external_verdict
		steps = append(steps, &verify.SolutionStep{From: s.From, To: s.To, External: s.External})
	}

	var judge ocr.Judge
	if req.Judge {
		j, err := h.judge(req.LLMName)
		if err != nil {
			http.Error(w, "judge: "+err.Error(), http.StatusBadRequest)
			return
		}
		judge = j
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	p := &verify.Problem{ID: req.ProblemID, Text: req.ProblemText, Steps: steps}
	out, err := h.svc.Grade(ctx, grading.Request{
		Source:   grading.SourceAPI,
		Locale:   req.Locale,
		Judge:    judge,
		AskJudge: req.Judge,
		Problems: []*verify.Problem{p},
	})
	if err != nil {
		h.gradeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gradeResp{
		RequestID: out.RequestID,
		Judge:     out.Judge,
		Degraded:  out.Degraded,
		Result:    out.Problems[0].Result,
	})
}

type gradeTextReq struct {
	LLMName string `json:"llm_name"`
	Text    string `json:"text" validate:"notblank,max=20000"`
	Locale  string `json:"locale" validate:"max=16"`
}

type problemResult struct {
	ProblemID   string                  `json:"problem_id"`
	ProblemText string                  `json:"problem_text"`
	Steps       []*verify.SolutionStep  `json:"steps"`
	Result      verify.ValidationResult `json:"result"`
}

type gradeManyResp struct {
	RequestID string          `json:"request_id"`
	Judge     string          `json:"judge"`
	Segmenter string          `json:"segmenter"`
	Degraded  []string        `json:"degraded,omitempty"`
	Problems  []problemResult `json:"problems"`
}

// GradeText: POST /v1/grade/text — сырой текст решения.
func (h *Handle) GradeText(w http.ResponseWriter, r *http.Request) {
	var req gradeTextReq
	if !decodePOST(w, r, &req) {
		return
	}
	judge, err := h.judge(req.LLMName)
	if err != nil {
		http.Error(w, "judge: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	problems, by := h.svc.SegmentText(ctx, judge, req.Text)
	h.gradeMany(ctx, w, req.Locale, judge, problems, by)
}

type gradeImageReq struct {
	LLMName string `json:"llm_name"`
	Image   string `json:"image" validate:"required"` // base64 или data:URI
	Mime    string `json:"mime" validate:"max=64"`
	Locale  string `json:"locale" validate:"max=16"`
}

// GradeImage: POST /v1/grade/image — фото решения.
func (h *Handle) GradeImage(w http.ResponseWriter, r *http.Request) {
	var req gradeImageReq
	if !decodePOST(w, r, &req) {
		return
	}
	img, hint, err := util.DecodeBase64MaybeDataURL(req.Image)
	if err != nil || len(img) == 0 {
		http.Error(w, "image: invalid base64", http.StatusBadRequest)
		return
	}
	judge, err := h.judge(req.LLMName)
	if err != nil {
		http.Error(w, "judge: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	problems, by, err := h.svc.SegmentImage(ctx, judge, img, util.PickMIME(req.Mime, hint, img))
	if err != nil {
		http.Error(w, "read photo: "+err.Error(), http.StatusBadGateway)
		return
	}
	h.gradeMany(ctx, w, req.Locale, judge, problems, by)
}

func (h *Handle) gradeMany(ctx context.Context, w http.ResponseWriter, locale string, judge ocr.Judge, problems []*verify.Problem, by string) {
	if len(problems) == 0 {
		http.Error(w, "no solution steps found", http.StatusUnprocessableEntity)
		return
	}
	out, err := h.svc.Grade(ctx, grading.Request{
		Source:   grading.SourceAPI,
		Locale:   locale,
		Judge:    judge,
		AskJudge: judge != nil,
		Problems: problems,
	})
	if err != nil {
		h.gradeError(w, err)
		return
	}
	resp := gradeManyResp{
		RequestID: out.RequestID,
		Judge:     out.Judge,
		Segmenter: by,
		Degraded:  out.Degraded,
		Problems:  make([]problemResult, 0, len(out.Problems)),
	}
	for _, g := range out.Problems {
		resp.Problems = append(resp.Problems, problemResult{
			ProblemID:   g.Problem.ID,
			ProblemText: g.Problem.Text,
			Steps:       g.Problem.Steps,
			Result:      g.Result,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handle) gradeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, verify.ErrNilStep), errors.Is(err, grading.ErrNoInput), errors.Is(err, verify.ErrUnknownLocale):
		http.Error(w, "grade: "+err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "grade: "+err.Error(), http.StatusGatewayTimeout)
	default:
		h.log.Error("grade failed", "error", err)
		http.Error(w, "grade: "+err.Error(), http.StatusInternalServerError)
	}
}
