package handle

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"homework-grader/api/internal/grading"
	"homework-grader/api/internal/ocr"
	"homework-grader/api/internal/store"
)

// AnswerFinder — чтение журнала проверок (store.GradeRepo).
type AnswerFinder interface {
	FindByRequestID(ctx context.Context, requestID string) ([]*store.GradeRecord, error)
	FindByHash(ctx context.Context, hash string, maxAge time.Duration) (*store.GradeRecord, error)
}

type Handle struct {
	engs    *ocr.Engines
	svc     *grading.Service
	answers AnswerFinder
	maxAge  time.Duration
	log     *slog.Logger
}

func New(engs *ocr.Engines, svc *grading.Service) *Handle {
	return &Handle{
		engs: engs,
		svc:  svc,
		log:  slog.Default(),
	}
}

// WithAnswers включает GET /v1/answers.
func (h *Handle) WithAnswers(f AnswerFinder, maxAge time.Duration) *Handle {
	h.answers = f
	h.maxAge = maxAge
	return h
}

func (h *Handle) WithLogger(l *slog.Logger) *Handle {
	if l != nil {
		h.log = l
	}
	return h
}

// Register вешает все эндпоинты на mux.
func (h *Handle) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/verify-step", h.VerifyStep)
	mux.HandleFunc("/v1/grade", h.Grade)
	mux.HandleFunc("/v1/grade/text", h.GradeText)
	mux.HandleFunc("/v1/grade/image", h.GradeImage)
	mux.HandleFunc("/v1/answers", h.Answers)
}

// judge выбирает судью по llm_name. Ненастроенный судья — не ошибка, а
// проверка только правилами.
func (h *Handle) judge(name string) (ocr.Judge, error) {
	if h.engs == nil {
		return nil, nil
	}
	j, err := h.engs.GetEngine(name)
	if errors.Is(err, ocr.ErrNoJudge) {
		return nil, nil
	}
	return j, err
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	deadline := 180 * time.Second
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	} else if ts := r.URL.Query().Get("timeoutSec"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	}
	return context.WithTimeout(r.Context(), deadline)
}

func decodePOST(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 16<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return false
	}
	if err := validate.Struct(v); err != nil {
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
