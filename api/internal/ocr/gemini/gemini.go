package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"homework-grader/api/internal/ocr"
	"homework-grader/api/internal/ocr/prompt"
	"homework-grader/api/internal/util"
)

const (
	SEGMENT = "segment"
	JUDGE   = "judge"
)

type Engine struct {
	APIKey string

	mu    sync.RWMutex
	model string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string { return "gemini" }

func (e *Engine) GetModel() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model
}

// SetModel переключает модель (команда /engine gemini <model> в боте).
func (e *Engine) SetModel(m string) {
	if m = strings.TrimSpace(m); m == "" {
		return
	}
	e.mu.Lock()
	e.model = m
	e.mu.Unlock()
}

// Segment разбивает распознанный текст на задачи и шаги (JSON по segment.schema).
func (e *Engine) Segment(ctx context.Context, text string) ([]ocr.ParsedProblem, error) {
	user := "Ответ строго JSON по segment.schema.json. Без комментариев.\nSTUDENT_TEXT:\n" + text
	txt, err := e.generate(ctx, SEGMENT, prompt.SegmentSchema, genai.Text(user))
	if err != nil {
		return nil, err
	}
	return ocr.DecodeSegment(txt)
}

// SegmentImage — то же, но модель сама читает фото.
func (e *Engine) SegmentImage(ctx context.Context, image []byte, mime string) ([]ocr.ParsedProblem, error) {
	if len(image) == 0 {
		return nil, errors.New("gemini segment: empty image")
	}
	mime = util.PickMIME(mime, "", image)
	parts := []genai.Part{
		genai.Text("Ответ строго JSON по segment.schema.json. Без комментариев."),
		&genai.Blob{MIMEType: mime, Data: image},
	}
	txt, err := e.generate(ctx, SEGMENT, prompt.SegmentSchema, parts...)
	if err != nil {
		return nil, err
	}
	return ocr.DecodeSegment(txt)
}

// JudgeSteps оценивает каждый шаг; ответ по judge.schema.
func (e *Engine) JudgeSteps(ctx context.Context, in ocr.JudgeRequest) ([]ocr.StepJudgment, error) {
	userObj := map[string]any{
		"task":  "Judge every step and return JSON by judge.schema.json.",
		"input": in,
	}
	userJSON, _ := json.Marshal(userObj)
	txt, err := e.generate(ctx, JUDGE, prompt.JudgeSchema, genai.Text("INPUT_JSON:\n"+string(userJSON)))
	if err != nil {
		return nil, err
	}
	return ocr.DecodeJudgments(txt)
}

func (e *Engine) generate(ctx context.Context, name, schema string, parts ...genai.Part) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.GetModel())
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}
	// Возвращаем строго JSON
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}

	sys, err := util.LoadSystemPrompt(name, e.Name())
	if err != nil {
		return "", err
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{
			genai.Text(sys),
			genai.Text(name + ".schema.json:\n" + schema),
		},
	}

	// Ретраи на случай 5xx/транзиентных сбоёв
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
			}
			continue
		}
		txt := firstText(resp)
		if txt == "" {
			return "", fmt.Errorf("gemini %s: empty response", name)
		}
		return txt, nil
	}
	return "", fmt.Errorf("gemini %s: %w", name, lastErr)
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(b.String())
}

func ptrFloat32(f float32) *float32 { return &f }
