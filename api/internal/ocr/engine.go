package ocr

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var ErrNoJudge = errors.New("judge is not configured")

// Recognizer — OCR: изображение → текст.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, image []byte, opt Options) (string, error)
}

// Judge — внешний (LLM) оракул: разбивает текст на задачи и шаги и оценивает шаги.
type Judge interface {
	Name() string
	GetModel() string
	Segment(ctx context.Context, text string) ([]ParsedProblem, error)
	JudgeSteps(ctx context.Context, in JudgeRequest) ([]StepJudgment, error)
}

// ImageSegmenter — судья, который умеет читать фото сам (без отдельного OCR).
type ImageSegmenter interface {
	SegmentImage(ctx context.Context, image []byte, mime string) ([]ParsedProblem, error)
}

type Engines struct {
	Gemini  Judge
	OpenAI  Judge
	Default string // llm_name по умолчанию
}

func (e *Engines) GetEngine(llmName string) (Judge, error) {
	name := strings.ToLower(strings.TrimSpace(llmName))
	if name == "" {
		name = strings.ToLower(e.Default)
	}
	var j Judge
	switch name {
	case "gemini":
		j = e.Gemini
	case "gpt", "openai":
		j = e.OpenAI
	case "", "rules", "none":
		return nil, ErrNoJudge
	default:
		return nil, errors.New("unknown llm_name; use 'gemini' or 'gpt'")
	}
	if j == nil {
		return nil, ErrNoJudge
	}
	return j, nil
}

// Manager хранит выбранного судью для каждого чата. nil-судья — только правила.
type Manager struct {
	def Judge
	m   sync.Map // chatID -> Judge
}

func NewManager(defaultJudge Judge) *Manager {
	return &Manager{def: defaultJudge}
}

type rulesOnly struct{}

func (m *Manager) Get(chatID int64) Judge {
	if v, ok := m.m.Load(chatID); ok {
		if _, off := v.(rulesOnly); off {
			return nil
		}
		return v.(Judge)
	}
	return m.def
}

func (m *Manager) Set(chatID int64, j Judge) {
	if j == nil {
		m.m.Store(chatID, rulesOnly{})
		return
	}
	m.m.Store(chatID, j)
}
