package gpt

import (
	"context"
	"encoding/json"
	"fmt"

	"homework-grader/api/internal/ocr"
	"homework-grader/api/internal/util"
)

const (
	SEGMENT = "segment"
	JUDGE   = "judge"
)

func (e *Engine) Segment(ctx context.Context, text string) ([]ocr.ParsedProblem, error) {
	txt, err := e.call(ctx, SEGMENT, []any{
		map[string]any{"type": "input_text", "text": "STUDENT_TEXT:\n" + text},
	})
	if err != nil {
		return nil, err
	}
	return ocr.DecodeSegment(txt)
}

func (e *Engine) SegmentImage(ctx context.Context, image []byte, mime string) ([]ocr.ParsedProblem, error) {
	mime = util.PickMIME(mime, "", image)
	if !util.IsImageMIME(mime) {
		return nil, fmt.Errorf("openai segment: unsupported MIME %s (need image/jpeg|png|webp)", mime)
	}
	txt, err := e.call(ctx, SEGMENT, []any{
		map[string]any{"type": "input_text", "text": "Read the photo and return JSON by segment.schema.json."},
		map[string]any{"type": "input_image", "image_url": util.MakeDataURL(mime, image)},
	})
	if err != nil {
		return nil, err
	}
	return ocr.DecodeSegment(txt)
}

func (e *Engine) JudgeSteps(ctx context.Context, in ocr.JudgeRequest) ([]ocr.StepJudgment, error) {
	userJSON, _ := json.Marshal(map[string]any{
		"task":  "Judge every step and return JSON by judge.schema.json.",
		"input": in,
	})
	txt, err := e.call(ctx, JUDGE, []any{
		map[string]any{"type": "input_text", "text": "INPUT_JSON:\n" + string(userJSON)},
	})
	if err != nil {
		return nil, err
	}
	return ocr.DecodeJudgments(txt)
}

func (e *Engine) call(ctx context.Context, name string, userContent []any) (string, error) {
	system, err := util.LoadSystemPrompt(name, e.Name())
	if err != nil {
		return "", err
	}
	schema, err := util.LoadPromptSchema(name)
	if err != nil {
		return "", err
	}
	util.FixJSONSchemaStrict(schema)
	return e.responses(ctx, name, system, schema, userContent)
}
