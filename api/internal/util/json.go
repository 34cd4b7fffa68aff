package util

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"homework-grader/api/internal/ocr/prompt"
)

// LoadSystemPrompt берёт <PROMPT_DIR>/<provider>/<name>.system.txt, иначе встроенный текст.
func LoadSystemPrompt(name, provider string) (string, error) {
	if s, ok := readPromptFile(filepath.Join(strings.ToLower(provider), name+".system.txt")); ok {
		return s, nil
	}
	switch name {
	case "segment":
		return prompt.SegmentSystem, nil
	case "judge":
		return prompt.JudgeSystem, nil
	}
	return "", fmt.Errorf("system prompt %q not found (provider=%q)", name, provider)
}

// Загружаем <name>.schema.json из PROMPT_DIR, иначе берём из встроенных prompt.*.
func LoadPromptSchema(name string) (map[string]any, error) {
	var raw []byte
	if s, ok := readPromptFile(name + ".schema.json"); ok {
		raw = []byte(s)
	} else {
		switch name {
		case "segment":
			raw = []byte(prompt.SegmentSchema)
		case "judge":
			raw = []byte(prompt.JudgeSchema)
		default:
			return nil, fmt.Errorf("unknown schema name: %s", name)
		}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("bad %s schema: %w", name, err)
	}
	ensureSchemaMeta(m)
	return m, nil
}

func readPromptFile(rel string) (string, bool) {
	base := os.Getenv("PROMPT_DIR")
	if base == "" {
		return "", false
	}
	b, err := os.ReadFile(filepath.Join(base, rel))
	if err != nil || len(b) == 0 {
		return "", false
	}
	return strings.TrimSpace(string(b)), true
}

// Мини-метаданные схемы (некоторые клиенты ожидают $schema).
func ensureSchemaMeta(m map[string]any) {
	if _, ok := m["$schema"]; !ok {
		m["$schema"] = "http://json-schema.org/draft-07/schema#"
	}
}

// Приводим схему к «строгому» виду для OpenAI: если есть properties — добавляем
// type=object, required со всеми полями и additionalProperties=false.
func FixJSONSchemaStrict(node any) {
	switch n := node.(type) {
	case map[string]any:
		if props, ok := n["properties"].(map[string]any); ok {
			if _, hasType := n["type"]; !hasType {
				n["type"] = "object"
			}
			req := make([]any, 0, len(props))
			for k := range props {
				req = append(req, k)
			}
			n["required"] = req
			n["additionalProperties"] = false
			for _, v := range props {
				FixJSONSchemaStrict(v)
			}
		}
		if items, ok := n["items"]; ok {
			switch it := items.(type) {
			case map[string]any:
				FixJSONSchemaStrict(it)
			case []any:
				for _, el := range it {
					FixJSONSchemaStrict(el)
				}
			}
		}
		for _, k := range []string{"oneOf", "anyOf", "allOf"} {
			if arr, ok := n[k].([]any); ok {
				for _, el := range arr {
					FixJSONSchemaStrict(el)
				}
			}
		}
	case []any:
		for _, v := range n {
			FixJSONSchemaStrict(v)
		}
	}
}
