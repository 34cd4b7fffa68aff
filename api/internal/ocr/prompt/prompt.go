package prompt

// SegmentSystem — системная инструкция для разбора решения на задачи и шаги.
const SegmentSystem = `You read a student's hand-written arithmetic homework (already transcribed, or as an image).
Split it into problems and, for each problem, into solution steps.
A step is one claimed transformation "from = to" exactly as the student wrote it.
Copy expressions verbatim: do not fix mistakes, do not simplify, do not add steps the student did not write.
For every step also give your own judgement "correct" (true if the transformation is mathematically valid).
Return ONLY JSON that matches the schema below. Any text outside JSON is an error.`

// JudgeSystem — системная инструкция для оценки уже выделенных шагов.
const JudgeSystem = `You check a student's arithmetic solution step by step.
Each step claims that expression "from" equals expression "to".
Judge every step independently using the problem text as context.
A step is correct only if both sides have the same value; a correct final answer does not make a wrong step correct.
Return ONLY JSON that matches the schema below, one entry per input step, with the same index.`

const SegmentSchema = `{
  "title": "segment",
  "type": "object",
  "properties": {
    "problems": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "problem_id": {"type": "string"},
          "problem_text": {"type": "string"},
          "steps": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "from": {"type": "string"},
                "to": {"type": "string"},
                "correct": {"type": "boolean"}
              }
            }
          }
        }
      }
    }
  },
  "additionalProperties": false
}`

const JudgeSchema = `{
  "title": "judge",
  "type": "object",
  "properties": {
    "steps": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "index": {"type": "integer", "minimum": 0},
          "correct": {"type": "boolean"},
          "comment": {"type": "string"}
        }
      }
    }
  },
  "additionalProperties": false
}`
