package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"doctutor/internal/ai"
	"doctutor/internal/model"
)

const evaluatorSystemPrompt = "You are an expert tutor providing constructive feedback on student answers."

const freeTextPromptTemplate = `You are an expert tutor evaluating a student's answer to a quiz question.

Question: %s

Model Answer (what a good answer should include): %s

Student's Answer: %s

Evaluate the student's answer:
1. Compare it to the model answer
2. Determine if it demonstrates understanding (doesn't need to be word-for-word)
3. Score as correct if the key concepts are present, partially correct if some concepts are present, or incorrect if wrong/missing

Return ONLY a JSON object in this exact format:
{
  "is_correct": true/false,
  "feedback": "Constructive feedback explaining what was good and what could be improved"
}

Rules:
- is_correct: true if the answer captures the main points, false otherwise
- feedback: Be encouraging but specific about what was missing or incorrect
- The student doesn't need to match the model answer exactly, just convey the same understanding`

var (
	trueSynonyms  = map[string]bool{"true": true, "t": true, "yes": true, "1": true, "correct": true, "right": true}
	falseSynonyms = map[string]bool{"false": true, "f": true, "no": true, "0": true, "incorrect": true, "wrong": true, "not true": true}
)

// EvalResult is the verdict for one submitted answer.
type EvalResult struct {
	IsCorrect   bool   `json:"is_correct"`
	Feedback    string `json:"feedback"`
	Explanation string `json:"explanation,omitempty"`
}

// Evaluator grades answers with a per-type strategy. Its degradation ladder
// (oracle, fallback oracle, deterministic heuristic) always produces a
// verdict and never returns an error.
type Evaluator struct {
	llm      ChatClient
	primary  ai.ChatConfig
	fallback ai.ChatConfig
}

func NewEvaluator(llm ChatClient, primary, fallback ai.ChatConfig) *Evaluator {
	return &Evaluator{llm: llm, primary: primary, fallback: fallback}
}

// Evaluate grades userAnswer against correctAnswer for the given question
// type. questionText gives the free-text rubric its context.
func (e *Evaluator) Evaluate(ctx context.Context, questionType, userAnswer, correctAnswer, questionText string) EvalResult {
	switch strings.ToLower(questionType) {
	case model.QuestionTypeMCQ:
		return evaluateMCQ(userAnswer, correctAnswer)
	case model.QuestionTypeTrueFalse, "truefalse", "tf":
		return evaluateTrueFalse(userAnswer, correctAnswer)
	case model.QuestionTypeFreeText, "freetext", "free", "text":
		return e.evaluateFreeText(ctx, userAnswer, correctAnswer, questionText)
	default:
		log.Printf("unknown question type %q, falling back to string comparison", questionType)
		isCorrect := strings.EqualFold(strings.TrimSpace(userAnswer), strings.TrimSpace(correctAnswer))
		feedback := "Incorrect."
		if isCorrect {
			feedback = "Correct!"
		}
		return EvalResult{IsCorrect: isCorrect, Feedback: feedback}
	}
}

// normalizeMCQ reduces answers like "A) Paris" or "b." to a single
// uppercase letter.
func normalizeMCQ(answer string) string {
	normalized := strings.ToUpper(strings.TrimSpace(answer))
	if len(normalized) > 1 {
		switch normalized[1] {
		case ')', '.', ' ':
			normalized = normalized[:1]
		}
	}
	return normalized
}

func evaluateMCQ(userAnswer, correctAnswer string) EvalResult {
	user := normalizeMCQ(userAnswer)
	correct := normalizeMCQ(correctAnswer)

	if user == correct {
		return EvalResult{IsCorrect: true, Feedback: "Correct! Well done."}
	}
	return EvalResult{
		IsCorrect: false,
		Feedback:  fmt.Sprintf("Incorrect. The correct answer is %s.", correct),
	}
}

func evaluateTrueFalse(userAnswer, correctAnswer string) EvalResult {
	user := strings.ToLower(strings.TrimSpace(userAnswer))

	var userBool *bool
	switch {
	case trueSynonyms[user]:
		v := true
		userBool = &v
	case falseSynonyms[user]:
		v := false
		userBool = &v
	}

	if userBool == nil {
		return EvalResult{
			IsCorrect: false,
			Feedback:  "Could not determine your answer. Please answer with 'true' or 'false'.",
		}
	}

	correctBool := trueSynonyms[strings.ToLower(strings.TrimSpace(correctAnswer))]
	if *userBool == correctBool {
		return EvalResult{
			IsCorrect: true,
			Feedback:  fmt.Sprintf("Correct! The statement is %s.", correctAnswer),
		}
	}
	return EvalResult{
		IsCorrect: false,
		Feedback:  fmt.Sprintf("Incorrect. The statement is %s.", correctAnswer),
	}
}

// evaluateFreeText asks the chat oracle to judge conceptual coverage. When
// both oracles are down the deterministic backstop favors the student:
// very short answers are marked incorrect, anything else passes with a
// disclaimer.
func (e *Evaluator) evaluateFreeText(ctx context.Context, userAnswer, correctAnswer, questionText string) EvalResult {
	prompt := fmt.Sprintf(freeTextPromptTemplate, questionText, correctAnswer, userAnswer)
	messages := []ai.ChatMessage{
		{Role: "system", Content: evaluatorSystemPrompt},
		{Role: "user", Content: prompt},
	}

	response, err := e.llm.Complete(ctx, e.primary, messages)
	if err != nil || strings.TrimSpace(response) == "" {
		if err != nil {
			log.Printf("primary evaluation failed, trying fallback: %v", err)
		}
		response, err = e.llm.Complete(ctx, e.fallback, messages)
	}

	if err != nil || strings.TrimSpace(response) == "" {
		if len(strings.TrimSpace(userAnswer)) < 10 {
			return EvalResult{
				IsCorrect:   false,
				Feedback:    "Your answer seems too brief. Please provide more detail.",
				Explanation: correctAnswer,
			}
		}
		return EvalResult{
			IsCorrect:   true,
			Feedback:    "Answer received. (Automated evaluation unavailable)",
			Explanation: correctAnswer,
		}
	}

	var verdict struct {
		IsCorrect bool   `json:"is_correct"`
		Feedback  string `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(stripFence(response)), &verdict); err != nil {
		log.Printf("parse evaluation json failed: %v", err)
		return EvalResult{
			IsCorrect:   true,
			Feedback:    "Answer received. (Evaluation parsing failed)",
			Explanation: correctAnswer,
		}
	}

	feedback := verdict.Feedback
	if feedback == "" {
		feedback = "Answer evaluated."
	}
	return EvalResult{IsCorrect: verdict.IsCorrect, Feedback: feedback, Explanation: correctAnswer}
}
