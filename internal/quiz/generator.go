// Package quiz generates document-grounded questions and grades submitted
// answers.
package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"doctutor/internal/ai"
	"doctutor/internal/vectorindex"
)

// surveyQuery is the fixed retrieval query used to surface broadly
// representative content for question generation.
const surveyQuery = "Generate quiz questions covering key concepts"

const generatorSystemPrompt = `You are an expert tutor creating quiz questions. Generate questions based ONLY on the provided content.

Rules:
- Questions must be directly answerable from the content
- For MCQ: provide exactly 4 options, only one correct
- For true_false: create a statement that is clearly true or false based on content
- For free_text: ask questions requiring short explanations
- Vary question difficulty based on the difficulty parameter
- Return valid JSON only, no markdown, no explanation

Output format (JSON array):
[
  {
    "question_type": "mcq",
    "question_text": "What is...?",
    "options": ["A) ...", "B) ...", "C) ...", "D) ..."],
    "correct_answer": "A",
    "explanation": "Brief explanation why this is correct"
  },
  {
    "question_type": "true_false",
    "question_text": "Statement to evaluate",
    "correct_answer": "true",
    "explanation": "Why this is true/false"
  },
  {
    "question_type": "free_text",
    "question_text": "Explain how...?",
    "correct_answer": "Key points that should be mentioned",
    "explanation": "What a good answer should include"
  }
]`

var (
	ErrNoContext         = errors.New("no chunks retrieved for document")
	ErrOracleUnavailable = errors.New("both llm oracles returned empty responses")
)

// QuestionPayload is one generated question before persistence.
type QuestionPayload struct {
	QuestionType  string   `json:"question_type"`
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// ChatClient is the slice of the AI client the quiz package needs.
type ChatClient interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
}

// ContextRetriever fetches ranked chunks for a document.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query, documentID string, topK int) ([]vectorindex.SearchResult, error)
}

type Generator struct {
	retriever ContextRetriever
	llm       ChatClient
	primary   ai.ChatConfig
	fallback  ai.ChatConfig
}

func NewGenerator(retriever ContextRetriever, llm ChatClient, primary, fallback ai.ChatConfig) *Generator {
	return &Generator{
		retriever: retriever,
		llm:       llm,
		primary:   primary,
		fallback:  fallback,
	}
}

// Generate returns up to numQuestions validated question payloads grounded
// in the document's indexed content. Any retrieval, oracle or parse failure
// is returned as an error; partial output is never produced.
func (g *Generator) Generate(ctx context.Context, documentID string, numQuestions int, difficulty string, questionTypes []string) ([]QuestionPayload, error) {
	if len(questionTypes) == 0 {
		questionTypes = []string{"mcq", "true_false", "free_text"}
	}

	// Over-fetch for variety.
	chunks, err := g.retriever.Retrieve(ctx, surveyQuery, documentID, numQuestions*3)
	if err != nil {
		return nil, fmt.Errorf("retrieve quiz context failed: %w", err)
	}
	if len(chunks) == 0 {
		return nil, ErrNoContext
	}

	var contextParts []string
	for i, chunk := range chunks {
		contextParts = append(contextParts, fmt.Sprintf("[Chunk %d]\n%s", i+1, chunk.Content))
	}

	userPrompt := fmt.Sprintf(`Based on the following content, generate %d quiz questions.

Difficulty: %s
Question types to include: %s

CONTENT:
%s

Generate exactly %d questions mixing the requested types based on difficulty level '%s'.
For easy: focus on basic recall and simple facts
For medium: focus on understanding and application
For hard: focus on analysis, synthesis, and deeper concepts

Return ONLY a valid JSON array with no markdown formatting.`,
		numQuestions, difficulty, strings.Join(questionTypes, ", "),
		strings.Join(contextParts, "\n\n"), numQuestions, difficulty)

	response, err := g.complete(ctx, generatorSystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	questions, err := decodeQuestions(response)
	if err != nil {
		return nil, fmt.Errorf("decode generated questions failed: %w", err)
	}
	if len(questions) > numQuestions {
		questions = questions[:numQuestions]
	}
	return questions, nil
}

// complete tries the primary oracle, then the fallback on failure or empty
// output.
func (g *Generator) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []ai.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}

	response, err := g.llm.Complete(ctx, g.primary, messages)
	if err != nil || strings.TrimSpace(response) == "" {
		if err != nil {
			log.Printf("primary llm failed, trying fallback: %v", err)
		}
		response, err = g.llm.Complete(ctx, g.fallback, messages)
		if err != nil {
			return "", fmt.Errorf("fallback llm failed: %w", err)
		}
	}
	if strings.TrimSpace(response) == "" {
		return "", ErrOracleUnavailable
	}
	return response, nil
}

// decodeQuestions is the single recovery path for LLM output: strip known
// fence markers, then parse strictly. Elements missing a type or text are
// discarded.
func decodeQuestions(raw string) ([]QuestionPayload, error) {
	cleaned := stripFence(raw)

	var parsed []QuestionPayload
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("response is not a question array: %w", err)
	}

	valid := make([]QuestionPayload, 0, len(parsed))
	for _, q := range parsed {
		if strings.TrimSpace(q.QuestionType) == "" || strings.TrimSpace(q.QuestionText) == "" {
			continue
		}
		valid = append(valid, q)
	}
	return valid, nil
}

func stripFence(s string) string {
	cleaned := strings.TrimSpace(s)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = cleaned[len("```json"):]
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = cleaned[len("```"):]
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}
