package usecase

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"caserag/internal/domain"
	"caserag/internal/port"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

// systemInstruction frames the generative step. The model only sees case
// context retrieved from the index.
const systemInstruction = "You are a medical assistant specialized in tropical infectious diseases. " +
	"Use the context from clinical case reports below to suggest possible diagnoses and management plans. " +
	"If uncertain, state what information is missing."

// AnswerUseCase retrieves context for a question and delegates answer
// generation to the language model.
type AnswerUseCase struct {
	retrieve        *RetrieveUseCase
	llm             port.LLM
	topK            int
	contextMaxChars int
	snippetMaxChars int
	tmpl            *template.Template
}

// NewAnswerUseCase creates an answer use case.
func NewAnswerUseCase(retrieve *RetrieveUseCase, llm port.LLM, topK, contextMaxChars, snippetMaxChars int) (*AnswerUseCase, error) {
	tmplContent, err := promptTemplates.ReadFile("templates/answer_prompt.txt")
	if err != nil {
		return nil, fmt.Errorf("prompt template not found: %w", err)
	}
	tmpl, err := template.New("answer").Parse(string(tmplContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	return &AnswerUseCase{
		retrieve:        retrieve,
		llm:             llm,
		topK:            topK,
		contextMaxChars: contextMaxChars,
		snippetMaxChars: snippetMaxChars,
		tmpl:            tmpl,
	}, nil
}

// AnswerResult is one answered question with its supporting retrieval.
type AnswerResult struct {
	Answer  string
	Context string
	Hits    []domain.RetrievedCase
}

// Answer retrieves context for the question and generates an answer.
// Retrieval failures return an error so the caller can re-prompt; generation
// failures are embedded in the answer text as a user-visible message instead
// of escaping the interactive loop.
func (u *AnswerUseCase) Answer(question string) (*AnswerResult, error) {
	hits, err := u.retrieve.ByText(question, u.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	ctx := AssembleContext(hits, u.contextMaxChars, u.snippetMaxChars)
	prompt, err := u.buildPrompt(ctx, question)
	if err != nil {
		return nil, err
	}

	result := &AnswerResult{
		Context: ctx,
		Hits:    Cases(hits),
	}

	answer, err := u.llm.Generate(prompt)
	if err != nil {
		result.Answer = fmt.Sprintf("Failed to generate an answer: %v", err)
		return result, nil
	}
	result.Answer = answer
	return result, nil
}

type promptData struct {
	System   string
	Context  string
	Question string
}

func (u *AnswerUseCase) buildPrompt(context, question string) (string, error) {
	var buf bytes.Buffer
	err := u.tmpl.Execute(&buf, promptData{
		System:   systemInstruction,
		Context:  context,
		Question: question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}
