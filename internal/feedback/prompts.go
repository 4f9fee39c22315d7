package feedback

import (
	"github.com/sashabaranov/go-openai"
)

// Mode selects the kind of feedback.
type Mode int

const (
	// Hint guides the learner towards a solution using the question, the code and the last execution output.
	Hint Mode = iota
	// Evaluation judges whether the code solves the question.
	Evaluation
)

func (m Mode) String() string {
	switch m {
	case Hint:
		return "hint"
	case Evaluation:
		return "evaluation"
	default:
		return "unknown"
	}
}

const hintInstruction = "you are an expert python tutor and help kids 10 year old to learn python, and suggest " +
	"solution for question q based on code and error of code execution, provide easy to understand explaination " +
	"for kid in not more than 5 lines, you must guide to get to right solution without providing actual solution"

const evaluationInstruction = "you are an expert python tutor and help kids 10 year old to learn python, evaluate " +
	"solution of q as provided on code, if its about expected output, Say Good Job, otherwise provide hint on what " +
	"is expected without providing actual solution"

// Request is the input of one feedback request.
type Request struct {
	Mode     Mode
	Question string
	Code     string
	// Context is the prior execution output or fault text. Only hints use it.
	Context string
}

// Messages builds the chat messages for r.
func (r Request) Messages() []openai.ChatCompletionMessage {
	instruction := evaluationInstruction
	content := "question: " + r.Question + " code: " + r.Code
	if r.Mode == Hint {
		instruction = hintInstruction
		content += " output: " + r.Context
	}
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: instruction},
		{Role: openai.ChatMessageRoleUser, Content: content},
	}
}
