package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"gopkg.in/yaml.v3"
)

// InferSpec is the prompt file (prompts/intent.yaml) driving LLM inference.
type InferSpec struct {
	System  string `yaml:"system"`
	Intents []struct {
		Name        string                 `yaml:"name"`
		Description string                 `yaml:"description"`
		ArgsSchema  map[string]interface{} `yaml:"args_schema"`
	} `yaml:"intents"`
	Style struct {
		Temperature float32 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"style"`
}

// Inference is what the model extracted from a free-text turn. Args may carry
// disambiguating fields (order_number, email) alongside the intent itself.
type Inference struct {
	Intent     string                 `json:"intent"`
	Args       map[string]interface{} `json:"args"`
	Confidence float32                `json:"confidence"`
}

// Inferrer asks the model to classify a free-text turn into one of the
// concierge intents. It is only consulted when the user has not picked an
// intent explicitly; an explicit choice always wins.
type Inferrer struct {
	spec   InferSpec
	client *openai.Client
	model  string
}

func LoadInferrer(path string, client *openai.Client, model string) (*Inferrer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var spec InferSpec
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return nil, err
	}
	return &Inferrer{spec: spec, client: client, model: model}, nil
}

// Infer classifies the transcript's latest user turn. Returns KindUnknown
// (with no error) when the model is unsure.
func (in *Inferrer) Infer(ctx context.Context, transcript []string, message string) (Kind, map[string]interface{}, error) {
	var schema []map[string]interface{}
	for _, it := range in.spec.Intents {
		schema = append(schema, map[string]interface{}{
			"name":        it.Name,
			"description": it.Description,
			"args_schema": it.ArgsSchema,
		})
	}
	schemaJSON, _ := json.Marshal(schema)
	temp := in.spec.Style.Temperature
	if temp <= 0 {
		temp = 0.1
	}
	maxTok := in.spec.Style.MaxTokens
	if maxTok <= 0 {
		maxTok = 200
	}

	var b strings.Builder
	b.WriteString(in.spec.System)
	b.WriteString("\n\nIntents:\n")
	b.Write(schemaJSON)
	b.WriteString("\n\nEarlier turns:\n")
	for _, t := range transcript {
		b.WriteString(strings.TrimSpace(t))
		b.WriteString("\n")
	}
	b.WriteString("\nLatest user turn: ")
	b.WriteString(strings.TrimSpace(message))
	b.WriteString("\nOutput ONLY the JSON object {intent, args, confidence}.\n")

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	resp, err := in.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       in.model,
		Temperature: temp,
		MaxTokens:   maxTok,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: b.String()},
		},
	})
	if err != nil {
		return KindUnknown, nil, err
	}
	if len(resp.Choices) == 0 {
		return KindUnknown, nil, fmt.Errorf("no choices")
	}
	out, err := parseInference(resp.Choices[0].Message.Content)
	if err != nil {
		return KindUnknown, nil, err
	}
	return ParseKind(out.Intent), out.Args, nil
}

// parseInference tolerates prose around the JSON object; models do that.
func parseInference(raw string) (*Inference, error) {
	var out Inference
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		first := strings.Index(raw, "{")
		last := strings.LastIndex(raw, "}")
		if first < 0 || last <= first {
			return nil, err
		}
		if err2 := json.Unmarshal([]byte(raw[first:last+1]), &out); err2 != nil {
			return nil, err
		}
	}
	if out.Args == nil {
		out.Args = map[string]interface{}{}
	}
	return &out, nil
}
