package services

import (
	"context"
	"encoding/json"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rotisserie/eris"

	"wastejobs-backend/internal/models"
)

const classifyToolName = "classify_waste_item"

// OpenAIClassifier asks a vision model to put the photographed item into one
// of the waste categories, through a strict function call.
type OpenAIClassifier struct {
	client *openai.Client
	model  shared.ChatModel
}

// NewOpenAIClassifier creates the classifier. With an empty apiKey every
// Predict call fails.
func NewOpenAIClassifier(apiKey, model string, opts ...option.RequestOption) *OpenAIClassifier {
	if model == "" {
		model = string(shared.ChatModelGPT4oMini)
	}
	if apiKey == "" {
		return &OpenAIClassifier{model: shared.ChatModel(model)}
	}
	c := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIClassifier{client: &c, model: shared.ChatModel(model)}
}

func (c *OpenAIClassifier) Predict(ctx context.Context, imageData, description string) (models.CategoryPrediction, error) {
	if c.client == nil {
		return models.CategoryPrediction{}, eris.New("openai: classifier not configured")
	}

	categories := make([]string, 0, len(models.Categories())+1)
	for _, cat := range models.Categories() {
		categories = append(categories, string(cat))
	}
	categories = append(categories, models.CategoryUnrecognized)

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"category": map[string]any{"type": "string", "enum": categories},
			"title":    map[string]string{"type": "string"},
		},
		"required":             []string{"category", "title"},
		"additionalProperties": false,
	}

	fn := shared.FunctionDefinitionParam{
		Name:        classifyToolName,
		Description: openai.String("Return the waste category of the photographed item and a short title for the disposal job."),
		Strict:      openai.Bool(true),
		Parameters:  schema,
	}

	prompt := `Classify the household waste item in this photo.

Call classify_waste_item(strict).
Categories:
- pszok: bulky or hazardous household waste for a municipal collection point (furniture, paint, tyres, rubble).
- small_electronics: small electrical devices (phones, chargers, kettles, toys with batteries).
- electronics: large electrical equipment (TVs, fridges, washing machines, monitors).
- expired_medications: medicines, pills, syrups, ointments.
- ERROR: the photo shows nothing that fits the categories above.

title is a short Polish name of the item, at most five words.`
	if d := strings.TrimSpace(description); d != "" {
		prompt += "\n\nThe requester described it as: " + d
	}

	req := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
						openai.TextContentPart(prompt),
						openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
							URL:    imageURL(imageData),
							Detail: "low",
						}),
					},
				},
			},
		}},
		Tools: []openai.ChatCompletionToolParam{{
			Function: fn,
		}},
		ToolChoice: openai.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionNamedToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{
					Name: classifyToolName,
				},
			},
		},
	}

	resp, err := c.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return models.CategoryPrediction{}, eris.Wrap(err, "openai: chat completion")
	}
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return models.CategoryPrediction{}, eris.New("openai: no function call returned")
	}

	var out models.CategoryPrediction
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.ToolCalls[0].Function.Arguments), &out); err != nil {
		return models.CategoryPrediction{}, eris.Wrap(err, "openai: unmarshal prediction")
	}
	return out, nil
}

// imageURL accepts a data URL, an http(s) URL or bare base64 JPEG data.
func imageURL(imageData string) string {
	switch {
	case strings.HasPrefix(imageData, "data:"),
		strings.HasPrefix(imageData, "https://"),
		strings.HasPrefix(imageData, "http://"):
		return imageData
	}
	return "data:image/jpeg;base64," + imageData
}
