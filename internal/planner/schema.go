package planner

import "github.com/google/generative-ai-go/genai"

// GeminiSchema describes the response format accepted by ParsePlan so
// the Gemini client can enforce it on the provider side.
func GeminiSchema() *genai.Schema {
	ingredient := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"item":     {Type: genai.TypeString},
			"quantity": {Type: genai.TypeNumber},
			"unit":     {Type: genai.TypeString},
		},
		Required: []string{"item", "quantity", "unit"},
	}

	day := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"day":          {Type: genai.TypeString, Format: "enum", Enum: append([]string(nil), weekdayNames[:]...)},
			"name":         {Type: genai.TypeString},
			"ingredients":  {Type: genai.TypeArray, Items: ingredient},
			"instructions": {Type: genai.TypeString},
		},
		Required: []string{"day", "name", "ingredients", "instructions"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"days": {Type: genai.TypeArray, Description: "One meal per requested day.", Items: day},
		},
		Required: []string{"days"},
	}
}
