package vision

import "strings"

// Schema is the subset of the Gemini response-schema vocabulary this service
// needs. It doubles as the fixed structural contract the analysis response
// must satisfy to be accepted downstream.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// ResponseSchema returns the fixed schema describing {ingredients[], recipes[]}
// with per-field required markers. The shape is frozen; everything the
// validator checks mirrors exactly what is demanded here.
func ResponseSchema() *Schema {
	return &Schema{
		Type: "OBJECT",
		Properties: map[string]*Schema{
			"ingredients": {
				Type: "ARRAY",
				Items: &Schema{
					Type: "OBJECT",
					Properties: map[string]*Schema{
						"name":            {Type: "STRING"},
						"info":            {Type: "STRING"},
						"nutrition":       {Type: "STRING"},
						"caloriesPer100g": {Type: "INTEGER"},
					},
					Required: []string{"name", "info", "caloriesPer100g"},
				},
			},
			"recipes": {
				Type: "ARRAY",
				Items: &Schema{
					Type: "OBJECT",
					Properties: map[string]*Schema{
						"id":             {Type: "STRING"},
						"name":           {Type: "STRING"},
						"description":    {Type: "STRING"},
						"difficulty":     {Type: "STRING"},
						"prepTime":       {Type: "STRING"},
						"allIngredients": {Type: "ARRAY", Items: &Schema{Type: "STRING"}},
						"instructions":   {Type: "ARRAY", Items: &Schema{Type: "STRING"}},
					},
					Required: []string{"id", "name", "difficulty", "prepTime", "allIngredients", "instructions"},
				},
			},
		},
		Required: []string{"ingredients", "recipes"},
	}
}

// Instruction returns the fixed natural-language prompt demanding JSON-only
// output in the user locale.
func Instruction(locale string) string {
	if strings.HasPrefix(strings.ToLower(locale), "zh") {
		return "你是一名专业营养师。请识别这张照片中的所有食材，为每种食材给出简短介绍、" +
			"营养信息和每100克的卡路里，并基于这些食材推荐几道菜谱（包含编号、名称、难度、" +
			"准备时间、全部所需食材和分步做法）。只输出符合给定结构的JSON，不要输出任何其他文字。"
	}
	return "You are a professional nutritionist. Identify every food ingredient in this photo, " +
		"give each a short description, nutrition info and calories per 100g, and suggest recipes " +
		"built from them (with id, name, difficulty, prep time, full ingredient list and " +
		"step-by-step instructions). Output only JSON matching the given structure, nothing else."
}
