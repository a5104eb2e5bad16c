package validator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	apperrors "go-ingredient-scanner/internal/errors"
	"go-ingredient-scanner/pkg/models"
)

// fencePattern matches the markdown code-fence delimiters some model
// responses arrive wrapped in, in any casing ("```json", "```JSON", "```").
var fencePattern = regexp.MustCompile("(?i)```(?:json)?")

// Validator turns untrusted raw text from the analysis service into a
// structurally and semantically valid AnalysisResult, or a precise AppError.
// Successful payloads pass through unchanged in content: no re-ordering and
// no deduplication.
type Validator struct {
	locale string
}

// New creates a validator emitting user messages for the given locale.
func New(locale string) *Validator {
	return &Validator{locale: locale}
}

// wire mirrors the fixed response schema. Required fields are pointers so a
// missing key is distinguishable from a zero value.
type wireResult struct {
	Ingredients []wireIngredient `json:"ingredients"`
	Recipes     []wireRecipe     `json:"recipes"`
}

type wireIngredient struct {
	Name            *string `json:"name"`
	Info            *string `json:"info"`
	Nutrition       *string `json:"nutrition"`
	CaloriesPer100g *int    `json:"caloriesPer100g"`
}

type wireRecipe struct {
	ID             *string  `json:"id"`
	Name           *string  `json:"name"`
	Description    *string  `json:"description"`
	Difficulty     *string  `json:"difficulty"`
	PrepTime       *string  `json:"prepTime"`
	AllIngredients []string `json:"allIngredients"`
	Instructions   []string `json:"instructions"`
}

// CleanPayload strips markdown fence delimiters (any casing) and surrounding
// whitespace. Text without fences comes back unchanged apart from trimming.
func CleanPayload(raw string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(raw, ""))
}

// Validate runs the full cleanup → parse → structural → required-field chain.
func (v *Validator) Validate(raw string) (*models.AnalysisResult, *apperrors.AppError) {
	cleaned := CleanPayload(raw)
	if cleaned == "" {
		return nil, apperrors.NewParseError(
			v.msg(msgEmptyPayload),
			fmt.Errorf("empty payload after cleanup"),
		)
	}

	var wire wireResult
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return nil, apperrors.NewParseError(
			v.msg(msgMalformed),
			fmt.Errorf("malformed JSON payload: %w", err),
		)
	}

	// An empty or missing ingredients collection is a semantic failure, not
	// a parse failure: the photo parsed fine but nothing was recognized, so
	// the user recovers by recapturing, not by waiting.
	if len(wire.Ingredients) == 0 {
		return nil, apperrors.NewValidationError(
			v.msg(msgNoIngredients),
			fmt.Errorf("no ingredients recognized in response"),
		)
	}

	result := &models.AnalysisResult{
		Ingredients: make([]models.Ingredient, 0, len(wire.Ingredients)),
		Recipes:     make([]models.Recipe, 0, len(wire.Recipes)),
	}

	for i, ing := range wire.Ingredients {
		if ing.Name == nil || ing.Info == nil || ing.CaloriesPer100g == nil {
			return nil, apperrors.NewValidationError(
				v.msg(msgIncomplete),
				fmt.Errorf("ingredient %d is missing required fields", i),
			)
		}
		if *ing.CaloriesPer100g < 0 {
			return nil, apperrors.NewValidationError(
				v.msg(msgIncomplete),
				fmt.Errorf("ingredient %d has negative caloriesPer100g %d", i, *ing.CaloriesPer100g),
			)
		}
		out := models.Ingredient{
			Name:            *ing.Name,
			Info:            *ing.Info,
			CaloriesPer100g: *ing.CaloriesPer100g,
		}
		if ing.Nutrition != nil {
			out.Nutrition = *ing.Nutrition
		}
		result.Ingredients = append(result.Ingredients, out)
	}

	for i, rec := range wire.Recipes {
		if rec.ID == nil || rec.Name == nil || rec.Difficulty == nil || rec.PrepTime == nil ||
			rec.AllIngredients == nil || rec.Instructions == nil {
			return nil, apperrors.NewValidationError(
				v.msg(msgIncomplete),
				fmt.Errorf("recipe %d is missing required fields", i),
			)
		}
		out := models.Recipe{
			ID:             *rec.ID,
			Name:           *rec.Name,
			Difficulty:     *rec.Difficulty,
			PrepTime:       *rec.PrepTime,
			AllIngredients: rec.AllIngredients,
			Instructions:   rec.Instructions,
		}
		if rec.Description != nil {
			out.Description = *rec.Description
		}
		result.Recipes = append(result.Recipes, out)
	}

	return result, nil
}

type msgID int

const (
	msgEmptyPayload msgID = iota
	msgMalformed
	msgNoIngredients
	msgIncomplete
)

var validatorMsgZH = map[msgID]string{
	msgEmptyPayload:  "服务返回了空内容，请重试",
	msgMalformed:     "服务返回了意外的格式，请重试",
	msgNoIngredients: "未能识别出食材，请调整取景和光线后重新拍摄",
	msgIncomplete:    "服务返回的数据不完整，请重试",
}

var validatorMsgEN = map[msgID]string{
	msgEmptyPayload:  "The service returned an empty response. Please try again.",
	msgMalformed:     "The service returned an unexpected format. Please try again.",
	msgNoIngredients: "No ingredients were recognized. Retake the photo with better framing and lighting.",
	msgIncomplete:    "The service returned incomplete data. Please try again.",
}

func (v *Validator) msg(id msgID) string {
	if strings.HasPrefix(strings.ToLower(v.locale), "zh") {
		return validatorMsgZH[id]
	}
	return validatorMsgEN[id]
}
