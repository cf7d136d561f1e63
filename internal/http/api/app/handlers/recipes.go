package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/spoonjoy/spoonjoy/internal/dictionary"
	"github.com/spoonjoy/spoonjoy/internal/models"
	"github.com/spoonjoy/spoonjoy/internal/parser"
	"github.com/spoonjoy/spoonjoy/internal/recipes"
	"github.com/spoonjoy/spoonjoy/internal/validate"
)

// RecipeHandler manages recipe, step, and ingredient endpoints.
type RecipeHandler struct {
	db        *gorm.DB
	dict      *dictionary.Store
	parserCli *parser.Client
}

// NewRecipeHandler constructs a RecipeHandler.
func NewRecipeHandler(db *gorm.DB, parserCli *parser.Client) *RecipeHandler {
	return &RecipeHandler{db: db, dict: dictionary.NewStore(db), parserCli: parserCli}
}

// List returns the caller's live recipes.
func (h *RecipeHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondForbidden(c)
		return
	}
	var rows []models.Recipe
	errFind := h.db.WithContext(c.Request.Context()).
		Where("chef_id = ?", user.ID).
		Order("created_at DESC").
		Find(&rows).Error
	if errFind != nil {
		respondInternal(c)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":          row.ID,
			"title":       row.Title,
			"description": row.Description,
			"servings":    row.Servings,
			"imageUrl":    row.ImageURL,
			"createdAt":   row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"recipes": out})
}

// ListAction dispatches intents submitted from the recipe list page.
func (h *RecipeHandler) ListAction(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondForbidden(c)
		return
	}
	switch intentOf(c) {
	case "createRecipe":
		h.createRecipe(c, user)
	default:
		respondUnknownIntent(c)
	}
}

func (h *RecipeHandler) createRecipe(c *gin.Context, user *models.User) {
	title, errTitle := validate.Title(c.PostForm("title"))
	if errTitle != nil {
		respondFieldErrors(c, gin.H{"title": errTitle.Error()})
		return
	}
	servings, errServings := validate.Servings(c.PostForm("servings"))
	if errServings != nil {
		respondFieldErrors(c, gin.H{"servings": errServings.Error()})
		return
	}
	recipe := models.Recipe{
		Title:       title,
		Description: optionalText(c.PostForm("description")),
		Servings:    servings,
		ImageURL:    optionalText(c.PostForm("imageUrl")),
		ChefID:      user.ID,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&recipe).Error; errCreate != nil {
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipeId": recipe.ID, "redirectTo": "/recipes/" + strconv.FormatUint(recipe.ID, 10)})
}

// Detail returns one recipe with steps, ingredients, and dependencies.
// Non-owners may view; deleted recipes are a 404 for everyone.
func (h *RecipeHandler) Detail(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondForbidden(c)
		return
	}
	recipe, ok := h.findLive(c)
	if !ok {
		return
	}
	uses, errUses := h.usesByInput(c, recipe.ID)
	if errUses != nil {
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recipe":  recipePayload(recipe, uses),
		"isOwner": recipe.ChefID == user.ID,
	})
}

// Edit returns the edit page payload. Owner only.
func (h *RecipeHandler) Edit(c *gin.Context) {
	recipe, ok := h.findOwned(c)
	if !ok {
		return
	}
	uses, errUses := h.usesByInput(c, recipe.ID)
	if errUses != nil {
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe": recipePayload(recipe, uses), "isOwner": true})
}

// DetailAction dispatches intents submitted from the detail or edit pages.
// Ownership is re-checked against the freshly fetched row.
func (h *RecipeHandler) DetailAction(c *gin.Context) {
	recipe, ok := h.findOwned(c)
	if !ok {
		return
	}
	conn := h.db.WithContext(c.Request.Context())

	switch intentOf(c) {
	case "delete":
		if errDelete := conn.Delete(recipe).Error; errDelete != nil {
			respondInternal(c)
			return
		}
		c.JSON(http.StatusOK, gin.H{"redirectTo": "/recipes"})
	case "updateTitle":
		title, errTitle := validate.Title(c.PostForm("title"))
		if errTitle != nil {
			respondFieldErrors(c, gin.H{"title": errTitle.Error()})
			return
		}
		h.updateColumn(c, recipe, "title", title)
	case "updateDescription":
		h.updateColumn(c, recipe, "description", optionalText(c.PostForm("description")))
	case "updateServings":
		servings, errServings := validate.Servings(c.PostForm("servings"))
		if errServings != nil {
			respondFieldErrors(c, gin.H{"servings": errServings.Error()})
			return
		}
		h.updateColumn(c, recipe, "servings", servings)
	case "updateImage":
		h.updateColumn(c, recipe, "image_url", optionalText(c.PostForm("imageUrl")))
	case "addIngredient":
		stepNum, errParse := strconv.Atoi(strings.TrimSpace(c.PostForm("stepNum")))
		if errParse != nil || !hasStep(recipe.Steps, stepNum) {
			respondFieldErrors(c, gin.H{"stepNum": "invalid step"})
			return
		}
		h.addIngredient(c, recipe, stepNum)
	case "deleteIngredient":
		h.deleteIngredient(c, recipe)
	default:
		respondUnknownIntent(c)
	}
}

// NewStep returns the new-step page payload. Owner only.
func (h *RecipeHandler) NewStep(c *gin.Context) {
	recipe, ok := h.findOwned(c)
	if !ok {
		return
	}
	next, errNext := recipes.NextStepNum(c.Request.Context(), h.db, recipe.ID)
	if errNext != nil {
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recipeId":    recipe.ID,
		"nextStepNum": next,
		"steps":       stepSummaries(recipe.Steps),
	})
}

// NewStepAction creates a step at the next dense position.
func (h *RecipeHandler) NewStepAction(c *gin.Context) {
	recipe, ok := h.findOwned(c)
	if !ok {
		return
	}
	switch intentOf(c) {
	case "addStep":
		h.addStep(c, recipe)
	default:
		respondUnknownIntent(c)
	}
}

func (h *RecipeHandler) addStep(c *gin.Context, recipe *models.Recipe) {
	description := strings.TrimSpace(c.PostForm("description"))
	if description == "" {
		respondFieldErrors(c, gin.H{"description": "required"})
		return
	}
	uses, errUsesParse := parseUsesSteps(c)
	if errUsesParse != nil {
		respondFieldErrors(c, gin.H{"usesSteps": "invalid step number"})
		return
	}

	ctx := c.Request.Context()
	next, errNext := recipes.NextStepNum(ctx, h.db, recipe.ID)
	if errNext != nil {
		respondInternal(c)
		return
	}
	if errValidate := recipes.ValidateUses(stepNums(recipe.Steps), next, uses); errValidate != nil {
		respondFieldErrors(c, gin.H{"usesSteps": "may only reference earlier steps"})
		return
	}

	errTx := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		step := models.RecipeStep{
			RecipeID:    recipe.ID,
			StepNum:     next,
			StepTitle:   optionalText(c.PostForm("stepTitle")),
			Description: description,
		}
		if errCreate := tx.Create(&step).Error; errCreate != nil {
			return errCreate
		}
		for _, output := range uses {
			edge := models.StepOutputUse{RecipeID: recipe.ID, OutputStepNum: output, InputStepNum: next}
			if errEdge := tx.Create(&edge).Error; errEdge != nil {
				return errEdge
			}
		}
		return nil
	})
	if errTx != nil {
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stepNum": next})
}

// EditStep returns the step edit payload. Owner only.
func (h *RecipeHandler) EditStep(c *gin.Context) {
	recipe, step, ok := h.findOwnedStep(c)
	if !ok {
		return
	}
	uses, errUses := recipes.UsesForStep(c.Request.Context(), h.db, recipe.ID, step.StepNum)
	if errUses != nil {
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recipeId": recipe.ID,
		"step":     stepPayload(*step, uses),
		"steps":    stepSummaries(recipe.Steps),
	})
}

// EditStepAction dispatches intents submitted from the step edit page.
func (h *RecipeHandler) EditStepAction(c *gin.Context) {
	recipe, step, ok := h.findOwnedStep(c)
	if !ok {
		return
	}
	switch intentOf(c) {
	case "updateStep":
		h.updateStep(c, recipe, step)
	case "deleteStep":
		h.deleteStep(c, recipe, step)
	case "parseIngredients":
		h.parseIngredients(c)
	case "addIngredient":
		h.addIngredient(c, recipe, step.StepNum)
	case "deleteIngredient":
		h.deleteIngredient(c, recipe)
	default:
		respondUnknownIntent(c)
	}
}

func (h *RecipeHandler) updateStep(c *gin.Context, recipe *models.Recipe, step *models.RecipeStep) {
	description := strings.TrimSpace(c.PostForm("description"))
	if description == "" {
		respondFieldErrors(c, gin.H{"description": "required"})
		return
	}
	uses, errUsesParse := parseUsesSteps(c)
	if errUsesParse != nil {
		respondFieldErrors(c, gin.H{"usesSteps": "invalid step number"})
		return
	}
	if errValidate := recipes.ValidateUses(stepNums(recipe.Steps), step.StepNum, uses); errValidate != nil {
		respondFieldErrors(c, gin.H{"usesSteps": "may only reference earlier steps"})
		return
	}

	ctx := c.Request.Context()
	updates := map[string]any{
		"step_title":  optionalText(c.PostForm("stepTitle")),
		"description": description,
	}
	if errUpdate := h.db.WithContext(ctx).Model(step).Updates(updates).Error; errUpdate != nil {
		respondInternal(c)
		return
	}
	if errReplace := recipes.ReplaceStepUses(ctx, h.db, recipe.ID, step.StepNum, uses); errReplace != nil {
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stepNum": step.StepNum})
}

func (h *RecipeHandler) deleteStep(c *gin.Context, recipe *models.Recipe, step *models.RecipeStep) {
	errDelete := recipes.DeleteStep(c.Request.Context(), h.db, recipe.ID, step.StepNum)
	if errDelete != nil {
		if errors.Is(errDelete, gorm.ErrRecordNotFound) {
			respondNotFound(c)
			return
		}
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirectTo": "/recipes/" + strconv.FormatUint(recipe.ID, 10) + "/edit"})
}

// parseIngredients forwards free text to the external parsing collaborator.
func (h *RecipeHandler) parseIngredients(c *gin.Context) {
	text := strings.TrimSpace(c.PostForm("text"))
	if text == "" {
		respondFieldErrors(c, gin.H{"text": "required"})
		return
	}
	if h.parserCli == nil {
		respondInternal(c)
		return
	}
	parsed, errParse := h.parserCli.Parse(c.Request.Context(), text)
	if errParse != nil {
		if errors.Is(errParse, parser.ErrUnparsable) {
			respondDomainError(c, "unparsable_ingredients")
			return
		}
		respondInternal(c)
		return
	}
	out := make([]gin.H, 0, len(parsed))
	for _, item := range parsed {
		out = append(out, gin.H{
			"quantity":       item.Quantity,
			"unit":           item.Unit,
			"ingredientName": item.IngredientName,
		})
	}
	c.JSON(http.StatusOK, gin.H{"ingredients": out})
}

// addIngredient creates an ingredient row after get-or-create of the unit
// and ingredient dictionaries. Invalid submissions are a silent no-op.
func (h *RecipeHandler) addIngredient(c *gin.Context, recipe *models.Recipe, stepNum int) {
	quantity, errQuantity := validate.Quantity(c.PostForm("quantity"))
	unitName := strings.TrimSpace(c.PostForm("unit"))
	ingredientName := strings.TrimSpace(c.PostForm("ingredientName"))
	if errQuantity != nil || unitName == "" || ingredientName == "" {
		c.JSON(http.StatusOK, nil)
		return
	}

	ctx := c.Request.Context()
	unit, errUnit := h.dict.UnitByName(ctx, unitName)
	if errUnit != nil {
		respondInternal(c)
		return
	}
	ref, errRef := h.dict.IngredientRefByName(ctx, ingredientName)
	if errRef != nil {
		respondInternal(c)
		return
	}

	row := models.Ingredient{
		RecipeID:        recipe.ID,
		StepNum:         stepNum,
		Quantity:        quantity,
		UnitID:          unit.ID,
		IngredientRefID: ref.ID,
	}
	if errCreate := h.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ingredientId": row.ID})
}

// deleteIngredient removes an ingredient by id when it belongs to the
// recipe; absent rows are a no-op.
func (h *RecipeHandler) deleteIngredient(c *gin.Context, recipe *models.Recipe) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.PostForm("ingredientId")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	errDelete := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND recipe_id = ?", id, recipe.ID).
		Delete(&models.Ingredient{}).Error
	if errDelete != nil {
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// findLive fetches the recipe with steps and ingredients, answering 404
// when it is missing or soft-deleted.
func (h *RecipeHandler) findLive(c *gin.Context) (*models.Recipe, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		respondNotFound(c)
		return nil, false
	}
	recipe, errFind := recipes.FindLive(c.Request.Context(), h.db, id)
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			respondNotFound(c)
			return nil, false
		}
		respondInternal(c)
		return nil, false
	}
	return recipe, true
}

// findOwned fetches the recipe and enforces ownership.
func (h *RecipeHandler) findOwned(c *gin.Context) (*models.Recipe, bool) {
	user, ok := currentUser(c)
	if !ok {
		respondForbidden(c)
		return nil, false
	}
	recipe, found := h.findLive(c)
	if !found {
		return nil, false
	}
	if recipe.ChefID != user.ID {
		respondForbidden(c)
		return nil, false
	}
	return recipe, true
}

// findOwnedStep fetches the recipe plus one step addressed by path.
func (h *RecipeHandler) findOwnedStep(c *gin.Context) (*models.Recipe, *models.RecipeStep, bool) {
	recipe, ok := h.findOwned(c)
	if !ok {
		return nil, nil, false
	}
	stepNum, errParse := strconv.Atoi(strings.TrimSpace(c.Param("stepNum")))
	if errParse != nil || stepNum < 1 {
		respondNotFound(c)
		return nil, nil, false
	}
	for i := range recipe.Steps {
		if recipe.Steps[i].StepNum == stepNum {
			return recipe, &recipe.Steps[i], true
		}
	}
	respondNotFound(c)
	return nil, nil, false
}

func (h *RecipeHandler) updateColumn(c *gin.Context, recipe *models.Recipe, column string, value any) {
	errUpdate := h.db.WithContext(c.Request.Context()).
		Model(recipe).
		Update(column, value).Error
	if errUpdate != nil {
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// usesByInput loads the recipe's dependency edges grouped by consuming step.
func (h *RecipeHandler) usesByInput(c *gin.Context, recipeID uint64) (map[int][]int, error) {
	var edges []models.StepOutputUse
	errFind := h.db.WithContext(c.Request.Context()).
		Where("recipe_id = ?", recipeID).
		Order("input_step_num ASC, output_step_num ASC").
		Find(&edges).Error
	if errFind != nil {
		return nil, errFind
	}
	out := make(map[int][]int, len(edges))
	for _, edge := range edges {
		out[edge.InputStepNum] = append(out[edge.InputStepNum], edge.OutputStepNum)
	}
	return out, nil
}

func recipePayload(recipe *models.Recipe, usesByInput map[int][]int) gin.H {
	steps := make([]gin.H, 0, len(recipe.Steps))
	for _, step := range recipe.Steps {
		steps = append(steps, stepPayload(step, usesByInput[step.StepNum]))
	}
	return gin.H{
		"id":          recipe.ID,
		"title":       recipe.Title,
		"description": recipe.Description,
		"servings":    recipe.Servings,
		"imageUrl":    recipe.ImageURL,
		"chefId":      recipe.ChefID,
		"steps":       steps,
		"createdAt":   recipe.CreatedAt,
	}
}

func stepPayload(step models.RecipeStep, uses []int) gin.H {
	ingredients := make([]gin.H, 0, len(step.Ingredients))
	for _, ing := range step.Ingredients {
		item := gin.H{"id": ing.ID, "quantity": ing.Quantity}
		if ing.Unit != nil {
			item["unit"] = ing.Unit.Name
		}
		if ing.IngredientRef != nil {
			item["ingredientName"] = ing.IngredientRef.Name
		}
		ingredients = append(ingredients, item)
	}
	if uses == nil {
		uses = []int{}
	}
	return gin.H{
		"stepNum":     step.StepNum,
		"stepTitle":   step.StepTitle,
		"description": step.Description,
		"ingredients": ingredients,
		"usesSteps":   uses,
	}
}

func stepSummaries(steps []models.RecipeStep) []gin.H {
	out := make([]gin.H, 0, len(steps))
	for _, step := range steps {
		out = append(out, gin.H{"stepNum": step.StepNum, "stepTitle": step.StepTitle})
	}
	return out
}

func hasStep(steps []models.RecipeStep, stepNum int) bool {
	for _, step := range steps {
		if step.StepNum == stepNum {
			return true
		}
	}
	return false
}

func stepNums(steps []models.RecipeStep) []int {
	nums := make([]int, 0, len(steps))
	for _, step := range steps {
		nums = append(nums, step.StepNum)
	}
	return nums
}

// parseUsesSteps reads the submitted dependency step numbers. Repeated
// values collapse to one entry so the dependency set stays a set.
func parseUsesSteps(c *gin.Context) ([]int, error) {
	values := c.PostFormArray("usesSteps")
	seen := make(map[int]struct{}, len(values))
	out := make([]int, 0, len(values))
	for _, raw := range values {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		num, errParse := strconv.Atoi(raw)
		if errParse != nil {
			return nil, errParse
		}
		if _, ok := seen[num]; ok {
			continue
		}
		seen[num] = struct{}{}
		out = append(out, num)
	}
	sort.Ints(out)
	return out, nil
}

func optionalText(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
