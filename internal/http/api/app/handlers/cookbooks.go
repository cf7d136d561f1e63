package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	dbutil "github.com/spoonjoy/spoonjoy/internal/db"
	"github.com/spoonjoy/spoonjoy/internal/models"
	"github.com/spoonjoy/spoonjoy/internal/validate"
)

// CookbookHandler manages cookbook and membership endpoints.
type CookbookHandler struct {
	db *gorm.DB
}

// NewCookbookHandler constructs a CookbookHandler.
func NewCookbookHandler(db *gorm.DB) *CookbookHandler {
	return &CookbookHandler{db: db}
}

// List returns the caller's cookbooks.
func (h *CookbookHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondForbidden(c)
		return
	}
	var rows []models.Cookbook
	errFind := h.db.WithContext(c.Request.Context()).
		Where("author_id = ?", user.ID).
		Order("created_at DESC").
		Find(&rows).Error
	if errFind != nil {
		respondInternal(c)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{"id": row.ID, "title": row.Title, "createdAt": row.CreatedAt})
	}
	c.JSON(http.StatusOK, gin.H{"cookbooks": out})
}

// ListAction dispatches intents submitted from the cookbook list page.
func (h *CookbookHandler) ListAction(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondForbidden(c)
		return
	}
	switch intentOf(c) {
	case "createCookbook":
		h.create(c, user)
	default:
		respondUnknownIntent(c)
	}
}

func (h *CookbookHandler) create(c *gin.Context, user *models.User) {
	title, errTitle := validate.Title(c.PostForm("title"))
	if errTitle != nil {
		respondFieldErrors(c, gin.H{"title": errTitle.Error()})
		return
	}
	conn := h.db.WithContext(c.Request.Context())
	if h.titleTaken(c, user.ID, title, 0) {
		return
	}
	cookbook := models.Cookbook{Title: title, AuthorID: user.ID}
	if errCreate := conn.Create(&cookbook).Error; errCreate != nil {
		if isUniqueViolation(errCreate) {
			respondDomainError(c, "title_taken")
			return
		}
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cookbookId": cookbook.ID})
}

// Detail returns one cookbook with its member recipes and the owner's live
// recipes still available to add. Owner only.
func (h *CookbookHandler) Detail(c *gin.Context) {
	user, cookbook, ok := h.findOwned(c)
	if !ok {
		return
	}
	conn := h.db.WithContext(c.Request.Context())

	var members []models.RecipeInCookbook
	errMembers := conn.Preload("Recipe").
		Where("cookbook_id = ?", cookbook.ID).
		Order("created_at ASC").
		Find(&members).Error
	if errMembers != nil {
		respondInternal(c)
		return
	}

	memberIDs := make([]uint64, 0, len(members))
	recipesOut := make([]gin.H, 0, len(members))
	for _, member := range members {
		memberIDs = append(memberIDs, member.RecipeID)
		// Soft-deleted recipes drop out of the preload; skip their stubs.
		if member.Recipe == nil {
			continue
		}
		recipesOut = append(recipesOut, gin.H{
			"id":    member.Recipe.ID,
			"title": member.Recipe.Title,
		})
	}

	availableQuery := conn.Where("chef_id = ?", user.ID)
	if len(memberIDs) > 0 {
		availableQuery = availableQuery.Where("id NOT IN ?", memberIDs)
	}
	var available []models.Recipe
	if errAvailable := availableQuery.Order("title ASC").Find(&available).Error; errAvailable != nil {
		respondInternal(c)
		return
	}
	availableOut := make([]gin.H, 0, len(available))
	for _, recipe := range available {
		availableOut = append(availableOut, gin.H{"id": recipe.ID, "title": recipe.Title})
	}

	c.JSON(http.StatusOK, gin.H{
		"cookbook":         gin.H{"id": cookbook.ID, "title": cookbook.Title},
		"recipes":          recipesOut,
		"availableRecipes": availableOut,
	})
}

// DetailAction dispatches intents submitted from the cookbook detail page.
func (h *CookbookHandler) DetailAction(c *gin.Context) {
	user, cookbook, ok := h.findOwned(c)
	if !ok {
		return
	}
	switch intentOf(c) {
	case "rename":
		h.rename(c, user, cookbook)
	case "delete":
		if errDelete := h.db.WithContext(c.Request.Context()).
			Transaction(func(tx *gorm.DB) error {
				if errMembers := tx.Where("cookbook_id = ?", cookbook.ID).
					Delete(&models.RecipeInCookbook{}).Error; errMembers != nil {
					return errMembers
				}
				return tx.Delete(cookbook).Error
			}); errDelete != nil {
			respondInternal(c)
			return
		}
		c.JSON(http.StatusOK, gin.H{"redirectTo": "/cookbooks"})
	case "addRecipe":
		h.addRecipe(c, user, cookbook)
	case "removeRecipe":
		h.removeRecipe(c, cookbook)
	default:
		respondUnknownIntent(c)
	}
}

func (h *CookbookHandler) rename(c *gin.Context, user *models.User, cookbook *models.Cookbook) {
	title, errTitle := validate.Title(c.PostForm("title"))
	if errTitle != nil {
		respondFieldErrors(c, gin.H{"title": errTitle.Error()})
		return
	}
	if h.titleTaken(c, user.ID, title, cookbook.ID) {
		return
	}
	errUpdate := h.db.WithContext(c.Request.Context()).
		Model(cookbook).
		Update("title", title).Error
	if errUpdate != nil {
		if isUniqueViolation(errUpdate) {
			respondDomainError(c, "title_taken")
			return
		}
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// addRecipe adds one of the caller's live recipes to the cookbook.
func (h *CookbookHandler) addRecipe(c *gin.Context, user *models.User, cookbook *models.Cookbook) {
	recipeID, errParse := strconv.ParseUint(strings.TrimSpace(c.PostForm("recipeId")), 10, 64)
	if errParse != nil || recipeID == 0 {
		respondFieldErrors(c, gin.H{"recipeId": "required"})
		return
	}
	conn := h.db.WithContext(c.Request.Context())

	var recipe models.Recipe
	if errFind := conn.First(&recipe, recipeID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			respondNotFound(c)
			return
		}
		respondInternal(c)
		return
	}
	if recipe.ChefID != user.ID {
		respondForbidden(c)
		return
	}

	var existing int64
	if errCount := conn.Model(&models.RecipeInCookbook{}).
		Where("cookbook_id = ? AND recipe_id = ?", cookbook.ID, recipeID).
		Count(&existing).Error; errCount != nil {
		respondInternal(c)
		return
	}
	if existing > 0 {
		respondDomainError(c, "recipe_already_in_cookbook")
		return
	}

	member := models.RecipeInCookbook{CookbookID: cookbook.ID, RecipeID: recipeID, AddedByID: user.ID}
	if errCreate := conn.Create(&member).Error; errCreate != nil {
		if isUniqueViolation(errCreate) {
			respondDomainError(c, "recipe_already_in_cookbook")
			return
		}
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// removeRecipe drops a membership row; absent rows are a no-op.
func (h *CookbookHandler) removeRecipe(c *gin.Context, cookbook *models.Cookbook) {
	recipeID, errParse := strconv.ParseUint(strings.TrimSpace(c.PostForm("recipeId")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	errDelete := h.db.WithContext(c.Request.Context()).
		Where("cookbook_id = ? AND recipe_id = ?", cookbook.ID, recipeID).
		Delete(&models.RecipeInCookbook{}).Error
	if errDelete != nil {
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// titleTaken answers the duplicate-title domain error when another cookbook
// of the same author already uses the title case-insensitively.
func (h *CookbookHandler) titleTaken(c *gin.Context, authorID uint64, title string, excludeID uint64) bool {
	query := h.db.WithContext(c.Request.Context()).
		Model(&models.Cookbook{}).
		Where("author_id = ?", authorID).
		Where(dbutil.CaseInsensitiveEqualExpr("title"), strings.ToLower(title))
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if errCount := query.Count(&count).Error; errCount != nil {
		respondInternal(c)
		return true
	}
	if count > 0 {
		respondDomainError(c, "title_taken")
		return true
	}
	return false
}

// findOwned fetches the cookbook and enforces authorship.
func (h *CookbookHandler) findOwned(c *gin.Context) (*models.User, *models.Cookbook, bool) {
	user, ok := currentUser(c)
	if !ok {
		respondForbidden(c)
		return nil, nil, false
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		respondNotFound(c)
		return nil, nil, false
	}
	var cookbook models.Cookbook
	if errFind := h.db.WithContext(c.Request.Context()).First(&cookbook, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			respondNotFound(c)
			return nil, nil, false
		}
		respondInternal(c)
		return nil, nil, false
	}
	if cookbook.AuthorID != user.ID {
		respondForbidden(c)
		return nil, nil, false
	}
	return user, &cookbook, true
}
