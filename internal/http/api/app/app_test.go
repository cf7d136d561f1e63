package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/spoonjoy/spoonjoy/internal/config"
	"github.com/spoonjoy/spoonjoy/internal/db"
	"github.com/spoonjoy/spoonjoy/internal/models"
)

func newTestServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, errOpen := db.Open("file:" + filepath.Join(t.TempDir(), "spoonjoy-test.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	r := gin.New()
	sessionCfg := config.SessionConfig{Secret: "test-secret", Expiry: time.Hour}
	RegisterAppRoutes(r, conn, sessionCfg, Services{})
	return r, conn
}

// signUp registers an account and returns the session cookie.
func signUp(t *testing.T, r *gin.Engine, email, username string) string {
	t.Helper()
	w := postForm(r, "", "/signup", url.Values{
		"intent":          {"signup"},
		"email":           {email},
		"username":        {username},
		"password":        {"longenough"},
		"confirmPassword": {"longenough"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("signup status = %d, body %s", w.Code, w.Body.String())
	}
	cookie := sessionCookie(w)
	if cookie == "" {
		t.Fatal("signup did not set a session cookie")
	}
	return cookie
}

func sessionCookie(w *httptest.ResponseRecorder) string {
	for _, raw := range w.Result().Header.Values("Set-Cookie") {
		if strings.HasPrefix(raw, "sj_session=") && !strings.HasPrefix(raw, "sj_session=;") {
			return strings.SplitN(raw, ";", 2)[0]
		}
	}
	return ""
}

func postForm(r *gin.Engine, cookie, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func getPath(r *gin.Engine, cookie, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if errDecode := json.Unmarshal(w.Body.Bytes(), &body); errDecode != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), errDecode)
	}
	return body
}

func createRecipe(t *testing.T, r *gin.Engine, cookie, title string) string {
	t.Helper()
	w := postForm(r, cookie, "/recipes", url.Values{"intent": {"createRecipe"}, "title": {title}})
	if w.Code != http.StatusOK {
		t.Fatalf("createRecipe status = %d, body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	id, ok := body["recipeId"].(float64)
	if !ok {
		t.Fatalf("createRecipe body missing recipeId: %v", body)
	}
	return strconv.FormatInt(int64(id), 10)
}

func addStep(t *testing.T, r *gin.Engine, cookie, recipeID, description string, uses ...string) {
	t.Helper()
	form := url.Values{"intent": {"addStep"}, "description": {description}}
	for _, use := range uses {
		form.Add("usesSteps", use)
	}
	w := postForm(r, cookie, "/recipes/"+recipeID+"/steps/new", form)
	if w.Code != http.StatusOK {
		t.Fatalf("addStep status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestSignupDuplicateEmailCaseInsensitive(t *testing.T) {
	r, _ := newTestServer(t)
	signUp(t, r, "chef@example.com", "chef")

	w := postForm(r, "", "/signup", url.Values{
		"intent":          {"signup"},
		"email":           {"Chef@Example.COM"},
		"username":        {"otherchef"},
		"password":        {"longenough"},
		"confirmPassword": {"longenough"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "email_taken" {
		t.Fatalf("error = %v, want email_taken", body["error"])
	}
}

func TestLoaderRedirectsWithoutSession(t *testing.T) {
	r, _ := newTestServer(t)
	w := getPath(r, "", "/recipes")
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	location := w.Header().Get("Location")
	if !strings.HasPrefix(location, "/login?redirectTo=") {
		t.Fatalf("location = %q, want login redirect preserving path", location)
	}
	if !strings.Contains(location, url.QueryEscape("/recipes")) {
		t.Fatalf("location %q does not preserve the return path", location)
	}
}

func TestDeletedRecipeIs404ForOwner(t *testing.T) {
	r, _ := newTestServer(t)
	cookie := signUp(t, r, "chef@example.com", "chef")
	recipeID := createRecipe(t, r, cookie, "Bread")

	w := postForm(r, cookie, "/recipes/"+recipeID, url.Values{"intent": {"delete"}})
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", w.Code, w.Body.String())
	}
	if w := getPath(r, cookie, "/recipes/"+recipeID); w.Code != http.StatusNotFound {
		t.Fatalf("detail after delete status = %d, want 404", w.Code)
	}
	if w := postForm(r, cookie, "/recipes/"+recipeID, url.Values{"intent": {"updateTitle"}, "title": {"X"}}); w.Code != http.StatusNotFound {
		t.Fatalf("action after delete status = %d, want 404", w.Code)
	}
}

func TestNonOwnerEditForbiddenDetailAllowed(t *testing.T) {
	r, _ := newTestServer(t)
	owner := signUp(t, r, "chef@example.com", "chef")
	recipeID := createRecipe(t, r, owner, "Bread")
	guest := signUp(t, r, "guest@example.com", "guest")

	if w := getPath(r, guest, "/recipes/"+recipeID); w.Code != http.StatusOK {
		t.Fatalf("guest detail status = %d, want 200", w.Code)
	}
	if w := getPath(r, guest, "/recipes/"+recipeID+"/edit"); w.Code != http.StatusForbidden {
		t.Fatalf("guest edit status = %d, want 403", w.Code)
	}
	if w := postForm(r, guest, "/recipes/"+recipeID, url.Values{"intent": {"delete"}}); w.Code != http.StatusForbidden {
		t.Fatalf("guest delete status = %d, want 403", w.Code)
	}
}

func TestStepNumbersAreDense(t *testing.T) {
	r, conn := newTestServer(t)
	cookie := signUp(t, r, "chef@example.com", "chef")
	recipeID := createRecipe(t, r, cookie, "Bread")

	addStep(t, r, cookie, recipeID, "mix flour and water")
	addStep(t, r, cookie, recipeID, "knead the dough")
	addStep(t, r, cookie, recipeID, "bake until golden")

	var steps []models.RecipeStep
	if errFind := conn.Order("step_num ASC").Find(&steps).Error; errFind != nil {
		t.Fatalf("find steps: %v", errFind)
	}
	if len(steps) != 3 {
		t.Fatalf("step count = %d, want 3", len(steps))
	}
	for i, step := range steps {
		if step.StepNum != i+1 {
			t.Fatalf("step %d has step_num %d", i, step.StepNum)
		}
	}
}

func TestAddStepRejectsForwardDependency(t *testing.T) {
	r, _ := newTestServer(t)
	cookie := signUp(t, r, "chef@example.com", "chef")
	recipeID := createRecipe(t, r, cookie, "Bread")
	addStep(t, r, cookie, recipeID, "mix flour and water")

	w := postForm(r, cookie, "/recipes/"+recipeID+"/steps/new", url.Values{
		"intent":      {"addStep"},
		"description": {"bake"},
		"usesSteps":   {"5"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", w.Code, w.Body.String())
	}
}

func TestAddStepCollapsesDuplicateUses(t *testing.T) {
	r, conn := newTestServer(t)
	cookie := signUp(t, r, "chef@example.com", "chef")
	recipeID := createRecipe(t, r, cookie, "Bread")
	addStep(t, r, cookie, recipeID, "mix flour and water")
	addStep(t, r, cookie, recipeID, "bake the loaf", "1", "1")

	var count int64
	if errCount := conn.Model(&models.StepOutputUse{}).
		Where("input_step_num = ?", 2).
		Count(&count).Error; errCount != nil {
		t.Fatalf("count uses: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("uses = %d, want 1", count)
	}
}

func TestUpdateStepReplacesUsesSet(t *testing.T) {
	r, conn := newTestServer(t)
	cookie := signUp(t, r, "chef@example.com", "chef")
	recipeID := createRecipe(t, r, cookie, "Bread")
	addStep(t, r, cookie, recipeID, "mix flour and water")
	addStep(t, r, cookie, recipeID, "make the starter")
	addStep(t, r, cookie, recipeID, "combine everything", "1", "2")

	countUses := func() int64 {
		var count int64
		if errCount := conn.Model(&models.StepOutputUse{}).
			Where("input_step_num = ?", 3).
			Count(&count).Error; errCount != nil {
			t.Fatalf("count uses: %v", errCount)
		}
		return count
	}
	if got := countUses(); got != 2 {
		t.Fatalf("uses after create = %d, want 2", got)
	}

	w := postForm(r, cookie, "/recipes/"+recipeID+"/steps/3/edit", url.Values{
		"intent":      {"updateStep"},
		"description": {"combine everything"},
		"usesSteps":   {"1"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("updateStep status = %d, body %s", w.Code, w.Body.String())
	}
	if got := countUses(); got != 1 {
		t.Fatalf("uses after shrink = %d, want 1", got)
	}

	w = postForm(r, cookie, "/recipes/"+recipeID+"/steps/3/edit", url.Values{
		"intent":      {"updateStep"},
		"description": {"combine everything"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("updateStep status = %d, body %s", w.Code, w.Body.String())
	}
	if got := countUses(); got != 0 {
		t.Fatalf("uses after clear = %d, want 0", got)
	}
}

func TestRecipeDetailIncludesStepsAndDependencies(t *testing.T) {
	r, _ := newTestServer(t)
	cookie := signUp(t, r, "chef@example.com", "chef")
	recipeID := createRecipe(t, r, cookie, "Bread")
	addStep(t, r, cookie, recipeID, "mix flour and water")
	addStep(t, r, cookie, recipeID, "bake the loaf", "1")

	w := getPath(r, cookie, "/recipes/"+recipeID)
	if w.Code != http.StatusOK {
		t.Fatalf("detail status = %d, body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["isOwner"] != true {
		t.Fatalf("isOwner = %v, want true", body["isOwner"])
	}
	recipe, ok := body["recipe"].(map[string]any)
	if !ok {
		t.Fatalf("recipe payload missing: %v", body)
	}
	steps, ok := recipe["steps"].([]any)
	if !ok || len(steps) != 2 {
		t.Fatalf("steps payload = %v, want 2 steps", recipe["steps"])
	}
	second := steps[1].(map[string]any)
	uses, ok := second["usesSteps"].([]any)
	if !ok || len(uses) != 1 || uses[0].(float64) != 1 {
		t.Fatalf("usesSteps = %v, want [1]", second["usesSteps"])
	}
}

func TestAddIngredientRejectsUnknownStep(t *testing.T) {
	r, conn := newTestServer(t)
	cookie := signUp(t, r, "chef@example.com", "chef")
	recipeID := createRecipe(t, r, cookie, "Bread")
	addStep(t, r, cookie, recipeID, "mix flour and water")

	form := url.Values{
		"intent":         {"addIngredient"},
		"stepNum":        {"7"},
		"quantity":       {"2"},
		"unit":           {"cup"},
		"ingredientName": {"flour"},
	}
	w := postForm(r, cookie, "/recipes/"+recipeID, form)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", w.Code, w.Body.String())
	}
	var count int64
	if errCount := conn.Model(&models.Ingredient{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count ingredients: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("ingredient rows = %d, want 0", count)
	}

	form.Set("stepNum", "1")
	w = postForm(r, cookie, "/recipes/"+recipeID, form)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	if errCount := conn.Model(&models.Ingredient{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count ingredients: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("ingredient rows = %d, want 1", count)
	}
}

func TestUnknownIntentReturnsNull(t *testing.T) {
	r, _ := newTestServer(t)
	cookie := signUp(t, r, "chef@example.com", "chef")
	recipeID := createRecipe(t, r, cookie, "Bread")

	w := postForm(r, cookie, "/recipes/"+recipeID, url.Values{"intent": {"doSomethingWeird"}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "null" {
		t.Fatalf("body = %q, want null", w.Body.String())
	}
}

func TestCookbookDuplicateAdd(t *testing.T) {
	r, _ := newTestServer(t)
	cookie := signUp(t, r, "chef@example.com", "chef")
	recipeID := createRecipe(t, r, cookie, "Bread")

	w := postForm(r, cookie, "/cookbooks", url.Values{"intent": {"createCookbook"}, "title": {"Favorites"}})
	if w.Code != http.StatusOK {
		t.Fatalf("createCookbook status = %d, body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	cookbookID := strconv.FormatInt(int64(body["cookbookId"].(float64)), 10)

	add := url.Values{"intent": {"addRecipe"}, "recipeId": {recipeID}}
	if w := postForm(r, cookie, "/cookbooks/"+cookbookID, add); w.Code != http.StatusOK {
		t.Fatalf("addRecipe status = %d, body %s", w.Code, w.Body.String())
	}
	w = postForm(r, cookie, "/cookbooks/"+cookbookID, add)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate addRecipe status = %d, want 400", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "recipe_already_in_cookbook" {
		t.Fatalf("error = %v, want recipe_already_in_cookbook", body["error"])
	}
}

func TestCookbookDuplicateTitle(t *testing.T) {
	r, _ := newTestServer(t)
	cookie := signUp(t, r, "chef@example.com", "chef")

	first := postForm(r, cookie, "/cookbooks", url.Values{"intent": {"createCookbook"}, "title": {"Favorites"}})
	if first.Code != http.StatusOK {
		t.Fatalf("createCookbook status = %d", first.Code)
	}
	second := postForm(r, cookie, "/cookbooks", url.Values{"intent": {"createCookbook"}, "title": {"favorites"}})
	if second.Code != http.StatusBadRequest {
		t.Fatalf("duplicate title status = %d, want 400", second.Code)
	}
	if body := decodeBody(t, second); body["error"] != "title_taken" {
		t.Fatalf("error = %v, want title_taken", body["error"])
	}
}

func TestRemovePasswordBlockedAsLastAuthMethod(t *testing.T) {
	r, _ := newTestServer(t)
	cookie := signUp(t, r, "chef@example.com", "chef")

	w := postForm(r, cookie, "/account/settings", url.Values{
		"intent":          {"removePassword"},
		"currentPassword": {"longenough"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "last_auth_method" {
		t.Fatalf("error = %v, want last_auth_method", body["error"])
	}
}

func TestUnlinkOAuthNotLinked(t *testing.T) {
	r, _ := newTestServer(t)
	cookie := signUp(t, r, "chef@example.com", "chef")

	w := postForm(r, cookie, "/account/settings", url.Values{
		"intent":   {"unlinkOAuth"},
		"provider": {"github"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "not_linked" {
		t.Fatalf("error = %v, want not_linked", body["error"])
	}
}

func TestLoginAfterSignup(t *testing.T) {
	r, _ := newTestServer(t)
	signUp(t, r, "chef@example.com", "chef")

	w := postForm(r, "", "/login", url.Values{
		"email":    {"Chef@Example.com"},
		"password": {"longenough"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
	if sessionCookie(w) == "" {
		t.Fatal("login did not set a session cookie")
	}

	bad := postForm(r, "", "/login", url.Values{
		"email":    {"chef@example.com"},
		"password": {"wrongpassword"},
	})
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("bad login status = %d, want 400", bad.Code)
	}
	if body := decodeBody(t, bad); body["error"] != "invalid_credentials" {
		t.Fatalf("error = %v, want invalid_credentials", body["error"])
	}
}

func TestDeleteStepRenumbersTrailingSteps(t *testing.T) {
	r, conn := newTestServer(t)
	cookie := signUp(t, r, "chef@example.com", "chef")
	recipeID := createRecipe(t, r, cookie, "Bread")
	addStep(t, r, cookie, recipeID, "mix flour and water")
	addStep(t, r, cookie, recipeID, "make the starter")
	addStep(t, r, cookie, recipeID, "combine everything", "1", "2")

	w := postForm(r, cookie, "/recipes/"+recipeID+"/steps/2/edit", url.Values{"intent": {"deleteStep"}})
	if w.Code != http.StatusOK {
		t.Fatalf("deleteStep status = %d, body %s", w.Code, w.Body.String())
	}

	var steps []models.RecipeStep
	if errFind := conn.Order("step_num ASC").Find(&steps).Error; errFind != nil {
		t.Fatalf("find steps: %v", errFind)
	}
	if len(steps) != 2 {
		t.Fatalf("step count = %d, want 2", len(steps))
	}
	if steps[0].StepNum != 1 || steps[1].StepNum != 2 {
		t.Fatalf("step nums = %d,%d, want 1,2", steps[0].StepNum, steps[1].StepNum)
	}
	if steps[1].Description != "combine everything" {
		t.Fatalf("renumbered step description = %q", steps[1].Description)
	}
}
