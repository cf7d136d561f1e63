// Package app wires the public HTTP surface: loaders on GET, intent actions
// on POST, with a cookie session resolved by middleware.
package app

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/spoonjoy/spoonjoy/internal/config"
	handlers "github.com/spoonjoy/spoonjoy/internal/http/api/app/handlers"
	"github.com/spoonjoy/spoonjoy/internal/models"
	"github.com/spoonjoy/spoonjoy/internal/oauth"
	"github.com/spoonjoy/spoonjoy/internal/parser"
	"github.com/spoonjoy/spoonjoy/internal/ratelimit"
	"github.com/spoonjoy/spoonjoy/internal/security"
	"github.com/spoonjoy/spoonjoy/internal/storage"
	"gorm.io/gorm"
)

// Services carries the external collaborators handlers depend on. Nil fields
// disable the matching feature with a typed error instead of a crash.
type Services struct {
	OAuth   oauth.Exchanger
	Photos  *storage.PhotoStore
	Parser  *parser.Client
	Limiter *ratelimit.Manager
}

// RegisterAppRoutes registers routes, middleware, and handlers.
func RegisterAppRoutes(r *gin.Engine, db *gorm.DB, sessionCfg config.SessionConfig, svc Services) {
	if r == nil || db == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	authHandler := handlers.NewAuthHandler(db, sessionCfg, svc.OAuth, svc.Limiter)
	r.GET("/signup", authHandler.GetSignup)
	r.POST("/signup", authHandler.PostSignup)
	r.GET("/login", authHandler.GetLogin)
	r.POST("/login", authHandler.PostLogin)
	r.POST("/logout", authHandler.PostLogout)

	oauthGroup := r.Group("/auth")
	oauthGroup.Use(optionalSessionMiddleware(db, sessionCfg))
	oauthGroup.GET("/:provider", authHandler.StartOAuth)
	oauthGroup.GET("/:provider/callback", authHandler.OAuthCallback)

	authed := r.Group("")
	authed.Use(sessionAuthMiddleware(db, sessionCfg))

	recipeHandler := handlers.NewRecipeHandler(db, svc.Parser)
	authed.GET("/recipes", recipeHandler.List)
	authed.POST("/recipes", recipeHandler.ListAction)
	authed.GET("/recipes/:id", recipeHandler.Detail)
	authed.POST("/recipes/:id", recipeHandler.DetailAction)
	authed.GET("/recipes/:id/edit", recipeHandler.Edit)
	authed.POST("/recipes/:id/edit", recipeHandler.DetailAction)
	authed.GET("/recipes/:id/steps/new", recipeHandler.NewStep)
	authed.POST("/recipes/:id/steps/new", recipeHandler.NewStepAction)
	authed.GET("/recipes/:id/steps/:stepNum/edit", recipeHandler.EditStep)
	authed.POST("/recipes/:id/steps/:stepNum/edit", recipeHandler.EditStepAction)

	cookbookHandler := handlers.NewCookbookHandler(db)
	authed.GET("/cookbooks", cookbookHandler.List)
	authed.POST("/cookbooks", cookbookHandler.ListAction)
	authed.GET("/cookbooks/:id", cookbookHandler.Detail)
	authed.POST("/cookbooks/:id", cookbookHandler.DetailAction)

	settingsHandler := handlers.NewSettingsHandler(db, svc.OAuth, svc.Photos)
	authed.GET("/account/settings", settingsHandler.Get)
	authed.POST("/account/settings", settingsHandler.Action)
}

// sessionAuthMiddleware resolves the session cookie to a user and redirects
// to the login page preserving the return path when it cannot.
func sessionAuthMiddleware(db *gorm.DB, sessionCfg config.SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := resolveSessionUser(c, db, sessionCfg)
		if !ok {
			target := "/login?redirectTo=" + url.QueryEscape(c.Request.URL.RequestURI())
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		c.Set(handlers.ContextUserKey, user)
		c.Next()
	}
}

// optionalSessionMiddleware loads the session user when present but never
// redirects; OAuth callbacks serve both login and account linking.
func optionalSessionMiddleware(db *gorm.DB, sessionCfg config.SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, ok := resolveSessionUser(c, db, sessionCfg); ok {
			c.Set(handlers.ContextUserKey, user)
		}
		c.Next()
	}
}

func resolveSessionUser(c *gin.Context, db *gorm.DB, sessionCfg config.SessionConfig) (*models.User, bool) {
	raw, errCookie := c.Cookie(handlers.SessionCookieName)
	if errCookie != nil || raw == "" {
		return nil, false
	}
	claims, errParse := security.ParseSessionToken(sessionCfg.Secret, raw)
	if errParse != nil {
		return nil, false
	}
	var user models.User
	if errFind := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; errFind != nil {
		return nil, false
	}
	return &user, true
}
