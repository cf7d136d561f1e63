package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/spoonjoy/spoonjoy/internal/config"
	dbutil "github.com/spoonjoy/spoonjoy/internal/db"
	"github.com/spoonjoy/spoonjoy/internal/models"
	"github.com/spoonjoy/spoonjoy/internal/oauth"
	"github.com/spoonjoy/spoonjoy/internal/ratelimit"
	"github.com/spoonjoy/spoonjoy/internal/security"
	internalsettings "github.com/spoonjoy/spoonjoy/internal/settings"
	"github.com/spoonjoy/spoonjoy/internal/validate"
)

const oauthStateCookieName = "sj_oauth_state"

const loginRateWindow = time.Minute

// AuthHandler manages signup, login, logout, and the OAuth flows.
type AuthHandler struct {
	db         *gorm.DB
	sessionCfg config.SessionConfig
	oauthSvc   oauth.Exchanger
	limiter    *ratelimit.Manager
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, sessionCfg config.SessionConfig, oauthSvc oauth.Exchanger, limiter *ratelimit.Manager) *AuthHandler {
	return &AuthHandler{db: db, sessionCfg: sessionCfg, oauthSvc: oauthSvc, limiter: limiter}
}

// GetSignup returns the signup page payload.
func (h *AuthHandler) GetSignup(c *gin.Context) {
	conn := h.db.WithContext(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"siteName":      internalsettings.GetString(conn, internalsettings.SiteNameKey, internalsettings.DefaultSiteName),
		"signupEnabled": internalsettings.GetBool(conn, internalsettings.SignupEnabledKey, internalsettings.DefaultSignupEnabled),
	})
}

// PostSignup registers a new account and opens a session.
func (h *AuthHandler) PostSignup(c *gin.Context) {
	conn := h.db.WithContext(c.Request.Context())
	if !internalsettings.GetBool(conn, internalsettings.SignupEnabledKey, internalsettings.DefaultSignupEnabled) {
		respondDomainError(c, "signup_disabled")
		return
	}

	fields := gin.H{}
	email, errEmail := validate.Email(c.PostForm("email"))
	if errEmail != nil {
		fields["email"] = errEmail.Error()
	}
	username, errUsername := validate.Username(c.PostForm("username"))
	if errUsername != nil {
		fields["username"] = errUsername.Error()
	}
	password := c.PostForm("password")
	if errPassword := validate.Password(password); errPassword != nil {
		fields["password"] = errPassword.Error()
	}
	if c.PostForm("confirmPassword") != password {
		fields["confirmPassword"] = "passwords do not match"
	}
	if len(fields) > 0 {
		respondFieldErrors(c, fields)
		return
	}

	// Pre-check both unique columns case-insensitively so the caller gets a
	// named code instead of a bare constraint failure.
	var emailCount int64
	if errCount := conn.Model(&models.User{}).
		Where(dbutil.CaseInsensitiveEqualExpr("email"), email).
		Count(&emailCount).Error; errCount != nil {
		respondInternal(c)
		return
	}
	if emailCount > 0 {
		respondDomainError(c, "email_taken")
		return
	}
	var usernameCount int64
	if errCount := conn.Model(&models.User{}).
		Where(dbutil.CaseInsensitiveEqualExpr("username"), strings.ToLower(username)).
		Count(&usernameCount).Error; errCount != nil {
		respondInternal(c)
		return
	}
	if usernameCount > 0 {
		respondDomainError(c, "username_taken")
		return
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		respondInternal(c)
		return
	}
	user := models.User{Email: email, Username: username, HashedPassword: &hash}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		// A concurrent signup can still lose the race past the pre-check.
		if isUniqueViolation(errCreate) {
			respondDomainError(c, "email_taken")
			return
		}
		respondInternal(c)
		return
	}

	if errSession := h.openSession(c, user.ID); errSession != nil {
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": user.ID, "redirectTo": "/recipes"})
}

// GetLogin returns the login page payload.
func (h *AuthHandler) GetLogin(c *gin.Context) {
	conn := h.db.WithContext(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"siteName":   internalsettings.GetString(conn, internalsettings.SiteNameKey, internalsettings.DefaultSiteName),
		"redirectTo": strings.TrimSpace(c.Query("redirectTo")),
	})
}

// PostLogin verifies credentials and opens a session.
func (h *AuthHandler) PostLogin(c *gin.Context) {
	conn := h.db.WithContext(c.Request.Context())
	identifier := strings.ToLower(strings.TrimSpace(c.PostForm("email")))
	password := c.PostForm("password")
	if identifier == "" || password == "" {
		respondFieldErrors(c, gin.H{"email": "required", "password": "required"})
		return
	}

	if !h.allowLoginAttempt(c, identifier) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
		return
	}

	var user models.User
	errFind := conn.Where(dbutil.CaseInsensitiveEqualExpr("email"), identifier).First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			respondDomainError(c, "invalid_credentials")
			return
		}
		respondInternal(c)
		return
	}
	if !user.HasPassword() || !security.VerifyPassword(*user.HashedPassword, password) {
		respondDomainError(c, "invalid_credentials")
		return
	}
	if user.TOTPSecret != "" {
		code := strings.TrimSpace(c.PostForm("totpCode"))
		if code == "" || !security.ValidateTOTPCode(user.TOTPSecret, code) {
			respondDomainError(c, "invalid_totp")
			return
		}
	}

	if errSession := h.openSession(c, user.ID); errSession != nil {
		respondInternal(c)
		return
	}
	redirectTo := strings.TrimSpace(c.PostForm("redirectTo"))
	if redirectTo == "" || !strings.HasPrefix(redirectTo, "/") {
		redirectTo = "/recipes"
	}
	c.JSON(http.StatusOK, gin.H{"userId": user.ID, "redirectTo": redirectTo})
}

// PostLogout clears the session cookie.
func (h *AuthHandler) PostLogout(c *gin.Context) {
	c.SetCookie(SessionCookieName, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/login")
}

// StartOAuth redirects to the provider's authorization endpoint.
func (h *AuthHandler) StartOAuth(c *gin.Context) {
	provider, errProvider := oauth.ParseProvider(c.Param("provider"))
	if errProvider != nil {
		respondDomainError(c, "unknown_provider")
		return
	}
	if h.oauthSvc == nil {
		respondDomainError(c, "provider_not_configured")
		return
	}

	state, errState := randomState()
	if errState != nil {
		respondInternal(c)
		return
	}
	authorizeURL, errURL := h.oauthSvc.AuthCodeURL(provider, state)
	if errURL != nil {
		if errors.Is(errURL, oauth.ErrNotConfigured) {
			respondDomainError(c, "provider_not_configured")
			return
		}
		respondInternal(c)
		return
	}
	c.SetCookie(oauthStateCookieName, state, 600, "/", "", false, true)
	c.Redirect(http.StatusFound, authorizeURL)
}

// OAuthCallback completes the provider flow: it links the identity when a
// session is present, otherwise it logs in or registers.
func (h *AuthHandler) OAuthCallback(c *gin.Context) {
	provider, errProvider := oauth.ParseProvider(c.Param("provider"))
	if errProvider != nil {
		respondDomainError(c, "unknown_provider")
		return
	}
	if h.oauthSvc == nil {
		respondDomainError(c, "provider_not_configured")
		return
	}

	state := strings.TrimSpace(c.Query("state"))
	cookieState, errCookie := c.Cookie(oauthStateCookieName)
	c.SetCookie(oauthStateCookieName, "", -1, "/", "", false, true)
	if errCookie != nil || state == "" || state != cookieState {
		respondDomainError(c, "invalid_state")
		return
	}
	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		respondDomainError(c, "missing_code")
		return
	}

	profile, errExchange := h.oauthSvc.Exchange(c.Request.Context(), provider, code)
	if errExchange != nil {
		log.WithError(errExchange).Warn("oauth exchange failed")
		respondDomainError(c, "oauth_exchange_failed")
		return
	}

	conn := h.db.WithContext(c.Request.Context())
	var linked models.OAuthAccount
	errFind := conn.Where("provider = ? AND provider_user_id = ?", string(provider), profile.ProviderUserID).
		First(&linked).Error
	if errFind != nil && !errors.Is(errFind, gorm.ErrRecordNotFound) {
		respondInternal(c)
		return
	}
	haveLink := errFind == nil

	if sessionUser, ok := currentUser(c); ok {
		// Linking to the signed-in account.
		if haveLink {
			if linked.UserID != sessionUser.ID {
				respondDomainError(c, "oauth_account_in_use")
				return
			}
			c.Redirect(http.StatusFound, "/account/settings")
			return
		}
		row := models.OAuthAccount{
			UserID:           sessionUser.ID,
			Provider:         string(provider),
			ProviderUserID:   profile.ProviderUserID,
			ProviderUsername: profile.Username,
			RawProfile:       datatypes.JSON(profile.Raw),
		}
		if errCreate := conn.Create(&row).Error; errCreate != nil {
			respondInternal(c)
			return
		}
		c.Redirect(http.StatusFound, "/account/settings")
		return
	}

	if haveLink {
		if errSession := h.openSession(c, linked.UserID); errSession != nil {
			respondInternal(c)
			return
		}
		c.Redirect(http.StatusFound, "/recipes")
		return
	}

	user, errRegister := h.registerFromProfile(c, provider, profile)
	if errRegister != nil {
		respondInternal(c)
		return
	}
	if errSession := h.openSession(c, user.ID); errSession != nil {
		respondInternal(c)
		return
	}
	c.Redirect(http.StatusFound, "/recipes")
}

// registerFromProfile creates a user plus OAuth row for a first-time login.
func (h *AuthHandler) registerFromProfile(c *gin.Context, provider oauth.Provider, profile *oauth.Profile) (*models.User, error) {
	conn := h.db.WithContext(c.Request.Context())
	email := strings.ToLower(strings.TrimSpace(profile.Email))
	if email == "" {
		email = fmt.Sprintf("%s-%s@users.%s", strings.ToLower(profile.Username), profile.ProviderUserID, provider)
	}
	username := strings.TrimSpace(profile.Username)
	if username == "" {
		username = fmt.Sprintf("%s-%s", provider, profile.ProviderUserID)
	}

	var user models.User
	errTx := conn.Transaction(func(tx *gorm.DB) error {
		user = models.User{Email: email, Username: username}
		if errCreate := tx.Create(&user).Error; errCreate != nil {
			if !isUniqueViolation(errCreate) {
				return errCreate
			}
			// Provider handles collide with existing accounts; suffix with
			// the provider identity to stay unique.
			user = models.User{
				Email:    email,
				Username: fmt.Sprintf("%s-%s-%s", username, provider, profile.ProviderUserID),
			}
			if errRetry := tx.Create(&user).Error; errRetry != nil {
				return errRetry
			}
		}
		row := models.OAuthAccount{
			UserID:           user.ID,
			Provider:         string(provider),
			ProviderUserID:   profile.ProviderUserID,
			ProviderUsername: profile.Username,
			RawProfile:       datatypes.JSON(profile.Raw),
		}
		return tx.Create(&row).Error
	})
	if errTx != nil {
		return nil, fmt.Errorf("register oauth user: %w", errTx)
	}
	return &user, nil
}

// openSession issues a session token and sets the cookie.
func (h *AuthHandler) openSession(c *gin.Context, userID uint64) error {
	token, errIssue := security.IssueSessionToken(h.sessionCfg.Secret, h.sessionCfg.Expiry, userID)
	if errIssue != nil {
		return errIssue
	}
	c.SetCookie(SessionCookieName, token, int(h.sessionCfg.Expiry.Seconds()), "/", "", false, true)
	return nil
}

// allowLoginAttempt rate-limits by lowercase identifier and client address.
func (h *AuthHandler) allowLoginAttempt(c *gin.Context, identifier string) bool {
	if h.limiter == nil {
		return true
	}
	limit := ratelimit.LoadSettingsConfig(h.db.WithContext(c.Request.Context())).LoginLimit
	for _, key := range []string{ratelimit.KeyForLogin(identifier), ratelimit.KeyForIP(c.ClientIP())} {
		result, errAllow := h.limiter.Allow(c.Request.Context(), key, limit, loginRateWindow)
		if errAllow != nil {
			log.WithError(errAllow).Warn("login rate limit check failed")
			continue
		}
		if !result.Allowed {
			return false
		}
	}
	return true
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, errRead := rand.Read(buf); errRead != nil {
		return "", errRead
	}
	return hex.EncodeToString(buf), nil
}
