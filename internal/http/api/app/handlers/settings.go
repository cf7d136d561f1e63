package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/spoonjoy/spoonjoy/internal/account"
	dbutil "github.com/spoonjoy/spoonjoy/internal/db"
	"github.com/spoonjoy/spoonjoy/internal/models"
	"github.com/spoonjoy/spoonjoy/internal/oauth"
	"github.com/spoonjoy/spoonjoy/internal/security"
	internalsettings "github.com/spoonjoy/spoonjoy/internal/settings"
	"github.com/spoonjoy/spoonjoy/internal/storage"
	"github.com/spoonjoy/spoonjoy/internal/validate"
)

// maxPhotoSize caps profile photo uploads at 5MB.
const maxPhotoSize = 5 << 20

// SettingsHandler manages the account settings page.
type SettingsHandler struct {
	db       *gorm.DB
	oauthSvc oauth.Exchanger
	photos   *storage.PhotoStore
}

// NewSettingsHandler constructs a SettingsHandler.
func NewSettingsHandler(db *gorm.DB, oauthSvc oauth.Exchanger, photos *storage.PhotoStore) *SettingsHandler {
	return &SettingsHandler{db: db, oauthSvc: oauthSvc, photos: photos}
}

// Get returns the settings page payload.
func (h *SettingsHandler) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondForbidden(c)
		return
	}
	conn := h.db.WithContext(c.Request.Context())

	var links []models.OAuthAccount
	if errFind := conn.Where("user_id = ?", user.ID).Find(&links).Error; errFind != nil {
		respondInternal(c)
		return
	}
	linksOut := make([]gin.H, 0, len(links))
	for _, link := range links {
		linksOut = append(linksOut, gin.H{
			"provider":         link.Provider,
			"providerUsername": link.ProviderUsername,
		})
	}

	photoURL := internalsettings.GetString(conn, internalsettings.DefaultAvatarURLKey, internalsettings.DefaultAvatarURL)
	if user.PhotoURL != nil && *user.PhotoURL != "" {
		photoURL = *user.PhotoURL
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":       user.ID,
			"email":    user.Email,
			"username": user.Username,
			"photoUrl": photoURL,
		},
		"hasPassword":   user.HasPassword(),
		"oauthAccounts": linksOut,
		"totpEnabled":   user.TOTPSecret != "",
	})
}

// Action dispatches intents submitted from the settings page.
func (h *SettingsHandler) Action(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondForbidden(c)
		return
	}
	switch intentOf(c) {
	case "updateUserInfo":
		h.updateUserInfo(c, user)
	case "changePassword":
		h.changePassword(c, user)
	case "setPassword":
		h.setPassword(c, user)
	case "removePassword":
		h.removePassword(c, user)
	case "linkOAuth":
		h.linkOAuth(c)
	case "unlinkOAuth":
		h.unlinkOAuth(c, user)
	case "uploadPhoto":
		h.uploadPhoto(c, user)
	case "removePhoto":
		h.removePhoto(c, user)
	case "setupTOTP":
		h.setupTOTP(c, user)
	case "confirmTOTP":
		h.confirmTOTP(c, user)
	case "disableTOTP":
		h.disableTOTP(c, user)
	default:
		respondUnknownIntent(c)
	}
}

// updateUserInfo changes email and username after a case-insensitive
// uniqueness check against other users.
func (h *SettingsHandler) updateUserInfo(c *gin.Context, user *models.User) {
	fields := gin.H{}
	email, errEmail := validate.Email(c.PostForm("email"))
	if errEmail != nil {
		fields["email"] = errEmail.Error()
	}
	username, errUsername := validate.Username(c.PostForm("username"))
	if errUsername != nil {
		fields["username"] = errUsername.Error()
	}
	if len(fields) > 0 {
		respondFieldErrors(c, fields)
		return
	}
	conn := h.db.WithContext(c.Request.Context())

	var emailCount int64
	if errCount := conn.Model(&models.User{}).
		Where("id <> ?", user.ID).
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
		Where("id <> ?", user.ID).
		Where(dbutil.CaseInsensitiveEqualExpr("username"), strings.ToLower(username)).
		Count(&usernameCount).Error; errCount != nil {
		respondInternal(c)
		return
	}
	if usernameCount > 0 {
		respondDomainError(c, "username_taken")
		return
	}

	updates := map[string]any{"email": email, "username": username}
	if errUpdate := conn.Model(user).Updates(updates).Error; errUpdate != nil {
		if isUniqueViolation(errUpdate) {
			respondDomainError(c, "email_taken")
			return
		}
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *SettingsHandler) changePassword(c *gin.Context, user *models.User) {
	if !user.HasPassword() {
		respondDomainError(c, "no_password")
		return
	}
	if !security.VerifyPassword(*user.HashedPassword, c.PostForm("currentPassword")) {
		respondDomainError(c, "invalid_current_password")
		return
	}
	h.savePassword(c, user)
}

// setPassword adds a password to an OAuth-only account.
func (h *SettingsHandler) setPassword(c *gin.Context, user *models.User) {
	if errSet := account.CanSetPassword(user.HasPassword()); errSet != nil {
		respondDomainError(c, "password_already_set")
		return
	}
	h.savePassword(c, user)
}

func (h *SettingsHandler) savePassword(c *gin.Context, user *models.User) {
	password := c.PostForm("newPassword")
	if errPassword := validate.Password(password); errPassword != nil {
		respondFieldErrors(c, gin.H{"newPassword": errPassword.Error()})
		return
	}
	if c.PostForm("confirmPassword") != password {
		respondFieldErrors(c, gin.H{"confirmPassword": "passwords do not match"})
		return
	}
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		respondInternal(c)
		return
	}
	errUpdate := h.db.WithContext(c.Request.Context()).
		Model(user).
		Update("hashed_password", hash).Error
	if errUpdate != nil {
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// removePassword drops the password unless it is the last auth method.
func (h *SettingsHandler) removePassword(c *gin.Context, user *models.User) {
	if !user.HasPassword() {
		respondDomainError(c, "no_password")
		return
	}
	if !security.VerifyPassword(*user.HashedPassword, c.PostForm("currentPassword")) {
		respondDomainError(c, "invalid_current_password")
		return
	}
	conn := h.db.WithContext(c.Request.Context())
	oauthCount, errCount := h.countLinks(c, user.ID)
	if errCount != nil {
		respondInternal(c)
		return
	}
	if errGuard := account.CanRemove(user.HasPassword(), int(oauthCount), account.RemovePassword); errGuard != nil {
		respondDomainError(c, "last_auth_method")
		return
	}
	if errUpdate := conn.Model(user).Update("hashed_password", nil).Error; errUpdate != nil {
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// linkOAuth answers with the provider initiation redirect.
func (h *SettingsHandler) linkOAuth(c *gin.Context) {
	provider, errProvider := oauth.ParseProvider(c.PostForm("provider"))
	if errProvider != nil {
		respondDomainError(c, "unknown_provider")
		return
	}
	c.Redirect(http.StatusFound, "/auth/"+string(provider))
}

// unlinkOAuth deletes a provider link unless it is the last auth method.
func (h *SettingsHandler) unlinkOAuth(c *gin.Context, user *models.User) {
	provider, errProvider := oauth.ParseProvider(c.PostForm("provider"))
	if errProvider != nil {
		respondDomainError(c, "unknown_provider")
		return
	}
	conn := h.db.WithContext(c.Request.Context())

	var link models.OAuthAccount
	errFind := conn.Where("user_id = ? AND provider = ?", user.ID, string(provider)).First(&link).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			respondDomainError(c, "not_linked")
			return
		}
		respondInternal(c)
		return
	}

	oauthCount, errCount := h.countLinks(c, user.ID)
	if errCount != nil {
		respondInternal(c)
		return
	}
	if errGuard := account.CanRemove(user.HasPassword(), int(oauthCount), account.RemoveOAuth); errGuard != nil {
		respondDomainError(c, "last_auth_method")
		return
	}
	if errDelete := conn.Delete(&link).Error; errDelete != nil {
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// uploadPhoto stores a new profile photo and saves its URL.
func (h *SettingsHandler) uploadPhoto(c *gin.Context, user *models.User) {
	if h.photos == nil {
		respondInternal(c)
		return
	}
	file, errFile := c.FormFile("photo")
	if errFile != nil {
		respondFieldErrors(c, gin.H{"photo": "required"})
		return
	}
	if file.Size > maxPhotoSize {
		respondFieldErrors(c, gin.H{"photo": "file too large"})
		return
	}
	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		respondFieldErrors(c, gin.H{"photo": "not an image"})
		return
	}

	reader, errOpen := file.Open()
	if errOpen != nil {
		respondInternal(c)
		return
	}
	defer func() { _ = reader.Close() }()

	ctx := c.Request.Context()
	photoURL, errUpload := h.photos.UploadPhoto(ctx, user.ID, reader, file.Size, contentType)
	if errUpload != nil {
		respondInternal(c)
		return
	}
	previous := user.PhotoURL
	errUpdate := h.db.WithContext(ctx).Model(user).Update("photo_url", photoURL).Error
	if errUpdate != nil {
		respondInternal(c)
		return
	}
	if previous != nil && *previous != "" {
		if errRemove := h.photos.Remove(ctx, *previous); errRemove != nil {
			log.WithError(errRemove).Warn("remove previous photo failed")
		}
	}
	c.JSON(http.StatusOK, gin.H{"photoUrl": photoURL})
}

// removePhoto resets the photo so the UI falls back to the default avatar.
func (h *SettingsHandler) removePhoto(c *gin.Context, user *models.User) {
	ctx := c.Request.Context()
	previous := user.PhotoURL
	errUpdate := h.db.WithContext(ctx).Model(user).Update("photo_url", nil).Error
	if errUpdate != nil {
		respondInternal(c)
		return
	}
	if h.photos != nil && previous != nil && *previous != "" {
		if errRemove := h.photos.Remove(ctx, *previous); errRemove != nil {
			log.WithError(errRemove).Warn("remove photo failed")
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// setupTOTP returns a fresh secret plus provisioning URL. Nothing is stored
// until the matching confirmTOTP submission proves code possession.
func (h *SettingsHandler) setupTOTP(c *gin.Context, user *models.User) {
	if user.TOTPSecret != "" {
		respondDomainError(c, "totp_already_enabled")
		return
	}
	conn := h.db.WithContext(c.Request.Context())
	issuer := internalsettings.GetString(conn, internalsettings.SiteNameKey, internalsettings.DefaultSiteName)
	secret, provisioningURL, errGenerate := security.GenerateTOTPSecret(issuer, user.Email)
	if errGenerate != nil {
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"secret": secret, "url": provisioningURL})
}

func (h *SettingsHandler) confirmTOTP(c *gin.Context, user *models.User) {
	if user.TOTPSecret != "" {
		respondDomainError(c, "totp_already_enabled")
		return
	}
	secret := strings.TrimSpace(c.PostForm("secret"))
	code := strings.TrimSpace(c.PostForm("code"))
	if secret == "" || code == "" {
		respondFieldErrors(c, gin.H{"code": "required"})
		return
	}
	if !security.ValidateTOTPCode(secret, code) {
		respondDomainError(c, "invalid_totp")
		return
	}
	errUpdate := h.db.WithContext(c.Request.Context()).
		Model(user).
		Update("totp_secret", secret).Error
	if errUpdate != nil {
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *SettingsHandler) disableTOTP(c *gin.Context, user *models.User) {
	if user.TOTPSecret == "" {
		respondDomainError(c, "totp_not_enabled")
		return
	}
	code := strings.TrimSpace(c.PostForm("code"))
	if code == "" || !security.ValidateTOTPCode(user.TOTPSecret, code) {
		respondDomainError(c, "invalid_totp")
		return
	}
	errUpdate := h.db.WithContext(c.Request.Context()).
		Model(user).
		Update("totp_secret", "").Error
	if errUpdate != nil {
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *SettingsHandler) countLinks(c *gin.Context, userID uint64) (int64, error) {
	var count int64
	errCount := h.db.WithContext(c.Request.Context()).
		Model(&models.OAuthAccount{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, errCount
}
