package core

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

// authResponse is the envelope for login/register/callback outcomes.
// Business-rule failures are reported with success=false and HTTP 200, the
// way the client expects field-level feedback.
type authResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    *UserSummary `json:"user,omitempty"`
}

// NewRouter constructs the Gin engine with routes wired.
func NewRouter(cfg Config, store *sessions.CookieStore, accounts AccountRepository, auth *AuthService, linker *ExternalLinker, collection *CollectionService) *gin.Engine {
	startedAt := time.Now()
	r := gin.Default()

	// Global middleware: origin/CORS -> session -> CSRF
	r.Use(OriginRefererMiddleware(cfg))
	r.Use(SessionMiddleware(cfg, store))
	r.Use(CSRFMiddleware(cfg, store))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/api/v1/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, collection.Status(c.Request.Context(), startedAt))
	})

	api := r.Group("/api/v1")
	{
		api.POST("/auth/register", func(c *gin.Context) {
			var req struct {
				Username string `json:"username"`
				Password string `json:"password"`
				Nickname string `json:"nickname"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}

			res, err := auth.Register(c.Request.Context(), req.Username, req.Password, req.Nickname)
			if err != nil {
				log.Printf("register failed: %v", err)
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "registration failed")
				return
			}
			if !res.Success {
				c.JSON(http.StatusOK, authResponse{Message: res.Message})
				return
			}

			if err := establishSession(c, cfg, res.Account.ID); err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to set session")
				return
			}
			user := res.Account.Summary()
			c.JSON(http.StatusOK, authResponse{Success: true, Message: res.Message, User: &user})
		})

		api.POST("/auth/login", func(c *gin.Context) {
			var req struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}

			res, err := auth.Login(c.Request.Context(), req.Username, req.Password)
			if err != nil {
				log.Printf("login failed: %v", err)
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "login failed")
				return
			}
			if !res.Success {
				c.JSON(http.StatusOK, authResponse{Message: res.Message})
				return
			}

			if err := establishSession(c, cfg, res.Account.ID); err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to set session")
				return
			}
			user := res.Account.Summary()
			c.JSON(http.StatusOK, authResponse{Success: true, Message: res.Message, User: &user})
		})

		api.POST("/auth/logout", func(c *gin.Context) {
			if err := clearSession(c, cfg); err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to clear session")
				return
			}
			c.JSON(http.StatusOK, authResponse{Success: true, Message: "Logged out successfully"})
		})

		api.GET("/auth/me", func(c *gin.Context) {
			id := sessionAccountID(c)
			if id == "" {
				c.JSON(http.StatusOK, nil)
				return
			}
			acct, err := accounts.FindByID(c.Request.Context(), id)
			if err != nil {
				// Stale session for a removed account reads as anonymous.
				if errors.Is(err, ErrNotFound) {
					c.JSON(http.StatusOK, nil)
					return
				}
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load user")
				return
			}
			c.JSON(http.StatusOK, acct.Summary())
		})

		api.POST("/auth/callback/:provider", func(c *gin.Context) {
			var req struct {
				IDToken string `json:"id_token"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}

			identity, err := linker.VerifyAssertion(c.Param("provider"), req.IDToken)
			if err != nil {
				respondError(c, http.StatusUnauthorized, "INVALID_ASSERTION", "external login failed")
				return
			}

			acct, err := linker.Resolve(c.Request.Context(), identity)
			if err != nil {
				log.Printf("external callback failed: %v", err)
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "external login failed")
				return
			}

			if err := establishSession(c, cfg, acct.ID); err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to set session")
				return
			}
			user := acct.Summary()
			c.JSON(http.StatusOK, authResponse{Success: true, Message: msgLoginOK, User: &user})
		})

		api.GET("/animals", func(c *gin.Context) {
			items, err := collection.GetCollection(c.Request.Context(), sessionAccountID(c))
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load animals")
				return
			}
			for i := range items {
				redactUncaptured(&items[i])
			}
			c.JSON(http.StatusOK, items)
		})

		// The static segments must be registered before the :id route so gin
		// does not treat them as animal ids.
		api.GET("/animals/collection", func(c *gin.Context) {
			accountID, ok := requireLogin(c)
			if !ok {
				return
			}
			items, err := collection.GetCollection(c.Request.Context(), accountID)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load collection")
				return
			}
			owned := make([]CollectionItem, 0, len(items))
			for _, item := range items {
				if item.Captured {
					owned = append(owned, item)
				}
			}
			c.JSON(http.StatusOK, owned)
		})

		api.GET("/animals/stats", func(c *gin.Context) {
			accountID, ok := requireLogin(c)
			if !ok {
				return
			}
			stats, err := collection.GetStats(c.Request.Context(), accountID)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load stats")
				return
			}
			c.JSON(http.StatusOK, stats)
		})

		api.GET("/animals/achievements", func(c *gin.Context) {
			accountID, ok := requireLogin(c)
			if !ok {
				return
			}
			unlocked, stats, err := collection.UnlockedAchievements(c.Request.Context(), accountID)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load achievements")
				return
			}
			if unlocked == nil {
				unlocked = []string{}
			}
			c.JSON(http.StatusOK, gin.H{
				"unlocked":     unlocked,
				"achievements": Achievements,
				"stats":        stats,
			})
		})

		api.GET("/animals/leaderboard", func(c *gin.Context) {
			entries, err := collection.Leaderboard(c.Request.Context(), cfg.LeaderboardSize)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load leaderboard")
				return
			}
			if entries == nil {
				entries = []LeaderboardEntry{}
			}
			c.JSON(http.StatusOK, entries)
		})

		api.GET("/animals/token/:token", func(c *gin.Context) {
			item, err := collection.GetAnimalByToken(c.Request.Context(), sessionAccountID(c), c.Param("token"))
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "Animal not found")
					return
				}
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load animal")
				return
			}
			redactUncaptured(item)
			c.JSON(http.StatusOK, item)
		})

		api.GET("/animals/:id", func(c *gin.Context) {
			item, err := collection.GetAnimal(c.Request.Context(), sessionAccountID(c), c.Param("id"))
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "Animal not found")
					return
				}
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load animal")
				return
			}
			redactUncaptured(item)
			c.JSON(http.StatusOK, item)
		})

		api.POST("/animals/:id/capture", func(c *gin.Context) {
			accountID, ok := requireLogin(c)
			if !ok {
				return
			}
			status, err := collection.Capture(c.Request.Context(), accountID, c.Param("id"))
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "Animal not found")
					return
				}
				log.Printf("capture failed: %v", err)
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to capture animal")
				return
			}
			message := "Animal captured successfully"
			if status == CaptureStatusAlreadyCaptured {
				message = "Animal already captured"
			}
			c.JSON(http.StatusOK, gin.H{"status": status, "message": message})
		})
	}

	return r
}

// redactUncaptured hides identifying fields of animals the viewer has not
// captured yet; clients render those as silhouette cards. Rarity and id
// stay visible so the catalog grid keeps its shape.
func redactUncaptured(item *CollectionItem) {
	if item.Captured {
		return
	}
	item.Name = ""
	item.Species = ""
	item.Habitat = ""
	item.ImageURL = ""
	item.Facts = nil
}
