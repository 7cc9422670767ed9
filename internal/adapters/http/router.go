package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"watchparty/internal/adapters/signal"
	"watchparty/internal/adapters/store"
	"watchparty/internal/config"
	"watchparty/internal/core"
	"watchparty/internal/domain"
)

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	ctl *signal.Controller,
	rooms *store.BadgerStore,
	directory *store.Directory,
) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	sessionStore := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("WatchPartySessions", sessionStore))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.GET("/ws/room", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("ct", c.GetString("client_token")).Msg("ws room endpoint hit")
		ctl.HandleWS(ctx, c)
	})

	api.POST("/rooms", createRoomHandler(rooms, directory))
	api.GET("/rooms/:id", getRoomHandler(rooms))
	api.GET("/rooms/invite/:code", getRoomByInviteHandler(rooms))

	return r
}

type createRoomRequest struct {
	Name              string `json:"name" binding:"required"`
	AdminName         string `json:"admin_name" binding:"required"`
	IsPrivate         bool   `json:"is_private"`
	Password          string `json:"password"`
	VideoURL          string `json:"video_url"`
	SyncMode          string `json:"sync_mode"`
	AutoPlay          bool   `json:"auto_play"`
	AllowGuestControl bool   `json:"allow_guest_control"`
}

// createRoomHandler is the external room-creation flow: registers the admin
// identity, persists the room, and marks the caller's session as that admin.
func createRoomHandler(rooms *store.BadgerStore, directory *store.Directory) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createRoomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad payload"})
			return
		}

		admin := directory.Register(domain.Profile{DisplayName: req.AdminName})

		room, err := rooms.CreateRoom(c.Request.Context(), store.CreateRoomParams{
			Name:              req.Name,
			AdminID:           admin.UserID,
			IsPrivate:         req.IsPrivate,
			Password:          req.Password,
			VideoURL:          req.VideoURL,
			SyncMode:          domain.SyncMode(req.SyncMode),
			AutoPlay:          req.AutoPlay,
			AllowGuestControl: req.AllowGuestControl,
		})
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("create room")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
			return
		}

		session := sessions.Default(c)
		session.Set("user_id", admin.UserID)
		if err := session.Save(); err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("save session")
		}

		c.JSON(http.StatusCreated, gin.H{"room": room, "admin_id": admin.UserID})
	}
}

func getRoomHandler(rooms *store.BadgerStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		room, err := rooms.GetRoom(c.Request.Context(), domain.RoomID(c.Param("id")))
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, core.ErrNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"room": room})
	}
}

func getRoomByInviteHandler(rooms *store.BadgerStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		room, err := rooms.GetRoomByInviteCode(c.Request.Context(), c.Param("code"))
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, core.ErrNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"room": room})
	}
}
