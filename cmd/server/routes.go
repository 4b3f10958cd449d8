package main

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/belfry-systems/belfry/internal/audio"
	"github.com/belfry-systems/belfry/internal/db"
	"github.com/belfry-systems/belfry/internal/http/api"
	"github.com/belfry-systems/belfry/internal/http/api/bells"
	bellapi "github.com/belfry-systems/belfry/internal/http/api/bells/endpoints"
	"github.com/belfry-systems/belfry/internal/storage"
	"github.com/belfry-systems/belfry/internal/ws"
)

// RegisterRoutes sets up all application routes
func RegisterRoutes(r *gin.Engine, env Environment, store db.Store, storageSystem storage.Storage, engine *audio.Engine, hub *ws.Hub, notifier *bells.Notifier) {
	// CORS
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods: []string{
			"GET",
			"POST",
			"PUT",
			"DELETE",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
		},
		ExposeHeaders: []string{
			"Content-Length",
		},
		AllowCredentials: false,
	}))

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api",
	},
		bellapi.ScheduleModule(store, notifier),
		bellapi.AudioModule(store, storageSystem, engine),
		bellapi.PlaybackModule(store, engine, notifier),
		bellapi.StatusModule(store, engine),
		bellapi.SettingsModule(store, engine, notifier),
		bellapi.LogModule(store),
	)

	// live dashboard updates
	r.GET("/ws", func(c *gin.Context) {
		hub.Serve(c.Writer, c.Request)
	})

	// Static content; with Spaces the CDN serves the files instead.
	if !env.UseSpaces {
		r.Static("/static/audio", env.AudioDir)
	}
}
