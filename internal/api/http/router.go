package http

import (
	"github.com/gin-gonic/gin"

	"github.com/getpaseo/paseo/internal/api/http/handler"
	"github.com/getpaseo/paseo/internal/api/http/middleware"
)

// Services carries the handlers and hub the router wires together.
type Services struct {
	Health    *handler.HealthHandler
	Pair      *handler.PairHandler
	Auth      *handler.AuthHandler
	Downloads *handler.DownloadHandler
	Push      *handler.PushHandler
	Hub       *WSHub
	JWTSecret []byte
}

// SetupRoute builds the daemon's HTTP surface. Pairing and download
// redemption carry their own credentials and stay outside the bearer
// middleware; everything else requires a valid token.
func SetupRoute(router *gin.Engine, svc *Services) {
	router.Use(middleware.RequestLogger())

	router.GET("/health", svc.Health.Check)

	v1 := router.Group("/v1")
	{
		v1.GET("/pair/offer", svc.Pair.Offer)
		v1.POST("/pair", svc.Pair.Pair)
		v1.GET("/downloads/:token", svc.Downloads.Redeem)

		authed := v1.Group("")
		authed.Use(middleware.JWTAuth(svc.JWTSecret))
		{
			authed.POST("/auth/refresh", svc.Auth.Refresh)
			authed.POST("/auth/totp", svc.Pair.SetupTOTP)
			authed.POST("/downloads", svc.Downloads.Issue)
			authed.GET("/push", svc.Push.List)
			authed.POST("/push", svc.Push.Register)
			authed.DELETE("/push/:token", svc.Push.Unregister)
		}
	}

	router.GET("/ws", svc.Hub.Handle)
}
