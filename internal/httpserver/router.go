package httpserver

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	authmw "github.com/Skotchmaster/mylib/internal/middleware/auth"
	"github.com/Skotchmaster/mylib/internal/models"
)

type Deps struct {
	Auth             *AuthHTTP
	Users            *UsersHTTP
	Books            *ContentHTTP[models.Book, *models.Book]
	MentalHealth     *ContentHTTP[models.MentalHealthResource, *models.MentalHealthResource]
	Entrepreneurship *ContentHTTP[models.EntrepreneurshipContent, *models.EntrepreneurshipContent]
	Files            *FilesHTTP
	Guard            *authmw.Guard
	Ready            Pinger
	// AuthRateLimit is requests per second per client on /api/auth, 0 disables it.
	AuthRateLimit float64
}

type contentRoutes interface {
	List(echo.Context) error
	Get(echo.Context) error
	Create(echo.Context) error
	Delete(echo.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", live)
	e.GET("/health/ready", ready(d.Ready))

	api := e.Group("/api")
	api.GET("", apiStatus)

	var authMW []echo.MiddlewareFunc
	if d.AuthRateLimit > 0 {
		authMW = append(authMW, echomw.RateLimiter(echomw.NewRateLimiterMemoryStore(rate.Limit(d.AuthRateLimit))))
	}
	auth := api.Group("/auth", authMW...)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/register", d.Auth.Register)

	books := mountContent(api.Group("/books"), d.Books, d.Guard)
	books.POST("/:id/download", d.Books.Download, d.Guard.Optional)

	mountContent(api.Group("/mental-health"), d.MentalHealth, d.Guard)
	mountContent(api.Group("/entrepreneurship"), d.Entrepreneurship, d.Guard)

	users := api.Group("/users")
	users.GET("", d.Users.List, d.Guard.Protect(models.RoleAdmin)...)
	users.GET("/me", d.Users.Me, d.Guard.Protect()...)

	e.GET("/uploads/:dir/:name", d.Files.Serve)
	e.HEAD("/uploads/:dir/:name", d.Files.Serve)
}

func mountContent(g *echo.Group, h contentRoutes, guard *authmw.Guard) *echo.Group {
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("", h.Create, guard.Protect(models.RoleAdmin, models.RoleTeacher)...)
	g.DELETE("/:id", h.Delete, guard.Protect(models.RoleAdmin)...)
	return g
}
