package routes

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/vnkhanh/podstream-backend/controllers"
	"github.com/vnkhanh/podstream-backend/middleware"
	"github.com/vnkhanh/podstream-backend/models"
	"github.com/vnkhanh/podstream-backend/services"
	"github.com/vnkhanh/podstream-backend/ws"
)

// Deps carries everything the router wires together.
type Deps struct {
	Handler  *controllers.Handler
	DB       services.StoreSource
	Limiters middleware.Limiters
	WS       *ws.Handler
	Log      *logrus.Entry
}

// endpointList lists every registered route as "METHOD path".
func endpointList(r *gin.Engine) []string {
	routes := r.Routes()
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})
	out := make([]string, 0, len(routes))
	for _, rt := range routes {
		out = append(out, rt.Method+" "+rt.Path)
	}
	return out
}

func notFound(endpoints []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":              "Not Found",
			"path":               c.Request.URL.Path,
			"method":             c.Request.Method,
			"message":            "The requested endpoint does not exist",
			"availableEndpoints": endpoints,
		})
	}
}

func methodNotAllowed(c *gin.Context) {
	allowed := []string{}
	for _, m := range strings.Split(c.Writer.Header().Get("Allow"), ",") {
		if m = strings.TrimSpace(m); m != "" {
			allowed = append(allowed, m)
		}
	}
	c.JSON(http.StatusMethodNotAllowed, gin.H{
		"error":          "Method Not Allowed",
		"message":        "Method " + c.Request.Method + " is not allowed for " + c.Request.URL.Path,
		"receivedMethod": c.Request.Method,
		"allowedMethods": allowed,
	})
}

func SetupRouter(d Deps) *gin.Engine {
	h := d.Handler
	cfg := h.Config

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.MaxMultipartMemory = 32 << 20

	r.Use(
		middleware.Recovery(d.Log),
		middleware.Logger(d.Log),
		middleware.Metrics(),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.BodyLimit(cfg.MaxBodyBytes, map[string]int64{
			"/api/v1/add-podcast": cfg.MaxUploadBytes,
		}),
	)
	r.NoMethod(methodNotAllowed)

	limit := func(l middleware.Limiter) gin.HandlerFunc {
		if !cfg.RateLimitEnabled || l == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimit(l, d.Log)
	}

	r.GET("/", h.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/uploads/*path", h.ServeUpload)

	if d.WS != nil {
		live := r.Group("/ws", middleware.OptionalAuth(h.Auth))
		live.GET("/podcast/:id", d.WS.HandlePodcastWebSocket)
		live.GET("/global", d.WS.HandleGlobalWebSocket)
	}

	api := r.Group("/api/v1", limit(d.Limiters.Global))
	api.GET("/health", h.HealthCheck)
	api.POST("/logout", h.Logout)
	api.GET("/check-cookie", h.CheckCookie)

	db := api.Group("", middleware.RequireDatabase(d.DB, d.Log))
	{
		authLimit := limit(d.Limiters.Auth)
		db.POST("/sign-up", authLimit, h.SignUp)
		db.POST("/sign-in", authLimit, h.SignIn)

		db.GET("/get-podcasts", h.GetPodcasts)
		db.GET("/get-podcast/:id", h.GetPodcast)
		db.GET("/category/:name", h.GetCategoryPodcasts)
		db.GET("/categories", h.GetCategories)
		db.GET("/get-categories", h.GetCategories)
		db.GET("/search", h.Search)
		db.GET("/search/suggestions", h.SearchSuggestions)
		db.GET("/analytics/trending", h.TrendingPodcasts)
		db.GET("/analytics/categories", h.CategoryAnalytics)
	}

	user := db.Group("", middleware.AuthMiddleware(h.Auth, d.Log))
	{
		user.GET("/user-details", h.UserDetails)
		user.GET("/profile", h.GetProfile)
		user.PUT("/profile", h.UpdateProfile)
		user.POST("/follow/:userId", h.FollowUser)
		user.GET("/user-analytics", h.UserAnalytics)
		user.GET("/get-user-podcasts", h.GetUserPodcasts)
		user.POST("/like-podcast/:id", h.LikePodcast)
		user.POST("/add-comment/:id", h.AddComment)
		user.GET("/analytics/podcast/:podcastId", h.PodcastAnalytics)

		uploadLimit := limit(d.Limiters.Upload)
		user.POST("/get-upload-url", uploadLimit, h.GetUploadURL)
		user.POST("/upload-file", uploadLimit, h.UploadFile)
		user.POST("/add-podcast", uploadLimit, h.AddPodcast)
	}

	admin := user.Group("/analytics", middleware.RequireRoles("Access denied. Admin only.", models.RoleAdmin))
	admin.GET("/platform", h.PlatformAnalytics)

	r.NoRoute(notFound(endpointList(r)))
	return r
}
