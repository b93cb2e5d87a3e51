package httpserver

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/Skotchmaster/temurun/internal/session"
	pkgdb "github.com/Skotchmaster/temurun/pkg/db"
	"github.com/Skotchmaster/temurun/pkg/middleware/csrf"
	"github.com/Skotchmaster/temurun/pkg/middleware/metrics"
)

// DefaultUploadLimit caps image upload request bodies when Deps.UploadLimit is empty.
const DefaultUploadLimit = "10M"

type Deps struct {
	DB    *gorm.DB
	Shop  *ShopHTTP
	Admin *AdminHTTP
	Guard *session.Guard

	// ImagesBase and UploadsDir expose the filesystem blob store when the base is a path.
	ImagesBase string
	UploadsDir string

	// UploadLimit uses echo's BodyLimit size format ("10M", "512K").
	UploadLimit string
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if err := pkgdb.Ping(c.Request().Context(), d.DB); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", metrics.Handler())

	if strings.HasPrefix(d.ImagesBase, "/") && d.UploadsDir != "" {
		e.Static(d.ImagesBase, d.UploadsDir)
	}

	e.Use(d.Guard.Middleware)

	api := e.Group("/api")
	api.GET("/products", d.Shop.ListProducts)
	api.GET("/products/:slug", d.Shop.GetProduct)
	api.GET("/search", d.Shop.Search)

	e.GET("/cart", d.Shop.GetCart)
	e.POST("/cart/items", d.Shop.AddToCart)
	e.PATCH("/cart/items/:id", d.Shop.UpdateCartItem)
	e.DELETE("/cart/items/:id", d.Shop.RemoveCartItem)
	e.DELETE("/cart", d.Shop.ClearCart)
	e.POST("/checkout", d.Shop.Checkout)
	e.GET("/order/:code", d.Shop.GetOrder)

	csrfCfg := csrf.DefaultConfig()
	csrfCfg.Secure = d.Admin.Secure
	csrfCfg.SkipPaths = []string{session.SignInPath}

	admin := e.Group(session.AdminPrefix, csrf.Middleware(csrfCfg))
	admin.GET("", d.Admin.Index)
	admin.GET("/sign-in", d.Admin.SignInPage)
	admin.POST("/sign-in", d.Admin.SignIn)
	admin.POST("/sign-out", d.Admin.SignOut)

	admin.GET("/orders", d.Admin.ListOrders)
	admin.POST("/orders/transition", d.Admin.TransitionOrder)
	admin.GET("/orders/:id", d.Admin.GetOrder)

	admin.GET("/products", d.Admin.ListProducts)
	admin.POST("/products/:id/price", d.Admin.UpdatePrice)
	admin.POST("/products/:id/new", d.Admin.SetNew)

	uploadLimit := d.UploadLimit
	if uploadLimit == "" {
		uploadLimit = DefaultUploadLimit
	}
	images := admin.Group("/products/:id/images", echomw.BodyLimit(uploadLimit))
	images.GET("", d.Admin.ListImages)
	images.POST("", d.Admin.UploadImages)
	images.POST("/reorder", d.Admin.ReorderImages)
	images.POST("/:imageId/delete", d.Admin.DeleteImage)
	images.POST("/:imageId/move", d.Admin.MoveImage)
	images.POST("/:imageId/cover", d.Admin.SetCover)

	admin.GET("/analytics", d.Admin.GetAnalytics)
	admin.GET("/settings", d.Admin.GetSettings)
	admin.POST("/settings", d.Admin.SaveSettings)
}
