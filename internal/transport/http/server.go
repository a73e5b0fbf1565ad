package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	appsvc "agrovision/internal/app"
	"agrovision/internal/bootstrap"
	"agrovision/internal/repository"
	"agrovision/internal/transport/http/handler"
	"agrovision/internal/transport/http/middleware"
	"agrovision/internal/transport/http/response"
	"agrovision/web"
)

func NewRouter(app *bootstrap.App) (*gin.Engine, error) {
	gin.SetMode(app.Config.App.GinMode)

	templates, err := response.LoadTemplates(web.Templates())
	if err != nil {
		return nil, fmt.Errorf("load templates failed: %w", err)
	}

	router := gin.New()
	router.HTMLRender = templates
	router.MaxMultipartMemory = app.Config.App.MaxUploadBytes

	userRepo := repository.NewUserRepository(app.DB)
	imageRepo := repository.NewImageRepository(app.DB)
	authService := appsvc.NewAuthService(userRepo, app.Config.Auth.BcryptCost)
	imageService := appsvc.NewImageService(imageRepo, app.Storage, app.Classifier, app.Orphans, app.Log)

	router.Use(
		middleware.RequestLogger(app.Log),
		gin.Recovery(),
		middleware.BodyLimit(app.Config.App.MaxUploadBytes),
		middleware.LoadSession(app.Sessions, authService, app.Log),
	)

	res := response.NewResponder(templates, app.Sessions, app.Log)
	router.NoRoute(func(c *gin.Context) {
		res.Error(c, http.StatusNotFound)
	})

	healthHandler := handler.NewHealthHandler(app)
	pageHandler := handler.NewPageHandler(res)
	authHandler := handler.NewAuthHandler(authService, app.Sessions, res, app.Log)
	imageHandler := handler.NewImageHandler(imageService, res, app.Log)
	requireLogin := middleware.RequireLogin(res)

	router.GET("/", pageHandler.Root)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/logout", authHandler.Logout)
	router.GET("/display/:filename", requireLogin, imageHandler.Display)
	if app.Config.Storage.Backend == "local" {
		router.Static(app.Config.Storage.PublicPrefix, app.Config.Storage.Root)
	}

	site := router.Group("/:lang")
	site.Use(middleware.Lang(res))
	site.GET("/", pageHandler.Show)
	site.GET("/:page", pageHandler.Show)
	site.GET("/signup", authHandler.SignupPage)
	site.POST("/signup", authHandler.Signup)
	site.GET("/login", authHandler.LoginPage)
	site.POST("/login", authHandler.Login)

	member := site.Group("")
	member.Use(requireLogin)
	member.GET("/upload", imageHandler.UploadPage)
	member.POST("/upload", imageHandler.Upload)
	member.GET("/my_images", imageHandler.MyImages)
	member.POST("/delete/:filename", imageHandler.Delete)

	return router, nil
}
