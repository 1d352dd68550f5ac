package api

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/dealersense/chat-api/docs"
	v1 "github.com/dealersense/chat-api/internal/api/handler/v1"
	"github.com/dealersense/chat-api/internal/api/middleware"
	"github.com/dealersense/chat-api/internal/config"
	"github.com/dealersense/chat-api/internal/domain"
	"github.com/dealersense/chat-api/internal/events"
	"github.com/dealersense/chat-api/internal/realtime"
	"github.com/dealersense/chat-api/internal/repository"
	"github.com/dealersense/chat-api/internal/repository/dao"
	"github.com/dealersense/chat-api/internal/service"
)

// Dependencies are the backends opened by the caller. Relay and Events may be nil.
type Dependencies struct {
	DB       *gorm.DB
	Messages repository.MessageDAO
	Relay    realtime.Relay
	Events   events.Publisher
}

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine
	Hub    *realtime.Hub
}

func NewServer(conf *config.AppConfig, deps Dependencies) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config: conf,
		Router: engine,
	}

	s.MountMiddlewares()

	userSvc := service.NewUserService(repository.NewUserRepository(dao.NewUserDAO(deps.DB)))
	authHandler := s.initAuthHandler(deps.DB)
	userHandler := v1.NewUserHandler(userSvc)
	chatHandler := s.initChatHandler(deps)
	s.MountHandlers(middleware.NewAuthenticator(conf.API.JWTSigningKey, userSvc), authHandler, userHandler, chatHandler)

	return s
}

func (s *Server) initAuthHandler(db *gorm.DB) *v1.AuthHandler {
	userDAO := dao.NewUserDAO(db)
	repo := repository.NewUserRepository(userDAO)
	svc := service.NewAuthService(repo)
	handler := v1.NewAuthHandler(s.Config.API, svc)

	return handler
}

func (s *Server) initChatHandler(deps Dependencies) *v1.ChatHandler {
	chatConf := s.Config.Chat
	store := repository.NewMessageRepository(deps.Messages)
	svc := service.NewChatService(store, chatConf.EnforceParticipants)

	s.Hub = realtime.NewHub(store, svc, deps.Relay, deps.Events, realtime.Options{
		EnforceParticipants: chatConf.EnforceParticipants,
		SendBuffer:          chatConf.SendBuffer,
		SendRate:            chatConf.SendRate,
		SendBurst:           chatConf.SendBurst,
		MaxMessageBytes:     chatConf.MaxMessageBytes,
	})
	handler := v1.NewChatHandler(svc, s.Hub, s.Config.API.AllowedCORSDomains)

	return handler
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(middleware.AccessLog(nil))
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(authenticator *middleware.Authenticator, authHandler *v1.AuthHandler, userHandler *v1.UserHandler, chatHandler *v1.ChatHandler) {
	const basePath = "/api/v1"

	auth := s.Router.Group(basePath)
	{
		auth.POST("/auth/signup", authHandler.HandleSignup)
		auth.POST("/auth/login", authHandler.HandleLogin)
	}

	users := s.Router.Group(basePath, authenticator.VerifyJWT())
	{
		users.GET("/users/me", userHandler.HandleGetMe)
		users.GET("/users/contacts", userHandler.HandleGetContacts)
		users.GET("/users/sales-execs", middleware.RequireRole(domain.RoleDealer), userHandler.HandleListSalesExecs)
		users.GET("/users/dealers", middleware.RequireRole(domain.RoleSalesExec), userHandler.HandleListDealers)
	}

	chat := s.Router.Group(basePath, authenticator.VerifyJWT())
	{
		chat.POST("/chat/send", chatHandler.HandleSendMessage)
		chat.GET("/chat/:roomID", chatHandler.HandleGetChatMessages)
		chat.GET("/rooms/:roomID/messages", chatHandler.HandleGetChatMessages)
		chat.GET("/ws", chatHandler.HandleWebSocket)
	}

	s.Router.GET("/", v1.HandleHealthcheck)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "DealerSense chat API"
	docs.SwaggerInfo.Description = "Accounts, contacts and realtime chat between dealers and sales executives."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
