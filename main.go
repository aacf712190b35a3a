package main

import (
	"log"
	"os"
	"time"

	"github.com/fredbanda/phangelam-api/config"
	"github.com/fredbanda/phangelam-api/controllers"
	"github.com/fredbanda/phangelam-api/initializers"
	"github.com/fredbanda/phangelam-api/payments"
	"github.com/fredbanda/phangelam-api/routes"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func init() {
	initializers.LoadEnv()
	initializers.ConnectToDB()
	initializers.SyncDatabase()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	stripeGateway := payments.NewStripeGateway(cfg.Stripe, cfg.BaseURL)
	payfastGateway := payments.NewPayfastGateway(cfg.Payfast, cfg.BaseURL)
	controllers.Init(stripeGateway, payfastGateway, cfg.AdminEmail)

	server := gin.Default()
	server.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:4200", os.Getenv("FRONTEND_URL")},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	routes.DefaultRoutes(server)
	routes.ConsultationRoutes(server)
	routes.ConsultantRoutes(server)
	routes.WebhookRoutes(server)
	server.Run()
}
