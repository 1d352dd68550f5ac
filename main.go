package main

import (
	_ "github.com/joho/godotenv/autoload" // Autoload .env file.

	"github.com/dealersense/chat-api/cmd/app"
)

// @title         DealerSense chat API
// @version       1.0
// @description   Accounts, contacts and realtime chat between dealers and sales executives.
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token
//
// @externalDocs.description  OpenAPI
// @externalDocs.url          https://swagger.io/resources/open-api/
func main() {
	if err := app.Start(); err != nil {
		panic(err)
	}
}
