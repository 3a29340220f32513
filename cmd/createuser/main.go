// Command createuser registers an account, typically the first admin.
package main

import (
	"context"
	"flag"
	stdLog "log"
	"os"

	"github.com/joho/godotenv"

	"github.com/Astemirdum/library-loan-service/library/app"
	"github.com/Astemirdum/library-loan-service/library/config"
)

func main() {
	var req app.NewUser
	flag.StringVar(&req.Email, "email", "", "account email")
	flag.StringVar(&req.Password, "password", "", "plain password, at least 8 characters")
	flag.StringVar(&req.FirstName, "first-name", "", "first name")
	flag.StringVar(&req.LastName, "last-name", "", "last name")
	flag.BoolVar(&req.Admin, "admin", false, "grant the admin role")
	flag.Parse()

	if err := req.Validate(); err != nil {
		flag.Usage()
		stdLog.Fatal(err)
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		stdLog.Fatal("load envs from .env: ", err)
	}
	cfg := config.NewConfig()

	user, err := app.CreateUser(context.Background(), cfg, req)
	if err != nil {
		stdLog.Fatal("create user: ", err)
	}
	role := "user"
	if user.IsAdmin {
		role = "admin"
	}
	stdLog.Printf("created %s %s (id %d)", role, user.Email, user.ID)
}
