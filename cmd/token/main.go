// Command token mints access tokens for service accounts and local testing.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/config"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/advance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/jwt"
)

func main() {
	employeeID := flag.String("employee", "", "employee id to put in the token")
	role := flag.String("role", string(advance.RoleEmployee), "employee, operations or hr")
	flag.Parse()

	if *employeeID == "" {
		fmt.Fprintln(os.Stderr, "usage: token -employee <id> [-role employee|operations|hr]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}

	token, expiresAt, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration).GenerateAccessToken(*employeeID, advance.Role(*role))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error generating token:", err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintln(os.Stderr, "expires at", time.Unix(expiresAt, 0).Format(time.RFC3339))
}
