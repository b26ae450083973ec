package main

import (
	"flag"
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/ucampus/portal-academico-api/internal/models"
	"github.com/ucampus/portal-academico-api/internal/service"
	"github.com/ucampus/portal-academico-api/pkg/config"
)

// Mints a signed token for local development and testing.
func main() {
	var (
		userID   string
		role     string
		fullName string
	)
	flag.StringVar(&userID, "user", "", "User ID to embed in the token")
	flag.StringVar(&role, "role", string(models.RoleStudent), "Role: STUDENT or COORDINATOR")
	flag.StringVar(&fullName, "name", "", "Full name to embed in the token")
	flag.Parse()

	if userID == "" {
		log.Fatal("-user is required")
	}

	userRole := models.UserRole(role)
	if userRole != models.RoleStudent && userRole != models.RoleCoordinator {
		log.Fatalf("unknown role %q", role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	authSvc := service.NewAuthService(service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	}, zap.NewNop())

	token, expiresAt, err := authSvc.IssueToken(userID, userRole, fullName)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}

	fmt.Println(token)
	fmt.Printf("expires at: %s\n", expiresAt.Format("2006-01-02 15:04:05 MST"))
}
