package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"storefront_payments/internal/pkg/config"
	"storefront_payments/pkg/utils"
)

// 签发访问 /api/admin 的令牌，密钥取自 jwt.secret
func main() {
	subject := flag.String("sub", "ops", "user id recorded in the token")
	role := flag.String("role", utils.RoleAdmin, "admin or operator")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.JWT.Secret == "" {
		log.Fatal("jwt.secret is not configured, admin endpoints are disabled")
	}
	if *role != utils.RoleAdmin && *role != utils.RoleOperator {
		log.Fatalf("unknown role %q", *role)
	}

	token, expireAt, err := utils.GenerateToken(cfg.JWT.Secret, *subject, *role, *ttl)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
	log.Printf("expires at %s", expireAt.Format(time.RFC3339))
}
