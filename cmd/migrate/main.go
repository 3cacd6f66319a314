package main

import (
	"errors"
	"flag"
	"log"

	"storefront_payments/internal/pkg/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	dir := flag.String("path", "migrations", "migrations directory")
	down := flag.Bool("down", false, "roll back one version instead of migrating up")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	m, err := migrate.New("file://"+*dir, cfg.Database.DSN())
	if err != nil {
		log.Fatal(err)
	}
	defer m.Close()

	if *down {
		if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal(err)
		}
		log.Println("Rolled back one migration")
		return
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		// 上次迁移中断会留下 dirty 标记，回退到前一版本后重试
		var dirty migrate.ErrDirty
		if !errors.As(err, &dirty) {
			log.Fatal(err)
		}
		log.Printf("Database is dirty at version %d, forcing version %d...", dirty.Version, dirty.Version-1)
		if err := m.Force(dirty.Version - 1); err != nil {
			log.Fatal("Failed to force version:", err)
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal(err)
		}
	}

	version, dirty, _ := m.Version()
	log.Printf("Migration successful (version %d, dirty %v)", version, dirty)
}
