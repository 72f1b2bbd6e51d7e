package db

import (
	"errors"
	"fmt"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/gestion-boutique/internal/models"
)

// Options controls connection, migration, and seeding behavior.
type Options struct {
	DSN           string
	RunMigrations bool
	Seed          bool
	Debug         bool
	Logger        zerolog.Logger
}

// Connect opens the database with retries and brings the schema up to date:
// SQL migrations via golang-migrate when requested, AutoMigrate otherwise.
func Connect(opts Options) (*gorm.DB, error) {
	dsn := NormalizeDSN(opts.DSN)
	if dsn == "" {
		return nil, errors.New("DATABASE_DSN est vide, vérifiez la configuration de l'environnement")
	}
	logLevel := logger.Silent
	if opts.Debug {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var conn *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		conn, err = gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			break
		}
		opts.Logger.Warn().Err(err).Msg("retrying DB connection")
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	if pingErr := conn.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	opts.Logger.Info().Str("dsn", MaskDSN(dsn)).Msg("database connected")

	if opts.RunMigrations {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		if err := AutoMigrate(conn); err != nil {
			return nil, err
		}
	}

	for _, table := range []string{"users", "articles", "dettes"} {
		if !conn.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}

	if opts.Seed {
		seed(conn, opts.Logger)
	}
	return conn, nil
}

// AutoMigrate applies the gorm schema for every model, in dependency order.
func AutoMigrate(conn *gorm.DB) error {
	for _, m := range []any{
		&models.User{}, &models.RefreshToken{}, &models.Categorie{}, &models.Promo{},
		&models.Article{}, &models.Client{}, &models.Dette{}, &models.ArticleDette{},
		&models.Paiement{},
	} {
		if err := conn.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

// seed creates the bootstrap admin account and a couple of categories so a
// fresh database is immediately usable. Idempotent.
func seed(conn *gorm.DB, log zerolog.Logger) {
	var count int64
	conn.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)
	if count == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte("Passer@123"), bcrypt.DefaultCost)
		if err == nil {
			admin := models.User{
				Nom:        "Admin",
				Prenom:     "Principal",
				Email:      "admin@boutique.sn",
				MotDePasse: string(hash),
				Role:       models.RoleAdmin,
				Etat:       true,
			}
			if err := conn.Create(&admin).Error; err != nil {
				log.Warn().Err(err).Msg("seed admin failed")
			}
		}
	}
	for _, libelle := range []string{"Alimentation", "Boissons", "Hygiène"} {
		var existing models.Categorie
		if err := conn.Where("libelle = ?", libelle).First(&existing).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			conn.Create(&models.Categorie{Libelle: libelle})
		}
	}
}

// runSQLMigrations executes migrations in ./migrations using the file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
