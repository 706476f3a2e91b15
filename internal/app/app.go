package app

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/phenrril/myshop/internal/adapters/httpserver"
	"github.com/phenrril/myshop/internal/adapters/repo/postgres"
	"github.com/phenrril/myshop/internal/adapters/specsheet"
	"github.com/phenrril/myshop/internal/adapters/textindex"
	"github.com/phenrril/myshop/internal/admin"
	"github.com/phenrril/myshop/internal/config"
	"github.com/phenrril/myshop/internal/domain"
	"github.com/phenrril/myshop/internal/shopadmin"
	"github.com/phenrril/myshop/internal/usecase"
)

type App struct {
	DB                *gorm.DB
	Config            *config.Config
	Site              *admin.Site
	ProductUC         *usecase.ProductUC
	OperatingSystemUC *usecase.OperatingSystemUC
	Redis             *redis.Client
	OAuthConfig       *oauth2.Config
}

func NewApp(db *gorm.DB, cfg *config.Config) (*App, error) {
	app := &App{DB: db, Config: cfg}

	var cache textindex.Cache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		app.Redis = redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := app.Redis.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, text index renders will not be cached")
		}
		cache = textindex.NewRedisCache(app.Redis, time.Duration(cfg.TextIndexTTLMinutes)*time.Minute)
	}
	text, err := textindex.New(cache)
	if err != nil {
		return nil, err
	}

	deps := shopadmin.Deps{
		Products:         postgres.NewProductRepo(db),
		Pages:            postgres.NewCMSPageRepo(db),
		OperatingSystems: postgres.NewOperatingSystemRepo(db),
		Text:             text,
	}
	site, err := shopadmin.NewSite(deps)
	if err != nil {
		return nil, err
	}
	parent, err := site.LookupParent(shopadmin.BaseModel)
	if err != nil {
		return nil, err
	}
	osAdmin, err := site.Lookup("operatingsystem")
	if err != nil {
		return nil, err
	}
	app.Site = site
	app.ProductUC = &usecase.ProductUC{
		Products:         deps.Products,
		OperatingSystems: deps.OperatingSystems,
		Parent:           parent,
		Specs:            specsheet.New(cfg.SpecSheetBaseURL),
	}
	app.OperatingSystemUC = &usecase.OperatingSystemUC{OperatingSystems: deps.OperatingSystems, Admin: osAdmin}

	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		app.OAuthConfig = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.BaseURL + "/admin/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}
	if cfg.AdminPasswordHash == "" {
		log.Warn().Msg("ADMIN_PASSWORD_HASH not set, password login disabled")
	}
	return app, nil
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(a.Site, a.ProductUC, a.OperatingSystemUC, httpserver.AuthConfig{
		AdminUser:         a.Config.AdminUser,
		AdminPasswordHash: a.Config.AdminPasswordHash,
		Secret:            []byte(a.Config.JWTSecret),
		AllowedEmails:     a.Config.AllowedEmails(),
		TokenTTL:          time.Duration(a.Config.JWTExpirationHours) * time.Hour,
		OAuth:             a.OAuthConfig,
	})
}

// MigrateAndSeed migrates the schema and makes sure the lookup rows the admin
// offers out of the box exist.
func (a *App) MigrateAndSeed() error {
	if err := postgres.AutoMigrate(a.DB); err != nil {
		return err
	}
	if err := seedOperatingSystems(a.DB); err != nil {
		return err
	}
	return seedPages(a.DB)
}

func (a *App) Close() error {
	if a.Redis != nil {
		return a.Redis.Close()
	}
	return nil
}

func seedOperatingSystems(db *gorm.DB) error {
	for _, name := range []string{"Android", "iOS"} {
		os := domain.OperatingSystem{Name: name}
		if err := db.Where(domain.OperatingSystem{Name: name}).FirstOrCreate(&os).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedPages(db *gorm.DB) error {
	pages := []domain.CMSPage{
		{Title: "Shop", Path: "/shop/"},
		{Title: "Smartphones", Path: "/shop/smartphones/"},
		{Title: "Accessories", Path: "/shop/accessories/"},
	}
	for _, p := range pages {
		if err := db.Where(domain.CMSPage{Path: p.Path}).FirstOrCreate(&p).Error; err != nil {
			return err
		}
	}
	return nil
}
