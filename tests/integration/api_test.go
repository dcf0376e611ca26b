package integration

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/golang-migrate/migrate/v4"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	api "github.com/vadimbarashkov/shortlink/internal/api/http"
	"github.com/vadimbarashkov/shortlink/internal/config"
	"github.com/vadimbarashkov/shortlink/internal/database/postgres"
	"github.com/vadimbarashkov/shortlink/internal/service"
	"github.com/vadimbarashkov/shortlink/pkg/base62"
	"github.com/vadimbarashkov/shortlink/tests"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type APITestSuite struct {
	suite.Suite
	pgCont   testcontainers.Container
	cfg      *config.Config
	db       *sqlx.DB
	linkRepo *postgres.LinkRepository
	linkSvc  *service.LinkService
	logger   *httplog.Logger
	server   *httptest.Server
	e        *httpexpect.Expect
}

func (suite *APITestSuite) SetupSuite() {
	ctx := context.Background()

	pgUser := "test"
	pgPassword := "test"
	pgDB := "shortlink"

	var err error
	suite.pgCont, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "postgres:16-alpine",
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDB,
			},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor:   wait.ForListeningPort("5432/tcp"),
		},
		Started: true,
	})
	if err != nil {
		suite.T().Fatalf("Failed to start postgres container: %v", err)
	}
	suite.T().Cleanup(func() {
		if err := suite.pgCont.Terminate(ctx); err != nil {
			suite.T().Fatalf("Failed to terminate postgres container: %v", err)
		}
	})

	pgHost, err := suite.pgCont.Host(ctx)
	if err != nil {
		suite.T().Fatalf("Failed to get postgres container host: %v", err)
	}

	pgPort, err := suite.pgCont.MappedPort(ctx, "5432")
	if err != nil {
		suite.T().Fatalf("Failed to get postgres container port: %v", err)
	}

	suite.cfg = &config.Config{
		BaseURL: "http://sl.test",
		Postgres: config.Postgres{
			User:     pgUser,
			Password: pgPassword,
			Host:     pgHost,
			Port:     pgPort.Int(),
			DB:       pgDB,
			SSLMode:  "disable",
		},
	}

	suite.db, err = sqlx.Connect("pgx", suite.cfg.Postgres.DSN())
	if err != nil {
		suite.T().Fatalf("Failed to connect to database: %v", err)
	}
	suite.T().Cleanup(func() {
		if err := suite.db.Close(); err != nil {
			suite.T().Fatalf("Failed to close database: %v", err)
		}
	})

	root, err := tests.FindProjectRoot()
	if err != nil {
		suite.T().Fatalf("Failed to get project root: %v", err)
	}

	migrationsPath := filepath.Join("file://"+root, "/migrations")

	m, err := migrate.New(migrationsPath, suite.cfg.Postgres.DSN())
	if err != nil {
		suite.T().Fatalf("Failed to initialize migrations: %v", err)
	}

	if err := m.Up(); err != nil {
		suite.T().Fatalf("Failed to run migrations: %v", err)
	}
	suite.T().Cleanup(func() {
		if err := m.Down(); err != nil {
			suite.T().Fatalf("Failed to rollback migrations: %v", err)
		}
	})

	suite.linkRepo = postgres.NewLinkRepository(suite.db)
	suite.linkSvc = service.NewLinkService(suite.linkRepo)

	suite.logger = httplog.NewLogger("", httplog.Options{Writer: io.Discard})
	router := api.NewRouter(suite.logger, suite.cfg, suite.linkSvc)
	suite.server = httptest.NewServer(router)
	suite.e = httpexpect.Default(suite.T(), suite.server.URL)
}

func (suite *APITestSuite) TearDownSubTest() {
	ctx := context.Background()

	_, err := suite.db.ExecContext(ctx, `TRUNCATE TABLE links RESTART IDENTITY CASCADE`)
	if err != nil {
		suite.T().Fatalf("Failed to clean links table: %v", err)
	}
}

func (suite *APITestSuite) TestPing() {
	const path = "/api/ping"

	suite.Run("success", func() {
		suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			Text().Contains("pong")
	})
}

func (suite *APITestSuite) TestShortenLink() {
	const path = "/api/shorten"

	suite.Run("empty request body", func() {
		resp := suite.e.POST(path).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("generated code matches row id", func() {
		resp := suite.e.POST(path).
			WithJSON(map[string]string{"url": "https://example.com"}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object()

		data := resp.Value("data").Object()
		code := data.Value("code").String().Raw()

		link, err := suite.linkRepo.GetByCode(context.Background(), code)
		if err != nil {
			suite.T().Fatalf("Failed to retrieve link record: %v", err)
		}

		suite.Equal(base62.Encode(link.ID), link.Code)

		data.HasValue("id", link.ID)
		data.HasValue("short_url", "http://sl.test/"+link.Code)
		data.HasValue("url", "https://example.com")
		data.NotContainsKey("click_count")
		data.ContainsKey("created_at")
		data.NotContainsKey("expires_at")
	})

	suite.Run("scheme-less url gets https", func() {
		resp := suite.e.POST(path).
			WithJSON(map[string]string{"url": "example.com/page"}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object()

		resp.Value("data").Object().
			HasValue("url", "https://example.com/page")
	})

	suite.Run("custom alias", func() {
		resp := suite.e.POST(path).
			WithJSON(map[string]string{"url": "https://example.com", "custom_alias": "my-link"}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object()

		resp.Value("data").Object().
			HasValue("code", "my-link")
	})

	suite.Run("duplicate custom alias", func() {
		suite.e.POST(path).
			WithJSON(map[string]string{"url": "https://one.example.com", "custom_alias": "taken"}).
			Expect().
			Status(http.StatusCreated)

		resp := suite.e.POST(path).
			WithJSON(map[string]string{"url": "https://two.example.com", "custom_alias": "taken"}).
			Expect().
			Status(http.StatusConflict).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("duplicate target url reuses code", func() {
		first := suite.e.POST(path).
			WithJSON(map[string]string{"url": "https://dup.example.com"}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object().
			Value("data").Object().
			Value("code").String().Raw()

		second := suite.e.POST(path).
			WithJSON(map[string]string{"url": "https://dup.example.com"}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object().
			Value("data").Object().
			Value("code").String().Raw()

		suite.Equal(first, second)
	})

	suite.Run("expiry days set", func() {
		resp := suite.e.POST(path).
			WithJSON(map[string]any{"url": "https://example.com", "expiry_days": 7}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object()

		resp.Value("data").Object().ContainsKey("expires_at")
	})

	suite.Run("non-positive expiry days", func() {
		resp := suite.e.POST(path).
			WithJSON(map[string]any{"url": "https://example.com", "expiry_days": 0}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", "error")
	})
}

func (suite *APITestSuite) TestRedirect() {
	path := "/%s"

	suite.Run("link not found", func() {
		suite.e.GET(fmt.Sprintf(path, "missing")).
			Expect().
			Status(http.StatusNotFound)
	})

	suite.Run("success bumps click count", func() {
		link, err := suite.linkRepo.Create(context.Background(), "abc123", "https://example.com", nil)
		if err != nil {
			suite.T().Fatalf("Failed to save link record: %v", err)
		}

		suite.e.GET(fmt.Sprintf(path, link.Code)).
			WithRedirectPolicy(httpexpect.DontFollowRedirects).
			Expect().
			Status(http.StatusFound).
			Header("Location").IsEqual("https://example.com")

		link, err = suite.linkRepo.GetByCode(context.Background(), link.Code)
		if err != nil {
			suite.T().Fatalf("Failed to retrieve link record: %v", err)
		}

		suite.Equal(int64(1), link.ClickCount)
		suite.NotNil(link.LastAccessedAt)
	})

	suite.Run("expired link", func() {
		expiresAt := time.Now().UTC().Add(-time.Hour)

		link, err := suite.linkRepo.Create(context.Background(), "stale1", "https://example.com", &expiresAt)
		if err != nil {
			suite.T().Fatalf("Failed to save link record: %v", err)
		}

		suite.e.GET(fmt.Sprintf(path, link.Code)).
			Expect().
			Status(http.StatusGone)

		link, err = suite.linkRepo.GetByCode(context.Background(), link.Code)
		if err != nil {
			suite.T().Fatalf("Failed to retrieve link record: %v", err)
		}

		suite.Equal(int64(0), link.ClickCount)
		suite.Nil(link.LastAccessedAt)
	})
}

func (suite *APITestSuite) TestExpandCode() {
	path := "/api/expand/%s"

	suite.Run("link not found", func() {
		resp := suite.e.GET(fmt.Sprintf(path, "missing")).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("success leaves counters untouched", func() {
		link, err := suite.linkRepo.Create(context.Background(), "abc123", "https://example.com", nil)
		if err != nil {
			suite.T().Fatalf("Failed to save link record: %v", err)
		}

		resp := suite.e.GET(fmt.Sprintf(path, link.Code)).
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		data := resp.Value("data").Object()
		data.HasValue("code", link.Code)
		data.HasValue("short_url", "http://sl.test/"+link.Code)
		data.HasValue("target_url", link.TargetURL)
		data.HasValue("click_count", int64(0))
		data.HasValue("expired", false)

		link, err = suite.linkRepo.GetByCode(context.Background(), link.Code)
		if err != nil {
			suite.T().Fatalf("Failed to retrieve link record: %v", err)
		}

		suite.Equal(int64(0), link.ClickCount)
	})

	suite.Run("expired link is reported", func() {
		expiresAt := time.Now().UTC().Add(-time.Hour)

		link, err := suite.linkRepo.Create(context.Background(), "stale1", "https://example.com", &expiresAt)
		if err != nil {
			suite.T().Fatalf("Failed to save link record: %v", err)
		}

		suite.e.GET(fmt.Sprintf(path, link.Code)).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			Value("data").Object().
			HasValue("expired", true)
	})
}

func (suite *APITestSuite) TestLinkStatsPage() {
	path := "/stats/%s"

	suite.Run("link not found", func() {
		suite.e.GET(fmt.Sprintf(path, "missing")).
			Expect().
			Status(http.StatusNotFound)
	})

	suite.Run("success", func() {
		link, err := suite.linkRepo.Create(context.Background(), "abc123", "https://example.com", nil)
		if err != nil {
			suite.T().Fatalf("Failed to save link record: %v", err)
		}

		suite.e.GET(fmt.Sprintf(path, link.Code)).
			Expect().
			Status(http.StatusOK).
			Text().
			Contains(link.Code).
			Contains(link.TargetURL)
	})
}

func (suite *APITestSuite) TestListRecentLinks() {
	const path = "/api/links"

	suite.Run("empty", func() {
		suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			Value("data").Array().IsEmpty()
	})

	suite.Run("newest first", func() {
		for i := 0; i < 3; i++ {
			_, err := suite.linkRepo.Create(context.Background(),
				fmt.Sprintf("code%d", i), fmt.Sprintf("https://example.com/%d", i), nil)
			if err != nil {
				suite.T().Fatalf("Failed to save link record: %v", err)
			}
		}

		data := suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			Value("data").Array()

		data.Length().IsEqual(3)
		data.Value(0).Object().HasValue("code", "code2")
	})
}

func (suite *APITestSuite) TestModifyLink() {
	path := "/api/shorten/%s"

	suite.Run("link not found", func() {
		resp := suite.e.PUT(fmt.Sprintf(path, "missing")).
			WithJSON(map[string]string{"url": "https://new.example.com"}).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("success", func() {
		link, err := suite.linkRepo.Create(context.Background(), "abc123", "https://example.com", nil)
		if err != nil {
			suite.T().Fatalf("Failed to save link record: %v", err)
		}

		resp := suite.e.PUT(fmt.Sprintf(path, link.Code)).
			WithJSON(map[string]string{"url": "https://new.example.com"}).
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		data := resp.Value("data").Object()
		data.HasValue("code", link.Code)
		data.HasValue("url", "https://new.example.com")
	})
}

func (suite *APITestSuite) TestDeleteLink() {
	path := "/api/shorten/%s"

	suite.Run("link not found", func() {
		resp := suite.e.DELETE(fmt.Sprintf(path, "missing")).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("success", func() {
		link, err := suite.linkRepo.Create(context.Background(), "abc123", "https://example.com", nil)
		if err != nil {
			suite.T().Fatalf("Failed to save link record: %v", err)
		}

		suite.e.DELETE(fmt.Sprintf(path, link.Code)).
			Expect().
			Status(http.StatusNoContent)

		repoLink, err := suite.linkRepo.GetByCode(context.Background(), link.Code)
		suite.Nil(repoLink)
		suite.Error(err)
	})
}

func TestAPI(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
