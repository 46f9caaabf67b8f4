package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"chore-assistant-backend/internal/ai"
	"chore-assistant-backend/internal/analytics"
	"chore-assistant-backend/internal/assistant"
	"chore-assistant-backend/internal/chores"
	"chore-assistant-backend/internal/config"
	"chore-assistant-backend/internal/credential"
	"chore-assistant-backend/internal/db"
	"chore-assistant-backend/internal/httpapi"
	"chore-assistant-backend/internal/session"
)

func main() {
	setCredential := flag.String("set-credential", "", "store a secret read from stdin in the OS keyring (llm_api_key or db_password)")
	flag.Parse()

	if *setCredential != "" {
		if err := storeCredential(*setCredential); err != nil {
			log.Fatal("❌ Failed to store credential:", err)
		}
		log.Printf("🔑 Stored %s in keyring", *setCredential)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("❌ Failed to load config:", err)
	}
	if cfg.UseKeyring {
		cfg.FillSecrets(credential.Get, credential.KeyLLMAPIKey, credential.KeyDBPassword)
	}

	store, database, err := openStore(cfg)
	if err != nil {
		log.Fatal("❌ Failed to open session store:", err)
	}
	defer store.Close()
	if database != nil {
		defer database.Close()
	}

	var recorder analytics.Recorder = analytics.LogRecorder{Logger: log.Default()}
	if database != nil {
		recorder = analytics.SQLRecorder{DB: database}
	}

	choresClient := chores.NewClient(cfg.ChoresAPIBase, chores.WithTimeout(cfg.SubmitTimeout))
	engine := assistant.NewEngine(choresClient, assistant.Options{
		ConfirmTokens:      cfg.ConfirmTokens,
		YesTokens:          cfg.YesTokens,
		SubmitTimeout:      cfg.SubmitTimeout,
		ConditionalAnswers: cfg.ConditionalAnswers,
	})
	svc := assistant.NewService(store, engine, recorder)

	deps := httpapi.Deps{
		Logger:         log.Default(),
		Service:        svc,
		Directory:      choresClient,
		AllowedOrigins: cfg.CORSOrigins,
	}
	if llm := ai.New(cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMURL); llm.Configured() {
		deps.Chatter = llm
		log.Printf("🤖 LLM chat enabled (%s)", llm.Model)
	}

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "token"},
		AllowCredentials: true,
	})

	handler := c.Handler(httpapi.NewHandler(deps))
	if cfg.H2C {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🚀 API server is running on %s (sessions: %s)", cfg.HTTPAddr, cfg.SessionBackend)
	log.Fatal(srv.ListenAndServe())
}

// openStore returns the session store for the configured backend, plus the
// SQL handle when the backend has one.
func openStore(cfg *config.Config) (session.Store, *sqlx.DB, error) {
	switch cfg.SessionBackend {
	case config.BackendPostgres:
		database, err := db.Connect(db.DriverPostgres, cfg.ConnString())
		if err != nil {
			return nil, nil, err
		}
		log.Println("✅ Connected to PostgreSQL!")
		return session.NewSQLStore(database), database, nil

	case config.BackendSQLite:
		database, err := db.Connect(db.DriverSQLite, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("✅ Opened SQLite at %s", cfg.SQLitePath)
		return session.NewSQLStore(database), database, nil

	case config.BackendBadger:
		store, err := session.OpenBadgerStore(cfg.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("✅ Opened Badger at %s", cfg.BadgerPath)
		return store, nil, nil

	default:
		return session.NewMemoryStore(), nil, nil
	}
}

func storeCredential(name string) error {
	switch name {
	case credential.KeyLLMAPIKey, credential.KeyDBPassword:
	default:
		return fmt.Errorf("unknown credential %q", name)
	}

	fmt.Fprintf(os.Stderr, "%s: ", name)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	value := strings.TrimSpace(line)
	if value == "" {
		return fmt.Errorf("empty %s", name)
	}
	return credential.Set(name, value)
}
