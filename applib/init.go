package applib

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/tomyedwab/todos/applib/database"
	"github.com/tomyedwab/todos/applib/handlers"
	"github.com/tomyedwab/todos/applib/middleware"
)

const (
	DefaultDBPath     = "./todo.db"
	DefaultListenAddr = "127.0.0.1:3000"
)

type Config struct {
	DBPath     string
	ListenAddr string
}

// LoadConfig reads the config from command line flags. TODO_DB_PATH and
// TODO_ADDR in the environment replace the built-in defaults; explicit flags
// win over both.
func LoadConfig(args []string, getenv func(string) string) (Config, error) {
	dbPathDefault := DefaultDBPath
	if v := getenv("TODO_DB_PATH"); v != "" {
		dbPathDefault = v
	}
	addrDefault := DefaultListenAddr
	if v := getenv("TODO_ADDR"); v != "" {
		addrDefault = v
	}

	var cfg Config
	flags := flag.NewFlagSet("todoserver", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.StringVar(&cfg.DBPath, "dbPath", dbPathDefault, "Path to the SQLite database file")
	flags.StringVar(&cfg.ListenAddr, "addr", addrDefault, "Address for the HTTP server")
	if err := flags.Parse(args); err != nil {
		return Config{}, fmt.Errorf("invalid arguments: %w", err)
	}

	if cfg.DBPath == "" {
		return Config{}, fmt.Errorf("database path must not be empty")
	}
	if cfg.ListenAddr == "" {
		return Config{}, fmt.Errorf("listen address must not be empty")
	}
	return cfg, nil
}

// Init opens the database, creates the schema and wires up the HTTP routes
// behind the default middleware.
func Init(cfg Config, logger *slog.Logger) (*Application, error) {
	db, err := database.Connect("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info("Database initialized", "path", cfg.DBPath)

	mux := http.NewServeMux()
	handlers.NewTodoHandler(db, logger).Register(mux)

	return NewApplication(cfg, db, middleware.ApplyDefault(logger, mux.ServeHTTP), logger), nil
}
