package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. The MySQL database backs the admin-account and
// write-audit layers only; the box state itself is in memory. The database
// is optional: with DB_DISABLED set the board runs storeless and admin
// login is checked against the bootstrap password hash instead.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    JWTSecret      string // secret used to sign admin session JWTs
    AccessTTLMin   int    // access token time-to-live in minutes
    RefreshTTLDays int    // refresh token time-to-live in days
    BcryptCost     int    // bcrypt cost for password hashing
    DBDisabled     bool   // skip MySQL entirely (audit + account storage off)
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    AdminEmail     string // email of the admin account provisioned on startup (DB mode)
    AdminPass      string // password for that account, hashed with BcryptCost on insert
    AdminPassHash  string // bootstrap bcrypt hash accepted when the DB is disabled
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    cfg := Config{
        Env:            must("APP_ENV"),
        Port:           must("APP_PORT"),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
        BcryptCost:     mustInt("BCRYPT_COST"),
        DBDisabled:     envBool("DB_DISABLED", false),
        AdminPassHash:  os.Getenv("ADMIN_PASSWORD_HASH"),
    }
    if !cfg.DBDisabled {
        cfg.DBUser = must("DB_USER")
        cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = must("DB_PORT")
        cfg.DBName = must("DB_NAME")
        // Optional: when both are set, the server creates this account on
        // boot if the admins table does not have it yet.
        cfg.AdminEmail = os.Getenv("ADMIN_EMAIL")
        cfg.AdminPass = os.Getenv("ADMIN_PASSWORD")
    } else if cfg.AdminPassHash == "" {
        log.Fatal("ADMIN_PASSWORD_HASH is required when DB_DISABLED is set")
    }
    return cfg
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
