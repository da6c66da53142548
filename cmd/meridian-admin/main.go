// Package main is the entry point for the Meridian admin CLI.
// It manages users directly against the database, bypassing the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"

	"github.com/prn-tf/meridian-auth/internal/config"
	"github.com/prn-tf/meridian-auth/internal/domain"
	"github.com/prn-tf/meridian-auth/internal/pkg/crypto"
	"github.com/prn-tf/meridian-auth/internal/repository"
	"github.com/prn-tf/meridian-auth/internal/repository/postgres"
	"github.com/prn-tf/meridian-auth/internal/repository/sqlite"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("Meridian Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "create-admin":
		runCreateAdmin(os.Args[2:])

	case "list-users":
		runListUsers(os.Args[2:])

	case "change-role":
		runChangeRole(os.Args[2:])

	case "suspend":
		runSetStatus(os.Args[2:], domain.StatusSuspended)

	case "activate":
		runSetStatus(os.Args[2:], domain.StatusActive)

	case "cleanup-sessions":
		runCleanupSessions(os.Args[2:])

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// env holds the wiring every command needs.
type env struct {
	cfg      *config.Config
	users    repository.UserRepository
	perms    repository.PermissionRepository
	sessions repository.SessionRepository
	close    func() error
}

func setup(ctx context.Context, configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)

	e := &env{cfg: cfg}
	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.Config{
			Path:        cfg.Database.Path,
			JournalMode: cfg.Database.JournalMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		e.users = sqlite.NewUserRepository(db)
		e.perms = sqlite.NewPermissionRepository(db)
		e.sessions = sqlite.NewSessionRepository(db)
		e.close = db.Close

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		e.users = postgres.NewUserRepository(db)
		e.perms = postgres.NewPermissionRepository(db)
		e.sessions = postgres.NewSessionRepository(db)
		e.close = db.Close

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	return e, nil
}

func runCreateAdmin(args []string) {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	email := fs.String("email", "", "admin email (required)")
	username := fs.String("username", "", "admin username (required)")
	fullName := fs.String("name", "Administrator", "full name")
	password := fs.String("password", "", "password (required)")
	fs.Parse(args)

	if *email == "" || *username == "" || *password == "" {
		fatal("create-admin requires --email, --username and --password")
	}

	ctx := context.Background()
	e, err := setup(ctx, *configPath)
	if err != nil {
		fatal(err.Error())
	}
	defer e.close()

	normalized, err := domain.NormalizeEmail(*email)
	if err != nil {
		fatal("invalid email address")
	}
	if err := domain.ValidatePassword(*password); err != nil {
		fatal(err.Error())
	}

	hasher := crypto.NewPasswordHasher(e.cfg.Auth.BcryptCost)
	hash, err := hasher.Hash(*password)
	if err != nil {
		fatal(err.Error())
	}

	user := domain.NewUser(normalized, *username, *fullName, hash, domain.RoleAdmin)
	user.Status = domain.StatusActive
	user.EmailVerified = true

	saved, err := e.users.Save(ctx, user)
	if err != nil {
		fatal(fmt.Sprintf("failed to create admin: %v", err))
	}
	if err := e.perms.ReplaceForUser(ctx, saved.ID, domain.DefaultPermissionSet(saved.ID, domain.RoleAdmin)); err != nil {
		fatal(fmt.Sprintf("failed to grant permissions: %v", err))
	}

	fmt.Printf("admin created: %s (%s)\n", saved.Email, saved.ID)
}

func runListUsers(args []string) {
	fs := flag.NewFlagSet("list-users", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	role := fs.String("role", "", "filter by role")
	limit := fs.Int("limit", 100, "max users to list")
	fs.Parse(args)

	ctx := context.Background()
	e, err := setup(ctx, *configPath)
	if err != nil {
		fatal(err.Error())
	}
	defer e.close()

	filters := map[string]string{}
	if *role != "" {
		filters["role"] = *role
	}

	users, err := e.users.List(ctx, repository.ListOptions{Limit: *limit, Filters: filters})
	if err != nil {
		fatal(fmt.Sprintf("failed to list users: %v", err))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tUSERNAME\tROLE\tSTATUS")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Username, u.Role, u.Status)
	}
	w.Flush()
}

func runChangeRole(args []string) {
	fs := flag.NewFlagSet("change-role", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	email := fs.String("email", "", "user email (required)")
	role := fs.String("role", "", "new role (required)")
	fs.Parse(args)

	if *email == "" || *role == "" {
		fatal("change-role requires --email and --role")
	}
	newRole := domain.Role(*role)
	if !newRole.IsValid() {
		fatal("invalid role: " + *role)
	}

	ctx := context.Background()
	e, err := setup(ctx, *configPath)
	if err != nil {
		fatal(err.Error())
	}
	defer e.close()

	user, err := e.users.GetByEmail(ctx, *email)
	if err != nil {
		fatal(fmt.Sprintf("user not found: %v", err))
	}

	// Role changes reset permissions to the new role's defaults and end
	// all sessions, same as the API path.
	user.Role = newRole
	user.Permissions = domain.DefaultPermissionNames(newRole)
	user.Touch()

	saved, err := e.users.Save(ctx, user)
	if err != nil {
		fatal(fmt.Sprintf("failed to save user: %v", err))
	}
	if err := e.perms.ReplaceForUser(ctx, saved.ID, domain.DefaultPermissionSet(saved.ID, newRole)); err != nil {
		fatal(fmt.Sprintf("failed to reset permissions: %v", err))
	}
	if _, err := e.sessions.DeactivateAllForUser(ctx, saved.ID); err != nil {
		fatal(fmt.Sprintf("failed to end sessions: %v", err))
	}

	fmt.Printf("role changed: %s is now %s\n", saved.Email, saved.Role)
}

func runSetStatus(args []string, status domain.Status) {
	fs := flag.NewFlagSet("set-status", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	email := fs.String("email", "", "user email (required)")
	fs.Parse(args)

	if *email == "" {
		fatal("command requires --email")
	}

	ctx := context.Background()
	e, err := setup(ctx, *configPath)
	if err != nil {
		fatal(err.Error())
	}
	defer e.close()

	user, err := e.users.GetByEmail(ctx, *email)
	if err != nil {
		fatal(fmt.Sprintf("user not found: %v", err))
	}

	user.Status = status
	user.Touch()
	if _, err := e.users.Save(ctx, user); err != nil {
		fatal(fmt.Sprintf("failed to save user: %v", err))
	}

	if status == domain.StatusSuspended {
		if _, err := e.sessions.DeactivateAllForUser(ctx, user.ID); err != nil {
			fatal(fmt.Sprintf("failed to end sessions: %v", err))
		}
	}

	fmt.Printf("user %s is now %s\n", user.Email, status)
}

func runCleanupSessions(args []string) {
	fs := flag.NewFlagSet("cleanup-sessions", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	ctx := context.Background()
	e, err := setup(ctx, *configPath)
	if err != nil {
		fatal(err.Error())
	}
	defer e.close()

	n, err := e.sessions.DeleteExpired(ctx)
	if err != nil {
		fatal(fmt.Sprintf("failed to delete expired sessions: %v", err))
	}

	fmt.Printf("deleted %d expired sessions\n", n)
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

func printUsage() {
	fmt.Println(`Meridian Admin CLI

Usage:
  meridian-admin <command> [arguments]

Commands:
  create-admin      Create an active admin account
  list-users        List users, optionally filtered by role
  change-role       Change a user's role (resets permissions, ends sessions)
  suspend           Suspend an account and end its sessions
  activate          Reactivate an account
  cleanup-sessions  Delete expired sessions
  version           Print version information
  help              Show this help message

Examples:
  meridian-admin create-admin --email admin@example.com --username admin --password 'S3cure!Pass'
  meridian-admin list-users --role admin
  meridian-admin change-role --email jo@example.com --role viewer
  meridian-admin cleanup-sessions

Use "meridian-admin <command> --help" for more information about a command.`)
}
