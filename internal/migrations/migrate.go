package migrations

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	pg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

// RunMigrations applies the SQL files under ./migrations. A database that
// already carries the players table but no migration metadata predates the
// migration setup; it is baselined to the newest version first so the initial
// migration is not replayed over live data.
func RunMigrations(databaseURL string) error {
	if databaseURL == "" {
		return fmt.Errorf("database URL is empty")
	}

	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer sqlDB.Close()

	driver, err := pg.WithInstance(sqlDB, &pg.Config{MigrationsTable: "schema_migrations"})
	if err != nil {
		return fmt.Errorf("create migrate driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if needsBaseline(sqlDB) {
		if v := latestVersion("migrations"); v > 0 {
			log.Printf("[MIGRATE] Existing schema without metadata, baselining to version %d", v)
			if err := m.Force(int(v)); err != nil {
				return fmt.Errorf("baseline to version %d: %w", v, err)
			}
		}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	log.Printf("[MIGRATE] Schema up to date")
	return nil
}

// needsBaseline reports whether the schema exists but migrate's metadata
// table does not.
func needsBaseline(db *sql.DB) bool {
	var hasPlayers bool
	err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name='players')`).Scan(&hasPlayers)
	if err != nil || !hasPlayers {
		return false
	}
	var hasMeta bool
	err = db.QueryRow(`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name='schema_migrations')`).Scan(&hasMeta)
	return err == nil && !hasMeta
}

// latestVersion returns the highest numeric version prefix (e.g. 000001_)
// among the migration files in dir.
func latestVersion(dir string) int64 {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	re := regexp.MustCompile(`^0*([0-9]+)_`)
	var latest int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := re.FindStringSubmatch(entry.Name())
		if len(m) < 2 {
			continue
		}
		if v, _ := strconv.ParseInt(m[1], 10, 64); v > latest {
			latest = v
		}
	}
	return latest
}
