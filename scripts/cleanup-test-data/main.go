// cleanup-test-data removes test-like workspaces and everything under them.
//
// Test patterns matched (case-insensitive):
// - ^test (starts with "test")
// - test$ (ends with "test")
// - ^debug (debug prefix)
// - ^todo (todo prefix)
// - ^fixme (fixme prefix)
// - ^dummy (dummy prefix)
// - ^sample (sample prefix)
// - ^example (example prefix)
// - \d{4}$ (ends with 4 digits, e.g., "Scene2026")
//
// The schema carries no foreign keys, so each workspace is cascaded by hand:
// versions and scene models first, then projects, materials, members, and
// finally the workspace row, all in one transaction per pattern.
//
// Usage: go run ./scripts/cleanup-test-data
//
// Database connection: Uses standard PG* environment variables
//
// Flags:
//
//	-dry-run   Show what would be deleted without actually deleting (default: true)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// testWorkspacePatterns defines regex patterns used with PostgreSQL's ~*
// (case-insensitive regex) operator to identify test workspaces by name.
var testWorkspacePatterns = []string{
	`^test`,    // Starts with "test"
	`test$`,    // Ends with "test"
	`^debug`,   // Debug prefix
	`^todo`,    // Todo prefix
	`^fixme`,   // Fixme prefix
	`^dummy`,   // Dummy prefix
	`^sample`,  // Sample prefix
	`^example`, // Example prefix
	`\d{4}$`,   // Ends with 4 digits (year-like suffix)
}

func main() {
	dryRun := flag.Bool("dry-run", true, "Show what would be deleted without actually deleting")
	flag.Parse()

	ctx := context.Background()

	conn, err := pgx.Connect(ctx, buildConnString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	if *dryRun {
		fmt.Println("DRY RUN - no changes will be made")
		fmt.Println("Run with -dry-run=false to actually delete workspaces")
		fmt.Println()
	}

	totalDeleted := 0
	for _, pattern := range testWorkspacePatterns {
		count, err := cleanupTestWorkspaces(ctx, conn, pattern, *dryRun)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error cleaning pattern %q: %v\n", pattern, err)
			os.Exit(1)
		}
		totalDeleted += count
	}

	if *dryRun {
		fmt.Printf("\nTotal workspaces that would be deleted: %d\n", totalDeleted)
	} else {
		fmt.Printf("\nTotal workspaces deleted: %d\n", totalDeleted)
	}
}

// cleanupTestWorkspaces deletes workspaces whose name matches the given regex
// pattern, along with their projects, scene models, versions, materials and
// memberships. If dryRun is true, it only shows what would be deleted.
func cleanupTestWorkspaces(ctx context.Context, conn *pgx.Conn, pattern string, dryRun bool) (int, error) {
	if dryRun {
		rows, err := conn.Query(ctx, `
			SELECT w.id, w.name,
			       (SELECT COUNT(*) FROM projects p WHERE p.workspace_id = w.id) AS projects,
			       (SELECT COUNT(*) FROM workspace_members m WHERE m.workspace_id = w.id) AS members
			FROM workspaces w
			WHERE w.name ~* $1
		`, pattern)
		if err != nil {
			return 0, fmt.Errorf("query failed: %w", err)
		}
		defer rows.Close()

		var count int
		for rows.Next() {
			var id uuid.UUID
			var name string
			var projects, members int
			if err := rows.Scan(&id, &name, &projects, &members); err != nil {
				return 0, fmt.Errorf("scan failed: %w", err)
			}
			count++
			fmt.Printf("  [%s] %q (%s) - %d projects, %d members\n", pattern, name, id, projects, members)
		}
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("rows iteration failed: %w", err)
		}

		if count == 0 {
			fmt.Printf("  [%s] No matching workspaces\n", pattern)
		}
		return count, nil
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin failed: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Children first. A crash between statements must not strand rows, so
	// the whole cascade commits atomically.
	cascade := []string{
		`DELETE FROM project_versions WHERE project_id IN (
			SELECT id FROM projects WHERE workspace_id IN (SELECT id FROM workspaces WHERE name ~* $1))`,
		`DELETE FROM scene_models WHERE project_id IN (
			SELECT id FROM projects WHERE workspace_id IN (SELECT id FROM workspaces WHERE name ~* $1))`,
		`DELETE FROM projects WHERE workspace_id IN (SELECT id FROM workspaces WHERE name ~* $1)`,
		`DELETE FROM materials WHERE workspace_id IN (SELECT id FROM workspaces WHERE name ~* $1)`,
		`DELETE FROM workspace_members WHERE workspace_id IN (SELECT id FROM workspaces WHERE name ~* $1)`,
	}
	for _, stmt := range cascade {
		if _, err := tx.Exec(ctx, stmt, pattern); err != nil {
			return 0, fmt.Errorf("cascade delete failed: %w", err)
		}
	}

	result, err := tx.Exec(ctx, `DELETE FROM workspaces WHERE name ~* $1`, pattern)
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit failed: %w", err)
	}

	count := int(result.RowsAffected())
	fmt.Printf("Deleted %d workspaces matching pattern: %s\n", count, pattern)
	return count, nil
}

func buildConnString() string {
	host := getEnvOrDefault("PGHOST", "localhost")
	port := getEnvOrDefault("PGPORT", "5432")
	user := getEnvOrDefault("PGUSER", "postgres")
	password := os.Getenv("PGPASSWORD")
	dbname := getEnvOrDefault("PGDATABASE", "collab3d")

	connStr := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
		host, port, user, dbname)
	if password != "" {
		connStr += fmt.Sprintf(" password=%s", password)
	}
	return connStr
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
