package repositories

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/originrp/sentryn/database"
	"github.com/originrp/sentryn/models"
)

func setupTestDB(t *testing.T) *sql.DB {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := database.Initialize(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestTokenRepositoryLifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	// Issue
	token, err := repo.Create(ctx, "100", "Alice")
	if err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}
	if token.Token == "" {
		t.Error("Expected token value to be set")
	}
	if token.ID == 0 {
		t.Error("Expected token ID to be set after creation")
	}
	remaining := time.Until(token.ExpiresAt)
	if remaining < 14*time.Minute || remaining > 16*time.Minute {
		t.Errorf("Expected ~15m TTL, got %v", remaining)
	}

	// Active lookup
	active, err := repo.GetActiveByDiscordID(ctx, "100")
	if err != nil {
		t.Fatalf("Failed to get active token: %v", err)
	}
	if active == nil || active.Token != token.Token {
		t.Fatalf("Expected active token %q, got %+v", token.Token, active)
	}

	// Validate
	validated, err := repo.Validate(ctx, token.Token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if validated.DiscordID != "100" {
		t.Errorf("Expected discord id 100, got %s", validated.DiscordID)
	}

	// Consume once
	if err := repo.Consume(ctx, token.Token); err != nil {
		t.Fatalf("Failed to consume token: %v", err)
	}

	// Second consume must report not usable
	if err := repo.Consume(ctx, token.Token); !errors.Is(err, ErrTokenNotUsable) {
		t.Errorf("Expected ErrTokenNotUsable on second consume, got %v", err)
	}

	// Validate after consume must report not usable as well
	if _, err := repo.Validate(ctx, token.Token); !errors.Is(err, ErrTokenNotUsable) {
		t.Errorf("Expected ErrTokenNotUsable after consumption, got %v", err)
	}

	// No active token remains
	active, err = repo.GetActiveByDiscordID(ctx, "100")
	if err != nil {
		t.Fatalf("Failed to get active token: %v", err)
	}
	if active != nil {
		t.Errorf("Expected no active token after consumption, got %+v", active)
	}
}

func TestTokenRepositoryValidateUnknownToken(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTokenRepository(db)

	if _, err := repo.Validate(context.Background(), "never-issued"); !errors.Is(err, ErrTokenNotUsable) {
		t.Errorf("Expected ErrTokenNotUsable for unknown token, got %v", err)
	}
}

func TestTokenRepositoryExpiredToken(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	token, err := repo.Create(ctx, "100", "Alice")
	if err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}

	// Backdate past the TTL
	_, err = db.Exec(
		"UPDATE synchronization_token SET expires_at = ? WHERE token = ?",
		time.Now().UTC().Add(-time.Minute), token.Token,
	)
	if err != nil {
		t.Fatalf("Failed to backdate token: %v", err)
	}

	if _, err := repo.Validate(ctx, token.Token); !errors.Is(err, ErrTokenNotUsable) {
		t.Errorf("Expected ErrTokenNotUsable for expired token, got %v", err)
	}
	if err := repo.Consume(ctx, token.Token); !errors.Is(err, ErrTokenNotUsable) {
		t.Errorf("Expected ErrTokenNotUsable consuming expired token, got %v", err)
	}

	active, err := repo.GetActiveByDiscordID(ctx, "100")
	if err != nil {
		t.Fatalf("Failed to get active token: %v", err)
	}
	if active != nil {
		t.Errorf("Expected no active token after expiry, got %+v", active)
	}
}

func TestTokenRepositoryConcurrentConsume(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	token, err := repo.Create(ctx, "100", "Alice")
	if err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repo.Consume(ctx, token.Token)
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, refused int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrTokenNotUsable):
			refused++
		default:
			t.Errorf("Unexpected consume error: %v", err)
		}
	}

	if succeeded != 1 {
		t.Errorf("Expected exactly one successful consume, got %d", succeeded)
	}
	if refused != workers-1 {
		t.Errorf("Expected %d refused consumes, got %d", workers-1, refused)
	}
}

func TestTokenRepositoryActiveOrdering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	first, err := repo.Create(ctx, "100", "Alice")
	if err != nil {
		t.Fatalf("Failed to create first token: %v", err)
	}

	second, err := repo.Create(ctx, "100", "Alice")
	if err != nil {
		t.Fatalf("Failed to create second token: %v", err)
	}

	// Force distinct expiries so the ordering is deterministic
	_, err = db.Exec(
		"UPDATE synchronization_token SET expires_at = ? WHERE token = ?",
		second.ExpiresAt.Add(time.Minute), second.Token,
	)
	if err != nil {
		t.Fatalf("Failed to adjust expiry: %v", err)
	}

	active, err := repo.GetActiveByDiscordID(ctx, "100")
	if err != nil {
		t.Fatalf("Failed to get active token: %v", err)
	}
	if active == nil || active.Token != second.Token {
		t.Errorf("Expected latest-expiring token %q, got %+v", second.Token, active)
	}
	_ = first
}

func TestTokenRepositoryPurge(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	expired, err := repo.Create(ctx, "100", "Alice")
	if err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}
	_, err = db.Exec(
		"UPDATE synchronization_token SET expires_at = ? WHERE token = ?",
		time.Now().UTC().Add(-time.Minute), expired.Token,
	)
	if err != nil {
		t.Fatalf("Failed to backdate token: %v", err)
	}

	consumed, err := repo.Create(ctx, "200", "Bob")
	if err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}
	if err := repo.Consume(ctx, consumed.Token); err != nil {
		t.Fatalf("Failed to consume token: %v", err)
	}

	active, err := repo.Create(ctx, "300", "Carol")
	if err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}

	deleted, err := repo.PurgeExpiredOrConsumed(ctx)
	if err != nil {
		t.Fatalf("Failed to purge tokens: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 purged tokens, got %d", deleted)
	}

	// Purge is idempotent
	deleted, err = repo.PurgeExpiredOrConsumed(ctx)
	if err != nil {
		t.Fatalf("Failed to re-purge tokens: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Expected 0 purged tokens on second run, got %d", deleted)
	}

	// Active token untouched
	if _, err := repo.Validate(ctx, active.Token); err != nil {
		t.Errorf("Expected active token to survive purge, got %v", err)
	}
}

func TestTokenRepositoryDeleteByDiscordID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	if _, err := repo.Create(ctx, "100", "Alice"); err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}
	if _, err := repo.Create(ctx, "100", "Alice"); err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}
	other, err := repo.Create(ctx, "200", "Bob")
	if err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}

	if err := repo.DeleteByDiscordID(ctx, "100"); err != nil {
		t.Fatalf("Failed to delete tokens: %v", err)
	}

	active, err := repo.GetActiveByDiscordID(ctx, "100")
	if err != nil {
		t.Fatalf("Failed to get active token: %v", err)
	}
	if active != nil {
		t.Errorf("Expected no tokens left for user, got %+v", active)
	}

	if _, err := repo.Validate(ctx, other.Token); err != nil {
		t.Errorf("Expected other user's token to remain usable, got %v", err)
	}
}

func TestLinkRepositoryUpsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLinkRepository(db)
	ctx := context.Background()

	record := &models.LinkRecord{
		DiscordID:       "100",
		DiscordUsername: "Alice",
		SteamID:         "76561198000000001",
		SteamName:       "alice_steam",
	}

	if err := repo.Upsert(ctx, record); err != nil {
		t.Fatalf("Failed to upsert link record: %v", err)
	}

	stored, err := repo.GetByDiscordID(ctx, "100")
	if err != nil {
		t.Fatalf("Failed to get link record: %v", err)
	}
	if stored == nil {
		t.Fatal("Expected link record to exist")
	}
	if !stored.IsVerified {
		t.Error("Expected record to be verified after bind")
	}
	if stored.SteamID != "76561198000000001" {
		t.Errorf("Expected steam id to be stored, got %s", stored.SteamID)
	}

	// Second upsert for the same discord id updates in place
	record.SteamName = "alice_renamed"
	if err := repo.Upsert(ctx, record); err != nil {
		t.Fatalf("Failed to re-upsert link record: %v", err)
	}

	all, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("Failed to get all records: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("Expected 1 record after re-upsert, got %d", len(all))
	}
	if all[0].SteamName != "alice_renamed" {
		t.Errorf("Expected updated steam name, got %s", all[0].SteamName)
	}
}

func TestLinkRepositorySteamUniqueness(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLinkRepository(db)
	ctx := context.Background()

	first := &models.LinkRecord{
		DiscordID:       "100",
		DiscordUsername: "Alice",
		SteamID:         "76561198000000001",
	}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("Failed to upsert first record: %v", err)
	}

	// A different discord account claiming the same steam id must fail
	second := &models.LinkRecord{
		DiscordID:       "200",
		DiscordUsername: "Bob",
		SteamID:         "76561198000000001",
	}
	if err := repo.Upsert(ctx, second); !errors.Is(err, ErrSteamIDTaken) {
		t.Errorf("Expected ErrSteamIDTaken, got %v", err)
	}

	// The original record is untouched
	stored, err := repo.GetBySteamID(ctx, "76561198000000001")
	if err != nil {
		t.Fatalf("Failed to get record by steam id: %v", err)
	}
	if stored == nil || stored.DiscordID != "100" {
		t.Errorf("Expected steam id to remain owned by 100, got %+v", stored)
	}

	intruder, err := repo.GetByDiscordID(ctx, "200")
	if err != nil {
		t.Fatalf("Failed to get record: %v", err)
	}
	if intruder != nil {
		t.Errorf("Expected no record for 200, got %+v", intruder)
	}
}

func TestLinkRepositoryDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLinkRepository(db)
	ctx := context.Background()

	record := &models.LinkRecord{
		DiscordID:       "100",
		DiscordUsername: "Alice",
		SteamID:         "76561198000000001",
	}
	if err := repo.Upsert(ctx, record); err != nil {
		t.Fatalf("Failed to upsert record: %v", err)
	}

	if err := repo.Delete(ctx, "100"); err != nil {
		t.Fatalf("Failed to delete record: %v", err)
	}

	stored, err := repo.GetByDiscordID(ctx, "100")
	if err != nil {
		t.Fatalf("Failed to get record: %v", err)
	}
	if stored != nil {
		t.Errorf("Expected record to be gone, got %+v", stored)
	}

	if err := repo.Delete(ctx, "100"); err == nil {
		t.Error("Expected error deleting missing record")
	}
}

func TestLinkRepositoryStats(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLinkRepository(db)
	ctx := context.Background()

	for _, r := range []*models.LinkRecord{
		{DiscordID: "100", DiscordUsername: "Alice", SteamID: "76561198000000001"},
		{DiscordID: "200", DiscordUsername: "Bob", SteamID: "76561198000000002"},
	} {
		if err := repo.Upsert(ctx, r); err != nil {
			t.Fatalf("Failed to upsert record: %v", err)
		}
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats.Total != 2 || stats.Verified != 2 {
		t.Errorf("Expected 2/2 stats, got %+v", stats)
	}
}

func TestAuditRepositoryCreate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAuditRepository(db)

	entry := &models.AuditLogEntry{
		EventType: models.AuditLinkComplete,
		DiscordID: "100",
		SteamID:   "76561198000000001",
		Detail:    "bind completed",
	}

	if err := repo.Create(context.Background(), entry); err != nil {
		t.Fatalf("Failed to create audit entry: %v", err)
	}

	var count int
	var actor string
	err := db.QueryRow("SELECT COUNT(*), MAX(actor) FROM audit_log").Scan(&count, &actor)
	if err != nil {
		t.Fatalf("Failed to query audit log: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 audit entry, got %d", count)
	}
	if actor != "system" {
		t.Errorf("Expected default actor 'system', got %s", actor)
	}
}
