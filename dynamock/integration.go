package dynamock

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/nisimpson/cloudlydb"
)

// TableManager creates record tables on DynamoDB Local and deletes them on
// cleanup.
type TableManager struct {
	local  *LocalDynamoDB
	tables []string
}

// NewTableManager creates a table manager for the given client.
func NewTableManager(client *dynamodb.Client) *TableManager {
	return &TableManager{local: &LocalDynamoDB{Client: client}}
}

// CreateTestTable creates a record table and tracks it for cleanup.
func (tm *TableManager) CreateTestTable(ctx context.Context, tableName string) error {
	if err := tm.local.CreateTable(ctx, tableName); err != nil {
		return err
	}
	tm.tables = append(tm.tables, tableName)
	return nil
}

// Cleanup deletes every table created by this manager.
func (tm *TableManager) Cleanup(ctx context.Context) error {
	for _, name := range tm.tables {
		if err := tm.local.DeleteTable(ctx, name); err != nil {
			return err
		}
	}
	tm.tables = tm.tables[:0]
	return nil
}

// TableNames returns the names of the managed tables.
func (tm *TableManager) TableNames() []string {
	return append([]string(nil), tm.tables...)
}

// NewTestTable generates a unique table name. DynamoDB table names allow
// letters, digits, underscores, hyphens and dots.
func NewTestTable(prefix string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '-'
	}, prefix)
	return fmt.Sprintf("%s-%d", name, time.Now().UnixNano())
}

// Seeder writes fixture records straight into a table, keeping the
// timestamps of each record as given.
type Seeder struct {
	Client Client
	Table  *cloudlydb.Table
}

// NewSeeder creates a seeder for table.
func NewSeeder(client Client, table *cloudlydb.Table) *Seeder {
	return &Seeder{Client: client, Table: table}
}

// SeedRecord writes a single record.
func (s *Seeder) SeedRecord(ctx context.Context, rec *cloudlydb.Record) error {
	input, err := s.Table.MarshalPut(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s/%s: %w", rec.PK, rec.SK, err)
	}
	if _, err := s.Client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to put record %s/%s: %w", rec.PK, rec.SK, err)
	}
	return nil
}

// SeedRecords writes records in order and stops at the first failure.
func (s *Seeder) SeedRecords(ctx context.Context, recs ...*cloudlydb.Record) error {
	for _, rec := range recs {
		if err := s.SeedRecord(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	Port           int                      // port of an already running DynamoDB Local
	Image          string                   // container started when nothing listens on Port; empty skips the test instead
	TablePrefix    string                   // prefix of the generated table name
	TableOptions   []func(*cloudlydb.Table) // applied to the table the store is bound to
	CleanupTimeout time.Duration
}

// DefaultIntegrationTestConfig returns the default integration configuration.
func DefaultIntegrationTestConfig() *IntegrationTestConfig {
	return &IntegrationTestConfig{
		Port:           DefaultLocalPort,
		Image:          DefaultLocalImage,
		TablePrefix:    "integration-test",
		CleanupTimeout: 30 * time.Second,
	}
}

// RunIntegrationTest creates a fresh record table on DynamoDB Local, runs fn
// with a store bound to it and deletes the table afterwards. The store's
// table has the gsi1 index registered. DynamoDB Local on config.Port is used
// when it is running; otherwise a shared container is started from
// config.Image. The test is skipped in short mode and when neither is
// available.
func RunIntegrationTest(t *testing.T, config *IntegrationTestConfig, fn func(local *LocalDynamoDB, store *cloudlydb.Store)) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if config == nil {
		config = DefaultIntegrationTestConfig()
	}

	ctx := context.Background()
	local := NewLocalDynamoDB(config.Port)
	if !local.IsAvailable(ctx) {
		if config.Image == "" {
			t.Skipf("DynamoDB Local not available on port %d", config.Port)
		}
		local = SharedContainer(t, config.Image)
	}

	tableName := NewTestTable(config.TablePrefix)
	if err := local.CreateTable(ctx, tableName); err != nil {
		t.Fatalf("failed to create test table %s: %v", tableName, err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.CleanupTimeout)
		defer cancel()
		if err := local.DeleteTable(ctx, tableName); err != nil {
			t.Errorf("failed to delete table %s: %v", tableName, err)
		}
	})

	opts := append([]func(*cloudlydb.Table){
		cloudlydb.WithIndex(IndexName, IndexPartitionKey, IndexSortKey),
	}, config.TableOptions...)
	fn(local, cloudlydb.NewStore(local.Client, cloudlydb.NewTable(tableName, opts...)))
}
