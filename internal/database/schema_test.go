package database

import (
	"io/fs"
	"path"
	"strings"
	"testing"
)

func readMigration(t *testing.T, name string) string {
	t.Helper()
	content, err := fs.ReadFile(migrations, path.Join(MigrationsDir, name))
	if err != nil {
		t.Fatalf("Failed to read migration file %s: %v", name, err)
	}
	return string(content)
}

func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	entries, err := fs.ReadDir(migrations, MigrationsDir)
	if err != nil {
		t.Fatalf("Failed to read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("No SQL migration files embedded")
	}

	for _, entry := range entries {
		content := readMigration(t, entry.Name())
		for _, directive := range []string{
			"-- +goose Up",
			"-- +goose Down",
			"-- +goose StatementBegin",
			"-- +goose StatementEnd",
		} {
			if !strings.Contains(content, directive) {
				t.Errorf("Migration file %s missing '%s' directive", entry.Name(), directive)
			}
		}
	}
}

func TestMigrationFilesCreateExpectedTables(t *testing.T) {
	expectedTables := map[string]string{
		"admins":         "00001_create_admins_table.sql",
		"refresh_tokens": "00002_create_refresh_tokens_table.sql",
		"categories":     "00003_create_categories_table.sql",
		"products":       "00004_create_products_table.sql",
		"orders":         "00005_create_orders_table.sql",
		"public_orders":  "00006_create_public_orders_table.sql",
		"banners":        "00007_create_content_tables.sql",
		"faq":            "00007_create_content_tables.sql",
		"settings":       "00007_create_content_tables.sql",
		"reviews":        "00008_create_reviews_table.sql",
	}

	for tableName, migrationFile := range expectedTables {
		content := readMigration(t, migrationFile)

		if !strings.Contains(content, "CREATE TABLE IF NOT EXISTS "+tableName+" (") {
			t.Errorf("Migration file %s does not create table %s", migrationFile, tableName)
		}
		if !strings.Contains(content, "DROP TABLE IF EXISTS "+tableName+";") {
			t.Errorf("Migration file %s does not drop table %s in down section", migrationFile, tableName)
		}
	}
}

func TestProductsTableHasRequiredColumns(t *testing.T) {
	content := readMigration(t, "00004_create_products_table.sql")

	requiredColumns := []string{
		"id UUID PRIMARY KEY",
		"slug VARCHAR(280) UNIQUE NOT NULL",
		"price NUMERIC",
		"sale_price NUMERIC",
		"category_slug VARCHAR",
		"stock INTEGER",
		"images JSONB",
		"specs JSONB",
		"status VARCHAR",
	}

	for _, column := range requiredColumns {
		if !strings.Contains(content, column) {
			t.Errorf("Products table missing required column definition: %s", column)
		}
	}
	if !strings.Contains(content, "CHECK (stock >= 0)") {
		t.Error("Products table must refuse negative stock")
	}
}

func TestOrdersTableHasStatusConstraint(t *testing.T) {
	content := readMigration(t, "00005_create_orders_table.sql")

	for _, status := range []string{"pending", "paid", "shipped", "delivered", "cancelled"} {
		if !strings.Contains(content, "'"+status+"'") {
			t.Errorf("Orders table status constraint missing value: %s", status)
		}
	}
}

func TestCategoriesTableIsSelfReferencing(t *testing.T) {
	content := readMigration(t, "00003_create_categories_table.sql")

	if !strings.Contains(content, "FOREIGN KEY (parent_id) REFERENCES categories(id)") {
		t.Error("Categories table missing parent foreign key")
	}
}
