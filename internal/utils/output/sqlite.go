package output

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/law-makers/ammocrawl/pkg/models"
)

const createProductsSQL = `
CREATE TABLE IF NOT EXISTS products (
	"id" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
	"caliber" TEXT NOT NULL DEFAULT '',
	"website" TEXT NOT NULL,
	"manufacturer" TEXT,
	"title" TEXT NOT NULL,
	"link" TEXT NOT NULL,
	"image" TEXT,
	"original_price" TEXT NOT NULL,
	"cpr" TEXT NOT NULL,
	"rounds_per_package" INTEGER,
	"steel_casing" BOOLEAN NOT NULL DEFAULT 0,
	"remanufactured" BOOLEAN NOT NULL DEFAULT 0,
	"scraped_at" DATETIME NOT NULL,
	UNIQUE ("link", "caliber")
);`

const upsertProductSQL = `
INSERT INTO products (
	caliber, website, manufacturer, title, link, image, original_price, cpr,
	rounds_per_package, steel_casing, remanufactured, scraped_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(link, caliber) DO UPDATE SET
	title=excluded.title,
	manufacturer=excluded.manufacturer,
	image=excluded.image,
	original_price=excluded.original_price,
	cpr=excluded.cpr,
	rounds_per_package=excluded.rounds_per_package,
	scraped_at=excluded.scraped_at;`

// SaveSQLite upserts products into a SQLite database, keyed by link and
// caliber so repeated runs refresh prices in place. Money is stored as the
// two-decimal string to avoid float rounding.
func SaveSQLite(products []models.Product, filepath string) error {
	db, err := sql.Open("sqlite", filepath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(createProductsSQL); err != nil {
		return fmt.Errorf("create products table: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(upsertProductSQL)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, p := range products {
		var rounds interface{}
		if p.RoundsPerPackage > 0 {
			rounds = p.RoundsPerPackage
		}
		if _, err := stmt.Exec(
			p.Caliber, p.Website, p.Manufacturer, p.Title, p.Link, p.Image,
			p.OriginalPrice.String(), p.CPR.String(), rounds,
			p.SteelCasing, p.Remanufactured, now,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("save %s: %w", p.Link, err)
		}
	}
	return tx.Commit()
}
