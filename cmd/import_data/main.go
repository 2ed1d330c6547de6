package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/rl1809/storefront/internal/adapter/catalogfile"
	"github.com/rl1809/storefront/internal/adapter/imagestore"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

// Imports products from a CSV or XLSX file. Images named in the
// image_filename column are read from the image directory:
//
//	import_data products.csv images/
func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s <file.csv|file.xlsx> [image_basedir]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 || flag.NArg() > 2 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	var images service.ImageSource
	if dir := flag.Arg(1); dir != "" {
		images = func(name string) (io.ReadCloser, error) {
			return os.Open(filepath.Join(dir, filepath.Base(name)))
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.StoreDriver != config.DriverMySQL {
		log.Fatalf("import needs STORE_DRIVER=%s, got %s", config.DriverMySQL, cfg.StoreDriver)
	}

	rows, err := readFile(path)
	if err != nil {
		log.Fatalf("failed to read %s: %v", path, err)
	}

	ctx := context.Background()
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}
	mysqlAdapter := storage.NewMySQLAdapter(db)
	if err := mysqlAdapter.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	fmt.Println("Importing products")
	catalog := service.NewCatalogService(mysqlAdapter, imagestore.NewDiskStore(cfg.MediaDir), cfg.PageSize)
	stats, err := catalog.Import(ctx, rows, images)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}
	fmt.Printf("Products processed=%d (created=%d)\n", stats.Products, stats.ProductsCreated)
	fmt.Printf("Tags processed=%d (created=%d)\n", stats.Tags, stats.TagsCreated)
	fmt.Printf("Images processed=%d\n", stats.Images)
}

func readFile(path string) ([]domain.ProductImport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return catalogfile.ReadCSV(f)
	case ".xlsx":
		info, err := f.Stat()
		if err != nil {
			return nil, err
		}
		return catalogfile.ReadXLSX(f, info.Size())
	}
	return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
}
