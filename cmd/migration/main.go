package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"

	"gitlab.com/dirk.krummacker/contacts-converter/internal/config"
	"gitlab.com/dirk.krummacker/contacts-converter/internal/store"
)

// Usage example on the command line:
// > DBHOST=localhost DBUSER=dirk DBPWD=bullo92 go run main.go
// > DBHOST=localhost DBUSER=dirk DBPWD=bullo92 go run main.go -file=seed.sql
func main() {
	filePtr := flag.String("file", "", "an additional sql file to execute after the tables exist")
	configPtr := flag.String("config", "", "the YAML config file (default: ./contacts-converter.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPtr)
	if err != nil {
		panic(err)
	}
	sqlDB, err := store.CreateDatabase(cfg.DBDriver, cfg.DSN())
	if err != nil {
		panic(err)
	}
	db := sqlx.NewDb(sqlDB, cfg.DBDriver)
	defer db.Close()

	if err := store.Migrate(sqlDB, cfg.DBDriver); err != nil {
		panic(err)
	}
	fmt.Printf("Tables for %s are in place.\n", cfg.DBDriver)
	if *filePtr == "" {
		return
	}

	readFile, err := os.Open(*filePtr) // nosemgrep
	if err != nil {
		panic(err)
	}
	defer readFile.Close()

	fileScanner := bufio.NewScanner(readFile)
	fileScanner.Split(bufio.ScanLines)
	builder := strings.Builder{}
	for fileScanner.Scan() {
		line := fileScanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		builder.WriteString(line)
		builder.WriteString(" ")
		if strings.Contains(line, ";") {
			sql := builder.String()
			db.MustExec(sql)
			builder = strings.Builder{}
		}
	}
}
