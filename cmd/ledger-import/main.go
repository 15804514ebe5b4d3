// Command ledger-import loads legacy loan/repayment CSV files into the ledger
// store, or exports one customer back to that layout.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"loan-ledger/internal/adapter/repository/csvledger"
	"loan-ledger/internal/adapter/repository/mysql"
	"loan-ledger/internal/config"
	"loan-ledger/internal/domain/loan"
	"loan-ledger/internal/domain/repayment"
	"loan-ledger/internal/infrastructure/db"
	"loan-ledger/internal/infrastructure/logger"
	"loan-ledger/pkg/money"
)

func main() {
	var (
		loansPath      = flag.String("loans", "", "legacy loans CSV to import")
		repaymentsPath = flag.String("repayments", "", "legacy repayments CSV to import (optional)")
		actor          = flag.String("actor", csvledger.DefaultImportActor, "actor recorded on audit events")
		skipBad        = flag.Bool("skip-bad-rows", false, "import the readable rows even when some rows fail to parse")
		dryRun         = flag.Bool("dry-run", false, "parse and report without writing")
		exportCustomer = flag.String("export-customer", "", "write this customer's loans and repayments as CSV instead of importing")
		outDir         = flag.String("out", ".", "directory for -export-customer output")
	)
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if *exportCustomer == "" && *loansPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	reader := csvledger.NewReader(cfg.Policy())

	var (
		loans   []loan.Loan
		entries []repayment.Entry
	)
	if *exportCustomer == "" {
		var bad int
		loans, bad = readFile(*loansPath, reader.ReadLoans)
		if *repaymentsPath != "" {
			var badEntries int
			entries, badEntries = readFile(*repaymentsPath, reader.ReadRepayments)
			bad += badEntries
		}
		fmt.Printf("parsed %d loans, %d repayment entries, %d bad rows\n", len(loans), len(entries), bad)
		if bad > 0 && !*skipBad {
			log.Fatal("refusing to import with bad rows; fix them or pass -skip-bad-rows")
		}
		if *dryRun {
			return
		}
	}

	gdb, err := db.OpenGorm(cfg.DBDriver, cfg.DSN(), zl)
	if err != nil {
		zl.Fatal("database", zap.Error(err))
	}
	if err := mysql.AutoMigrate(gdb); err != nil {
		zl.Fatal("auto-migrate", zap.Error(err))
	}

	if *exportCustomer != "" {
		if err := export(ctx, gdb, *exportCustomer, *outDir); err != nil {
			log.Fatalf("export: %v", err)
		}
		return
	}

	rep, err := csvledger.NewImporter(mysql.NewGormUoW(gdb), zl).Import(ctx, loans, entries, *actor)
	if err != nil {
		log.Fatalf("import rolled back: %v", err)
	}
	fmt.Printf("loans:   %d imported, %d already present\n", rep.LoansImported, rep.LoansSkipped)
	fmt.Printf("entries: %d imported, %d skipped\n", rep.EntriesImported, rep.EntriesSkipped)
	fmt.Printf("principal lent: %s\n", money.Format(rep.PrincipalImported))
	fmt.Printf("repaid:         %s\n", money.Format(rep.RepaidImported))
	fmt.Printf("late fees:      %s\n", money.Format(rep.LateFeeImported))
}

func readFile[T any](path string, read func(io.Reader) ([]T, []csvledger.RowError, error)) ([]T, int) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	out, rowErrs, err := read(f)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	for _, re := range rowErrs {
		fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(path), &re)
	}
	return out, len(rowErrs)
}

func export(ctx context.Context, gdb *gorm.DB, customerID, dir string) error {
	loanFile, err := os.Create(filepath.Join(dir, "loans.csv"))
	if err != nil {
		return err
	}
	defer loanFile.Close()
	repFile, err := os.Create(filepath.Join(dir, "repayments.csv"))
	if err != nil {
		return err
	}
	defer repFile.Close()

	if err := csvledger.ExportCustomer(ctx, mysql.NewLoanRepository(gdb), mysql.NewRepaymentRepository(gdb), customerID, loanFile, repFile); err != nil {
		return err
	}
	fmt.Printf("wrote %s and %s\n", loanFile.Name(), repFile.Name())
	return nil
}
